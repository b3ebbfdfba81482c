package emit

import (
	"math"
	"math/rand/v2"

	"github.com/gekko3d/gekko-particles/particlert/rt/sim"
	"github.com/go-gl/mathgl/mgl32"
)

var up = mgl32.Vec3{0, 1, 0}

// PointShape spawns at the emitter origin heading along Direction (+Y when zero).
type PointShape struct {
	Direction mgl32.Vec3
}

func (p PointShape) Sample(*rand.Rand) (mgl32.Vec3, mgl32.Vec3) {
	if p.Direction.LenSqr() == 0 {
		return mgl32.Vec3{}, up
	}
	return mgl32.Vec3{}, p.Direction
}

// SphereShape spawns inside a sphere, or on its surface when Shell is set,
// heading radially outwards.
type SphereShape struct {
	Radius float32
	Shell  bool
}

func (s SphereShape) Sample(rng *rand.Rand) (mgl32.Vec3, mgl32.Vec3) {
	dir := unitVector(rng)
	r := s.Radius
	if !s.Shell {
		// cube root keeps the volume density uniform
		r *= float32(math.Cbrt(rng.Float64()))
	}
	return dir.Mul(r), dir
}

// ConeShape spawns on a disc of Radius around the origin and heads in a
// cone of AngleDegrees around +Y. Zero angle shoots straight up.
type ConeShape struct {
	AngleDegrees float32
	Radius       float32
}

func (c ConeShape) Sample(rng *rand.Rand) (mgl32.Vec3, mgl32.Vec3) {
	var pos mgl32.Vec3
	if c.Radius > 0 {
		r := c.Radius * float32(math.Sqrt(rng.Float64()))
		phi := 2 * math.Pi * rng.Float64()
		pos = mgl32.Vec3{r * float32(math.Cos(phi)), 0, r * float32(math.Sin(phi))}
	}
	return pos, coneDirection(rng, c.AngleDegrees)
}

// coneDirection is uniform over the spherical cap around +Y.
func coneDirection(rng *rand.Rand, coneDeg float32) mgl32.Vec3 {
	if coneDeg <= 0 {
		return up
	}
	thetaMax := math.Pi * float64(min(coneDeg, 180)) / 180
	cosTheta := lerp(float32(math.Cos(thetaMax)), 1, rng.Float32())
	sinTheta := float32(math.Sqrt(float64(max(0, 1-cosTheta*cosTheta))))
	phi := 2 * math.Pi * rng.Float64()

	return mgl32.Vec3{
		float32(math.Cos(phi)) * sinTheta,
		cosTheta,
		float32(math.Sin(phi)) * sinTheta,
	}
}

// BoxShape spawns uniformly inside an axis aligned box of Size centered on
// the origin, heading +Y.
type BoxShape struct {
	Size mgl32.Vec3
}

func (b BoxShape) Sample(rng *rand.Rand) (mgl32.Vec3, mgl32.Vec3) {
	p := mgl32.Vec3{
		(rng.Float32() - 0.5) * b.Size.X(),
		(rng.Float32() - 0.5) * b.Size.Y(),
		(rng.Float32() - 0.5) * b.Size.Z(),
	}
	return p, up
}

func unitVector(rng *rand.Rand) mgl32.Vec3 {
	z := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	r := math.Sqrt(1 - z*z)
	return mgl32.Vec3{float32(r * math.Cos(phi)), float32(z), float32(r * math.Sin(phi))}
}

var (
	_ sim.SpawnSource = PointShape{}
	_ sim.SpawnSource = SphereShape{}
	_ sim.SpawnSource = ConeShape{}
	_ sim.SpawnSource = BoxShape{}
)
