package sim

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

// ScalarEvaluator maps a random seed in [0,1) to a starting value.
// Implementations must be pure.
type ScalarEvaluator interface {
	Evaluate(seed float32) float32
}

// RangeEvaluator is a ScalarEvaluator that lerps between two bounds by its
// seed. Gravity must be one so the renderer can rebuild a particle's value
// from the seed stored in its record.
type RangeEvaluator interface {
	ScalarEvaluator
	Bounds() (lo, hi float32)
}

type ColorEvaluator interface {
	Evaluate(seed float32) [4]float32
}

// SpawnSource decides where a particle starts and which way it heads, in
// emitter-local space. direction does not need to be normalized.
type SpawnSource interface {
	Sample(rng *rand.Rand) (position, direction mgl32.Vec3)
}

// Emitter is the add-particle entry point handed to an EmissionPolicy.
type Emitter interface {
	Emit(count int)
}

// EmissionPolicy decides how many particles to emit between two play times.
type EmissionPolicy interface {
	Tick(prev, curr float32, e Emitter)
}

// Uploader mirrors the dirty part of a store to the GPU.
type Uploader interface {
	UploadIfDirty(store *Store) bool
}

// Logger is the subset of the engine logger the simulation uses.
type Logger interface {
	DebugEnabled() bool
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// Attributes bundles the starting-value evaluators. Nil entries fall back
// to the defaults from DefaultAttributes.
type Attributes struct {
	Lifetime ScalarEvaluator
	Speed    ScalarEvaluator
	Gravity  RangeEvaluator

	// SizeX is used for 1D sizes; SizeY/SizeZ only for 3D sizes.
	SizeX ScalarEvaluator
	SizeY ScalarEvaluator
	SizeZ ScalarEvaluator

	// RotationZ is used for 1D rotations; X/Y only for 3D rotations.
	RotationX ScalarEvaluator
	RotationY ScalarEvaluator
	RotationZ ScalarEvaluator

	Color ColorEvaluator
}

type constScalar float32

func (c constScalar) Evaluate(float32) float32   { return float32(c) }
func (c constScalar) Bounds() (float32, float32) { return float32(c), float32(c) }

type constColor [4]float32

func (c constColor) Evaluate(float32) [4]float32 { return c }

func DefaultAttributes() Attributes {
	return Attributes{
		Lifetime:  constScalar(5),
		Speed:     constScalar(5),
		Gravity:   constScalar(0),
		SizeX:     constScalar(1),
		SizeY:     constScalar(1),
		SizeZ:     constScalar(1),
		RotationX: constScalar(0),
		RotationY: constScalar(0),
		RotationZ: constScalar(0),
		Color:     constColor{1, 1, 1, 1},
	}
}

func (a Attributes) withDefaults() Attributes {
	d := DefaultAttributes()
	if a.Lifetime == nil {
		a.Lifetime = d.Lifetime
	}
	if a.Speed == nil {
		a.Speed = d.Speed
	}
	if a.Gravity == nil {
		a.Gravity = d.Gravity
	}
	if a.SizeX == nil {
		a.SizeX = d.SizeX
	}
	if a.SizeY == nil {
		a.SizeY = a.SizeX
	}
	if a.SizeZ == nil {
		a.SizeZ = a.SizeX
	}
	if a.RotationX == nil {
		a.RotationX = d.RotationX
	}
	if a.RotationY == nil {
		a.RotationY = d.RotationY
	}
	if a.RotationZ == nil {
		a.RotationZ = d.RotationZ
	}
	if a.Color == nil {
		a.Color = d.Color
	}
	return a
}

type pointSource struct{}

func (pointSource) Sample(*rand.Rand) (mgl32.Vec3, mgl32.Vec3) {
	return mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}
}

type nopPolicy struct{}

func (nopPolicy) Tick(float32, float32, Emitter) {}

type nopUploader struct{}

func (nopUploader) UploadIfDirty(s *Store) bool {
	s.CommitUpload()
	return false
}

type nopLogger struct{}

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
