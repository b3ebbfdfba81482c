package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is the emitter pose sampled by the particle system when a
// particle is spawned.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() *Transform {
	return &Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (t *Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translate.Mul4(t.Rotation.Mat4()).Mul4(scale)
}

// TransformPoint maps a local-space point into world space.
func (t *Transform) TransformPoint(p mgl32.Vec3) mgl32.Vec3 {
	scaled := mgl32.Vec3{p.X() * t.Scale.X(), p.Y() * t.Scale.Y(), p.Z() * t.Scale.Z()}
	return t.Position.Add(t.Rotation.Rotate(scaled))
}

// TransformDirection rotates a local-space direction, ignoring translation and scale.
func (t *Transform) TransformDirection(d mgl32.Vec3) mgl32.Vec3 {
	return t.Rotation.Rotate(d)
}

// NormalizeOrUp returns d normalized, or +Y when d has no length.
func NormalizeOrUp(d mgl32.Vec3) mgl32.Vec3 {
	if d.LenSqr() < 1e-12 {
		return mgl32.Vec3{0, 1, 0}
	}
	return d.Normalize()
}
