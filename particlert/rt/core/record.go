package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Record is a view of one particle inside a store buffer. It does not own
// Data; writes go straight into the backing buffer.
type Record struct {
	Data   []float32
	Layout *Layout
}

// RecordAt slices slot out of buf. buf must hold at least slot+1 records.
func RecordAt(buf []float32, l *Layout, slot int) Record {
	base := slot * l.Stride
	return Record{Data: buf[base : base+l.Stride : base+l.Stride], Layout: l}
}

func (r Record) vec3(off int) mgl32.Vec3 {
	return mgl32.Vec3{r.Data[off], r.Data[off+1], r.Data[off+2]}
}

func (r Record) setVec3(off int, v mgl32.Vec3) {
	r.Data[off] = v[0]
	r.Data[off+1] = v[1]
	r.Data[off+2] = v[2]
}

func (r Record) vec4(off int) [4]float32 {
	return [4]float32{r.Data[off], r.Data[off+1], r.Data[off+2], r.Data[off+3]}
}

func (r Record) setVec4(off int, v [4]float32) {
	copy(r.Data[off:off+4], v[:])
}

func (r Record) Position() mgl32.Vec3     { return r.vec3(r.Layout.Position) }
func (r Record) SetPosition(p mgl32.Vec3) { r.setVec3(r.Layout.Position, p) }

func (r Record) StartLifetime() float32     { return r.Data[r.Layout.StartLifetime] }
func (r Record) SetStartLifetime(v float32) { r.Data[r.Layout.StartLifetime] = v }

func (r Record) Direction() mgl32.Vec3     { return r.vec3(r.Layout.Direction) }
func (r Record) SetDirection(d mgl32.Vec3) { r.setVec3(r.Layout.Direction, d) }

func (r Record) SpawnTime() float32     { return r.Data[r.Layout.SpawnTime] }
func (r Record) SetSpawnTime(v float32) { r.Data[r.Layout.SpawnTime] = v }

func (r Record) StartColor() [4]float32     { return r.vec4(r.Layout.StartColor) }
func (r Record) SetStartColor(c [4]float32) { r.setVec4(r.Layout.StartColor, c) }

// StartSize returns the size as a vector; 1D layouts replicate the scalar.
func (r Record) StartSize() mgl32.Vec3 {
	if r.Layout.Use3DSize {
		return r.vec3(r.Layout.StartSize)
	}
	s := r.Data[r.Layout.StartSize]
	return mgl32.Vec3{s, s, s}
}

// SetStartSize stores s; 1D layouts keep only the X component.
func (r Record) SetStartSize(s mgl32.Vec3) {
	if r.Layout.Use3DSize {
		r.setVec3(r.Layout.StartSize, s)
		return
	}
	r.Data[r.Layout.StartSize] = s[0]
}

// StartRotation returns euler angles in radians; 1D layouts rotate around Z.
func (r Record) StartRotation() mgl32.Vec3 {
	if r.Layout.Use3DRotation {
		return r.vec3(r.Layout.StartRotation)
	}
	return mgl32.Vec3{0, 0, r.Data[r.Layout.StartRotation]}
}

func (r Record) SetStartRotation(rot mgl32.Vec3) {
	if r.Layout.Use3DRotation {
		r.setVec3(r.Layout.StartRotation, rot)
		return
	}
	r.Data[r.Layout.StartRotation] = rot[2]
}

func (r Record) StartSpeed() float32     { return r.Data[r.Layout.StartSpeed] }
func (r Record) SetStartSpeed(v float32) { r.Data[r.Layout.StartSpeed] = v }

func (r Record) FeatureSeeds() [4]float32      { return r.vec4(r.Layout.FeatureSeeds) }
func (r Record) SetFeatureSeeds(s [4]float32)  { r.setVec4(r.Layout.FeatureSeeds, s) }
func (r Record) VelocitySeeds() [4]float32     { return r.vec4(r.Layout.VelocitySeeds) }
func (r Record) SetVelocitySeeds(s [4]float32) { r.setVec4(r.Layout.VelocitySeeds, s) }

// WorldTransform returns the spawn-time emitter transform. ok is false for
// world-space layouts, which do not store it.
func (r Record) WorldTransform() (pos mgl32.Vec3, rot mgl32.Quat, ok bool) {
	if !r.Layout.HasWorldTransform() {
		return mgl32.Vec3{}, mgl32.QuatIdent(), false
	}
	q := r.vec4(r.Layout.WorldRotation)
	return r.vec3(r.Layout.WorldPosition), mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}, true
}

// SetWorldTransform is a no-op for world-space layouts.
func (r Record) SetWorldTransform(pos mgl32.Vec3, rot mgl32.Quat) {
	if !r.Layout.HasWorldTransform() {
		return
	}
	r.setVec3(r.Layout.WorldPosition, pos)
	r.setVec4(r.Layout.WorldRotation, [4]float32{rot.V[0], rot.V[1], rot.V[2], rot.W})
}

func (r Record) SimulationUV() [4]float32     { return r.vec4(r.Layout.SimulationUV) }
func (r Record) SetSimulationUV(uv [4]float32) { r.setVec4(r.Layout.SimulationUV, uv) }
