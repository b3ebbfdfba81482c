package gekko

import (
	"github.com/go-gl/mathgl/mgl32"
)

// TransformComponent is an entity's world transform. Particle emitters read
// it every frame.
type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform(position mgl32.Vec3) *TransformComponent {
	return &TransformComponent{Position: position, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// LocalTransformComponent is the transform relative to Parent.
type LocalTransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

type Parent struct {
	Entity EntityId
}

// SpinComponent rotates an entity around Axis, in degrees per second.
type SpinComponent struct {
	Axis        mgl32.Vec3
	DegPerSec   float32
	accumulated float32
}

// maxHierarchyDepth bounds the propagation passes per frame.
const maxHierarchyDepth = 8

type HierarchyModule struct{}

func (HierarchyModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(spinSystem).
			InStage(Update).
			RunAlways(),
	)
	app.UseSystem(
		System(TransformHierarchySystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

func spinSystem(t *Time, cmd *Commands) {
	dt := t.DtSeconds()
	MakeQuery2[SpinComponent, LocalTransformComponent](cmd).Map(func(eid EntityId, spin *SpinComponent, local *LocalTransformComponent) bool {
		axis := spin.Axis
		if axis.Len() == 0 {
			axis = mgl32.Vec3{0, 1, 0}
		}
		spin.accumulated += spin.DegPerSec * dt
		local.Rotation = mgl32.QuatRotate(mgl32.DegToRad(spin.accumulated), axis.Normalize())
		return true
	})
}

// TransformHierarchySystem writes world transforms of parented entities.
// For roots carrying a LocalTransformComponent the local one is authoritative.
func TransformHierarchySystem(cmd *Commands) {
	MakeQuery2[LocalTransformComponent, TransformComponent](cmd).Without(Parent{}).Map(func(eid EntityId, local *LocalTransformComponent, tr *TransformComponent) bool {
		if local.Rotation == (mgl32.Quat{}) {
			local.Rotation = mgl32.QuatIdent()
		}
		tr.Position = local.Position
		tr.Rotation = local.Rotation
		tr.Scale = local.Scale
		return true
	})

	for pass := 0; pass < maxHierarchyDepth; pass++ {
		changed := false
		MakeQuery3[LocalTransformComponent, Parent, TransformComponent](cmd).Map(func(eid EntityId, local *LocalTransformComponent, parent *Parent, world *TransformComponent) bool {
			parentWorld, ok := GetComponent[TransformComponent](cmd, parent.Entity)
			if !ok {
				return true
			}
			next := composeTransform(parentWorld, *local)
			if next != *world {
				*world = next
				changed = true
			}
			return true
		})
		if !changed {
			break
		}
	}
}

// composeTransform applies scale per axis so negative scales survive.
func composeTransform(parent TransformComponent, local LocalTransformComponent) TransformComponent {
	scaled := mgl32.Vec3{
		local.Position.X() * parent.Scale.X(),
		local.Position.Y() * parent.Scale.Y(),
		local.Position.Z() * parent.Scale.Z(),
	}
	return TransformComponent{
		Position: parent.Position.Add(parent.Rotation.Rotate(scaled)),
		Rotation: parent.Rotation.Mul(local.Rotation).Normalize(),
		Scale: mgl32.Vec3{
			parent.Scale.X() * local.Scale.X(),
			parent.Scale.Y() * local.Scale.Y(),
			parent.Scale.Z() * local.Scale.Z(),
		},
	}
}
