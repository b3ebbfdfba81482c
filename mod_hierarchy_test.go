package gekko

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityLocal(pos mgl32.Vec3) *LocalTransformComponent {
	return &LocalTransformComponent{Position: pos, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

func worldOf(t *testing.T, cmd *Commands, eid EntityId) TransformComponent {
	t.Helper()
	tr, ok := GetComponent[TransformComponent](cmd, eid)
	require.True(t, ok)
	return tr
}

func TestTransformHierarchy(t *testing.T) {
	app := NewApp()
	app.UseModules(HierarchyModule{})
	cmd := app.Commands()

	parent := cmd.AddEntity(NewTransform(mgl32.Vec3{10, 0, 0}))
	child := cmd.AddEntity(&Parent{Entity: parent}, identityLocal(mgl32.Vec3{0, 5, 0}), &TransformComponent{})
	grandchild := cmd.AddEntity(&Parent{Entity: child}, identityLocal(mgl32.Vec3{0, 0, 2}), &TransformComponent{})
	app.FlushCommands()

	TransformHierarchySystem(cmd)

	assert.Equal(t, mgl32.Vec3{10, 5, 0}, worldOf(t, cmd, child).Position)
	assert.Equal(t, mgl32.Vec3{10, 5, 2}, worldOf(t, cmd, grandchild).Position)

	// rotate the parent 90 degrees around Y and move the child along X
	parentTr := worldOf(t, cmd, parent)
	parentTr.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	cmd.AddComponents(parent, parentTr)
	cmd.AddComponents(child, *identityLocal(mgl32.Vec3{5, 0, 0}))
	app.FlushCommands()

	TransformHierarchySystem(cmd)

	childWorld := worldOf(t, cmd, child)
	assert.InDelta(t, 0, childWorld.Position.Sub(mgl32.Vec3{10, 0, -5}).Len(), 1e-4)
	assert.InDelta(t, 0, worldOf(t, cmd, grandchild).Position.Sub(mgl32.Vec3{12, 0, -5}).Len(), 1e-4)
}

func TestTransformHierarchy_Scale(t *testing.T) {
	app := NewApp()
	app.UseModules(HierarchyModule{})
	cmd := app.Commands()

	parent := cmd.AddEntity(&TransformComponent{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{2, -1, 1}})
	child := cmd.AddEntity(&Parent{Entity: parent}, identityLocal(mgl32.Vec3{1, 1, 1}), &TransformComponent{})
	app.FlushCommands()

	TransformHierarchySystem(cmd)

	w := worldOf(t, cmd, child)
	assert.Equal(t, mgl32.Vec3{2, -1, 1}, w.Position)
	assert.Equal(t, mgl32.Vec3{2, -1, 1}, w.Scale)
}

func TestTransformHierarchy_RootLocalIsAuthoritative(t *testing.T) {
	app := NewApp()
	app.UseModules(HierarchyModule{})
	cmd := app.Commands()

	root := cmd.AddEntity(NewTransform(mgl32.Vec3{}), &LocalTransformComponent{Position: mgl32.Vec3{3, 0, 0}, Scale: mgl32.Vec3{1, 1, 1}})
	app.FlushCommands()

	TransformHierarchySystem(cmd)

	w := worldOf(t, cmd, root)
	assert.Equal(t, mgl32.Vec3{3, 0, 0}, w.Position)
	assert.Equal(t, mgl32.QuatIdent(), w.Rotation)
}

func TestTransformHierarchy_MissingParent(t *testing.T) {
	app := NewApp()
	app.UseModules(HierarchyModule{})
	cmd := app.Commands()

	orphan := cmd.AddEntity(&Parent{Entity: 9999}, identityLocal(mgl32.Vec3{1, 2, 3}), NewTransform(mgl32.Vec3{7, 7, 7}))
	app.FlushCommands()

	assert.NotPanics(t, func() { TransformHierarchySystem(cmd) })
	assert.Equal(t, mgl32.Vec3{7, 7, 7}, worldOf(t, cmd, orphan).Position)
}

func TestSpinSystem(t *testing.T) {
	app := NewApp()
	app.UseModules(TimeModule{Step: 250 * time.Millisecond}, HierarchyModule{})
	cmd := app.Commands()

	carrier := cmd.AddEntity(
		NewTransform(mgl32.Vec3{}),
		identityLocal(mgl32.Vec3{}),
		&SpinComponent{Axis: mgl32.Vec3{0, 1, 0}, DegPerSec: 90},
	)
	child := cmd.AddEntity(&Parent{Entity: carrier}, identityLocal(mgl32.Vec3{1, 0, 0}), &TransformComponent{})
	app.FlushCommands()

	// four quarter-second frames turn the carrier 90 degrees
	app.RunFrames(4)

	assert.InDelta(t, 0, worldOf(t, cmd, child).Position.Sub(mgl32.Vec3{0, 0, -1}).Len(), 1e-4)
}
