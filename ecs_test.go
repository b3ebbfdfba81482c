package gekko

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ecsPos struct{ X, Y float32 }
type ecsVel struct{ DX, DY float32 }
type ecsTag struct{}

func TestEcs_MakeEcs(t *testing.T) {
	ecs := MakeEcs()

	assert.Empty(t, ecs.archetypes)
	assert.Empty(t, ecs.entityIndex)
	assert.Equal(t, EntityId(0), ecs.entityIdCounter)
	assert.Equal(t, componentId(0), ecs.componentIdCounter)
}

func TestEcs_AddEntity(t *testing.T) {
	ecs := MakeEcs()

	a := ecs.addEntity(ecsPos{X: 1}, &ecsVel{DX: 2})
	b := ecs.addEntity(ecsPos{X: 3})

	assert.NotEqual(t, a, b)
	assert.True(t, ecs.hasEntity(a))
	assert.True(t, ecs.hasEntity(b))
	assert.Len(t, ecs.archetypes, 2)

	pos, ok := ecs.getComponent(a, reflect.TypeFor[ecsPos]())
	require.True(t, ok)
	assert.Equal(t, ecsPos{X: 1}, pos)

	vel, ok := ecs.getComponent(a, reflect.TypeFor[ecsVel]())
	require.True(t, ok)
	assert.Equal(t, ecsVel{DX: 2}, vel)

	_, ok = ecs.getComponent(b, reflect.TypeFor[ecsVel]())
	assert.False(t, ok)
}

func TestEcs_ArchetypeKeyIgnoresOrder(t *testing.T) {
	ecs := MakeEcs()

	ecs.addEntity(ecsPos{}, ecsVel{})
	ecs.addEntity(ecsVel{}, ecsPos{})

	assert.Len(t, ecs.archetypes, 1)
	assert.Equal(t,
		getArchetypeId(ecs.getArchetypeKey(ecsPos{}, ecsVel{})),
		getArchetypeId(ecs.getArchetypeKey(&ecsVel{}, &ecsPos{})),
	)
}

func TestEcs_AddComponentsMovesEntity(t *testing.T) {
	ecs := MakeEcs()
	eid := ecs.addEntity(ecsPos{X: 5})
	srcArch := ecs.entityIndex[eid]

	ecs.addComponents(eid, ecsVel{DX: 1})

	assert.NotEqual(t, srcArch, ecs.entityIndex[eid])
	pos, ok := ecs.getComponent(eid, reflect.TypeFor[ecsPos]())
	require.True(t, ok)
	assert.Equal(t, ecsPos{X: 5}, pos)
	assert.Empty(t, ecs.archetypes[srcArch].entities)
}

func TestEcs_AddComponentsOverwrites(t *testing.T) {
	ecs := MakeEcs()
	eid := ecs.addEntity(ecsPos{X: 5}, ecsVel{})
	arch := ecs.entityIndex[eid]

	ecs.addComponents(eid, ecsPos{X: 7})

	assert.Equal(t, arch, ecs.entityIndex[eid])
	pos, _ := ecs.getComponent(eid, reflect.TypeFor[ecsPos]())
	assert.Equal(t, ecsPos{X: 7}, pos)
}

func TestEcs_RemoveComponents(t *testing.T) {
	ecs := MakeEcs()
	eid := ecs.addEntity(ecsPos{X: 1}, ecsVel{DX: 2}, ecsTag{})

	ecs.removeComponents(eid, ecsVel{}, &ecsTag{})

	_, ok := ecs.getComponent(eid, reflect.TypeFor[ecsVel]())
	assert.False(t, ok)
	pos, ok := ecs.getComponent(eid, reflect.TypeFor[ecsPos]())
	require.True(t, ok)
	assert.Equal(t, ecsPos{X: 1}, pos)

	// removing something the entity does not have keeps it in place
	arch := ecs.entityIndex[eid]
	ecs.removeComponents(eid, ecsVel{})
	assert.Equal(t, arch, ecs.entityIndex[eid])
}

func TestEcs_RemoveEntityRecyclesRow(t *testing.T) {
	ecs := MakeEcs()
	a := ecs.addEntity(ecsPos{X: 1})
	ecs.addEntity(ecsPos{X: 2})
	arch := ecs.archetypes[ecs.entityIndex[a]]
	freed := arch.entities[a]

	ecs.removeEntity(a)

	assert.False(t, ecs.hasEntity(a))
	assert.Equal(t, noEntity, arch.owners[freed])
	assert.Equal(t, ecsPos{}, reflectSliceGet(arch.componentData[ecs.getComponentId(reflect.TypeFor[ecsPos]())], int(freed)).Interface())

	c := ecs.addEntity(ecsPos{X: 3})
	assert.Equal(t, freed, arch.entities[c])
	assert.Len(t, arch.owners, 2)
}

func TestEcs_RemoveMissingEntity(t *testing.T) {
	ecs := MakeEcs()
	eid := ecs.addEntity(ecsPos{})

	assert.NotPanics(t, func() {
		ecs.removeEntity(eid + 100)
		ecs.addComponents(eid+100, ecsVel{})
		ecs.removeComponents(eid+100, ecsVel{})
	})
	assert.True(t, ecs.hasEntity(eid))
}

func TestEcs_NonStructComponentPanics(t *testing.T) {
	ecs := MakeEcs()
	assert.Panics(t, func() { ecs.addEntity(42) })
}
