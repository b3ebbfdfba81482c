package gekko

import "reflect"

type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// AddEntity reserves an id now; the entity exists after the next flush.
func (cmd *Commands) AddEntity(components ...any) EntityId {
	eid := cmd.app.ecs.nextEntityId()
	cmd.app.pending = append(cmd.app.pending, pendingOp{kind: opAddEntity, eid: eid, components: components})
	return eid
}

func (cmd *Commands) AddComponents(entityId EntityId, components ...any) {
	cmd.app.pending = append(cmd.app.pending, pendingOp{kind: opAddComponents, eid: entityId, components: components})
}

func (cmd *Commands) RemoveComponents(entityId EntityId, components ...any) {
	cmd.app.pending = append(cmd.app.pending, pendingOp{kind: opRemoveComponents, eid: entityId, components: components})
}

func (cmd *Commands) RemoveEntity(entityId EntityId) {
	cmd.app.pending = append(cmd.app.pending, pendingOp{kind: opRemoveEntity, eid: entityId})
}

func (cmd *Commands) HasEntity(entityId EntityId) bool {
	return cmd.app.ecs.hasEntity(entityId)
}

// Exit stops App.Run after the current frame.
func (cmd *Commands) Exit() {
	cmd.app.exiting = true
}

func (cmd *Commands) GetAllComponents(entityId EntityId) []any {
	ecs := cmd.app.ecs
	archId, ok := ecs.entityIndex[entityId]
	if !ok {
		return nil
	}
	arch := ecs.archetypes[archId]
	r := arch.entities[entityId]

	res := make([]any, 0, len(arch.key))
	for _, compId := range arch.key {
		res = append(res, reflectSliceGet(arch.componentData[compId], int(r)).Interface())
	}
	return res
}

// GetComponent returns a copy of one component of an entity.
func GetComponent[T any](cmd *Commands, entityId EntityId) (T, bool) {
	var zero T
	v, ok := cmd.app.ecs.getComponent(entityId, reflect.TypeFor[T]())
	if !ok {
		return zero, false
	}
	return v.(T), true
}
