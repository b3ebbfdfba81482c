package gekko

import (
	"reflect"
)

type Query1[A any] struct {
	ecs     *Ecs
	without set[componentId]
}

type Query2[A, B any] struct {
	ecs     *Ecs
	without set[componentId]
}

type Query3[A, B, C any] struct {
	ecs     *Ecs
	without set[componentId]
}

func MakeQuery1[A any](cmd *Commands) Query1[A]       { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B] { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] {
	return Query3[A, B, C]{ecs: cmd.app.ecs}
}

// Without excludes archetypes that carry any of the given components.
func (q Query1[A]) Without(components ...any) Query1[A] {
	q.without = identifyComponents(q.ecs, components...)
	return q
}

func (q Query2[A, B]) Without(components ...any) Query2[A, B] {
	q.without = identifyComponents(q.ecs, components...)
	return q
}

func (q Query3[A, B, C]) Without(components ...any) Query3[A, B, C] {
	q.without = identifyComponents(q.ecs, components...)
	return q
}

// Map calls m for every matching entity until m returns false. Components
// listed in optionals may be missing, in which case m receives nil.
func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := componentIdOf[A](q.ecs)
	opt := identifyComponents(q.ecs, optionals...)

	q.ecs.eachArchetype(func(arch *archetype) bool {
		if excluded(arch, q.without) {
			return true
		}
		comps1, ok1 := column[A](arch, id1, opt)
		if !ok1 {
			return true
		}
		for r, eid := range arch.owners {
			if eid == noEntity {
				continue
			}
			if !m(eid, at(comps1, r)) {
				return false
			}
		}
		return true
	})
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1, id2 := componentIdOf[A](q.ecs), componentIdOf[B](q.ecs)
	opt := identifyComponents(q.ecs, optionals...)

	q.ecs.eachArchetype(func(arch *archetype) bool {
		if excluded(arch, q.without) {
			return true
		}
		comps1, ok1 := column[A](arch, id1, opt)
		comps2, ok2 := column[B](arch, id2, opt)
		if !ok1 || !ok2 {
			return true
		}
		for r, eid := range arch.owners {
			if eid == noEntity {
				continue
			}
			if !m(eid, at(comps1, r), at(comps2, r)) {
				return false
			}
		}
		return true
	})
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	id1, id2, id3 := componentIdOf[A](q.ecs), componentIdOf[B](q.ecs), componentIdOf[C](q.ecs)
	opt := identifyComponents(q.ecs, optionals...)

	q.ecs.eachArchetype(func(arch *archetype) bool {
		if excluded(arch, q.without) {
			return true
		}
		comps1, ok1 := column[A](arch, id1, opt)
		comps2, ok2 := column[B](arch, id2, opt)
		comps3, ok3 := column[C](arch, id3, opt)
		if !ok1 || !ok2 || !ok3 {
			return true
		}
		for r, eid := range arch.owners {
			if eid == noEntity {
				continue
			}
			if !m(eid, at(comps1, r), at(comps2, r), at(comps3, r)) {
				return false
			}
		}
		return true
	})
}

// column returns the typed slice of one component. A missing optional
// component matches with a nil slice.
func column[T any](arch *archetype, id componentId, optional set[componentId]) ([]T, bool) {
	if data, ok := arch.componentData[id]; ok {
		return data.([]T), true
	}
	_, ok := optional[id]
	return nil, ok
}

func at[T any](comps []T, r int) *T {
	if comps == nil {
		return nil
	}
	return &comps[r]
}

func excluded(arch *archetype, without set[componentId]) bool {
	for id := range without {
		if _, ok := arch.componentData[id]; ok {
			return true
		}
	}
	return false
}

func identifyComponents(ecs *Ecs, components ...any) set[componentId] {
	res := make(set[componentId], len(components))
	for _, c := range components {
		res[ecs.getComponentId(componentType(c))] = struct{}{}
	}
	return res
}

func componentIdOf[T any](ecs *Ecs) componentId {
	return ecs.getComponentId(reflect.TypeFor[T]())
}
