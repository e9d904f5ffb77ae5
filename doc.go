/*
Package ecs implements a deterministic, data-oriented Entity-Component-System
runtime: columnar archetype storage with dual backings, change-tracking
epochs/write-masks, structural migration, and a canonical state hasher used
to verify replay equivalence across machines.

Core Concepts:

  - Entity: a 32-bit (index, generation) handle identifying a row across archetypes.
  - Component: a typed value attached to an entity, keyed by a process-stable TypeID.
  - Archetype: the columnar home for every entity sharing exactly one set of component types.
  - Column: one component type's storage within one archetype, in one of two interchangeable
    backings (a heterogeneous array column, or a schema-backed typed column with a write mask).
  - World: owns the entity manager, the archetype index, resources, the command buffer, and
    the frame counter.

Basic Usage:

	position, _ := ecs.RegisterComponent[Position](nil)
	velocity, _ := ecs.RegisterComponent[Velocity](nil)

	world := ecs.NewWorld()
	for _, e := range world.NewEntities(100, true) {
		_ = world.AddComponent(e, position, Position{})
		_ = world.AddComponent(e, velocity, Velocity{X: 1})
	}

	c := ecs.NewCursor(world, ecs.NewQuery([]ecs.TypeID{position, velocity}, nil))
	for c.Next() {
		row := c.Current()
		pos, _ := ecs.Component[Position](row.Archetype, row.Row, position)
		pos.X += 1
		col, _ := row.Archetype.Column(position)
		col.WriteFromObject(row.Row, pos, world.Frame())
	}
	c.Close()

The parallel wave scheduler (package wave) and the chunk-parallel kernel
dispatcher (package chunkdispatch) build on top of this storage layer; the
fixedpoint package supplies the deterministic numeric type used by any
gameplay code that must hash-match across machines.
*/
package ecs
