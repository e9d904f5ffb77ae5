package ecs

// Query is an immutable description of a required/forbidden component-type
// set (§3 "Query"). It holds no iteration state itself; Cursor and
// ChunkedQuery do the actual walking, both resolving matching archetypes
// through the same World.Match call so their cross-archetype ordering is
// identical (§4.5).
type Query struct {
	required  []TypeID
	forbidden []TypeID
}

// NewQuery builds a query requiring every id in required and excluding any
// archetype carrying a type in forbidden. Pass nil/empty forbidden for an
// unconditional query.
func NewQuery(required []TypeID, forbidden []TypeID) *Query {
	return &Query{
		required:  append([]TypeID(nil), required...),
		forbidden: append([]TypeID(nil), forbidden...),
	}
}

// Required returns a defensive copy of the query's required type set.
func (q *Query) Required() []TypeID { return append([]TypeID(nil), q.required...) }

// Forbidden returns a defensive copy of the query's forbidden type set.
func (q *Query) Forbidden() []TypeID { return append([]TypeID(nil), q.forbidden...) }

// Match resolves the archetypes currently satisfying q, in the stable
// cross-frame order defined by archetypeIndex.Match (§4.5).
func (q *Query) Match(w *World) []*Archetype {
	return w.Match(q.required, q.forbidden)
}

// Cursor walks every matching row of every matching archetype in the
// stable order: archetypes sorted by typeId sequence, rows in insertion
// order within each archetype (§3 "Cursor", grounded on the teacher's
// cursor.go iterator, generalized from its single-callback Map shape to an
// explicit Next-driven cursor so callers can break out mid-iteration).
type Cursor struct {
	world      *World
	archetypes []*Archetype
	archIdx    int
	row        int
	locked     bool
}

// Row identifies one (archetype, row) pair a Cursor currently points at.
type Row struct {
	Archetype *Archetype
	Entity    Entity
	Row       int
}

// NewCursor resolves q against w and returns a cursor positioned before the
// first row. The cursor locks every matching archetype for its lifetime
// (Close unlocks them), refusing direct structural mutation while open,
// mirroring the teacher's AddLock-on-iterate / RemoveLock-on-close pattern.
func NewCursor(w *World, q *Query) *Cursor {
	archetypes := q.Match(w)
	for _, a := range archetypes {
		w.AddLock(a.ID())
	}
	return &Cursor{world: w, archetypes: archetypes, row: -1, locked: true}
}

// Next advances the cursor to the next matching row, returning false once
// iteration is exhausted. Archetypes with zero rows are skipped entirely.
func (c *Cursor) Next() bool {
	for c.archIdx < len(c.archetypes) {
		a := c.archetypes[c.archIdx]
		c.row++
		if c.row < a.Len() {
			return true
		}
		c.archIdx++
		c.row = -1
	}
	return false
}

// Current returns the row the cursor currently points at. Valid only after
// a Next call returned true.
func (c *Cursor) Current() Row {
	a := c.archetypes[c.archIdx]
	return Row{Archetype: a, Entity: a.Entities()[c.row], Row: c.row}
}

// Close releases the cursor's archetype locks. Safe to call multiple
// times.
func (c *Cursor) Close() {
	if !c.locked {
		return
	}
	for _, a := range c.archetypes {
		c.world.RemoveLock(a.ID())
	}
	c.locked = false
}

// Component returns a copy of typeId's value at row of an array-backed
// (schema-less) column. It reports false if the archetype lacks typeId,
// the stored value is not a T, or the column is typed.
func Component[T any](a *Archetype, row int, typeID TypeID) (T, bool) {
	var zero T
	col, ok := a.Column(typeID)
	if !ok {
		return zero, false
	}
	if ac, isArray := col.(*arrayColumn); isArray {
		v := ac.ReadToObject(row, nil)
		if typed, ok := v.(T); ok {
			return typed, true
		}
		return zero, false
	}
	// Typed columns decode into map[string]any; callers wanting a struct T
	// should instead use RowView/World.RowView for direct field access.
	return zero, false
}
