package ecs

import (
	"sort"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
)

// Archetype groups every entity sharing exactly one component-type set
// (§3, §4.4). Its identity key is the sorted typeId sequence; that sequence
// is also kept as a mask.Mask so archetype lookup and query matching reuse
// the teacher's bitset-keyed map idiom (storage.go's
// idsGroupedByMask map[mask.Mask]archetypeID) instead of hashing a slice.
type Archetype struct {
	id       uint32
	typeIDs  []TypeID // sorted, the archetype's identity key
	sig      mask.Mask
	cols     map[TypeID]Column
	entities []Entity
	rowOf    map[Entity]int
}

func newArchetype(id uint32, typeIDs []TypeID) *Archetype {
	sorted := append([]TypeID(nil), typeIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sig mask.Mask
	cols := make(map[TypeID]Column, len(sorted))
	for _, t := range sorted {
		sig.Mark(uint32(t))
		cols[t] = newColumnFor(t, 0)
	}
	return &Archetype{
		id:      id,
		typeIDs: sorted,
		sig:     sig,
		cols:    cols,
		rowOf:   make(map[Entity]int),
	}
}

// ID returns the archetype's stable identifier within its index.
func (a *Archetype) ID() uint32 { return a.id }

// Signature returns a defensive copy of the sorted typeId sequence that
// identifies this archetype (§8 invariant 5: archetype key depends only on
// the sorted typeId set, never on registration order).
func (a *Archetype) Signature() []TypeID {
	return append([]TypeID(nil), a.typeIDs...)
}

// Mask returns the bitset signature used for index lookups and query
// matching.
func (a *Archetype) Mask() mask.Mask { return a.sig }

// Contains reports whether the archetype carries typeId.
func (a *Archetype) Contains(typeID TypeID) bool {
	_, ok := a.cols[typeID]
	return ok
}

// Len returns the number of entities currently stored.
func (a *Archetype) Len() int { return len(a.entities) }

// Column returns the column backing typeID, if present.
func (a *Archetype) Column(typeID TypeID) (Column, bool) {
	c, ok := a.cols[typeID]
	return c, ok
}

// Entities returns a defensively frozen copy of the entity list (§4.4: "The
// returned entity view must be unmodifiable").
func (a *Archetype) Entities() []Entity {
	return append([]Entity(nil), a.entities...)
}

// RowOf returns the row index currently occupied by entity, if present.
func (a *Archetype) RowOf(e Entity) (int, bool) {
	row, ok := a.rowOf[e]
	return row, ok
}

// Push inserts entity at the tail across every column, atomically from the
// archetype's viewpoint: defaults are validated for every column before any
// column is mutated, so a failing makeDefault leaves the archetype
// unchanged (§4.4 point 1).
func (a *Archetype) Push(entity Entity, epoch uint64) (row int, err error) {
	if _, exists := a.rowOf[entity]; exists {
		return 0, DuplicateEntityError{Entity: entity}
	}
	// Validate first: every column can produce its default before any
	// commit happens.
	for _, t := range a.typeIDs {
		if _, err := makeDefault(t); err != nil {
			return 0, err
		}
	}
	row = len(a.entities)
	for _, t := range a.typeIDs {
		col := a.cols[t]
		col.PushDefault()
	}
	a.entities = append(a.entities, entity)
	a.rowOf[entity] = row
	return row, nil
}

// SwapRemove removes the entity occupying row from every column and the
// entity table, relocating the last row into its place.
func (a *Archetype) SwapRemove(row int) {
	last := len(a.entities) - 1
	if row < 0 || row > last {
		panic(RowOutOfRangeError{Row: row, Len: len(a.entities)})
	}
	departing := a.entities[row]
	for _, col := range a.cols {
		col.SwapRemove(row)
	}
	if row != last {
		moved := a.entities[last]
		a.entities[row] = moved
		a.rowOf[moved] = row
	}
	a.entities = a.entities[:last]
	delete(a.rowOf, departing)
}

// ClearRows empties every row while preserving column/field structure.
func (a *Archetype) ClearRows() {
	for len(a.entities) > 0 {
		a.SwapRemove(len(a.entities) - 1)
	}
}

// Clear discards column structure entirely, recreating empty columns.
func (a *Archetype) Clear() {
	for t := range a.cols {
		a.cols[t] = newColumnFor(t, 0)
	}
	a.entities = nil
	a.rowOf = make(map[Entity]int)
}

// Snapshot returns an owned copy of entity's value for typeID — never a
// live alias, since callers may retain it across subsequent writes
// (§4.4 "Snapshots").
func (a *Archetype) Snapshot(entity Entity, typeID TypeID) (any, error) {
	row, ok := a.rowOf[entity]
	if !ok {
		return nil, InvalidEntityError{Entity: entity}
	}
	col, ok := a.cols[typeID]
	if !ok {
		return nil, ComponentNotFoundError{TypeID: typeID}
	}
	if tc, isTyped := col.(*typedColumn); isTyped {
		return tc.ReadToObject(row, map[string]any{}), nil
	}
	return col.ReadToObject(row, nil), nil
}

// Verify checks the archetype's own invariants (§8 items 1-3): column/row
// parity, rowOf consistency, and absence of duplicate entities. It panics
// (wrapped with a stack trace, matching the teacher's bark.AddTrace usage
// in entity.go/query.go) because these are programmer-error invariant
// violations the core is meant to surface immediately (§7).
func (a *Archetype) Verify() {
	n := len(a.entities)
	for t, col := range a.cols {
		if col.Len() != n {
			panic(bark.AddTrace(columnLengthMismatch{typeID: t, colLen: col.Len(), archLen: n}))
		}
	}
	seen := make(map[Entity]struct{}, n)
	for row, e := range a.entities {
		if _, dup := seen[e]; dup {
			panic(bark.AddTrace(DuplicateEntityError{Entity: e}))
		}
		seen[e] = struct{}{}
		if r, ok := a.rowOf[e]; !ok || r != row {
			panic(bark.AddTrace(rowOfMismatch{entity: e, want: row, got: r}))
		}
	}
	if len(a.rowOf) != n {
		panic(bark.AddTrace(rowOfSizeMismatch{want: n, got: len(a.rowOf)}))
	}
}

type columnLengthMismatch struct {
	typeID         TypeID
	colLen, archLen int
}

func (e columnLengthMismatch) Error() string {
	return "column length does not match archetype entity count"
}

type rowOfMismatch struct {
	entity   Entity
	want, got int
}

func (e rowOfMismatch) Error() string {
	return "rowOf mapping inconsistent with entities slice"
}

type rowOfSizeMismatch struct{ want, got int }

func (e rowOfSizeMismatch) Error() string {
	return "rowOf map size does not match entity count"
}
