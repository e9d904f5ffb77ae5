package ecs

import "fmt"

// Entity is an opaque 32-bit handle encoding (index, generation). Reusing a
// slot bumps the generation, so a handle holding a stale generation is
// invalid even though its index has been recycled. The zero value is the
// reserved null entity.
type Entity uint32

const (
	entityIndexBits = 24
	entityIndexMask = (1 << entityIndexBits) - 1

	// NullEntity is the reserved value meaning "no entity".
	NullEntity Entity = 0
)

// newEntity packs an index and generation into a handle. index must fit in
// entityIndexBits; callers are expected to keep the live entity count well
// under that ceiling (16,777,216 slots), consistent with the teacher's
// "small dense identifiers" design rationale applied to entities as well as
// component type ids.
func newEntity(index, generation uint32) Entity {
	return Entity((generation << entityIndexBits) | (index & entityIndexMask))
}

// Index returns the slot index encoded in the handle.
func (e Entity) Index() uint32 {
	return uint32(e) & entityIndexMask
}

// Generation returns the generation counter encoded in the handle.
func (e Entity) Generation() uint32 {
	return uint32(e) >> entityIndexBits
}

// Valid reports whether the handle is non-null. It does not by itself prove
// the handle is still live in any particular World; use World.Alive for
// that, since generation staleness can only be judged against live state.
func (e Entity) Valid() bool {
	return e != NullEntity
}

func (e Entity) String() string {
	return fmt.Sprintf("Entity(index=%d, gen=%d)", e.Index(), e.Generation())
}

// entitySlot is the entity manager's bookkeeping record for one index.
type entitySlot struct {
	generation uint32
	archetype  *Archetype
	row        int
	alive      bool
	enabled    bool
	// pendingDestroy marks the slot as destroyed-this-frame (§3 "deferred
	// destroy"): the entity is dead from the moment destroy is applied, but
	// its index is only returned to the free list once the frame's
	// structural phase completes.
	pendingDestroy bool
}

// entityManager owns generation counters and the free-list recycling
// scheme described in §3 ("Entity") and exercised by scenario S3.
type entityManager struct {
	slots       []entitySlot
	freeList    []uint32
	pendingFree []uint32
}

func newEntityManager() *entityManager {
	// Slot 0 is never handed out, so no live handle equals NullEntity.
	return &entityManager{slots: make([]entitySlot, 1)}
}

func (m *entityManager) create(enabled bool) Entity {
	if n := len(m.freeList); n > 0 {
		idx := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		slot := &m.slots[idx]
		slot.alive = true
		slot.pendingDestroy = false
		slot.enabled = enabled
		return newEntity(idx, slot.generation)
	}
	idx := uint32(len(m.slots))
	m.slots = append(m.slots, entitySlot{alive: true, enabled: enabled})
	return newEntity(idx, 0)
}

// setEnabled updates the bookkeeping bit for a live entity.
func (m *entityManager) setEnabled(e Entity, enabled bool) bool {
	slot, ok := m.lookup(e)
	if !ok || !slot.alive {
		return false
	}
	slot.enabled = enabled
	return true
}

// enabledState reports the bookkeeping bit for a live entity, and whether
// the entity is live at all.
func (m *entityManager) enabledState(e Entity) (bool, bool) {
	slot, ok := m.lookup(e)
	if !ok || !slot.alive {
		return false, false
	}
	return slot.enabled, true
}

func (m *entityManager) lookup(e Entity) (*entitySlot, bool) {
	if e == NullEntity {
		return nil, false
	}
	idx := e.Index()
	if int(idx) >= len(m.slots) {
		return nil, false
	}
	slot := &m.slots[idx]
	if slot.generation != e.Generation() {
		return nil, false
	}
	return slot, true
}

// alive reports whether e is a live, non-stale handle.
func (m *entityManager) alive(e Entity) bool {
	slot, ok := m.lookup(e)
	return ok && slot.alive && !slot.pendingDestroy
}

// markPendingDestroy flags the slot dead-this-frame without recycling the
// index yet; the index joins the free list only once flushPendingDestroys
// runs at the end of the structural phase.
func (m *entityManager) markPendingDestroy(e Entity) bool {
	slot, ok := m.lookup(e)
	if !ok || !slot.alive || slot.pendingDestroy {
		return false
	}
	slot.pendingDestroy = true
	m.pendingFree = append(m.pendingFree, e.Index())
	return true
}

// flushPendingDestroys bumps generations and returns recycled indices to
// the free list. Called once per structural-phase flush.
func (m *entityManager) flushPendingDestroys() {
	for _, idx := range m.pendingFree {
		slot := &m.slots[idx]
		slot.alive = false
		slot.pendingDestroy = false
		slot.archetype = nil
		slot.row = 0
		slot.generation++
		m.freeList = append(m.freeList, idx)
	}
	m.pendingFree = m.pendingFree[:0]
}

func (m *entityManager) setLocation(e Entity, arch *Archetype, row int) {
	slot, ok := m.lookup(e)
	if !ok {
		return
	}
	slot.archetype = arch
	slot.row = row
}

func (m *entityManager) location(e Entity) (*Archetype, int, bool) {
	slot, ok := m.lookup(e)
	if !ok || !slot.alive {
		return nil, 0, false
	}
	return slot.archetype, slot.row, true
}
