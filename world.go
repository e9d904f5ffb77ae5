package ecs

import (
	"sort"

	"github.com/TheBitDrifter/mask"
)

// World owns every entity, archetype, resource, and event channel in one
// simulation instance (§3 "World"). Structural mutation (create, destroy,
// add/remove component) can be deferred through its CommandBuffer and
// applied at FlushCommands, matching §4.6's "structural phase"; the
// CreateEntity/DestroyEntity/AddComponent/RemoveComponent methods apply
// it immediately instead.
type World struct {
	frame uint64

	entities   *entityManager
	archetypes *archetypeIndex
	resources  *resourceMap

	cmdBuf *CommandBuffer

	// locks tracks archetypes currently open under a live Cursor/Query
	// iterator (AddLock/RemoveLock below), directly reusing the teacher's
	// storage.go locks/AddLock/RemoveLock/Locked() idiom: one bit per
	// archetype id, world-wide "locked" meaning "any bit set". Direct
	// (non-buffered) structural mutation is refused with LockedWorldError
	// while any lock is held; buffered CommandBuffer ops are unaffected
	// since they only apply during FlushCommands, after iteration has
	// necessarily ended.
	locks mask.Mask256

	addedEvents   *EventChannel[ComponentAddedEvent]
	removedEvents *EventChannel[ComponentRemovedEvent]
}

// NewWorld constructs an empty world with its command buffer, event
// channels, and GUID allocator resource installed and ready to use.
func NewWorld() *World {
	w := &World{
		entities:      newEntityManager(),
		archetypes:    newArchetypeIndex(),
		resources:     newResourceMap(),
		cmdBuf:        NewCommandBuffer(),
		addedEvents:   NewEventChannel[ComponentAddedEvent](),
		removedEvents: NewEventChannel[ComponentRemovedEvent](),
	}
	SetResource(w, NewGUIDAllocator(1))
	return w
}

// Frame returns the current frame counter (§3 "World": "a frame counter").
func (w *World) Frame() uint64 { return w.frame }

// BeginFrame advances the frame counter. Call once at the start of each
// simulation tick, before systems run.
func (w *World) BeginFrame() {
	w.frame++
}

// EndFrame flushes the command buffer, completing the frame's structural
// phase: every buffered op is applied in log order, then entities marked
// for destruction this frame are finally recycled (§4.6, scenario S3).
func (w *World) EndFrame() error {
	return w.FlushCommands()
}

// FlushCommands applies every buffered structural op in log order and then
// recycles pending-destroy entity slots. It is also exposed directly since
// some callers flush mid-frame rather than only at EndFrame.
func (w *World) FlushCommands() error {
	if err := w.cmdBuf.Flush(w); err != nil {
		return err
	}
	w.entities.flushPendingDestroys()
	return nil
}

// Commands returns the world's command buffer for queuing deferred
// structural mutations.
func (w *World) Commands() *CommandBuffer { return w.cmdBuf }

// AddedEvents returns the channel ComponentAddedEvent is emitted on.
func (w *World) AddedEvents() *EventChannel[ComponentAddedEvent] { return w.addedEvents }

// RemovedEvents returns the channel ComponentRemovedEvent is emitted on.
func (w *World) RemovedEvents() *EventChannel[ComponentRemovedEvent] { return w.removedEvents }

// AddLock marks archetype id as open under a live iterator, refusing direct
// structural mutation against it until RemoveLock is called.
func (w *World) AddLock(archetypeID uint32) {
	w.locks.Mark(archetypeID)
}

// RemoveLock clears a lock previously set by AddLock.
func (w *World) RemoveLock(archetypeID uint32) {
	w.locks.Unmark(archetypeID)
}

// Locked reports whether any archetype is currently locked under iteration,
// matching the teacher's storage.go Locked(): "!locks.IsEmpty()".
func (w *World) Locked() bool {
	return !w.locks.IsEmpty()
}

// Alive reports whether e is a live, non-stale handle (§3 "Entity").
func (w *World) Alive(e Entity) bool {
	return w.entities.alive(e)
}

// Enabled reports e's bookkeeping enabled bit.
func (w *World) Enabled(e Entity) bool {
	v, _ := w.entities.enabledState(e)
	return v
}

// CreateEntity creates a new entity immediately (outside the command
// buffer), placing it in the empty archetype. Most callers should prefer
// Commands().Create during system execution; CreateEntity is for setup
// code running before/between frames.
func (w *World) CreateEntity(enabled bool) Entity {
	return w.createImmediate(enabled)
}

// NewEntities creates n entities immediately, returning their handles.
func (w *World) NewEntities(n int, enabled bool) []Entity {
	out := make([]Entity, n)
	for i := range out {
		out[i] = w.createImmediate(enabled)
	}
	return out
}

func (w *World) createImmediate(enabled bool) Entity {
	e := w.entities.create(enabled)
	empty := w.archetypes.getOrCreate(nil)
	row, err := empty.Push(e, w.frame)
	if err != nil {
		panic(err)
	}
	w.entities.setLocation(e, empty, row)
	w.archetypes.setOwner(e, empty)
	return e
}

// DestroyEntity destroys e immediately. Most callers should prefer
// Commands().Destroy during system execution.
func (w *World) DestroyEntity(e Entity) error {
	return w.destroyImmediate(e)
}

func (w *World) destroyImmediate(e Entity) error {
	if !w.entities.alive(e) {
		return InvalidEntityError{Entity: e}
	}
	arch, row, ok := w.entities.location(e)
	if ok && arch != nil {
		if w.Locked() {
			return LockedWorldError{}
		}
		arch.SwapRemove(row)
		w.archetypes.clearOwner(e)
		w.relocateSwapped(arch, row)
	}
	w.entities.markPendingDestroy(e)
	return nil
}

// relocateSwapped updates location bookkeeping for whichever entity ended
// up occupying row after a SwapRemove moved the archetype's last row there.
func (w *World) relocateSwapped(arch *Archetype, row int) {
	if row >= arch.Len() {
		return
	}
	moved := arch.Entities()[row]
	w.entities.setLocation(moved, arch, row)
}

// SetEnabled updates e's enabled bookkeeping bit immediately.
func (w *World) SetEnabled(e Entity, enabled bool) bool {
	return w.entities.setEnabled(e, enabled)
}

// HasComponent reports whether e currently carries typeId.
func (w *World) HasComponent(e Entity, typeID TypeID) bool {
	arch, _, ok := w.entities.location(e)
	if !ok || arch == nil {
		return false
	}
	return arch.Contains(typeID)
}

// GetComponent returns an owned snapshot of e's value for typeId (§4.4
// "Snapshots").
func (w *World) GetComponent(e Entity, typeID TypeID) (any, error) {
	arch, _, ok := w.entities.location(e)
	if !ok || arch == nil {
		return nil, InvalidEntityError{Entity: e}
	}
	return arch.Snapshot(e, typeID)
}

// RowView returns a *RowView over e's typed-backed component typeId for
// direct in-place field access, or an error if the component is array-
// backed or absent.
func (w *World) RowView(e Entity, typeID TypeID) (*RowView, error) {
	arch, row, ok := w.entities.location(e)
	if !ok || arch == nil {
		return nil, InvalidEntityError{Entity: e}
	}
	col, ok := arch.Column(typeID)
	if !ok {
		return nil, ComponentNotFoundError{TypeID: typeID}
	}
	tc, isTyped := col.(*typedColumn)
	if !isTyped {
		return nil, SchemaFieldError{Field: "*", Cause: ComponentNotFoundError{TypeID: typeID}}
	}
	return NewRowView(tc, row), nil
}

// AddComponent adds or replaces typeId on e immediately, migrating it to
// the archetype for its new type set. Most callers should prefer
// Commands().AddComponent during system execution.
func (w *World) AddComponent(e Entity, typeID TypeID, data any) error {
	return w.addComponentImmediate(e, typeID, data)
}

func (w *World) addComponentImmediate(e Entity, typeID TypeID, data any) error {
	arch, row, ok := w.entities.location(e)
	if !ok || arch == nil {
		return InvalidEntityError{Entity: e}
	}
	if w.Locked() {
		return LockedWorldError{}
	}

	if arch.Contains(typeID) {
		// In-place value replacement: no set-membership transition, so no
		// ComponentAddedEvent (§4.6).
		col, _ := arch.Column(typeID)
		col.WriteFromObject(row, data, w.frame)
		return nil
	}

	newTypeIDs := append(append([]TypeID(nil), arch.Signature()...), typeID)
	dst := w.archetypes.getOrCreate(newTypeIDs)
	if err := w.migrate(e, arch, row, dst); err != nil {
		return err
	}
	newRow, _ := dst.RowOf(e)
	col, _ := dst.Column(typeID)
	col.WriteFromObject(newRow, data, w.frame)
	w.addedEvents.Emit(ComponentAddedEvent{Entity: e, TypeID: typeID})
	return nil
}

// RemoveComponent removes typeId from e immediately, migrating it to the
// archetype for its reduced type set. A no-op if e does not carry typeId.
func (w *World) RemoveComponent(e Entity, typeID TypeID) error {
	return w.removeComponentImmediate(e, typeID)
}

func (w *World) removeComponentImmediate(e Entity, typeID TypeID) error {
	arch, _, ok := w.entities.location(e)
	if !ok || arch == nil {
		return InvalidEntityError{Entity: e}
	}
	if !arch.Contains(typeID) {
		return nil
	}
	if w.Locked() {
		return LockedWorldError{}
	}

	remaining := make([]TypeID, 0, len(arch.Signature())-1)
	for _, t := range arch.Signature() {
		if t != typeID {
			remaining = append(remaining, t)
		}
	}
	dst := w.archetypes.getOrCreate(remaining)
	_, row, _ := w.entities.location(e)
	if err := w.migrate(e, arch, row, dst); err != nil {
		return err
	}
	w.removedEvents.Emit(ComponentRemovedEvent{Entity: e, TypeID: typeID})
	return nil
}

// migrate moves e from src[row] to dst, copying every shared column's value
// across and leaving columns unique to dst at their default, then
// SwapRemoves e out of src (§4.6 "migration").
func (w *World) migrate(e Entity, src *Archetype, row int, dst *Archetype) error {
	if src == dst {
		return nil
	}
	newRow, err := dst.Push(e, w.frame)
	if err != nil {
		return err
	}
	for _, t := range src.Signature() {
		if !dst.Contains(t) {
			continue
		}
		srcCol, _ := src.Column(t)
		dstCol, _ := dst.Column(t)
		if err := srcCol.CopyRangeTo(dstCol, row, 1); err != nil {
			return err
		}
		// CopyRangeTo appends to the end of dst; relocate that appended
		// value into newRow if the destination grew past it (Push already
		// reserved newRow via a default, so overwrite it directly instead).
		copyRowInto(dstCol, dstCol.Len()-1, newRow)
	}
	src.SwapRemove(row)
	w.relocateSwapped(src, row)
	w.entities.setLocation(e, dst, newRow)
	w.archetypes.setOwner(e, dst)
	return nil
}

// copyRowInto moves a freshly appended tail row into target, then discards
// the now-duplicate tail. Used by migrate to reconcile CopyRangeTo's
// append-only contract with Push's pre-reserved row slot.
func copyRowInto(col Column, tail, target int) {
	if tail == target {
		return
	}
	v := col.ReadToObject(tail, rowScratch(col))
	col.WriteFromObject(target, v, 0)
	col.SwapRemove(tail)
}

func rowScratch(col Column) any {
	if _, isTyped := col.(*typedColumn); isTyped {
		return map[string]any{}
	}
	return nil
}

// Match returns every archetype matching the given required/forbidden
// type sets, in stable cross-frame order (§3 "Archetype index", §4.5).
func (w *World) Match(required, forbidden []TypeID) []*Archetype {
	return w.archetypes.Match(required, forbidden)
}

// Archetypes returns every archetype currently known to the world.
func (w *World) Archetypes() []*Archetype {
	return w.archetypes.All()
}

// PruneEmptyArchetypes drops archetypes with zero entities from iteration.
func (w *World) PruneEmptyArchetypes() {
	w.archetypes.PruneEmpty()
}

// sortedCopy is a small shared helper for callers that need a defensively
// sorted copy of a type set without depending on archetype internals.
func sortedCopy(ids []TypeID) []TypeID {
	out := append([]TypeID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
