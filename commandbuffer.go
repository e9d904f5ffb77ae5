package ecs

// CommandBuffer is the ordered, append-only log of deferred structural ops
// described in §4.6. Flushing applies every op in log order; that flush is
// when the queued ops' archetype migrations happen. The op-interface-plus-Apply
// shape mirrors the teacher's operation_queue.go (EntityOperation.Apply),
// generalized to the five ops §3/§4.6 name explicitly.
type CommandBuffer struct {
	ops []structuralOp
}

// NewCommandBuffer returns an empty buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

type structuralOp interface {
	apply(w *World) error
}

// Create enqueues creation of one new entity with the given enabled
// bookkeeping bit (§4.6: "enabled is a bookkeeping bit, not a component").
func (b *CommandBuffer) Create(enabled bool) {
	b.ops = append(b.ops, createOp{enabled: enabled})
}

// Destroy enqueues destruction of e.
func (b *CommandBuffer) Destroy(e Entity) {
	b.ops = append(b.ops, destroyOp{entity: e})
}

// SetEnabled enqueues an update to e's enabled bookkeeping bit.
func (b *CommandBuffer) SetEnabled(e Entity, enabled bool) {
	b.ops = append(b.ops, setEnabledOp{entity: e, enabled: enabled})
}

// AddComponent enqueues addByTypeId(e, tid, data). If e already carries
// tid, applying this op replaces the value in place rather than emitting
// an Added event (§4.6).
func (b *CommandBuffer) AddComponent(e Entity, tid TypeID, data any) {
	b.ops = append(b.ops, addComponentOp{entity: e, typeID: tid, data: data})
}

// RemoveComponent enqueues removeByTypeId(e, tid). A no-op if e lacks tid.
func (b *CommandBuffer) RemoveComponent(e Entity, tid TypeID) {
	b.ops = append(b.ops, removeComponentOp{entity: e, typeID: tid})
}

// Len reports the number of queued ops.
func (b *CommandBuffer) Len() int { return len(b.ops) }

// Flush applies every queued op to w in log order, then clears the queue.
// The first error aborts the remaining ops in the batch (structural
// mutation is a programmer-error-sensitive path per §7); ops already
// applied are not rolled back, matching "Flushing applies them in log
// order" with no stated atomicity across the whole batch.
func (b *CommandBuffer) Flush(w *World) error {
	ops := b.ops
	b.ops = nil
	for _, op := range ops {
		if err := op.apply(w); err != nil {
			return err
		}
	}
	return nil
}

type createOp struct{ enabled bool }

func (op createOp) apply(w *World) error {
	w.createImmediate(op.enabled)
	return nil
}

type destroyOp struct{ entity Entity }

func (op destroyOp) apply(w *World) error {
	return w.destroyImmediate(op.entity)
}

type setEnabledOp struct {
	entity  Entity
	enabled bool
}

func (op setEnabledOp) apply(w *World) error {
	w.entities.setEnabled(op.entity, op.enabled)
	return nil
}

type addComponentOp struct {
	entity Entity
	typeID TypeID
	data   any
}

func (op addComponentOp) apply(w *World) error {
	return w.addComponentImmediate(op.entity, op.typeID, op.data)
}

type removeComponentOp struct {
	entity Entity
	typeID TypeID
}

func (op removeComponentOp) apply(w *World) error {
	return w.removeComponentImmediate(op.entity, op.typeID)
}
