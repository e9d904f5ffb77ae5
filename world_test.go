package ecs

import "testing"

type testPosition struct {
	X, Y float64
}

type testVelocity struct {
	X, Y float64
}

type testHealth struct {
	Current, Max int
}

func TestWorldCreateEntityPlacesInEmptyArchetype(t *testing.T) {
	ResetRegistry()
	w := NewWorld()
	e := w.CreateEntity(true)
	if !w.Alive(e) {
		t.Fatalf("newly created entity should be alive")
	}
	if !w.Enabled(e) {
		t.Fatalf("entity created with enabled=true should report Enabled()")
	}
}

func TestWorldAddComponentMigratesArchetype(t *testing.T) {
	ResetRegistry()
	w := NewWorld()
	posID, err := RegisterComponent[testPosition](nil)
	if err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}

	e := w.CreateEntity(true)
	if w.HasComponent(e, posID) {
		t.Fatalf("freshly created entity should not carry any component yet")
	}

	if err := w.AddComponent(e, posID, testPosition{X: 1, Y: 2}); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if !w.HasComponent(e, posID) {
		t.Fatalf("entity should carry the component after AddComponent")
	}

	got, err := w.GetComponent(e, posID)
	if err != nil {
		t.Fatalf("GetComponent: %v", err)
	}
	pos, ok := got.(testPosition)
	if !ok || pos.X != 1 || pos.Y != 2 {
		t.Fatalf("GetComponent returned %#v, want {1 2}", got)
	}
}

func TestWorldAddComponentInPlaceReplacementNoEvent(t *testing.T) {
	ResetRegistry()
	w := NewWorld()
	posID, _ := RegisterComponent[testPosition](nil)
	e := w.CreateEntity(true)

	if err := w.AddComponent(e, posID, testPosition{X: 1, Y: 1}); err != nil {
		t.Fatalf("first AddComponent: %v", err)
	}
	w.AddedEvents().TakeAll() // drain the first transition event

	if err := w.AddComponent(e, posID, testPosition{X: 9, Y: 9}); err != nil {
		t.Fatalf("second AddComponent: %v", err)
	}
	if events := w.AddedEvents().TakeAll(); len(events) != 0 {
		t.Fatalf("in-place replacement must not emit ComponentAddedEvent, got %d", len(events))
	}
	got, _ := w.GetComponent(e, posID)
	if pos := got.(testPosition); pos.X != 9 || pos.Y != 9 {
		t.Fatalf("expected replaced value {9 9}, got %#v", pos)
	}
}

func TestWorldRemoveComponentMigratesAndEmitsEvent(t *testing.T) {
	ResetRegistry()
	w := NewWorld()
	posID, _ := RegisterComponent[testPosition](nil)
	velID, _ := RegisterComponent[testVelocity](nil)
	e := w.CreateEntity(true)
	_ = w.AddComponent(e, posID, testPosition{})
	_ = w.AddComponent(e, velID, testVelocity{})
	w.AddedEvents().TakeAll()

	if err := w.RemoveComponent(e, velID); err != nil {
		t.Fatalf("RemoveComponent: %v", err)
	}
	if w.HasComponent(e, velID) {
		t.Fatalf("entity should no longer carry velocity")
	}
	if !w.HasComponent(e, posID) {
		t.Fatalf("unrelated component should survive migration")
	}
	events := w.RemovedEvents().TakeAll()
	if len(events) != 1 || events[0].TypeID != velID {
		t.Fatalf("expected one ComponentRemovedEvent for velocity, got %#v", events)
	}
}

// TestDeferredDestroyScenario mirrors scenario S3: an entity destroyed via
// the command buffer stays invalid to queries immediately but its index is
// only recycled once the frame's structural phase is flushed.
func TestDeferredDestroyScenario(t *testing.T) {
	ResetRegistry()
	w := NewWorld()
	e := w.CreateEntity(true)

	w.Commands().Destroy(e)
	if !w.Alive(e) {
		t.Fatalf("a queued-but-unflushed Destroy must not take effect yet")
	}

	if err := w.FlushCommands(); err != nil {
		t.Fatalf("FlushCommands: %v", err)
	}
	if w.Alive(e) {
		t.Fatalf("entity must be dead after flush")
	}

	e2 := w.CreateEntity(true)
	if e2.Index() != e.Index() {
		t.Fatalf("expected the destroyed slot to be recycled, got a different index")
	}
	if e2 == e {
		t.Fatalf("recycled handle must carry a bumped generation, not be identical to the stale handle")
	}
}

func TestCommandBufferCreateIsDeferred(t *testing.T) {
	ResetRegistry()
	w := NewWorld()
	before := len(w.Archetypes())
	w.Commands().Create(true)
	if len(w.Archetypes()) != before {
		t.Fatalf("Create must not take effect before FlushCommands")
	}
	if err := w.FlushCommands(); err != nil {
		t.Fatalf("FlushCommands: %v", err)
	}
}

// TestInsertionOrderIndependentArchetypeKey mirrors scenario S1: archetype
// identity must not depend on component registration order.
func TestInsertionOrderIndependentArchetypeKey(t *testing.T) {
	ResetRegistry()
	posA, _ := RegisterComponent[testPosition](nil)
	velA, _ := RegisterComponent[testVelocity](nil)
	healthA, _ := RegisterComponent[testHealth](nil)
	wA := NewWorld()
	eA := wA.CreateEntity(true)
	_ = wA.AddComponent(eA, posA, testPosition{X: 1})
	_ = wA.AddComponent(eA, velA, testVelocity{X: 2})
	_ = wA.AddComponent(eA, healthA, testHealth{Current: 3})

	ResetRegistry()
	healthB, _ := RegisterComponent[testHealth](nil)
	posB, _ := RegisterComponent[testPosition](nil)
	velB, _ := RegisterComponent[testVelocity](nil)
	wB := NewWorld()
	eB := wB.CreateEntity(true)
	_ = wB.AddComponent(eB, healthB, testHealth{Current: 3})
	_ = wB.AddComponent(eB, posB, testPosition{X: 1})
	_ = wB.AddComponent(eB, velB, testVelocity{X: 2})

	archA, _ := wA.archetypes.OwnerOf(eA)
	archB, _ := wB.archetypes.OwnerOf(eB)
	sigA, sigB := archA.Signature(), archB.Signature()
	if len(sigA) != 3 || len(sigB) != 3 {
		t.Fatalf("expected a 3-type archetype in both runs, got %v and %v", sigA, sigB)
	}
	for i := range sigA {
		if sigA[i] != sigB[i] {
			t.Fatalf("archetype key depends on registration order: %v vs %v", sigA, sigB)
		}
	}
}
