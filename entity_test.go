package ecs

import "testing"

func TestEntityPacking(t *testing.T) {
	tests := []struct {
		name       string
		index, gen uint32
	}{
		{"zero", 0, 0},
		{"small", 5, 1},
		{"large index", 1<<20 - 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEntity(tt.index, tt.gen)
			if e.Index() != tt.index {
				t.Errorf("Index() = %d, want %d", e.Index(), tt.index)
			}
			if e.Generation() != tt.gen {
				t.Errorf("Generation() = %d, want %d", e.Generation(), tt.gen)
			}
		})
	}
}

func TestEntityManagerCreateDestroyRecycle(t *testing.T) {
	m := newEntityManager()
	e1 := m.create(true)
	if !m.alive(e1) {
		t.Fatalf("e1 should be alive immediately after create")
	}

	if !m.markPendingDestroy(e1) {
		t.Fatalf("markPendingDestroy should succeed for a live entity")
	}
	if m.alive(e1) {
		t.Fatalf("e1 should no longer report alive once pending destroy")
	}

	m.flushPendingDestroys()
	e2 := m.create(false)
	if e2.Index() != e1.Index() {
		t.Fatalf("expected recycled index %d, got %d", e1.Index(), e2.Index())
	}
	if e2.Generation() != e1.Generation()+1 {
		t.Fatalf("expected bumped generation %d, got %d", e1.Generation()+1, e2.Generation())
	}
	if m.alive(e1) {
		t.Fatalf("stale handle e1 must not report alive after recycling")
	}
}

func TestEntityManagerEnabledBit(t *testing.T) {
	m := newEntityManager()
	e := m.create(true)
	if v, ok := m.enabledState(e); !ok || !v {
		t.Fatalf("expected enabled=true, got %v, %v", v, ok)
	}
	if !m.setEnabled(e, false) {
		t.Fatalf("setEnabled should succeed for a live entity")
	}
	if v, ok := m.enabledState(e); !ok || v {
		t.Fatalf("expected enabled=false after setEnabled, got %v, %v", v, ok)
	}
}
