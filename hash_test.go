package ecs

import (
	"math"
	"testing"
)

func TestHashWorldDeterministicAcrossRegistrationOrder(t *testing.T) {
	ResetRegistry()
	posA, _ := RegisterComponent[testPosition](nil)
	velA, _ := RegisterComponent[testVelocity](nil)
	wA := NewWorld()
	eA := wA.CreateEntity(true)
	_ = wA.AddComponent(eA, posA, testPosition{X: 1, Y: 2})
	_ = wA.AddComponent(eA, velA, testVelocity{X: 3, Y: 4})

	ResetRegistry()
	velB, _ := RegisterComponent[testVelocity](nil)
	posB, _ := RegisterComponent[testPosition](nil)
	wB := NewWorld()
	eB := wB.CreateEntity(true)
	_ = wB.AddComponent(eB, velB, testVelocity{X: 3, Y: 4})
	_ = wB.AddComponent(eB, posB, testPosition{X: 1, Y: 2})

	hashA := HashWorld(wA, []TypeID{posA, velA})
	hashB := HashWorld(wB, []TypeID{velB, posB})
	if hashA != hashB {
		t.Fatalf("HashWorld should be invariant under component registration order: %d != %d", hashA, hashB)
	}
}

func TestHashWorldInsertionOrderWithinArchetype(t *testing.T) {
	ResetRegistry()
	posID, _ := RegisterComponent[testPosition](nil)

	// Each entity gets the same value in both worlds; only the order in
	// which the entities enter the archetype differs.
	build := func(order []int) uint32 {
		w := NewWorld()
		ents := w.NewEntities(3, true)
		for _, i := range order {
			_ = w.AddComponent(ents[i], posID, testPosition{X: float64(i + 1)})
		}
		return HashWorld(w, []TypeID{posID})
	}

	a := build([]int{0, 1, 2})
	b := build([]int{2, 0, 1})
	if a != b {
		t.Fatalf("HashWorld should be invariant under entity insertion order: %d != %d", a, b)
	}
}

func TestQuantizeFloatCanonicalization(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
	}{
		{"negative zero equals zero", math.Copysign(0, -1), 0},
		{"NaN equals NaN", math.NaN(), math.NaN()},
		{"+Inf equals +Inf", math.Inf(1), math.Inf(1)},
		{"-Inf equals -Inf", math.Inf(-1), math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if quantizeFloat(tt.a) != quantizeFloat(tt.b) {
				t.Errorf("quantizeFloat(%v) != quantizeFloat(%v)", tt.a, tt.b)
			}
		})
	}
	if quantizeFloat(math.Inf(1)) == quantizeFloat(math.Inf(-1)) {
		t.Errorf("+Inf and -Inf must quantize to distinct sentinels")
	}
	if quantizeFloat(math.NaN()) == quantizeFloat(math.Inf(1)) {
		t.Errorf("NaN and +Inf must quantize to distinct sentinels")
	}
}

func TestHashWorldStableAcrossRepeatedCalls(t *testing.T) {
	ResetRegistry()
	posID, _ := RegisterComponent[testPosition](nil)
	w := NewWorld()
	e := w.CreateEntity(true)
	_ = w.AddComponent(e, posID, testPosition{X: 1.5, Y: -2.25})

	first := HashWorld(w, []TypeID{posID})
	for i := 0; i < 5; i++ {
		if got := HashWorld(w, []TypeID{posID}); got != first {
			t.Fatalf("iteration %d: HashWorld changed without mutation: %d != %d", i, got, first)
		}
	}
}
