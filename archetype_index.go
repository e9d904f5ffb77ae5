package ecs

import (
	"sort"

	"github.com/TheBitDrifter/mask"
)

// archetypeIndex maps a sorted typeId signature to its one archetype
// instance and answers "archetypes matching query Q" (§3 "Archetype
// index"). Keyed by mask.Mask exactly as the teacher's storage.go keys
// idsGroupedByMask, generalized from "one schema-registered bit per
// component" to the full archetype signature.
type archetypeIndex struct {
	nextID      uint32
	bySignature map[mask.Mask]*Archetype
	all         []*Archetype
	ownerOf     map[Entity]*Archetype
}

func newArchetypeIndex() *archetypeIndex {
	return &archetypeIndex{
		nextID:      1,
		bySignature: make(map[mask.Mask]*Archetype),
		ownerOf:     make(map[Entity]*Archetype),
	}
}

func signatureOf(typeIDs []TypeID) mask.Mask {
	var m mask.Mask
	for _, t := range typeIDs {
		m.Mark(uint32(t))
	}
	return m
}

// getOrCreate returns the archetype for the given type set, creating it if
// this is the first time that exact set has been requested. Archetype
// identity depends only on the sorted typeId set (§8 invariant 5).
func (idx *archetypeIndex) getOrCreate(typeIDs []TypeID) *Archetype {
	sig := signatureOf(typeIDs)
	if a, ok := idx.bySignature[sig]; ok {
		// PruneEmpty may have dropped a from idx.all while leaving the
		// signature entry in place for exactly this reuse. Re-attach it so
		// Match/All see it again instead of silently losing it.
		if !idx.inAll(a) {
			idx.all = append(idx.all, a)
		}
		return a
	}
	a := newArchetype(idx.nextID, typeIDs)
	idx.nextID++
	idx.bySignature[sig] = a
	idx.all = append(idx.all, a)
	return a
}

func (idx *archetypeIndex) inAll(a *Archetype) bool {
	for _, existing := range idx.all {
		if existing == a {
			return true
		}
	}
	return false
}

// Match returns every archetype whose type set is a superset of required
// and disjoint from forbidden (§3 "Archetype index").
func (idx *archetypeIndex) Match(required, forbidden []TypeID) []*Archetype {
	reqMask := signatureOf(required)
	forbidMask := signatureOf(forbidden)

	out := make([]*Archetype, 0, len(idx.all))
	for _, a := range idx.all {
		if !a.sig.ContainsAll(reqMask) {
			continue
		}
		if len(forbidden) > 0 && a.sig.ContainsAny(forbidMask) {
			continue
		}
		out = append(out, a)
	}
	// Stable, frame-independent ordering across archetypes, sorted by
	// archetype typeId sequence (§4.5).
	sort.Slice(out, func(i, j int) bool { return compareSignatures(out[i].typeIDs, out[j].typeIDs) < 0 })
	return out
}

func compareSignatures(a, b []TypeID) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// All returns every archetype currently known to the index.
func (idx *archetypeIndex) All() []*Archetype {
	return append([]*Archetype(nil), idx.all...)
}

func (idx *archetypeIndex) setOwner(e Entity, a *Archetype) {
	idx.ownerOf[e] = a
}

func (idx *archetypeIndex) clearOwner(e Entity) {
	delete(idx.ownerOf, e)
}

// OwnerOf is the reverse lookup: which archetype currently owns entity.
func (idx *archetypeIndex) OwnerOf(e Entity) (*Archetype, bool) {
	a, ok := idx.ownerOf[e]
	return a, ok
}

// PruneEmpty removes archetypes with zero entities from iteration (cleanup
// of empty archetypes, §3 "Archetype index"). The signature mapping is kept
// so a later re-population of the same type set reuses the archetype
// rather than reallocating columns.
func (idx *archetypeIndex) PruneEmpty() {
	kept := idx.all[:0]
	for _, a := range idx.all {
		if a.Len() > 0 {
			kept = append(kept, a)
		}
	}
	idx.all = kept
}
