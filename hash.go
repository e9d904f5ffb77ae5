package ecs

import (
	"hash/fnv"
	"math"
	"sort"
)

// quantizeScale is the fixed scale numeric canonicalization quantizes
// finite numbers to before hashing (§4.10: "quantize finite numbers to an
// integer at a fixed scale (e.g. 10^3)").
const quantizeScale = 1000

const (
	sentinelNaN  int64 = math.MinInt64
	sentinelPInf int64 = math.MaxInt64
	sentinelNInf int64 = math.MinInt64 + 1
)

// HashWorld produces a 32-bit FNV-1a fingerprint of w restricted to typeIDs
// (or every registered component type if typeIDs is empty), invariant
// under entity insertion order, component registration order, and -0/NaN/
// ±Inf representation (§4.10). Types are ordered and tagged by their
// registered name rather than their TypeID. Values with no canonical form
// here, such as struct values held in array (schema-less) columns,
// contribute a single marker byte; their fields are not hashed.
func HashWorld(w *World, typeIDs []TypeID) uint32 {
	ids := append([]TypeID(nil), typeIDs...)
	if len(ids) == 0 {
		r := globalRegistry
		r.mu.RLock()
		for id := range r.byID {
			ids = append(ids, id)
		}
		r.mu.RUnlock()
	}
	names := make(map[TypeID]string, len(ids))
	for _, t := range ids {
		names[t], _ = NameOf(t)
	}
	sort.Slice(ids, func(i, j int) bool { return names[ids[i]] < names[ids[j]] })

	h := fnv.New32a()
	writeUint64(h, w.frame)

	for _, t := range ids {
		writeByte(h, 1) // type tag
		h.Write([]byte(names[t]))

		entries := stableEntriesFor(w, t)
		for _, e := range entries {
			writeStableKey(h, e.key)
			canonicalizeInto(h, e.value)
		}
		writeUint64(h, uint64(len(entries)))
	}

	if rng, ok := Resource[*GUIDAllocator](w); ok {
		writeUint64(h, rng.hi)
		writeUint64(h, rng.lo)
	}

	return h.Sum32()
}

type stableKey struct {
	isGUID bool
	guid   string
	index  uint32
}

type stableEntry struct {
	key   stableKey
	value any
}

// stableEntriesFor collects the rows of every archetype containing typeId
// and sorts them into one stable-key-ascending sequence (§4.10 step 4). GUID-keyed entities sort
// before index-keyed entities; within each group, ascending.
func stableEntriesFor(w *World, typeID TypeID) []stableEntry {
	guidComp, hasGUIDComp := Config.GUIDComponent()

	var entries []stableEntry
	for _, a := range w.Archetypes() {
		col, ok := a.Column(typeID)
		if !ok {
			continue
		}
		ents := a.Entities()
		for row, e := range ents {
			key := stableKeyFor(a, row, e, guidComp, hasGUIDComp)
			value := col.ReadToObject(row, rowScratch(col))
			entries = append(entries, stableEntry{key: key, value: value})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return compareStableKeys(entries[i].key, entries[j].key) < 0 })
	return entries
}

func stableKeyFor(a *Archetype, row int, e Entity, guidComp TypeID, hasGUIDComp bool) stableKey {
	if hasGUIDComp && a.Contains(guidComp) {
		if col, ok := a.Column(guidComp); ok {
			v := col.ReadToObject(row, rowScratch(col))
			if s, ok := guidString(v); ok {
				return stableKey{isGUID: true, guid: s}
			}
		}
	}
	return stableKey{index: e.Index()}
}

// guidString extracts a stable string form from a GUID-designated
// component's value, whether it is a string, a GUID, or a typed-column
// field map exposing a "value"/"guid" field.
func guidString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case GUID:
		return formatGUID(t), true
	case map[string]any:
		if s, ok := t["guid"].(string); ok {
			return s, true
		}
		if s, ok := t["value"].(string); ok {
			return s, true
		}
	}
	return "", false
}

func formatGUID(g GUID) string {
	buf := make([]byte, 0, 20)
	buf = appendUint64Hex(buf, g.Hi)
	buf = append(buf, '-')
	buf = appendUint64Hex(buf, g.Lo)
	return string(buf)
}

func appendUint64Hex(buf []byte, v uint64) []byte {
	const hexDigits = "0123456789abcdef"
	start := len(buf)
	if v == 0 {
		return append(buf, '0')
	}
	for v > 0 {
		buf = append(buf, hexDigits[v&0xf])
		v >>= 4
	}
	// reverse the digits just appended
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

func compareStableKeys(a, b stableKey) int {
	if a.isGUID != b.isGUID {
		if a.isGUID {
			return -1
		}
		return 1
	}
	if a.isGUID {
		switch {
		case a.guid < b.guid:
			return -1
		case a.guid > b.guid:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a.index < b.index:
		return -1
	case a.index > b.index:
		return 1
	default:
		return 0
	}
}

func writeStableKey(h interface{ Write([]byte) (int, error) }, k stableKey) {
	if k.isGUID {
		writeByte(h, 1)
		h.Write([]byte(k.guid))
		return
	}
	writeByte(h, 0)
	writeUint32(h, k.index)
}

// canonicalizeInto hashes v's canonical byte form: map fields sorted by
// key, scalars quantized per quantizeNumber.
func canonicalizeInto(h interface{ Write([]byte) (int, error) }, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k))
			canonicalizeScalar(h, t[k])
		}
	default:
		canonicalizeScalar(h, v)
	}
}

func canonicalizeScalar(h interface{ Write([]byte) (int, error) }, v any) {
	switch n := v.(type) {
	case bool:
		if n {
			writeByte(h, 1)
		} else {
			writeByte(h, 0)
		}
	case float32:
		writeInt64(h, quantizeFloat(float64(n)))
	case float64:
		writeInt64(h, quantizeFloat(n))
	case int8:
		writeInt64(h, int64(n))
	case int16:
		writeInt64(h, int64(n))
	case int32:
		writeInt64(h, int64(n))
	case int64:
		writeInt64(h, n)
	case int:
		writeInt64(h, int64(n))
	case uint8:
		writeInt64(h, int64(n))
	case uint16:
		writeInt64(h, int64(n))
	case uint32:
		writeInt64(h, int64(n))
	case uint64:
		writeInt64(h, int64(n))
	case string:
		h.Write([]byte(n))
	default:
		// opaque array-column values with no canonical numeric form
		// contribute a single 0xff marker byte; their contents are not hashed.
		writeByte(h, 0xff)
	}
}

// quantizeFloat canonicalizes a float per §4.10: -0 -> 0, NaN/±Inf to fixed
// sentinels, finite values scaled to a fixed-point integer.
func quantizeFloat(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return sentinelNaN
	case math.IsInf(f, 1):
		return sentinelPInf
	case math.IsInf(f, -1):
		return sentinelNInf
	case f == 0:
		return 0
	default:
		return int64(math.Round(f * quantizeScale))
	}
}

func writeByte(h interface{ Write([]byte) (int, error) }, b byte) {
	h.Write([]byte{b})
}

func writeUint32(h interface{ Write([]byte) (int, error) }, v uint32) {
	h.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func writeUint64(h interface{ Write([]byte) (int, error) }, v uint64) {
	h.Write([]byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	})
}

func writeInt64(h interface{ Write([]byte) (int, error) }, v int64) {
	writeUint64(h, uint64(v))
}
