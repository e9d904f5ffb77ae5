package ecs

import (
	"encoding/binary"
	"math"
)

// typedColumn is the shared-memory-style backing: one contiguous buffer per
// schema field plus a capacity/8-byte write mask (§4.2). Field values are
// encoded little-endian so the byte layout is identical regardless of host
// endianness, matching the numeric-determinism goal that runs through the
// rest of the core (§5, §8 item 8).
type typedColumn struct {
	typeID   TypeID
	schema   *Schema
	length   int
	capacity int
	fields   [][]byte // one contiguous buffer per schema field
	mask     []byte   // write mask, len = ceil(capacity/8)
}

func newTypedColumn(id TypeID, schema *Schema, capHint int) *typedColumn {
	c := &typedColumn{typeID: id, schema: schema}
	if capHint > 0 {
		c.EnsureCapacity(capHint)
	}
	return c
}

func (c *typedColumn) TypeID() TypeID { return c.typeID }
func (c *typedColumn) Len() int       { return c.length }
func (c *typedColumn) Capacity() int  { return c.capacity }

// EnsureCapacity grows by doubling, reallocating every field buffer and the
// write mask while preserving existing content (§4.2 "growTo").
func (c *typedColumn) EnsureCapacity(n int) {
	if n <= c.capacity {
		return
	}
	newCap := c.capacity
	if newCap == 0 {
		newCap = n
	}
	for newCap < n {
		newCap *= 2
	}
	if c.fields == nil {
		c.fields = make([][]byte, len(c.schema.Fields))
	}
	for i, f := range c.schema.Fields {
		nb := make([]byte, newCap*f.Kind.Size())
		copy(nb, c.fields[i])
		c.fields[i] = nb
	}
	nm := make([]byte, maskBytesLen(newCap))
	copy(nm, c.mask)
	c.mask = nm
	c.capacity = newCap
}

func (c *typedColumn) PushDefault() int {
	c.EnsureCapacity(c.length + 1)
	row := c.length
	c.length++
	return row
}

func (c *typedColumn) SwapRemove(row int) {
	if row < 0 || row >= c.length {
		panic(RowOutOfRangeError{Row: row, Len: c.length})
	}
	last := c.length - 1
	if row != last {
		for i, f := range c.schema.Fields {
			sz := f.Kind.Size()
			copy(c.fields[i][row*sz:(row+1)*sz], c.fields[i][last*sz:(last+1)*sz])
		}
		if maskBitSet(c.mask, last) {
			maskSet(c.mask, row)
		} else {
			maskClear(c.mask, row)
		}
	}
	maskClear(c.mask, last)
	c.length--
}

func (c *typedColumn) markWrittenBit(row int) {
	maskSet(c.mask, row)
}

// WriteFromObject expects values as map[string]any. Missing fields default
// to zero; bool truthy coerces to 1; unknown keys are ignored (§4.2).
func (c *typedColumn) WriteFromObject(row int, values any, _ uint64) {
	if row < 0 || row >= c.length {
		panic(RowOutOfRangeError{Row: row, Len: c.length})
	}
	m, _ := values.(map[string]any)
	for i, f := range c.schema.Fields {
		var v any
		if m != nil {
			v = m[f.Name]
		}
		c.encodeField(i, row, f.Kind, v)
	}
	c.markWrittenBit(row)
}

// ReadToObject reuses out (map[string]any) when given, purging any key not
// present in the schema (§4.2).
func (c *typedColumn) ReadToObject(row int, out any) any {
	if row < 0 || row >= c.length {
		panic(RowOutOfRangeError{Row: row, Len: c.length})
	}
	m, _ := out.(map[string]any)
	if m == nil {
		m = make(map[string]any, len(c.schema.Fields))
	} else {
		for k := range m {
			if _, ok := c.schema.IndexOf(k); !ok {
				delete(m, k)
			}
		}
	}
	for i, f := range c.schema.Fields {
		m[f.Name] = c.decodeField(i, row, f.Kind)
	}
	return m
}

func (c *typedColumn) MarkWrittenRange(start, end int, _ uint64) {
	for i := start; i < end && i < c.length; i++ {
		maskSet(c.mask, i)
	}
}

func (c *typedColumn) DrainWrittenRows(_ uint64) []int {
	rows := make([]int, 0)
	for i := 0; i < c.length; i++ {
		if maskBitSet(c.mask, i) {
			rows = append(rows, i)
			maskClear(c.mask, i)
		}
	}
	return rows
}

func (c *typedColumn) ChangedSince(_ uint64) []int {
	rows := make([]int, 0)
	for i := 0; i < c.length; i++ {
		if maskBitSet(c.mask, i) {
			rows = append(rows, i)
		}
	}
	return rows
}

func (c *typedColumn) SpawnLike(capHint int) Column {
	return newTypedColumn(c.typeID, c.schema, capHint)
}

func (c *typedColumn) CopyRangeTo(dst Column, srcStart, count int) error {
	if srcStart < 0 || srcStart+count > c.length {
		return RowOutOfRangeError{Row: srcStart + count, Len: c.length}
	}
	if other, ok := dst.(*typedColumn); ok && sameSchema(c.schema, other.schema) {
		other.EnsureCapacity(other.length + count)
		base := other.length
		for i, f := range c.schema.Fields {
			sz := f.Kind.Size()
			copy(other.fields[i][base*sz:(base+count)*sz], c.fields[i][srcStart*sz:(srcStart+count)*sz])
		}
		for i := 0; i < count; i++ {
			if maskBitSet(c.mask, srcStart+i) {
				maskSet(other.mask, base+i)
			}
		}
		other.length += count
		return nil
	}
	for i := 0; i < count; i++ {
		row := dst.PushDefault()
		values := c.ReadToObject(srcStart+i, map[string]any{})
		dst.WriteFromObject(row, values, 0)
	}
	return nil
}

func (c *typedColumn) SliceDescriptor(start, end int) ChunkColumnView {
	perField := make(map[string]FieldSliceDescriptor, len(c.schema.Fields))
	for i, f := range c.schema.Fields {
		sz := f.Kind.Size()
		perField[f.Name] = FieldSliceDescriptor{
			Buffer:     c.fields[i],
			ByteOffset: start * sz,
			Length:     end - start,
			Kind:       f.Kind,
		}
	}
	return ChunkColumnView{
		TypeID: c.typeID,
		Typed: &TypedSliceDescriptor{
			PerField:  perField,
			WriteMask: MaskSliceDescriptor{Buffer: c.mask, Len: maskBytesLen(c.capacity)},
			BaseRow:   start,
		},
	}
}

func sameSchema(a, b *Schema) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	return true
}

func (c *typedColumn) encodeField(fieldIdx, row int, kind ScalarKind, v any) {
	sz := kind.Size()
	buf := c.fields[fieldIdx][row*sz : (row+1)*sz]
	switch kind {
	case KindF32:
		f := toFloat64(v)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
	case KindF64:
		f := toFloat64(v)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
	case KindI8:
		buf[0] = byte(int8(toInt64(v)))
	case KindI16:
		binary.LittleEndian.PutUint16(buf, uint16(int16(toInt64(v))))
	case KindI32:
		binary.LittleEndian.PutUint32(buf, uint32(int32(toInt64(v))))
	case KindU8:
		buf[0] = byte(uint8(toUint64(v)))
	case KindU16:
		binary.LittleEndian.PutUint16(buf, uint16(toUint64(v)))
	case KindU32:
		binary.LittleEndian.PutUint32(buf, uint32(toUint64(v)))
	case KindBool:
		if toBool(v) {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
	}
}

func (c *typedColumn) decodeField(fieldIdx, row int, kind ScalarKind) any {
	sz := kind.Size()
	buf := c.fields[fieldIdx][row*sz : (row+1)*sz]
	switch kind {
	case KindF32:
		return math.Float32frombits(binary.LittleEndian.Uint32(buf))
	case KindF64:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf))
	case KindI8:
		return int8(buf[0])
	case KindI16:
		return int16(binary.LittleEndian.Uint16(buf))
	case KindI32:
		return int32(binary.LittleEndian.Uint32(buf))
	case KindU8:
		return uint8(buf[0])
	case KindU16:
		return binary.LittleEndian.Uint16(buf)
	case KindU32:
		return binary.LittleEndian.Uint32(buf)
	case KindBool:
		return buf[0] != 0
	}
	return nil
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float32:
		return float64(n)
	case float64:
		return n
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return int64(toFloat64(v))
}

func toUint64(v any) uint64 {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return uint64(toFloat64(v))
}

func toBool(v any) bool {
	switch n := v.(type) {
	case nil:
		return false
	case bool:
		return n
	default:
		return toFloat64(v) != 0
	}
}

// RowView is a readable-writable view over one row of a typed column,
// matching the design notes' "lightweight struct with indexed field
// getters." Constructed eagerly-checked: out-of-range rows panic at
// construction, not on first access (§4.2).
type RowView struct {
	col *typedColumn
	row int
}

// NewRowView constructs a writable view over row of col.
func NewRowView(col Column, row int) *RowView {
	tc, ok := col.(*typedColumn)
	if !ok || row < 0 || row >= tc.length {
		panic(RowOutOfRangeError{Row: row, Len: col.Len()})
	}
	return &RowView{col: tc, row: row}
}

// Get returns the named field's current value.
func (v *RowView) Get(field string) any {
	idx, ok := v.col.schema.IndexOf(field)
	if !ok {
		return nil
	}
	return v.col.decodeField(idx, v.row, v.col.schema.Fields[idx].Kind)
}

// Set coerces value per the field's kind and marks the row written.
func (v *RowView) Set(field string, value any) {
	idx, ok := v.col.schema.IndexOf(field)
	if !ok {
		return
	}
	v.col.encodeField(idx, v.row, v.col.schema.Fields[idx].Kind, value)
	v.col.markWrittenBit(v.row)
}

// ReadOnlyRowView is the read-only counterpart: Set is a deliberate no-op
// rather than a panic, safe for debugging/iteration helpers per §4.2.
type ReadOnlyRowView struct {
	col *typedColumn
	row int
}

// NewReadOnlyRowView constructs a read-only view over row of col.
func NewReadOnlyRowView(col Column, row int) *ReadOnlyRowView {
	tc, ok := col.(*typedColumn)
	if !ok || row < 0 || row >= tc.length {
		panic(RowOutOfRangeError{Row: row, Len: col.Len()})
	}
	return &ReadOnlyRowView{col: tc, row: row}
}

// Get returns the named field's current value.
func (v *ReadOnlyRowView) Get(field string) any {
	idx, ok := v.col.schema.IndexOf(field)
	if !ok {
		return nil
	}
	return v.col.decodeField(idx, v.row, v.col.schema.Fields[idx].Kind)
}

// Set silently ignores the write; a read-only view must never mutate the
// underlying buffer or write mask (§8 invariant 9).
func (v *ReadOnlyRowView) Set(string, any) {}
