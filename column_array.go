package ecs

import "sort"

// arrayColumn is the heterogeneous backing for components without a
// registered schema: one opaque value per row, change-tracked with a
// per-row epoch rather than a write mask (§4.3).
type arrayColumn struct {
	typeID      TypeID
	values      []any
	rowEpochs   []uint32
	length      int
	lastDrained uint64
}

func newArrayColumn(id TypeID, capHint int) *arrayColumn {
	c := &arrayColumn{typeID: id}
	if capHint > 0 {
		c.EnsureCapacity(capHint)
	}
	return c
}

func (c *arrayColumn) TypeID() TypeID  { return c.typeID }
func (c *arrayColumn) Len() int        { return c.length }
func (c *arrayColumn) Capacity() int   { return len(c.values) }

func (c *arrayColumn) EnsureCapacity(n int) {
	if n <= len(c.values) {
		return
	}
	newCap := len(c.values)
	if newCap == 0 {
		newCap = n
	}
	for newCap < n {
		newCap *= 2
	}
	values := make([]any, newCap)
	copy(values, c.values)
	epochs := make([]uint32, newCap)
	copy(epochs, c.rowEpochs)
	c.values = values
	c.rowEpochs = epochs
}

func (c *arrayColumn) PushDefault() int {
	c.EnsureCapacity(c.length + 1)
	row := c.length
	val, err := makeDefault(c.typeID)
	if err == nil {
		c.values[row] = val
	}
	c.length++
	return row
}

func (c *arrayColumn) SwapRemove(row int) {
	if row < 0 || row >= c.length {
		panic(RowOutOfRangeError{Row: row, Len: c.length})
	}
	last := c.length - 1
	if row != last {
		c.values[row] = c.values[last]
		c.rowEpochs[row] = c.rowEpochs[last]
	}
	c.values[last] = nil
	c.rowEpochs[last] = 0
	c.length--
}

func (c *arrayColumn) WriteFromObject(row int, values any, epoch uint64) {
	if row < 0 || row >= c.length {
		panic(RowOutOfRangeError{Row: row, Len: c.length})
	}
	c.values[row] = values
	c.rowEpochs[row] = uint32(epoch)
}

func (c *arrayColumn) ReadToObject(row int, out any) any {
	if row < 0 || row >= c.length {
		panic(RowOutOfRangeError{Row: row, Len: c.length})
	}
	return c.values[row]
}

func (c *arrayColumn) MarkWrittenRange(start, end int, epoch uint64) {
	for i := start; i < end && i < c.length; i++ {
		c.rowEpochs[i] = uint32(epoch)
	}
}

func (c *arrayColumn) DrainWrittenRows(frame uint64) []int {
	rows := make([]int, 0)
	for i := 0; i < c.length; i++ {
		if uint64(c.rowEpochs[i]) > c.lastDrained && uint64(c.rowEpochs[i]) <= frame {
			rows = append(rows, i)
		}
	}
	c.lastDrained = frame
	sort.Ints(rows)
	return rows
}

func (c *arrayColumn) ChangedSince(frame uint64) []int {
	rows := make([]int, 0)
	for i := 0; i < c.length; i++ {
		if uint64(c.rowEpochs[i]) >= frame {
			rows = append(rows, i)
		}
	}
	return rows
}

func (c *arrayColumn) SpawnLike(capHint int) Column {
	return newArrayColumn(c.typeID, capHint)
}

func (c *arrayColumn) CopyRangeTo(dst Column, srcStart, count int) error {
	if srcStart < 0 || srcStart+count > c.length {
		return RowOutOfRangeError{Row: srcStart + count, Len: c.length}
	}
	if other, ok := dst.(*arrayColumn); ok {
		other.EnsureCapacity(other.length + count)
		for i := 0; i < count; i++ {
			dstRow := other.length
			other.values[dstRow] = c.values[srcStart+i]
			other.rowEpochs[dstRow] = c.rowEpochs[srcStart+i]
			other.length++
		}
		return nil
	}
	for i := 0; i < count; i++ {
		row := dst.PushDefault()
		dst.WriteFromObject(row, c.values[srcStart+i], uint64(c.rowEpochs[srcStart+i]))
	}
	return nil
}

func (c *arrayColumn) SliceDescriptor(start, end int) ChunkColumnView {
	cloned := make([]any, end-start)
	copy(cloned, c.values[start:end])
	return ChunkColumnView{TypeID: c.typeID, Cloned: cloned}
}
