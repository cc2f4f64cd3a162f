package storage

import (
	"github.com/leftmike/tilejit/sql"
)

// TileGroup is a fixed capacity block of tuple slots of one table together with the MVCC header
// for those slots. A slot without values is an empty version: the tombstone left by a delete.
type TileGroup struct {
	id     uint32
	table  *DataTable
	header *TileGroupHeader
	tuples [][]sql.Value
}

func (tg *TileGroup) GetTileGroupID() uint32 {
	return tg.id
}

func (tg *TileGroup) GetHeader() *TileGroupHeader {
	return tg.header
}

func (tg *TileGroup) Table() *DataTable {
	return tg.table
}

func (tg *TileGroup) Capacity() uint32 {
	return tg.header.Capacity()
}

func (tg *TileGroup) AllocatedTupleCount() uint32 {
	return tg.header.AllocatedTupleCount()
}

func (tg *TileGroup) GetValue(off uint32, col int) sql.Value {
	return tg.tuples[off][col]
}

func (tg *TileGroup) SetValue(off uint32, col int, val sql.Value) {
	tg.tuples[off][col] = val
}

// GetTuple returns the values stored in the slot; it returns nil for an empty version.
func (tg *TileGroup) GetTuple(off uint32) []sql.Value {
	return tg.tuples[off]
}

func (tg *TileGroup) IsEmptyVersion(off uint32) bool {
	return tg.tuples[off] == nil
}

// MarkEmptyVersion turns the slot into a tombstone.
func (tg *TileGroup) MarkEmptyVersion(off uint32) {
	tg.tuples[off] = nil
}

func (tg *TileGroup) setTuple(off uint32, row []sql.Value) {
	if row == nil {
		tg.tuples[off] = nil
		return
	}
	tg.tuples[off] = append(make([]sql.Value, 0, len(row)), row...)
}
