package codegen

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/leftmike/tilejit/sql"
)

/*
A packed record is laid out as follows:
    one null byte per attribute, in attribute order: 1 if the attribute is null
    one value slot per attribute, in attribute order, sized by DataType.MaterializedSize
    a variable length attribute has a second slot after its value slot: the 4 byte length

    BOOLEAN: 1 byte, 0 or 1
    TINYINT, SMALLINT, INTEGER, DATE: 1, 2, 4, 4 byte two's complement
    BIGINT, TIMESTAMP: 8 byte two's complement
    DECIMAL: 8 byte IEEE 754
    VARCHAR, VARBINARY: 8 byte offset of the bytes in a VarlenPool

All integers are little endian. The slots of a null attribute are never written or read.
*/

var endian = binary.LittleEndian

// EntryInfo describes one physical slot of a packed record. Index is the attribute the slot
// belongs to; IsVar is set on the value slot of a variable length attribute, which is followed
// by its length slot.
type EntryInfo struct {
	Type  sql.DataType
	Index int
	IsVar bool
	Size  int
}

type storageLayout struct {
	types   []sql.DataType
	entries []EntryInfo
	offsets []int // byte offset of each entry
	slots   []int // first entry of each attribute
	size    int
}

func (sl *storageLayout) finalized() bool {
	return sl.entries != nil
}

func (sl *storageLayout) build(types []sql.DataType) {
	sl.types = append(make([]sql.DataType, 0, len(types)), types...)
	sl.entries = make([]EntryInfo, 0, len(types))
	sl.slots = make([]int, len(types))

	off := len(types)
	for idx, typ := range sl.types {
		sl.slots[idx] = len(sl.entries)

		sz := typ.MaterializedSize()
		sl.entries = append(sl.entries,
			EntryInfo{Type: typ, Index: idx, IsVar: typ.IsVariableLength(), Size: sz})
		sl.offsets = append(sl.offsets, off)
		off += sz

		if typ.IsVariableLength() {
			sl.entries = append(sl.entries,
				EntryInfo{Type: sql.IntegerType, Index: idx, Size: sql.VarlenLengthSize})
			sl.offsets = append(sl.offsets, off)
			off += sql.VarlenLengthSize
		}
	}
	sl.size = off
}

func (sl *storageLayout) setValue(rec []byte, idx int, v Value, pool *VarlenPool) error {
	typ := sl.types[idx]
	if v.IsNull() {
		rec[idx] = 1
		return nil
	}
	rec[idx] = 0

	ent := sl.slots[idx]
	buf := rec[sl.offsets[ent]:]
	switch typ {
	case sql.BooleanType:
		b, ok := v.Val().(sql.BoolValue)
		if !ok {
			break
		}
		if b {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
		return nil
	case sql.TinyIntType, sql.SmallIntType, sql.IntegerType, sql.DateType, sql.BigIntType,
		sql.TimestampType:

		i, ok := v.Val().(sql.Int64Value)
		if !ok {
			break
		}
		if err := typ.CheckValue(i); err != nil {
			return fmt.Errorf("codegen: attribute %d: %w", idx, err)
		}
		switch typ.MaterializedSize() {
		case 1:
			buf[0] = byte(i)
		case 2:
			endian.PutUint16(buf, uint16(i))
		case 4:
			endian.PutUint32(buf, uint32(i))
		default:
			endian.PutUint64(buf, uint64(i))
		}
		return nil
	case sql.DecimalType:
		var f float64
		switch n := v.Val().(type) {
		case sql.Float64Value:
			f = float64(n)
		case sql.Int64Value:
			f = float64(n)
		default:
			return fmt.Errorf("codegen: attribute %d: expected a %s value: %v", idx, typ,
				v.Val())
		}
		endian.PutUint64(buf, math.Float64bits(f))
		return nil
	case sql.VarcharType, sql.VarbinaryType:
		var b []byte
		switch s := v.Val().(type) {
		case sql.StringValue:
			b = []byte(s)
		case sql.BytesValue:
			b = []byte(s)
		default:
			return fmt.Errorf("codegen: attribute %d: expected a %s value: %v", idx, typ,
				v.Val())
		}
		if pool == nil {
			return fmt.Errorf("codegen: attribute %d: %s value requires a varlen pool", idx,
				typ)
		}
		endian.PutUint64(buf, pool.Add(b))
		endian.PutUint32(rec[sl.offsets[ent+1]:], uint32(len(b)))
		return nil
	}

	return fmt.Errorf("codegen: attribute %d: expected a %s value: %v", idx, typ, v.Val())
}

func (sl *storageLayout) getValue(rec []byte, idx int, pool *VarlenPool) Value {
	typ := sl.types[idx]
	if rec[idx] != 0 {
		return MakeNull(typ)
	}

	ent := sl.slots[idx]
	buf := rec[sl.offsets[ent]:]
	var val sql.Value
	switch typ {
	case sql.BooleanType:
		val = sql.BoolValue(buf[0] != 0)
	case sql.TinyIntType:
		val = sql.Int64Value(int8(buf[0]))
	case sql.SmallIntType:
		val = sql.Int64Value(int16(endian.Uint16(buf)))
	case sql.IntegerType, sql.DateType:
		val = sql.Int64Value(int32(endian.Uint32(buf)))
	case sql.BigIntType, sql.TimestampType:
		val = sql.Int64Value(int64(endian.Uint64(buf)))
	case sql.DecimalType:
		val = sql.Float64Value(math.Float64frombits(endian.Uint64(buf)))
	case sql.VarcharType, sql.VarbinaryType:
		off := endian.Uint64(buf)
		length := endian.Uint32(rec[sl.offsets[ent+1]:])
		b := pool.Get(off, length)
		if typ == sql.VarcharType {
			val = sql.StringValue(b)
		} else {
			val = sql.BytesValue(append(make([]byte, 0, len(b)), b...))
		}
	default:
		panic(fmt.Sprintf("codegen: attribute %d: unexpected type %s", idx, typ))
	}
	return MakeNullableValue(typ, val, false)
}
