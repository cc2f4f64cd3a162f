package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/sql"
)

// CompactStorage packs a fixed list of typed, nullable values into a record of
// MaxStorageSize bytes. The bytes of variable length values live in a VarlenPool.
type CompactStorage struct {
	layout storageLayout
}

// Setup fixes the types of the values stored; once set up, further calls return the existing
// format and ignore types.
func (cs *CompactStorage) Setup(types []sql.DataType) []EntryInfo {
	if !cs.layout.finalized() {
		cs.layout.build(types)
	}
	return cs.layout.entries
}

func (cs *CompactStorage) Types() []sql.DataType {
	return cs.layout.types
}

func (cs *CompactStorage) MaxStorageSize() int {
	return cs.layout.size
}

// StoreValues packs values into the front of buf and returns the rest of buf.
func (cs *CompactStorage) StoreValues(buf []byte, values []Value, pool *VarlenPool) ([]byte,
	error) {

	if !cs.layout.finalized() {
		panic("codegen: compact storage used before setup")
	}
	if len(values) != len(cs.layout.types) {
		return nil, fmt.Errorf("codegen: compact storage: expected %d values; got %d",
			len(cs.layout.types), len(values))
	}
	if len(buf) < cs.layout.size {
		return nil, fmt.Errorf("codegen: compact storage: buffer too small: %d < %d", len(buf),
			cs.layout.size)
	}

	rec := buf[:cs.layout.size]
	for idx, v := range values {
		err := cs.layout.setValue(rec, idx, v, pool)
		if err != nil {
			return nil, err
		}
	}
	return buf[cs.layout.size:], nil
}

// LoadValues unpacks the record at the front of buf and returns the values and the rest of
// buf. Null attributes are returned as the null value of their type.
func (cs *CompactStorage) LoadValues(buf []byte, pool *VarlenPool) ([]Value, []byte) {
	if !cs.layout.finalized() {
		panic("codegen: compact storage used before setup")
	}

	values := make([]Value, len(cs.layout.types))
	for idx := range values {
		values[idx] = cs.layout.getValue(buf, idx, pool)
	}
	return values, buf[cs.layout.size:]
}
