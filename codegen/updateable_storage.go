package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/sql"
)

// UpdateableStorage uses the same record layout as CompactStorage, but values are read and
// written one at a time, in place.
type UpdateableStorage struct {
	types  []sql.DataType
	layout storageLayout
}

// AddType adds a value of type typ and returns its index in the record.
func (us *UpdateableStorage) AddType(typ sql.DataType) int {
	if us.layout.finalized() {
		panic("codegen: updateable storage: type added after finalize")
	}
	us.types = append(us.types, typ)
	return len(us.types) - 1
}

// Finalize fixes the layout and returns the size of a record.
func (us *UpdateableStorage) Finalize() int {
	if !us.layout.finalized() {
		us.layout.build(us.types)
	}
	return us.layout.size
}

func (us *UpdateableStorage) MaxStorageSize() int {
	return us.layout.size
}

func (us *UpdateableStorage) GetValueAt(rec []byte, idx int, pool *VarlenPool) Value {
	if idx < 0 || idx >= len(us.layout.types) {
		panic(fmt.Sprintf("codegen: updateable storage: index %d out of range", idx))
	}
	return us.layout.getValue(rec, idx, pool)
}

func (us *UpdateableStorage) SetValueAt(rec []byte, idx int, v Value, pool *VarlenPool) error {
	if idx < 0 || idx >= len(us.layout.types) {
		panic(fmt.Sprintf("codegen: updateable storage: index %d out of range", idx))
	}
	return us.layout.setValue(rec, idx, v, pool)
}
