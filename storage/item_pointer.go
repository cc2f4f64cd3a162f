package storage

import (
	"fmt"
	"math"
	"sync/atomic"
)

const (
	InvalidOID = math.MaxUint32
)

// ItemPointer is the physical location of a tuple version: a tile group id and an offset within
// the tile group.
type ItemPointer struct {
	Block  uint32
	Offset uint32
}

var InvalidItemPointer = ItemPointer{Block: InvalidOID, Offset: InvalidOID}

func (ip ItemPointer) IsNull() bool {
	return ip.Block == InvalidOID
}

func (ip ItemPointer) String() string {
	if ip.IsNull() {
		return "(invalid)"
	}
	return fmt.Sprintf("(%d, %d)", ip.Block, ip.Offset)
}

// Indirection is a shared cell holding the location of the newest version of a tuple. Indexes
// point at the cell rather than at a version.
type Indirection struct {
	ip atomic.Uint64
}

func packItemPointer(ip ItemPointer) uint64 {
	return uint64(ip.Block)<<32 | uint64(ip.Offset)
}

func unpackItemPointer(u uint64) ItemPointer {
	return ItemPointer{Block: uint32(u >> 32), Offset: uint32(u)}
}

func NewIndirection(ip ItemPointer) *Indirection {
	var ind Indirection
	ind.ip.Store(packItemPointer(ip))
	return &ind
}

func (ind *Indirection) Load() ItemPointer {
	return unpackItemPointer(ind.ip.Load())
}

func (ind *Indirection) Store(ip ItemPointer) {
	ind.ip.Store(packItemPointer(ip))
}

func (ind *Indirection) CompareAndSwap(old, new ItemPointer) bool {
	return ind.ip.CompareAndSwap(packItemPointer(old), packItemPointer(new))
}
