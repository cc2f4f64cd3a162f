package storage

import (
	"math"
	"sync"
	"sync/atomic"
)

const (
	InvalidTxnID uint64 = 0
	InitialTxnID uint64 = 1

	InvalidCID uint64 = 0
	MaxCID     uint64 = math.MaxUint64
)

type tupleHeader struct {
	txnID       atomic.Uint64
	beginCID    atomic.Uint64
	endCID      atomic.Uint64
	next        ItemPointer
	prev        ItemPointer
	indirection *Indirection
}

// TileGroupHeader holds the MVCC metadata for each tuple slot of a tile group. The owner
// transaction id is changed with compare and swap; the version pointers are only changed by
// the owner of the slot.
type TileGroupHeader struct {
	mutex    sync.RWMutex
	slots    []tupleHeader
	nextSlot atomic.Uint32
}

func newTileGroupHeader(capacity uint32) *TileGroupHeader {
	tgh := &TileGroupHeader{
		slots: make([]tupleHeader, capacity),
	}
	for idx := range tgh.slots {
		th := &tgh.slots[idx]
		th.txnID.Store(InvalidTxnID)
		th.beginCID.Store(MaxCID)
		th.endCID.Store(MaxCID)
		th.next = InvalidItemPointer
		th.prev = InvalidItemPointer
	}
	return tgh
}

func (tgh *TileGroupHeader) Capacity() uint32 {
	return uint32(len(tgh.slots))
}

// nextTupleSlot allocates the next free slot; the slot starts out owned by InitialTxnID with a
// begin commit id of MaxCID, so it is invisible until a transaction takes it over.
func (tgh *TileGroupHeader) nextTupleSlot() (uint32, bool) {
	for {
		off := tgh.nextSlot.Load()
		if off >= uint32(len(tgh.slots)) {
			return 0, false
		}
		if tgh.nextSlot.CompareAndSwap(off, off+1) {
			tgh.slots[off].txnID.Store(InitialTxnID)
			return off, true
		}
	}
}

// AllocatedTupleCount returns the number of slots handed out so far.
func (tgh *TileGroupHeader) AllocatedTupleCount() uint32 {
	return tgh.nextSlot.Load()
}

func (tgh *TileGroupHeader) GetTransactionID(off uint32) uint64 {
	return tgh.slots[off].txnID.Load()
}

func (tgh *TileGroupHeader) SetTransactionID(off uint32, txnID uint64) {
	tgh.slots[off].txnID.Store(txnID)
}

// CASTransactionID sets the owner of the slot to newID if it is currently oldID.
func (tgh *TileGroupHeader) CASTransactionID(off uint32, oldID, newID uint64) bool {
	return tgh.slots[off].txnID.CompareAndSwap(oldID, newID)
}

func (tgh *TileGroupHeader) GetBeginCommitID(off uint32) uint64 {
	return tgh.slots[off].beginCID.Load()
}

func (tgh *TileGroupHeader) SetBeginCommitID(off uint32, cid uint64) {
	tgh.slots[off].beginCID.Store(cid)
}

func (tgh *TileGroupHeader) GetEndCommitID(off uint32) uint64 {
	return tgh.slots[off].endCID.Load()
}

func (tgh *TileGroupHeader) SetEndCommitID(off uint32, cid uint64) {
	tgh.slots[off].endCID.Store(cid)
}

// GetNextItemPointer returns the next older version of the tuple.
func (tgh *TileGroupHeader) GetNextItemPointer(off uint32) ItemPointer {
	tgh.mutex.RLock()
	defer tgh.mutex.RUnlock()
	return tgh.slots[off].next
}

func (tgh *TileGroupHeader) SetNextItemPointer(off uint32, ip ItemPointer) {
	tgh.mutex.Lock()
	defer tgh.mutex.Unlock()
	tgh.slots[off].next = ip
}

// GetPrevItemPointer returns the next newer version of the tuple.
func (tgh *TileGroupHeader) GetPrevItemPointer(off uint32) ItemPointer {
	tgh.mutex.RLock()
	defer tgh.mutex.RUnlock()
	return tgh.slots[off].prev
}

func (tgh *TileGroupHeader) SetPrevItemPointer(off uint32, ip ItemPointer) {
	tgh.mutex.Lock()
	defer tgh.mutex.Unlock()
	tgh.slots[off].prev = ip
}

// GetIndirection returns the cell which points at the newest version of the tuple; every
// version of a tuple shares the same cell.
func (tgh *TileGroupHeader) GetIndirection(off uint32) *Indirection {
	tgh.mutex.RLock()
	defer tgh.mutex.RUnlock()
	return tgh.slots[off].indirection
}

func (tgh *TileGroupHeader) SetIndirection(off uint32, indirection *Indirection) {
	tgh.mutex.Lock()
	defer tgh.mutex.Unlock()
	tgh.slots[off].indirection = indirection
}
