package concurrency

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/tilejit/storage"
)

var (
	errTransactionComplete = errors.New("concurrency: transaction already completed")
)

type VisibilityType int

const (
	VisibilityInvisible VisibilityType = iota
	VisibilityDeleted
	VisibilityOK
)

func (vt VisibilityType) String() string {
	switch vt {
	case VisibilityInvisible:
		return "INVISIBLE"
	case VisibilityDeleted:
		return "DELETED"
	case VisibilityOK:
		return "OK"
	}
	return fmt.Sprintf("VISIBILITY(%d)", int(vt))
}

// TransactionManager implements timestamp ordering MVCC over tile group headers. Versions are
// chained newest to oldest; the indirection cell of a tuple points at the newest version. A
// transaction writes a tuple only after taking ownership of its newest version by swapping its
// id into the version's header.
type TransactionManager struct {
	mutex     sync.Mutex
	manager   *storage.Manager
	lastTxnID atomic.Uint64
	lastCID   uint64
}

func NewTransactionManager(manager *storage.Manager) *TransactionManager {
	tm := &TransactionManager{
		manager: manager,
		lastCID: storage.InvalidCID,
	}
	tm.lastTxnID.Store(storage.InitialTxnID)
	return tm
}

func (tm *TransactionManager) BeginTransaction(isolation IsolationLevel) *Transaction {
	tm.mutex.Lock()
	readID := tm.lastCID
	tm.mutex.Unlock()

	return &Transaction{
		id:        tm.lastTxnID.Add(1),
		readID:    readID,
		isolation: isolation,
		result:    ResultSuccess,
		rwSet:     map[storage.ItemPointer]int{},
	}
}

func (tm *TransactionManager) IsVisible(txn *Transaction, tgh *storage.TileGroupHeader,
	off uint32) VisibilityType {

	txnID := tgh.GetTransactionID(off)
	if txnID == storage.InvalidTxnID {
		return VisibilityInvisible
	}
	beginCID := tgh.GetBeginCommitID(off)
	endCID := tgh.GetEndCommitID(off)

	if txnID == txn.id {
		if endCID == storage.InvalidCID {
			return VisibilityDeleted
		} else if beginCID == storage.MaxCID {
			return VisibilityOK
		}
		// An older version of a tuple this transaction has already written.
		return VisibilityInvisible
	}

	if txnID != storage.InitialTxnID && beginCID == storage.MaxCID {
		// Not yet committed by another transaction.
		return VisibilityInvisible
	}
	if txn.readID >= beginCID && txn.readID < endCID {
		return VisibilityOK
	}
	return VisibilityInvisible
}

func (tm *TransactionManager) IsOwner(txn *Transaction, tgh *storage.TileGroupHeader,
	off uint32) bool {

	return tgh.GetTransactionID(off) == txn.id
}

// IsWritten reports whether the version was created by this transaction.
func (tm *TransactionManager) IsWritten(txn *Transaction, tgh *storage.TileGroupHeader,
	off uint32) bool {

	return tgh.GetTransactionID(off) == txn.id && tgh.GetBeginCommitID(off) == storage.MaxCID
}

// IsOwnable reports whether the version is the newest committed version of its tuple, visible
// to the transaction, and not owned by anyone.
func (tm *TransactionManager) IsOwnable(txn *Transaction, tgh *storage.TileGroupHeader,
	off uint32) bool {

	return tgh.GetTransactionID(off) == storage.InitialTxnID &&
		tgh.GetEndCommitID(off) == storage.MaxCID &&
		tgh.GetBeginCommitID(off) <= txn.readID
}

func (tm *TransactionManager) AcquireOwnership(txn *Transaction, tgh *storage.TileGroupHeader,
	off uint32) bool {

	if !tgh.CASTransactionID(off, storage.InitialTxnID, txn.id) {
		log.WithFields(log.Fields{
			"txn":   txn.id,
			"owner": tgh.GetTransactionID(off),
		}).Trace("concurrency: acquire ownership: already owned")
		return false
	}

	// A newer version may have been committed between the check and the swap.
	if tgh.GetEndCommitID(off) != storage.MaxCID {
		tgh.CASTransactionID(off, txn.id, storage.InitialTxnID)
		log.WithField("txn", txn.id).Trace("concurrency: acquire ownership: stale version")
		return false
	}
	return true
}

func (tm *TransactionManager) YieldOwnership(txn *Transaction, tgh *storage.TileGroupHeader,
	off uint32) {

	if !tgh.CASTransactionID(off, txn.id, storage.InitialTxnID) {
		panic(fmt.Sprintf("concurrency: %s: yield ownership of a tuple it does not own", txn))
	}
}

func (tm *TransactionManager) header(location storage.ItemPointer) *storage.TileGroupHeader {
	tg := tm.manager.GetTileGroup(location.Block)
	if tg == nil {
		panic(fmt.Sprintf("concurrency: tile group %d not found", location.Block))
	}
	return tg.GetHeader()
}

// PerformRead records the read of the version at location. Under serializable isolation the
// read fails if the tuple is owned by another transaction.
func (tm *TransactionManager) PerformRead(txn *Transaction, location storage.ItemPointer) bool {
	tgh := tm.header(location)
	txnID := tgh.GetTransactionID(location.Offset)

	if txnID == txn.id {
		if tgh.GetBeginCommitID(location.Offset) == storage.MaxCID {
			// A version written by this transaction.
			return true
		}
		if _, ok := txn.RWType(location); !ok {
			txn.record(location, RWReadOwn)
		}
		return true
	}

	if txn.isolation == Serializable && txnID != storage.InitialTxnID &&
		txnID != storage.InvalidTxnID {

		log.WithFields(log.Fields{
			"txn":      txn.id,
			"owner":    txnID,
			"location": location,
		}).Trace("concurrency: read of an owned tuple")
		return false
	}

	if _, ok := txn.RWType(location); !ok {
		txn.record(location, RWRead)
	}
	return true
}

// PerformInsert takes over the slot at location, which must have come from
// DataTable.InsertTuple.
func (tm *TransactionManager) PerformInsert(txn *Transaction, location storage.ItemPointer,
	ind *storage.Indirection) {

	tgh := tm.header(location)
	tgh.SetTransactionID(location.Offset, txn.id)
	tgh.SetBeginCommitID(location.Offset, storage.MaxCID)
	tgh.SetEndCommitID(location.Offset, storage.MaxCID)
	tgh.SetNextItemPointer(location.Offset, storage.InvalidItemPointer)
	tgh.SetPrevItemPointer(location.Offset, storage.InvalidItemPointer)
	tgh.SetIndirection(location.Offset, ind)

	txn.record(location, RWInsert)
}

func (tm *TransactionManager) linkVersion(txn *Transaction, old, new storage.ItemPointer,
	endCID uint64) {

	oldTgh := tm.header(old)
	newTgh := tm.header(new)

	newTgh.SetTransactionID(new.Offset, txn.id)
	newTgh.SetBeginCommitID(new.Offset, storage.MaxCID)
	newTgh.SetEndCommitID(new.Offset, endCID)
	newTgh.SetNextItemPointer(new.Offset, old)
	newTgh.SetPrevItemPointer(new.Offset, storage.InvalidItemPointer)
	oldTgh.SetPrevItemPointer(old.Offset, new)

	ind := oldTgh.GetIndirection(old.Offset)
	newTgh.SetIndirection(new.Offset, ind)
	if ind != nil {
		ind.Store(new)
	}
}

// PerformUpdate makes the version at new the newest version of the tuple whose current version
// is at old; the transaction must own old.
func (tm *TransactionManager) PerformUpdate(txn *Transaction, old, new storage.ItemPointer) {
	tm.linkVersion(txn, old, new, storage.MaxCID)
	txn.record(old, RWUpdate)
}

// PerformUpdateInPlace records an update of a version the transaction already wrote.
func (tm *TransactionManager) PerformUpdateInPlace(txn *Transaction,
	location storage.ItemPointer) {

	tgh := tm.header(location)
	if tgh.GetTransactionID(location.Offset) != txn.id {
		panic(fmt.Sprintf("concurrency: %s: update in place of %s which it does not own", txn,
			location))
	}
	if _, ok := txn.RWType(location); !ok {
		old := tgh.GetNextItemPointer(location.Offset)
		if old.IsNull() {
			panic(fmt.Sprintf("concurrency: %s: update in place of %s: missing older version",
				txn, location))
		}
		txn.record(old, RWUpdate)
	}
}

// PerformDelete makes the empty version at new the newest version of the tuple whose current
// version is at old; the transaction must own old.
func (tm *TransactionManager) PerformDelete(txn *Transaction, old, new storage.ItemPointer) {
	tm.linkVersion(txn, old, new, storage.InvalidCID)
	if rwType, ok := txn.RWType(old); ok && rwType == RWInsert {
		txn.record(old, RWInsDel)
	} else {
		txn.record(old, RWDelete)
	}
}

// PerformDeleteInPlace deletes a version the transaction already wrote.
func (tm *TransactionManager) PerformDeleteInPlace(txn *Transaction,
	location storage.ItemPointer) {

	tgh := tm.header(location)
	if tgh.GetTransactionID(location.Offset) != txn.id {
		panic(fmt.Sprintf("concurrency: %s: delete in place of %s which it does not own", txn,
			location))
	}
	tgh.SetEndCommitID(location.Offset, storage.InvalidCID)

	if rwType, ok := txn.RWType(location); ok && rwType == RWInsert {
		txn.record(location, RWInsDel)
	} else {
		txn.record(tgh.GetNextItemPointer(location.Offset), RWDelete)
	}
}

func (tm *TransactionManager) SetTransactionResult(txn *Transaction, result ResultType) {
	txn.result = result
}

// invalidateVersions invalidates the version at location and every newer version of it.
func (tm *TransactionManager) invalidateVersions(location storage.ItemPointer) {
	for !location.IsNull() {
		tgh := tm.header(location)
		tgh.SetTransactionID(location.Offset, storage.InvalidTxnID)
		location = tgh.GetPrevItemPointer(location.Offset)
	}
}

// CommitTransaction makes the writes of the transaction visible to transactions which begin
// afterwards. A transaction whose result is ResultFailure is aborted instead.
func (tm *TransactionManager) CommitTransaction(txn *Transaction) (ResultType, error) {
	if txn.completed {
		return txn.result, errTransactionComplete
	}
	if txn.result == ResultFailure {
		return tm.AbortTransaction(txn)
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	cid := tm.lastCID + 1
	for _, ent := range txn.entries {
		tgh := tm.header(ent.location)
		off := ent.location.Offset

		switch ent.rwType {
		case RWRead:
		case RWReadOwn:
			tgh.CASTransactionID(off, txn.id, storage.InitialTxnID)
		case RWInsert:
			tgh.SetBeginCommitID(off, cid)
			tgh.SetEndCommitID(off, storage.MaxCID)
			tgh.SetTransactionID(off, storage.InitialTxnID)
		case RWInsDel:
			tm.invalidateVersions(ent.location)
		case RWUpdate, RWDelete:
			new := tgh.GetPrevItemPointer(off)
			newTgh := tm.header(new)
			newTgh.SetBeginCommitID(new.Offset, cid)
			if ent.rwType == RWDelete {
				newTgh.SetEndCommitID(new.Offset, cid)
			}
			tgh.SetEndCommitID(off, cid)
			newTgh.SetTransactionID(new.Offset, storage.InitialTxnID)
			tgh.SetTransactionID(off, storage.InitialTxnID)
		}
	}
	tm.lastCID = cid

	txn.commitID = cid
	txn.completed = true
	txn.result = ResultSuccess

	log.WithFields(log.Fields{
		"txn":    txn.id,
		"cid":    cid,
		"writes": txn.WriteCount(),
	}).Trace("concurrency: commit")
	return ResultSuccess, nil
}

// AbortTransaction undoes the writes of the transaction and releases every tuple it owns.
func (tm *TransactionManager) AbortTransaction(txn *Transaction) (ResultType, error) {
	if txn.completed {
		return txn.result, errTransactionComplete
	}

	for idx := len(txn.entries) - 1; idx >= 0; idx -= 1 {
		ent := txn.entries[idx]
		tg := tm.manager.GetTileGroup(ent.location.Block)
		tgh := tg.GetHeader()
		off := ent.location.Offset

		switch ent.rwType {
		case RWRead:
		case RWReadOwn:
			tgh.CASTransactionID(off, txn.id, storage.InitialTxnID)
		case RWInsert, RWInsDel:
			if row := tg.GetTuple(off); row != nil {
				tg.Table().RemoveIndexEntries(row, tgh.GetIndirection(off))
			}
			tm.invalidateVersions(ent.location)
		case RWUpdate, RWDelete:
			new := tgh.GetPrevItemPointer(off)
			newTgh := tm.header(new)
			newTgh.SetTransactionID(new.Offset, storage.InvalidTxnID)
			ind := tgh.GetIndirection(off)
			if ind != nil {
				ind.Store(ent.location)
			}
			tgh.SetPrevItemPointer(off, storage.InvalidItemPointer)
			tgh.CASTransactionID(off, txn.id, storage.InitialTxnID)
			if row := tg.GetTuple(off); ind != nil && row != nil {
				tg.Table().RestoreIndexEntries(row, ind)
			}
		}
	}

	txn.completed = true
	txn.result = ResultAborted

	log.WithFields(log.Fields{
		"txn":    txn.id,
		"writes": txn.WriteCount(),
	}).Trace("concurrency: abort")
	return ResultAborted, nil
}
