package codegen

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/tilejit/concurrency"
	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
	"github.com/leftmike/tilejit/storage"
)

// PerformVectorizedRead reads the tuples with offsets [tidStart, tidEnd) of tg. The offsets of
// the tuples which are visible to txn and which txn can read are stored at the front of
// selection; it returns how many were stored.
func PerformVectorizedRead(tm TransactionManager, txn *concurrency.Transaction,
	tg *storage.TileGroup, tidStart, tidEnd uint32, selection []uint32) uint32 {

	tgh := tg.GetHeader()

	var out uint32
	for tid := tidStart; tid < tidEnd; tid += 1 {
		selection[out] = tid
		if tm.IsVisible(txn, tgh, tid) == concurrency.VisibilityOK {
			out += 1
		}
	}

	end := out
	out = 0
	for idx := uint32(0); idx < end; idx += 1 {
		selection[out] = selection[idx]
		if tm.PerformRead(txn, storage.ItemPointer{Block: tg.GetTileGroupID(),
			Offset: selection[idx]}) {

			out += 1
		}
	}
	return out
}

func logFailure(txn *concurrency.Transaction, op string, location storage.ItemPointer,
	reason string) {

	log.WithFields(log.Fields{
		"txn":      txn,
		"location": location,
	}).Debug("codegen: ", op, ": ", reason)
}

// PerformDelete deletes the tuple at offset tid of tg. It returns false and sets the result of
// the transaction to failure if the tuple can not be deleted.
func PerformDelete(tm TransactionManager, txn *concurrency.Transaction,
	table *storage.DataTable, tg *storage.TileGroup, tid uint32) bool {

	oldLocation := storage.ItemPointer{Block: tg.GetTileGroupID(), Offset: tid}
	tgh := tg.GetHeader()

	if tm.IsWritten(txn, tgh, tid) {
		tm.PerformDeleteInPlace(txn, oldLocation)
		return true
	}

	isOwner := tm.IsOwner(txn, tgh, tid)
	if !isOwner && !tm.IsOwnable(txn, tgh, tid) {
		logFailure(txn, "delete", oldLocation, "not ownable")
		tm.SetTransactionResult(txn, concurrency.ResultFailure)
		return false
	}
	if !isOwner && !tm.AcquireOwnership(txn, tgh, tid) {
		logFailure(txn, "delete", oldLocation, "acquire ownership failed")
		tm.SetTransactionResult(txn, concurrency.ResultFailure)
		return false
	}

	newLocation := table.InsertEmptyVersion()
	if newLocation.IsNull() {
		logFailure(txn, "delete", oldLocation, "insert empty version failed")
		if !isOwner {
			tm.YieldOwnership(txn, tgh, tid)
		}
		tm.SetTransactionResult(txn, concurrency.ResultFailure)
		return false
	}
	tm.PerformDelete(txn, oldLocation, newLocation)
	return true
}

// doProjection sets the columns colIDs of dest to values, and then copies the direct mapped
// columns from src.
func doProjection(dest, src []sql.Value, colIDs []int, values []sql.Value,
	directMaps []planner.DirectMap) {

	for idx, col := range colIDs {
		dest[col] = values[idx]
	}
	for _, dm := range directMaps {
		dest[dm.Column] = src[dm.Source.Column]
	}
}

func setTuple(tg *storage.TileGroup, off uint32, row []sql.Value) {
	for col, val := range row {
		tg.SetValue(off, col, val)
	}
}

func performUpdatePrimaryKey(ec *ExecutionContext, isOwner bool, tgh *storage.TileGroupHeader,
	table *storage.DataTable, tid uint32, oldLocation storage.ItemPointer,
	tg *storage.TileGroup, colIDs []int, values []sql.Value,
	directMaps []planner.DirectMap) bool {

	tm := ec.TM
	txn := ec.Txn

	newLocation := table.InsertEmptyVersion()
	if newLocation.IsNull() {
		logFailure(txn, "update primary key", oldLocation, "insert empty version failed")
		if !isOwner {
			tm.YieldOwnership(txn, tgh, tid)
		}
		tm.SetTransactionResult(txn, concurrency.ResultFailure)
		return false
	}
	tm.PerformDelete(txn, oldLocation, newLocation)

	newTuple := make([]sql.Value, table.Schema().ColumnCount())
	doProjection(newTuple, tg.GetTuple(tid), colIDs, values, directMaps)

	location, ind := table.InsertTuple(txn.ID(), newTuple)
	if location.IsNull() {
		logFailure(txn, "update primary key", oldLocation, "insert tuple failed")
		tm.SetTransactionResult(txn, concurrency.ResultFailure)
		return false
	}
	tm.PerformInsert(txn, location, ind)
	return true
}

func targetColumns(targets []planner.Target) []int {
	cols := make([]int, 0, len(targets))
	for _, t := range targets {
		cols = append(cols, t.Column)
	}
	return cols
}

// PerformUpdate updates the tuple at offset tid of tg: columns colIDs get values and the
// direct mapped columns are copied from the current version. The ownership of the tuple is
// released on failure only if it was acquired by this call. It returns false and sets the
// result of the transaction to failure if the tuple can not be updated.
func PerformUpdate(ec *ExecutionContext, table *storage.DataTable, tg *storage.TileGroup,
	tid uint32, colIDs []int, values []sql.Value, updatePrimaryKey bool,
	targets []planner.Target, directMaps []planner.DirectMap) bool {

	tm := ec.TM
	txn := ec.Txn
	tgh := tg.GetHeader()
	oldLocation := storage.ItemPointer{Block: tg.GetTileGroupID(), Offset: tid}

	isOwner := tm.IsOwner(txn, tgh, tid)
	isWritten := tm.IsWritten(txn, tgh, tid)
	if isWritten && !isOwner {
		panic(&InternalError{fmt.Sprintf("%s: %s written but not owned", txn, oldLocation)})
	}

	if isWritten {
		if updatePrimaryKey {
			if !performUpdatePrimaryKey(ec, isOwner, tgh, table, tid, oldLocation, tg, colIDs,
				values, directMaps) {

				return false
			}
			IncreaseNumProcessed(ec)
			return true
		}

		row := append(make([]sql.Value, 0, table.Schema().ColumnCount()),
			tg.GetTuple(tid)...)
		doProjection(row, row, colIDs, values, directMaps)
		setTuple(tg, tid, row)
		tm.PerformUpdateInPlace(txn, oldLocation)
		IncreaseNumProcessed(ec)
		return true
	}

	if !isOwner && !tm.IsOwnable(txn, tgh, tid) {
		logFailure(txn, "update", oldLocation, "not ownable")
		tm.SetTransactionResult(txn, concurrency.ResultFailure)
		return false
	}
	if !isOwner && !tm.AcquireOwnership(txn, tgh, tid) {
		logFailure(txn, "update", oldLocation, "acquire ownership failed")
		tm.SetTransactionResult(txn, concurrency.ResultFailure)
		return false
	}

	if updatePrimaryKey {
		if !performUpdatePrimaryKey(ec, isOwner, tgh, table, tid, oldLocation, tg, colIDs,
			values, directMaps) {

			return false
		}
		IncreaseNumProcessed(ec)
		return true
	}

	newLocation := table.AcquireVersion()
	if newLocation.IsNull() {
		logFailure(txn, "update", oldLocation, "acquire version failed")
		if !isOwner {
			tm.YieldOwnership(txn, tgh, tid)
		}
		tm.SetTransactionResult(txn, concurrency.ResultFailure)
		return false
	}

	newTG := table.Manager().GetTileGroup(newLocation.Block)
	newTuple := make([]sql.Value, table.Schema().ColumnCount())
	doProjection(newTuple, tg.GetTuple(tid), colIDs, values, directMaps)
	setTuple(newTG, newLocation.Offset, newTuple)

	if !table.InstallVersion(newLocation, oldLocation, targetColumns(targets),
		tgh.GetIndirection(tid)) {

		logFailure(txn, "update", oldLocation, "install version failed")
		newTG.GetHeader().SetTransactionID(newLocation.Offset, storage.InvalidTxnID)
		if !isOwner {
			tm.YieldOwnership(txn, tgh, tid)
		}
		tm.SetTransactionResult(txn, concurrency.ResultFailure)
		return false
	}

	tm.PerformUpdate(txn, oldLocation, newLocation)
	IncreaseNumProcessed(ec)
	return true
}

// PerformInsert inserts row into table. It returns false and sets the result of the
// transaction to failure if the row can not be inserted, usually because of a duplicate key.
func PerformInsert(ec *ExecutionContext, table *storage.DataTable, row []sql.Value) bool {
	location, ind := table.InsertTuple(ec.Txn.ID(), row)
	if location.IsNull() {
		logFailure(ec.Txn, "insert", location, "insert tuple failed")
		ec.TM.SetTransactionResult(ec.Txn, concurrency.ResultFailure)
		return false
	}
	ec.TM.PerformInsert(ec.Txn, location, ind)
	return true
}

// txnFailed reports whether a conflict already failed the transaction; no more rows are
// modified once it has.
func txnFailed(ec *ExecutionContext) bool {
	return ec.Txn.Result() == concurrency.ResultFailure
}

func IncreaseNumProcessed(ec *ExecutionContext) {
	ec.NumProcessed += 1
}
