package codegen_test

import (
	"context"
	"testing"

	"github.com/leftmike/tilejit/codegen"
	"github.com/leftmike/tilejit/concurrency"
	"github.com/leftmike/tilejit/expression"
	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
	"github.com/leftmike/tilejit/storage"
)

type recordingTM struct {
	*concurrency.TransactionManager
	yields int
}

func (rtm *recordingTM) YieldOwnership(txn *concurrency.Transaction,
	tgh *storage.TileGroupHeader, off uint32) {

	rtm.yields += 1
	rtm.TransactionManager.YieldOwnership(txn, tgh, off)
}

// writtenTM claims every version was written by the transaction without being owned by it.
type writtenTM struct {
	*concurrency.TransactionManager
}

func (_ writtenTM) IsWritten(txn *concurrency.Transaction, tgh *storage.TileGroupHeader,
	off uint32) bool {

	return true
}

func (_ writtenTM) IsOwner(txn *concurrency.Transaction, tgh *storage.TileGroupHeader,
	off uint32) bool {

	return false
}

func uniqueNumbers(t *testing.T, db *testDB) *storage.DataTable {
	t.Helper()

	dt := db.createTable("unique",
		[]storage.Column{
			{Name: "id", Type: sql.IntegerType},
			{Name: "v", Type: sql.IntegerType},
		},
		[]int{0}, storage.TableOptions{})
	err := dt.AddUniqueIndex("unique_v", []int{1})
	if err != nil {
		t.Fatalf("AddUniqueIndex(unique_v) failed with %s", err)
	}
	db.load(t, dt, [][]sql.Value{{i64(0), i64(0)}, {i64(1), i64(1)}})
	return dt
}

func setV(v int64) ([]int, []sql.Value, []planner.Target, []planner.DirectMap) {
	return []int{1}, []sql.Value{i64(v)},
		[]planner.Target{{Column: 1, Expr: expression.Int64Constant(v)}},
		[]planner.DirectMap{{Column: 0, Source: planner.DirectMapSource{Tuple: 0, Column: 0}}}
}

func TestPerformUpdateYieldOwnership(t *testing.T) {
	db := newTestDB()
	dt := uniqueNumbers(t, db)
	tg := dt.GetTileGroup(0)
	tgh := tg.GetHeader()
	colIDs, values, targets, directMaps := setV(1)

	// Ownership acquired by the update is yielded when the new version can not be installed.
	rtm := &recordingTM{TransactionManager: db.tm}
	txn := db.begin()
	ec := codegen.NewExecutionContext(context.Background(), txn, rtm)
	if codegen.PerformUpdate(ec, dt, tg, 0, colIDs, values, false, targets, directMaps) {
		t.Fatal("PerformUpdate(duplicate v) did not fail")
	}
	if rtm.yields != 1 {
		t.Errorf("PerformUpdate(duplicate v) got %d yields want 1", rtm.yields)
	}
	if tgh.GetTransactionID(0) != storage.InitialTxnID {
		t.Errorf("GetTransactionID(0) got %d want %d", tgh.GetTransactionID(0),
			storage.InitialTxnID)
	}
	if txn.Result() != concurrency.ResultFailure {
		t.Errorf("Result() got %s want %s", txn.Result(), concurrency.ResultFailure)
	}
	if ec.NumProcessed != 0 {
		t.Errorf("NumProcessed got %d want 0", ec.NumProcessed)
	}
	db.commit(t, txn, concurrency.ResultAborted)

	// Ownership held before the update is kept.
	rtm = &recordingTM{TransactionManager: db.tm}
	txn = db.begin()
	if !db.tm.AcquireOwnership(txn, tgh, 0) {
		t.Fatal("AcquireOwnership(0) failed")
	}
	ec = codegen.NewExecutionContext(context.Background(), txn, rtm)
	if codegen.PerformUpdate(ec, dt, tg, 0, colIDs, values, false, targets, directMaps) {
		t.Fatal("PerformUpdate(duplicate v) did not fail")
	}
	if rtm.yields != 0 {
		t.Errorf("PerformUpdate(duplicate v) got %d yields want 0", rtm.yields)
	}
	if tgh.GetTransactionID(0) != txn.ID() {
		t.Errorf("GetTransactionID(0) got %d want %d", tgh.GetTransactionID(0), txn.ID())
	}
	rtm.YieldOwnership(txn, tgh, 0)
	db.commit(t, txn, concurrency.ResultAborted)

	txn = db.begin()
	ec = codegen.NewExecutionContext(context.Background(), txn, db.tm)
	colIDs, values, targets, directMaps = setV(7)
	if !codegen.PerformUpdate(ec, dt, tg, 0, colIDs, values, false, targets, directMaps) {
		t.Fatal("PerformUpdate(v = 7) failed")
	}
	if ec.NumProcessed != 1 {
		t.Errorf("NumProcessed got %d want 1", ec.NumProcessed)
	}
	db.commit(t, txn, concurrency.ResultSuccess)

	got := db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(unique)", got, [][]sql.Value{{i64(0), i64(7)}, {i64(1), i64(1)}},
		[]int{0})
}

func TestPerformUpdateWrittenNotOwned(t *testing.T) {
	db := newTestDB()
	dt := uniqueNumbers(t, db)
	colIDs, values, targets, directMaps := setV(5)

	txn := db.begin()
	ec := codegen.NewExecutionContext(context.Background(), txn,
		writtenTM{TransactionManager: db.tm})

	defer func() {
		r := recover()
		if _, ok := r.(*codegen.InternalError); !ok {
			t.Errorf("PerformUpdate(written, not owned) got %v want an internal error", r)
		}
	}()
	codegen.PerformUpdate(ec, dt, dt.GetTileGroup(0), 1, colIDs, values, false, targets,
		directMaps)
}

func TestPerformDeleteConflict(t *testing.T) {
	db := newTestDB()
	dt := uniqueNumbers(t, db)
	tg := dt.GetTileGroup(0)

	txn1 := db.begin()
	txn2 := db.begin()
	ec1 := codegen.NewExecutionContext(context.Background(), txn1, db.tm)
	ec2 := codegen.NewExecutionContext(context.Background(), txn2, db.tm)

	if !codegen.PerformDelete(ec1.TM, txn1, dt, tg, 1) {
		t.Fatal("PerformDelete(txn1) failed")
	}
	if codegen.PerformDelete(ec2.TM, txn2, dt, tg, 1) {
		t.Fatal("PerformDelete(txn2) did not fail")
	}
	if txn2.Result() != concurrency.ResultFailure {
		t.Errorf("Result() got %s want %s", txn2.Result(), concurrency.ResultFailure)
	}
	db.commit(t, txn2, concurrency.ResultAborted)
	db.commit(t, txn1, concurrency.ResultSuccess)

	got := db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(unique)", got, [][]sql.Value{{i64(0), i64(0)}}, nil)
}

func TestUpdater(t *testing.T) {
	db := newTestDB()
	dt := uniqueNumbers(t, db)
	colIDs, values, targets, directMaps := setV(10)

	txn := db.begin()
	ec := codegen.NewExecutionContext(context.Background(), txn, db.tm)

	var u codegen.Updater
	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("Update() before Init() did not panic")
			}
		}()
		u.Update(ec, dt.GetTileGroup(0), 1, colIDs, values)
	}()

	u.Init(dt, targets, directMaps, false)
	if !u.Update(ec, dt.GetTileGroup(0), 1, colIDs, values) {
		t.Fatal("Update(v = 10) failed")
	}
	if ec.NumProcessed != 1 {
		t.Errorf("NumProcessed got %d want 1", ec.NumProcessed)
	}
	db.commit(t, txn, concurrency.ResultSuccess)

	got := db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(unique)", got, [][]sql.Value{{i64(0), i64(0)}, {i64(1), i64(10)}},
		[]int{0})
}
