package codegen_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/leftmike/tilejit/codegen"
	"github.com/leftmike/tilejit/concurrency"
	"github.com/leftmike/tilejit/expression"
	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
	"github.com/leftmike/tilejit/storage"
	"github.com/leftmike/tilejit/testutil"
)

func fln() testutil.FileLineNumber {
	return testutil.MakeFileLineNumber()
}

// createNumbers creates t (id, v) with rows {i, v(i)} for i in [0, n).
func createNumbers(t *testing.T, db *testDB, n int, tuplesPerTileGroup uint32,
	v func(i int) sql.Value) (*storage.DataTable, [][]sql.Value) {

	t.Helper()

	dt := db.createTable("numbers",
		[]storage.Column{
			{Name: "id", Type: sql.IntegerType},
			{Name: "v", Type: sql.IntegerType},
		},
		[]int{0}, storage.TableOptions{TuplesPerTileGroup: tuplesPerTileGroup})

	var rows [][]sql.Value
	for i := 0; i < n; i++ {
		rows = append(rows, []sql.Value{i64(int64(i)), v(i)})
	}
	db.load(t, dt, rows)
	return dt, rows
}

func where(dt *storage.DataTable, pred expression.Expression) *planner.SeqScanPlan {
	return planner.NewSeqScanPlan(dt, pred, nil)
}

func idEquals(id int64) expression.Expression {
	return expression.NewComparison(expression.EqualOp, col(0, 0), expression.Int64Constant(id))
}

func updatePlan(dt *storage.DataTable, pred expression.Expression,
	targets ...planner.Target) *planner.UpdatePlan {

	var directMaps []planner.DirectMap
	for c := 0; c < dt.Schema().ColumnCount(); c++ {
		var found bool
		for _, t := range targets {
			if t.Column == c {
				found = true
				break
			}
		}
		if !found {
			directMaps = append(directMaps,
				planner.DirectMap{Column: c, Source: planner.DirectMapSource{Tuple: 0, Column: c}})
		}
	}

	up := planner.NewUpdatePlan(dt, planner.NewProjectInfo(targets, directMaps))
	up.AddChild(where(dt, pred))
	return up
}

func addTo(c int, n int64) planner.Target {
	return planner.Target{
		Column: c,
		Expr:   expression.NewOperator(expression.AddOp, col(0, c), expression.Int64Constant(n)),
	}
}

func deletePlan(dt *storage.DataTable, pred expression.Expression) *planner.DeletePlan {
	dp := planner.NewDeletePlan(dt)
	dp.AddChild(where(dt, pred))
	return dp
}

func TestScanPredicate(t *testing.T) {
	db := newTestDB()
	dt, rows := createNumbers(t, db, 30, 4, func(i int) sql.Value { return i64(int64(i % 7)) })
	if dt.TileGroupCount() < 8 {
		t.Fatalf("TileGroupCount() got %d want at least 8", dt.TileGroupCount())
	}

	var want [][]sql.Value
	for _, row := range rows {
		if row[1].(sql.Int64Value) < 3 {
			want = append(want, row)
		}
	}

	for _, vectorized := range []bool{true, false} {
		for _, vectorSize := range []int{0, 1, 3, 100} {
			pred := expression.NewComparison(expression.LessThanOp, col(0, 1),
				expression.Int64Constant(3))

			txn := db.begin()
			got, _ := db.execute(t, txn, where(dt, pred), withFlags(false, vectorized),
				vectorSize)
			db.commit(t, txn, concurrency.ResultSuccess)
			checkRows(t, fmt.Sprintf("SeqScan(vectorized=%v, vector size=%d)", vectorized,
				vectorSize), got, want, []int{0})
		}
	}
}

func TestScanVisibility(t *testing.T) {
	db := newTestDB()
	dt, rows := createNumbers(t, db, 10, 4, func(i int) sql.Value { return i64(int64(i)) })

	txn1 := db.begin()
	db.execute(t, txn1,
		planner.NewInsertPlan(dt, [][]sql.Value{{i64(10), i64(10)}, {i64(11), i64(11)}}), nil,
		0)
	_, stats := db.execute(t, txn1, deletePlan(dt, idEquals(0)), nil, 0)
	if stats.NumProcessed != 1 {
		t.Errorf("Delete(id = 0) got %d processed want 1", stats.NumProcessed)
	}

	txn2 := db.begin()
	got, _ := db.execute(t, txn2, scan(dt), nil, 0)
	checkRows(t, "SeqScan(other transaction)", got, rows, []int{0})

	own := append(append([][]sql.Value{}, rows[1:]...), []sql.Value{i64(10), i64(10)},
		[]sql.Value{i64(11), i64(11)})
	got, _ = db.execute(t, txn1, scan(dt), nil, 0)
	checkRows(t, "SeqScan(own transaction)", got, own, []int{0})

	db.commit(t, txn1, concurrency.ResultSuccess)

	got, _ = db.execute(t, txn2, scan(dt), nil, 0)
	checkRows(t, "SeqScan(snapshot before commit)", got, rows, []int{0})
	db.commit(t, txn2, concurrency.ResultSuccess)

	got = db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after commit)", got, own, []int{0})
}

func TestPerformVectorizedRead(t *testing.T) {
	db := newTestDB()
	dt, _ := createNumbers(t, db, 8, 8, func(i int) sql.Value { return i64(int64(i)) })

	txn := db.begin()
	db.execute(t, txn, deletePlan(dt,
		expression.NewComparison(expression.EqualOp,
			expression.NewOperator(expression.ModuloOp, col(0, 0), expression.Int64Constant(3)),
			expression.Int64Constant(0))), nil, 0)

	tg := dt.GetTileGroup(0)
	cnt := tg.AllocatedTupleCount()
	selection := make([]uint32, cnt)

	n := codegen.PerformVectorizedRead(db.tm, txn, tg, 0, 8, selection)
	want := []uint32{1, 2, 4, 5, 7}
	if !testutil.DeepEqual(selection[:n], want) {
		t.Errorf("PerformVectorizedRead(own) got %v want %v", selection[:n], want)
	}

	other := db.begin()
	n = codegen.PerformVectorizedRead(db.tm, other, tg, 2, 6, selection)
	want = []uint32{2, 3, 4, 5}
	if !testutil.DeepEqual(selection[:n], want) {
		t.Errorf("PerformVectorizedRead(other) got %v want %v", selection[:n], want)
	}

	n = codegen.PerformVectorizedRead(db.tm, other, tg, 5, 5, selection)
	if n != 0 {
		t.Errorf("PerformVectorizedRead(empty range) got %d want 0", n)
	}

	db.commit(t, txn, concurrency.ResultSuccess)
	db.commit(t, other, concurrency.ResultSuccess)
}

func TestAggregate(t *testing.T) {
	db := newTestDB()
	dt := db.createTable("sales",
		[]storage.Column{
			{Name: "id", Type: sql.IntegerType},
			{Name: "region", Type: sql.VarcharType},
			{Name: "amount", Type: sql.IntegerType},
		},
		[]int{0}, storage.TableOptions{TuplesPerTileGroup: 4})

	aggregate := func(groupBy []expression.Expression) *planner.AggregatePlan {
		ap := planner.NewAggregatePlan(groupBy,
			[]planner.AggregateTerm{
				{Type: planner.CountStarAggregate},
				{Type: planner.CountAggregate, Expr: col(0, 2)},
				{Type: planner.SumAggregate, Expr: col(0, 2)},
				{Type: planner.MinAggregate, Expr: col(0, 2)},
				{Type: planner.MaxAggregate, Expr: col(0, 2)},
			})
		ap.AddChild(scan(dt))
		return ap
	}

	got := db.query(t, aggregate(nil), nil)
	checkRows(t, "Aggregate(empty)", got, [][]sql.Value{{i64(0), i64(0), nil, nil, nil}}, nil)

	got = db.query(t, aggregate([]expression.Expression{col(0, 1)}), nil)
	if len(got) != 0 {
		t.Errorf("Aggregate(empty GROUP BY region) got %v want no rows", got)
	}

	db.load(t, dt, [][]sql.Value{
		{i64(1), sql.StringValue("east"), i64(10)},
		{i64(2), sql.StringValue("west"), i64(5)},
		{i64(3), sql.StringValue("east"), nil},
		{i64(4), sql.StringValue("east"), i64(-4)},
		{i64(5), sql.StringValue("north"), nil},
		{i64(6), sql.StringValue("west"), i64(7)},
		{i64(7), nil, i64(1)},
	})

	cases := []struct {
		fln     testutil.FileLineNumber
		groupBy []expression.Expression
		want    [][]sql.Value
	}{
		{
			fln:  fln(),
			want: [][]sql.Value{{i64(7), i64(5), i64(19), i64(-4), i64(10)}},
		},
		{
			fln:     fln(),
			groupBy: []expression.Expression{col(0, 1)},
			want: [][]sql.Value{
				{nil, i64(1), i64(1), i64(1), i64(1), i64(1)},
				{sql.StringValue("east"), i64(3), i64(2), i64(6), i64(-4), i64(10)},
				{sql.StringValue("north"), i64(1), i64(0), nil, nil, nil},
				{sql.StringValue("west"), i64(2), i64(2), i64(12), i64(5), i64(7)},
			},
		},
	}

	for _, c := range cases {
		got := db.query(t, aggregate(c.groupBy), nil)
		if c.groupBy != nil {
			testutil.SortValues([]int{0}, got)
		}
		var trc string
		if !testutil.DeepEqual(got, c.want, &trc) {
			t.Errorf("%sAggregate(GROUP BY %v) got %v want %v\n%s", c.fln, c.groupBy, got,
				c.want, trc)
		}
	}
}

func TestInsert(t *testing.T) {
	db := newTestDB()
	dt, rows := createNumbers(t, db, 5, 2, func(i int) sql.Value { return i64(int64(i * i)) })

	txn := db.begin()
	_, stats := db.execute(t, txn,
		planner.NewInsertPlan(dt, [][]sql.Value{{i64(5), nil}, {i64(2), i64(2)}, {i64(6), nil}}),
		nil, 0)
	if stats.NumProcessed != 2 {
		t.Errorf("Insert(duplicate) got %d processed want 2", stats.NumProcessed)
	}
	if txn.Result() != concurrency.ResultFailure {
		t.Errorf("Insert(duplicate) got result %s want %s", txn.Result(),
			concurrency.ResultFailure)
	}
	db.commit(t, txn, concurrency.ResultAborted)

	got := db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after abort)", got, rows, []int{0})

	dst := db.createTable("dst", dt.Schema().Columns(), []int{0}, storage.TableOptions{})
	ip := planner.NewInsertPlan(dst, nil)
	ip.AddChild(where(dt, expression.NewComparison(expression.GreaterEqualOp, col(0, 1),
		expression.Int64Constant(4))))

	txn = db.begin()
	_, stats = db.execute(t, txn, ip, nil, 0)
	if stats.NumProcessed != 3 {
		t.Errorf("Insert(SELECT) got %d processed want 3", stats.NumProcessed)
	}
	db.commit(t, txn, concurrency.ResultSuccess)

	got = db.query(t, scan(dst), nil)
	checkRows(t, "SeqScan(dst)", got, rows[2:], []int{0})
}

func TestDelete(t *testing.T) {
	db := newTestDB()
	dt, rows := createNumbers(t, db, 10, 4, func(i int) sql.Value { return i64(int64(i)) })

	even := expression.NewComparison(expression.EqualOp,
		expression.NewOperator(expression.ModuloOp, col(0, 0), expression.Int64Constant(2)),
		expression.Int64Constant(0))

	txn := db.begin()
	_, stats := db.execute(t, txn, deletePlan(dt, even), nil, 0)
	if stats.NumProcessed != 5 {
		t.Errorf("Delete(even) got %d processed want 5", stats.NumProcessed)
	}
	_, stats = db.execute(t, txn, deletePlan(dt, even), nil, 0)
	if stats.NumProcessed != 0 {
		t.Errorf("Delete(even) again got %d processed want 0", stats.NumProcessed)
	}
	db.commit(t, txn, concurrency.ResultSuccess)

	var want [][]sql.Value
	for i := 1; i < len(rows); i += 2 {
		want = append(want, rows[i])
	}
	got := db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after delete)", got, want, []int{0})
}

func TestDeleteInserted(t *testing.T) {
	db := newTestDB()
	dt, rows := createNumbers(t, db, 3, 4, func(i int) sql.Value { return i64(int64(i)) })

	txn := db.begin()
	db.execute(t, txn, planner.NewInsertPlan(dt, [][]sql.Value{{i64(3), i64(3)}}), nil, 0)
	_, stats := db.execute(t, txn, deletePlan(dt, idEquals(3)), nil, 0)
	if stats.NumProcessed != 1 {
		t.Errorf("Delete(own insert) got %d processed want 1", stats.NumProcessed)
	}
	got, _ := db.execute(t, txn, scan(dt), nil, 0)
	checkRows(t, "SeqScan(own transaction)", got, rows, []int{0})
	db.commit(t, txn, concurrency.ResultSuccess)

	got = db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after commit)", got, rows, []int{0})
}

func TestDeleteConflict(t *testing.T) {
	db := newTestDB()
	dt, rows := createNumbers(t, db, 4, 4, func(i int) sql.Value { return i64(int64(i)) })

	txn1 := db.begin()
	txn2 := db.begin()
	_, stats := db.execute(t, txn1, deletePlan(dt, idEquals(1)), nil, 0)
	if stats.NumProcessed != 1 {
		t.Errorf("Delete(txn1) got %d processed want 1", stats.NumProcessed)
	}
	// txn2 stops at the conflict on id = 1.
	_, stats = db.execute(t, txn2, deletePlan(dt, nil), nil, 0)
	if stats.NumProcessed != 1 {
		t.Errorf("Delete(txn2) got %d processed want 1", stats.NumProcessed)
	}
	if txn2.Result() != concurrency.ResultFailure {
		t.Errorf("Delete(txn2) got result %s want %s", txn2.Result(), concurrency.ResultFailure)
	}
	db.commit(t, txn2, concurrency.ResultAborted)
	db.commit(t, txn1, concurrency.ResultSuccess)

	got := db.query(t, scan(dt), nil)
	want := [][]sql.Value{rows[0], rows[2], rows[3]}
	checkRows(t, "SeqScan(after conflict)", got, want, []int{0})
}

func TestUpdate(t *testing.T) {
	db := newTestDB()
	dt, _ := createNumbers(t, db, 10, 4, func(i int) sql.Value { return i64(int64(i * 10)) })

	steps := []struct {
		fln       testutil.FileLineNumber
		plan      planner.AbstractPlan
		processed uint64
	}{
		{fln: fln(), plan: updatePlan(dt, nil, addTo(1, 1)), processed: 10},
		{fln: fln(), plan: updatePlan(dt, nil, addTo(1, 1)), processed: 10},
		{fln: fln(), plan: updatePlan(dt, idEquals(4), addTo(1, 100)), processed: 1},
		{fln: fln(), plan: updatePlan(dt, idEquals(40)), processed: 0},
	}

	txn := db.begin()
	for _, s := range steps {
		_, stats := db.execute(t, txn, s.plan, nil, 0)
		if stats.NumProcessed != s.processed {
			t.Errorf("%s%s got %d processed want %d", s.fln, s.plan, stats.NumProcessed,
				s.processed)
		}
	}
	db.commit(t, txn, concurrency.ResultSuccess)

	var want [][]sql.Value
	for i := 0; i < 10; i++ {
		v := int64(i*10 + 2)
		if i == 4 {
			v += 100
		}
		want = append(want, []sql.Value{i64(int64(i)), i64(v)})
	}
	got := db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after update)", got, want, []int{0})
}

func TestUpdatePrimaryKey(t *testing.T) {
	db := newTestDB()
	dt, _ := createNumbers(t, db, 10, 4, func(i int) sql.Value { return i64(int64(i)) })

	up := updatePlan(dt, nil, addTo(0, 100))
	if !up.UpdatePrimaryKey {
		t.Fatalf("%s: UpdatePrimaryKey got false want true", up)
	}

	txn := db.begin()
	_, stats := db.execute(t, txn, up, nil, 0)
	if stats.NumProcessed != 10 {
		t.Errorf("%s got %d processed want 10", up, stats.NumProcessed)
	}
	_, stats = db.execute(t, txn, updatePlan(dt, idEquals(105), addTo(0, 1000)), nil, 0)
	if stats.NumProcessed != 1 {
		t.Errorf("Update(id = 105) got %d processed want 1", stats.NumProcessed)
	}
	db.commit(t, txn, concurrency.ResultSuccess)

	var want [][]sql.Value
	for i := 0; i < 10; i++ {
		id := int64(i + 100)
		if i == 5 {
			id += 1000
		}
		want = append(want, []sql.Value{i64(id), i64(int64(i))})
	}
	got := db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after update)", got, want, []int{1})

	_, ok := dt.LookupPrimaryKey([]sql.Value{i64(5)})
	if ok {
		t.Errorf("LookupPrimaryKey(5) found a deleted key")
	}

	// The first row moves onto a key which is still live.
	txn = db.begin()
	db.execute(t, txn, updatePlan(dt, nil, addTo(0, 1)), nil, 0)
	if txn.Result() != concurrency.ResultFailure {
		t.Errorf("Update(duplicate key) got result %s want %s", txn.Result(),
			concurrency.ResultFailure)
	}
	db.commit(t, txn, concurrency.ResultAborted)

	got = db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after abort)", got, want, []int{1})
}

func TestUpdatePrimaryKeySameKey(t *testing.T) {
	db := newTestDB()
	dt, rows := createNumbers(t, db, 6, 4, func(i int) sql.Value { return i64(int64(i * 10)) })

	up := updatePlan(dt, idEquals(3), addTo(0, 0))
	if !up.UpdatePrimaryKey {
		t.Fatalf("%s: UpdatePrimaryKey got false want true", up)
	}

	txn := db.begin()
	_, stats := db.execute(t, txn, up, nil, 0)
	if stats.NumProcessed != 1 {
		t.Errorf("%s got %d processed want 1", up, stats.NumProcessed)
	}
	if txn.Result() != concurrency.ResultSuccess {
		t.Errorf("%s got result %s want %s", up, txn.Result(), concurrency.ResultSuccess)
	}
	db.commit(t, txn, concurrency.ResultSuccess)

	got := db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after update)", got, rows, []int{0})
	if _, ok := dt.LookupPrimaryKey([]sql.Value{i64(3)}); !ok {
		t.Errorf("LookupPrimaryKey(3) not found")
	}

	// Undoing a primary key update makes the old key findable again.
	for _, n := range []int64{0, 100} {
		txn = db.begin()
		_, stats = db.execute(t, txn, updatePlan(dt, idEquals(2), addTo(0, n)), nil, 0)
		if stats.NumProcessed != 1 {
			t.Errorf("Update(id = 2 + %d) got %d processed want 1", n, stats.NumProcessed)
		}
		db.tm.AbortTransaction(txn)

		if _, ok := dt.LookupPrimaryKey([]sql.Value{i64(2)}); !ok {
			t.Errorf("LookupPrimaryKey(2) not found after abort of id = 2 + %d", n)
		}
		if _, ok := dt.LookupPrimaryKey([]sql.Value{i64(102)}); ok {
			t.Errorf("LookupPrimaryKey(102) found after abort of id = 2 + %d", n)
		}
		got = db.query(t, scan(dt), nil)
		checkRows(t, "SeqScan(after abort)", got, rows, []int{0})
	}

	// Delete then insert of the same key in one transaction.
	txn = db.begin()
	db.execute(t, txn, deletePlan(dt, idEquals(4)), nil, 0)
	_, stats = db.execute(t, txn, planner.NewInsertPlan(dt, [][]sql.Value{{i64(4), i64(44)}}),
		nil, 0)
	if stats.NumProcessed != 1 {
		t.Errorf("Insert(id = 4) got %d processed want 1", stats.NumProcessed)
	}
	db.commit(t, txn, concurrency.ResultSuccess)

	rows[4] = []sql.Value{i64(4), i64(44)}
	got = db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after delete and insert)", got, rows, []int{0})
}

func TestModifyAfterFailure(t *testing.T) {
	db := newTestDB()
	dt, rows := createNumbers(t, db, 10, 4, func(i int) sql.Value { return i64(int64(i)) })

	// The first row moves onto a live key; the last row would move onto a free key.
	txn := db.begin()
	_, stats := db.execute(t, txn, updatePlan(dt, nil, addTo(0, 1)), nil, 0)
	if txn.Result() != concurrency.ResultFailure {
		t.Errorf("Update(id + 1) got result %s want %s", txn.Result(),
			concurrency.ResultFailure)
	}
	if stats.NumProcessed != 0 {
		t.Errorf("Update(id + 1) got %d processed want 0", stats.NumProcessed)
	}
	if _, ok := dt.LookupPrimaryKey([]sql.Value{i64(10)}); ok {
		t.Errorf("LookupPrimaryKey(10) found a key inserted after the failure")
	}
	db.commit(t, txn, concurrency.ResultAborted)

	txn1 := db.begin()
	_, stats = db.execute(t, txn1, deletePlan(dt, idEquals(0)), nil, 0)
	if stats.NumProcessed != 1 {
		t.Errorf("Delete(id = 0) got %d processed want 1", stats.NumProcessed)
	}

	// txn2 fails on the first row and must not take ownership of the rest.
	txn2 := db.begin()
	_, stats = db.execute(t, txn2, deletePlan(dt, nil), nil, 0)
	if txn2.Result() != concurrency.ResultFailure {
		t.Errorf("Delete(all) got result %s want %s", txn2.Result(), concurrency.ResultFailure)
	}
	if stats.NumProcessed != 0 {
		t.Errorf("Delete(all) got %d processed want 0", stats.NumProcessed)
	}

	_, stats = db.execute(t, txn1, deletePlan(dt, idEquals(5)), nil, 0)
	if stats.NumProcessed != 1 || txn1.Result() != concurrency.ResultSuccess {
		t.Errorf("Delete(id = 5) got %d processed and result %s want 1 and %s",
			stats.NumProcessed, txn1.Result(), concurrency.ResultSuccess)
	}
	db.commit(t, txn2, concurrency.ResultAborted)
	db.commit(t, txn1, concurrency.ResultSuccess)

	var want [][]sql.Value
	for _, row := range rows {
		if id := row[0].(sql.Int64Value); id != 0 && id != 5 {
			want = append(want, row)
		}
	}
	got := db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after delete)", got, want, []int{0})
}

func TestUpdateUniqueIndex(t *testing.T) {
	db := newTestDB()
	dt := db.createTable("numbers",
		[]storage.Column{
			{Name: "id", Type: sql.IntegerType},
			{Name: "v", Type: sql.IntegerType},
		},
		[]int{0}, storage.TableOptions{TuplesPerTileGroup: 4})
	err := dt.AddUniqueIndex("numbers_v", []int{1})
	if err != nil {
		t.Fatalf("AddUniqueIndex(numbers_v) failed with %s", err)
	}
	var rows [][]sql.Value
	for i := int64(0); i < 6; i++ {
		rows = append(rows, []sql.Value{i64(i), i64(i)})
	}
	db.load(t, dt, rows)

	txn := db.begin()
	_, stats := db.execute(t, txn, updatePlan(dt, idEquals(1), addTo(1, 4)), nil, 0)
	if stats.NumProcessed != 0 {
		t.Errorf("Update(duplicate v) got %d processed want 0", stats.NumProcessed)
	}
	db.commit(t, txn, concurrency.ResultAborted)

	txn = db.begin()
	_, stats = db.execute(t, txn, updatePlan(dt, idEquals(1), addTo(1, 10)), nil, 0)
	if stats.NumProcessed != 1 {
		t.Errorf("Update(v = 11) got %d processed want 1", stats.NumProcessed)
	}
	db.commit(t, txn, concurrency.ResultSuccess)

	want := append([][]sql.Value{}, rows...)
	want[1] = []sql.Value{i64(1), i64(11)}
	got := db.query(t, scan(dt), nil)
	checkRows(t, "SeqScan(after update)", got, want, []int{0})
}

func TestUpdateConflict(t *testing.T) {
	db := newTestDB()
	dt, _ := createNumbers(t, db, 5, 4, func(i int) sql.Value { return i64(0) })

	txn1 := db.begin()
	txn2 := db.begin()
	_, stats := db.execute(t, txn1, updatePlan(dt, idEquals(3), addTo(1, 1)), nil, 0)
	if stats.NumProcessed != 1 {
		t.Errorf("Update(txn1) got %d processed want 1", stats.NumProcessed)
	}
	// txn2 stops at the conflict on id = 3.
	_, stats = db.execute(t, txn2, updatePlan(dt, nil, addTo(1, 10)), nil, 0)
	if stats.NumProcessed != 3 {
		t.Errorf("Update(txn2) got %d processed want 3", stats.NumProcessed)
	}
	db.commit(t, txn1, concurrency.ResultSuccess)
	db.commit(t, txn2, concurrency.ResultAborted)

	// txn3 reads before txn4 commits an update of the same row.
	txn3 := db.begin()
	txn4 := db.begin()
	db.execute(t, txn4, updatePlan(dt, idEquals(2), addTo(1, 1)), nil, 0)
	db.commit(t, txn4, concurrency.ResultSuccess)
	db.execute(t, txn3, updatePlan(dt, idEquals(2), addTo(1, 1)), nil, 0)
	db.commit(t, txn3, concurrency.ResultAborted)

	got := db.query(t, scan(dt), nil)
	want := [][]sql.Value{
		{i64(0), i64(0)},
		{i64(1), i64(0)},
		{i64(2), i64(1)},
		{i64(3), i64(1)},
		{i64(4), i64(0)},
	}
	checkRows(t, "SeqScan(after conflicts)", got, want, []int{0})
}

func TestConcurrentUpdates(t *testing.T) {
	db := newTestDB()
	dt, _ := createNumbers(t, db, 3, 4, func(i int) sql.Value { return i64(0) })

	const workers = 8
	var queries []*codegen.Query
	for w := 0; w < workers; w++ {
		q, _ := compile(t, updatePlan(dt, idEquals(1), addTo(1, 1)), nil, 0)
		queries = append(queries, q)
	}

	results := make([]concurrency.ResultType, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			txn := db.begin()
			_, err := queries[w].Execute(context.Background(), txn, db.tm, nil)
			if err != nil {
				db.tm.AbortTransaction(txn)
				return err
			}
			results[w], err = db.tm.CommitTransaction(txn)
			return err
		})
	}
	err := g.Wait()
	if err != nil {
		t.Fatalf("Execute(concurrent update) failed with %s", err)
	}

	var committed int64
	for _, r := range results {
		if r == concurrency.ResultSuccess {
			committed += 1
		} else if r != concurrency.ResultAborted {
			t.Errorf("CommitTransaction() got %s", r)
		}
	}
	if committed == 0 {
		t.Errorf("CommitTransaction() no update committed")
	}

	got := db.query(t, scan(dt), nil)
	want := [][]sql.Value{{i64(0), i64(0)}, {i64(1), i64(committed)}, {i64(2), i64(0)}}
	checkRows(t, "SeqScan(after concurrent updates)", got, want, []int{0})
}

func TestModifyUnsupported(t *testing.T) {
	db := newTestDB()
	dt, _ := createNumbers(t, db, 1, 4, func(i int) sql.Value { return i64(0) })
	other, _ := createNumbers(t, db, 1, 4, func(i int) sql.Value { return i64(0) })

	up := updatePlan(dt, nil, addTo(1, 1))
	up.Children()[0].(*planner.SeqScanPlan).Table = other
	dp := deletePlan(dt, nil)
	dp.Children()[0].(*planner.SeqScanPlan).Table = other

	for _, plan := range []planner.AbstractPlan{up, dp} {
		err := plan.PerformBinding(planner.NewBindingContext())
		if err != nil {
			t.Fatalf("PerformBinding(%s) failed with %s", plan, err)
		}
		_, err = codegen.QueryCompiler{}.Compile(plan, codegen.CountingConsumer{})
		if !errors.Is(err, codegen.ErrUnsupportedPlan) {
			t.Errorf("Compile(%s) got %v want %s", plan, err, codegen.ErrUnsupportedPlan)
		}
	}
}
