package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/tilejit/codegen"
	"github.com/leftmike/tilejit/concurrency"
	"github.com/leftmike/tilejit/expression"
	"github.com/leftmike/tilejit/flags"
	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
	"github.com/leftmike/tilejit/storage"
)

type workload struct {
	mgr        *storage.Manager
	tm         *concurrency.TransactionManager
	flgs       flags.Flags
	vectorSize int
	left       *storage.DataTable
	right      *storage.DataTable
}

// newWorkload creates left (k, a, s) with rows {i, i * 10, 's<i>'} and right (id, k, b) with
// 4 * rows rows {id, id % rows, id * 100}.
func newWorkload(rows int, flgs flags.Flags, vectorSize int) (*workload, error) {
	if rows <= 0 {
		return nil, fmt.Errorf("tilejit: rows must be positive: %d", rows)
	}

	mgr := storage.NewManager()
	wl := &workload{
		mgr:        mgr,
		tm:         concurrency.NewTransactionManager(mgr),
		flgs:       flgs,
		vectorSize: vectorSize,
	}
	wl.left = storage.NewDataTable(mgr, 1, "left",
		storage.NewSchema(
			[]storage.Column{
				{Name: "k", Type: sql.IntegerType},
				{Name: "a", Type: sql.IntegerType},
				{Name: "s", Type: sql.VarcharType},
			},
			[]int{0}),
		storage.TableOptions{})
	wl.right = storage.NewDataTable(mgr, 2, "right",
		storage.NewSchema(
			[]storage.Column{
				{Name: "id", Type: sql.IntegerType},
				{Name: "k", Type: sql.IntegerType},
				{Name: "b", Type: sql.IntegerType},
			},
			[]int{0}),
		storage.TableOptions{})

	var lrows, rrows [][]sql.Value
	for i := 0; i < rows; i++ {
		lrows = append(lrows, []sql.Value{sql.Int64Value(i), sql.Int64Value(i * 10),
			sql.StringValue(fmt.Sprintf("s%d", i))})
	}
	for id := 0; id < rows*4; id++ {
		rrows = append(rrows, []sql.Value{sql.Int64Value(id), sql.Int64Value(id % rows),
			sql.Int64Value(id * 100)})
	}

	for _, ip := range []*planner.InsertPlan{
		planner.NewInsertPlan(wl.left, lrows),
		planner.NewInsertPlan(wl.right, rrows),
	} {
		_, stats, err := wl.execute(ip)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"table": ip.Table,
			"rows":  stats.NumProcessed,
		}).Info("tilejit: loaded table")
	}
	return wl, nil
}

// execute compiles and executes plan in a transaction of its own.
func (wl *workload) execute(plan planner.AbstractPlan) ([][]sql.Value, codegen.ExecutionStats,
	error) {

	bc := planner.NewBindingContext()
	err := plan.PerformBinding(bc)
	if err != nil {
		return nil, codegen.ExecutionStats{}, err
	}
	consumer := codegen.NewBufferingConsumer(bc.Attributes())
	q, err := codegen.QueryCompiler{Flags: wl.flgs, VectorSize: wl.vectorSize}.Compile(plan,
		consumer)
	if err != nil {
		return nil, codegen.ExecutionStats{}, err
	}

	txn := wl.tm.BeginTransaction(concurrency.Snapshot)
	state := consumer.GetState()
	stats, err := q.Execute(context.Background(), txn, wl.tm, state)
	if err != nil {
		wl.tm.AbortTransaction(txn)
		return nil, stats, err
	}
	result, err := wl.tm.CommitTransaction(txn)
	if err != nil {
		return nil, stats, err
	}
	if result != concurrency.ResultSuccess {
		return nil, stats, fmt.Errorf("tilejit: %s: transaction %s", plan, result)
	}

	log.WithFields(log.Fields{
		"query":       stats.QueryID,
		"plan":        plan,
		"translators": q.Translators(),
		"processed":   stats.NumProcessed,
		"duration":    stats.Duration,
	}).Info("tilejit: executed query")
	return state.GetOutputTuples(), stats, nil
}

func tupleValue(tupleIdx, columnIdx int) *expression.TupleValue {
	return expression.NewTupleValue(tupleIdx, columnIdx)
}

func directMap(col, tupleIdx, columnIdx int) planner.DirectMap {
	return planner.DirectMap{
		Column: col,
		Source: planner.DirectMapSource{Tuple: tupleIdx, Column: columnIdx},
	}
}

// join is SELECT left.k, left.s, right.id, right.b FROM left JOIN right ON left.k = right.k.
func (wl *workload) join(w io.Writer) error {
	hp := planner.NewHashPlan([]expression.Expression{tupleValue(0, 1)})
	hp.AddChild(planner.NewSeqScanPlan(wl.right, nil, nil))
	hjp := planner.NewHashJoinPlan(planner.InnerJoin, nil,
		planner.NewProjectInfo(nil,
			[]planner.DirectMap{
				directMap(0, 0, 0),
				directMap(1, 0, 2),
				directMap(2, 1, 0),
				directMap(3, 1, 2),
			}),
		[]expression.Expression{tupleValue(0, 0)}, []expression.Expression{tupleValue(1, 1)})
	hjp.AddChild(planner.NewSeqScanPlan(wl.left, nil, nil))
	hjp.AddChild(hp)

	rows, _, err := wl.execute(hjp)
	if err != nil {
		return err
	}
	render(w, []string{"k", "s", "id", "b"}, rows)
	return nil
}

// update is UPDATE left SET a = a + 1 followed by SELECT * FROM left.
func (wl *workload) update(w io.Writer) error {
	up := planner.NewUpdatePlan(wl.left,
		planner.NewProjectInfo(
			[]planner.Target{
				{
					Column: 1,
					Expr: expression.NewOperator(expression.AddOp, tupleValue(0, 1),
						expression.Int64Constant(1)),
				},
			},
			[]planner.DirectMap{directMap(0, 0, 0), directMap(2, 0, 2)}))
	up.AddChild(planner.NewSeqScanPlan(wl.left, nil, nil))

	_, stats, err := wl.execute(up)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d rows updated\n", stats.NumProcessed)

	rows, _, err := wl.execute(planner.NewSeqScanPlan(wl.left, nil, nil))
	if err != nil {
		return err
	}
	render(w, []string{"k", "a", "s"}, rows)
	return nil
}

// aggregate is SELECT k, COUNT(*), SUM(b), MIN(b), MAX(b) FROM right GROUP BY k.
func (wl *workload) aggregate(w io.Writer) error {
	ap := planner.NewAggregatePlan([]expression.Expression{tupleValue(0, 1)},
		[]planner.AggregateTerm{
			{Type: planner.CountStarAggregate},
			{Type: planner.SumAggregate, Expr: tupleValue(0, 2)},
			{Type: planner.MinAggregate, Expr: tupleValue(0, 2)},
			{Type: planner.MaxAggregate, Expr: tupleValue(0, 2)},
		})
	ap.AddChild(planner.NewSeqScanPlan(wl.right, nil, nil))

	rows, _, err := wl.execute(ap)
	if err != nil {
		return err
	}
	render(w, []string{"k", "count", "sum", "min", "max"}, rows)
	return nil
}

func render(w io.Writer, cols []string, rows [][]sql.Value) {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader(cols)

	for _, dest := range rows {
		row := make([]string, len(dest))
		for cdx, v := range dest {
			if s, ok := v.(sql.StringValue); ok {
				row[cdx] = string(s)
			} else {
				row[cdx] = sql.Format(v)
			}
		}
		tw.Append(row)
	}
	tw.Render()
	fmt.Fprintf(w, "(%d rows)\n", tw.NumLines())
}

func runWorkload(w io.Writer, name string, rows int, flgs flags.Flags, vectorSize int) error {
	var run func(wl *workload, w io.Writer) error
	switch name {
	case "join":
		run = (*workload).join
	case "update":
		run = (*workload).update
	case "aggregate":
		run = (*workload).aggregate
	default:
		return fmt.Errorf("tilejit: unknown workload: %s", name)
	}

	wl, err := newWorkload(rows, flgs, vectorSize)
	if err != nil {
		return err
	}
	return run(wl, w)
}
