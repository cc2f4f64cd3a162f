package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/expression"
	"github.com/leftmike/tilejit/planner"
)

type tableScanTranslator struct {
	plan       *planner.SeqScanPlan
	pipeline   *Pipeline
	vectorSize int
	attributes map[*planner.AttributeInfo]AttributeAccess
	selVecID   StateID
}

func columnAccess(ai *planner.AttributeInfo, col int) AttributeAccess {
	return func(row *Row) Value {
		return valueOf(ai.Type, row.TileGroup().GetValue(row.TID(), col))
	}
}

func newTableScanTranslator(plan *planner.SeqScanPlan, comp *CompilationContext,
	pipeline *Pipeline) (OperatorTranslator, error) {

	ais := plan.Attributes()
	if ais == nil {
		return nil, fmt.Errorf("codegen: %s: plan not bound", plan)
	}

	tst := &tableScanTranslator{
		plan:       plan,
		pipeline:   pipeline,
		vectorSize: comp.VectorSize(),
		attributes: map[*planner.AttributeInfo]AttributeAccess{},
		selVecID:   comp.GetRuntimeState().RegisterState("scanSelVec"),
	}
	for col, ai := range ais {
		tst.attributes[ai] = columnAccess(ai, col)
	}
	pipeline.Add(tst)
	return tst, nil
}

func (tst *tableScanTranslator) Name() string {
	return "TableScan"
}

func (tst *tableScanTranslator) InitializeState(ec *ExecutionContext) error {
	ec.State.Set(tst.selVecID, make([]uint32, tst.vectorSize))
	return nil
}

// Produce scans the tuples which were allocated when the scan started; versions created while
// the scan runs, by the scan's own transaction included, are not seen.
func (tst *tableScanTranslator) Produce(ec *ExecutionContext) error {
	cc := tst.pipeline.ContextFor(tst)
	sel := ec.State.Get(tst.selVecID).([]uint32)
	vs := uint32(len(sel))

	tgs := tst.plan.Table.TileGroups()
	counts := make([]uint32, len(tgs))
	for idx, tg := range tgs {
		counts[idx] = tg.AllocatedTupleCount()
	}

	for idx, tg := range tgs {
		for start := uint32(0); start < counts[idx]; start += vs {
			err := ec.Context().Err()
			if err != nil {
				return err
			}

			end := start + vs
			if end > counts[idx] {
				end = counts[idx]
			}
			n := PerformVectorizedRead(ec.TM, ec.Txn, tg, start, end, sel)
			if n == 0 {
				continue
			}

			batch := NewRowBatch(tg, sel[:n], tst.attributes)
			if tst.plan.Predicate != nil {
				err = batch.Filter(func(row *Row) (bool, error) {
					return expression.EvalPredicate(tst.plan.Predicate, row)
				})
				if err != nil {
					return err
				}
				if batch.NumRows() == 0 {
					continue
				}
			}

			err = cc.ConsumeBatch(ec, batch)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (tst *tableScanTranslator) Consume(ec *ExecutionContext, cc *ConsumerContext,
	batch *RowBatch) error {

	panic(&InternalError{"table scan does not consume rows"})
}

func (tst *tableScanTranslator) ConsumeRow(ec *ExecutionContext, cc *ConsumerContext,
	row *Row) error {

	panic(&InternalError{"table scan does not consume rows"})
}

func (tst *tableScanTranslator) TearDownState(ec *ExecutionContext) {
	ec.State.Set(tst.selVecID, nil)
}
