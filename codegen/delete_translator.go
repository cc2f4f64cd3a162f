package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/planner"
)

type deleteTranslator struct {
	plan     *planner.DeletePlan
	comp     *CompilationContext
	pipeline *Pipeline
	child    planner.AbstractPlan
}

func newDeleteTranslator(plan *planner.DeletePlan, comp *CompilationContext,
	pipeline *Pipeline) (OperatorTranslator, error) {

	child, err := childPlan(plan, 0)
	if err != nil {
		return nil, err
	}
	if scan, ok := child.(*planner.SeqScanPlan); !ok || scan.Table != plan.Table {
		return nil, unsupportedPlan("delete %s: child %s does not scan the table", plan.Table,
			child)
	}

	dt := &deleteTranslator{
		plan:     plan,
		comp:     comp,
		pipeline: pipeline,
		child:    child,
	}
	pipeline.Add(dt)
	err = comp.Prepare(child, pipeline)
	if err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *deleteTranslator) Name() string {
	return "Delete"
}

func (_ *deleteTranslator) InitializeState(ec *ExecutionContext) error {
	return nil
}

func (dt *deleteTranslator) Produce(ec *ExecutionContext) error {
	return dt.comp.Produce(ec, dt.child)
}

func (dt *deleteTranslator) Consume(ec *ExecutionContext, cc *ConsumerContext,
	batch *RowBatch) error {

	return consumeBatchRows(ec, cc, batch, dt)
}

func (dt *deleteTranslator) ConsumeRow(ec *ExecutionContext, cc *ConsumerContext,
	row *Row) error {

	if txnFailed(ec) {
		return nil
	}
	tg := row.TileGroup()
	if tg == nil {
		panic(&InternalError{fmt.Sprintf("delete %s: row not in a tile group", dt.plan.Table)})
	}
	if PerformDelete(ec.TM, ec.Txn, dt.plan.Table, tg, row.TID()) {
		IncreaseNumProcessed(ec)
	}
	return nil
}

func (_ *deleteTranslator) TearDownState(ec *ExecutionContext) {}
