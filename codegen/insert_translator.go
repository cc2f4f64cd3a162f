package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
)

// insertTranslator inserts the constant tuples of the plan or, if the plan has a child, the rows
// of the child.
type insertTranslator struct {
	plan     *planner.InsertPlan
	comp     *CompilationContext
	pipeline *Pipeline
	child    planner.AbstractPlan
}

func newInsertTranslator(plan *planner.InsertPlan, comp *CompilationContext,
	pipeline *Pipeline) (OperatorTranslator, error) {

	it := &insertTranslator{
		plan:     plan,
		comp:     comp,
		pipeline: pipeline,
	}
	pipeline.Add(it)

	if len(plan.Children()) > 0 {
		if plan.ChildAttributes() == nil {
			return nil, fmt.Errorf("codegen: %s: plan not bound", plan)
		}
		it.child = plan.Children()[0]
		err := comp.Prepare(it.child, pipeline)
		if err != nil {
			return nil, err
		}
	}
	return it, nil
}

func (it *insertTranslator) Name() string {
	return "Insert"
}

func (_ *insertTranslator) InitializeState(ec *ExecutionContext) error {
	return nil
}

func (it *insertTranslator) insert(ec *ExecutionContext, row []sql.Value) {
	if PerformInsert(ec, it.plan.Table, row) {
		IncreaseNumProcessed(ec)
	}
}

func (it *insertTranslator) Produce(ec *ExecutionContext) error {
	if it.child != nil {
		return it.comp.Produce(ec, it.child)
	}

	for _, tuple := range it.plan.Tuples {
		err := ec.Context().Err()
		if err != nil {
			return err
		}
		it.insert(ec, append(make([]sql.Value, 0, len(tuple)), tuple...))
	}
	return nil
}

func (it *insertTranslator) Consume(ec *ExecutionContext, cc *ConsumerContext,
	batch *RowBatch) error {

	return consumeBatchRows(ec, cc, batch, it)
}

func (it *insertTranslator) ConsumeRow(ec *ExecutionContext, cc *ConsumerContext,
	row *Row) error {

	ais := it.plan.ChildAttributes()
	tuple := make([]sql.Value, 0, len(ais))
	for _, ai := range ais {
		tuple = append(tuple, row.GetAttribute(ai).SQLValue())
	}
	err := it.plan.Table.Schema().CheckRow(tuple)
	if err != nil {
		return fmt.Errorf("codegen: insert %s: %w", it.plan.Table, err)
	}
	it.insert(ec, tuple)
	return nil
}

func (_ *insertTranslator) TearDownState(ec *ExecutionContext) {}
