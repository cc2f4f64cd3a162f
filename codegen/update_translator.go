package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
)

type updateTranslator struct {
	plan     *planner.UpdatePlan
	comp     *CompilationContext
	pipeline *Pipeline
	child    planner.AbstractPlan
	colIDs   []int

	updaterID StateID
	valuesID  StateID
}

func newUpdateTranslator(plan *planner.UpdatePlan, comp *CompilationContext,
	pipeline *Pipeline) (OperatorTranslator, error) {

	child, err := childPlan(plan, 0)
	if err != nil {
		return nil, err
	}
	if scan, ok := child.(*planner.SeqScanPlan); !ok || scan.Table != plan.Table {
		return nil, unsupportedPlan("update %s: child %s does not scan the table", plan.Table,
			child)
	}

	rs := comp.GetRuntimeState()
	ut := &updateTranslator{
		plan:      plan,
		comp:      comp,
		pipeline:  pipeline,
		child:     child,
		colIDs:    targetColumns(plan.ProjectInfo.Targets),
		updaterID: rs.RegisterState("updater"),
		valuesID:  rs.RegisterState("updateValues"),
	}
	pipeline.Add(ut)
	err = comp.Prepare(child, pipeline)
	if err != nil {
		return nil, err
	}
	return ut, nil
}

func (ut *updateTranslator) Name() string {
	return "Update"
}

func (ut *updateTranslator) InitializeState(ec *ExecutionContext) error {
	var u Updater
	u.Init(ut.plan.Table, ut.plan.ProjectInfo.Targets, ut.plan.ProjectInfo.DirectMaps,
		ut.plan.UpdatePrimaryKey)
	ec.State.Set(ut.updaterID, &u)
	ec.State.Set(ut.valuesID, make([]sql.Value, len(ut.colIDs)))
	return nil
}

func (ut *updateTranslator) Produce(ec *ExecutionContext) error {
	return ut.comp.Produce(ec, ut.child)
}

func (ut *updateTranslator) Consume(ec *ExecutionContext, cc *ConsumerContext,
	batch *RowBatch) error {

	return consumeBatchRows(ec, cc, batch, ut)
}

// ConsumeRow computes the new values of the updated columns and updates the tuple. A conflict
// sets the result of the transaction to failure and is not returned as an error; the rows after
// it are skipped.
func (ut *updateTranslator) ConsumeRow(ec *ExecutionContext, cc *ConsumerContext,
	row *Row) error {

	if txnFailed(ec) {
		return nil
	}
	tg := row.TileGroup()
	if tg == nil {
		panic(&InternalError{fmt.Sprintf("update %s: row not in a tile group", ut.plan.Table)})
	}

	schema := ut.plan.Table.Schema()
	values := ec.State.Get(ut.valuesID).([]sql.Value)
	for idx, t := range ut.plan.ProjectInfo.Targets {
		v, err := row.DeriveValue(t.Expr)
		if err != nil {
			return err
		}
		values[idx] = v.SQLValue()
		err = schema.ColumnType(t.Column).CheckValue(values[idx])
		if err != nil {
			return fmt.Errorf("codegen: update %s: column %s: %w", ut.plan.Table,
				schema.Columns()[t.Column].Name, err)
		}
	}

	ec.State.Get(ut.updaterID).(*Updater).Update(ec, tg, row.TID(), ut.colIDs, values)
	return nil
}

func (ut *updateTranslator) TearDownState(ec *ExecutionContext) {
	ec.State.Set(ut.updaterID, nil)
	ec.State.Set(ut.valuesID, nil)
}
