package codegen

import (
	"github.com/leftmike/tilejit/planner"
)

type projectionTranslator struct {
	plan     *planner.ProjectionPlan
	comp     *CompilationContext
	pipeline *Pipeline
	child    planner.AbstractPlan
}

func newProjectionTranslator(plan *planner.ProjectionPlan, comp *CompilationContext,
	pipeline *Pipeline) (OperatorTranslator, error) {

	child, err := childPlan(plan, 0)
	if err != nil {
		return nil, err
	}

	pt := &projectionTranslator{
		plan:     plan,
		comp:     comp,
		pipeline: pipeline,
		child:    child,
	}
	pipeline.Add(pt)
	err = comp.Prepare(child, pipeline)
	if err != nil {
		return nil, err
	}
	return pt, nil
}

func (pt *projectionTranslator) Name() string {
	return "Projection"
}

func (_ *projectionTranslator) InitializeState(ec *ExecutionContext) error {
	return nil
}

func (pt *projectionTranslator) Produce(ec *ExecutionContext) error {
	return pt.comp.Produce(ec, pt.child)
}

func (pt *projectionTranslator) Consume(ec *ExecutionContext, cc *ConsumerContext,
	batch *RowBatch) error {

	return consumeBatchRows(ec, cc, batch, pt)
}

func projectTargets(pi *planner.ProjectInfo, row *Row) error {
	for idx, t := range pi.Targets {
		v, err := row.DeriveValue(t.Expr)
		if err != nil {
			return err
		}
		row.RegisterAttributeValue(pi.TargetAttribute(idx), v)
	}
	return nil
}

// ConsumeRow computes the targets; direct mapped columns keep the attribute of their source.
func (pt *projectionTranslator) ConsumeRow(ec *ExecutionContext, cc *ConsumerContext,
	row *Row) error {

	err := projectTargets(pt.plan.ProjectInfo, row)
	if err != nil {
		return err
	}
	return cc.ConsumeRow(ec, row)
}

func (_ *projectionTranslator) TearDownState(ec *ExecutionContext) {}
