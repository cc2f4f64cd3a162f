package codegen

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/tilejit/flags"
	"github.com/leftmike/tilejit/planner"
)

// CompilationContext holds what is shared by the translators of one query while it is
// compiled: the engine flags, the runtime state, and the translator prepared for each plan
// node.
type CompilationContext struct {
	flags        flags.Flags
	vectorSize   int
	runtimeState *RuntimeState
	translators  map[planner.AbstractPlan]OperatorTranslator
	order        []OperatorTranslator
	mainPipeline *Pipeline
}

func newCompilationContext(flgs flags.Flags, vectorSize int,
	consumer QueryResultConsumer) *CompilationContext {

	if vectorSize <= 0 {
		vectorSize = flags.DefaultVectorSize
	}
	return &CompilationContext{
		flags:        flgs,
		vectorSize:   vectorSize,
		runtimeState: &RuntimeState{},
		translators:  map[planner.AbstractPlan]OperatorTranslator{},
		mainPipeline: newPipeline(consumer),
	}
}

func (comp *CompilationContext) Flags() flags.Flags {
	return comp.flags
}

func (comp *CompilationContext) GetRuntimeState() *RuntimeState {
	return comp.runtimeState
}

func (comp *CompilationContext) MainPipeline() *Pipeline {
	return comp.mainPipeline
}

// VectorSize is the number of tuples a table scan passes on in one batch.
func (comp *CompilationContext) VectorSize() int {
	if !comp.flags.GetFlag(flags.VectorizedScan) {
		return 1
	}
	return comp.vectorSize
}

// Prepare constructs the translator for plan in pipeline; the translator prepares its
// children.
func (comp *CompilationContext) Prepare(plan planner.AbstractPlan, pipeline *Pipeline) error {
	if _, ok := comp.translators[plan]; ok {
		return fmt.Errorf("codegen: plan %s prepared more than once", plan)
	}

	var tr OperatorTranslator
	var err error
	switch plan := plan.(type) {
	case *planner.SeqScanPlan:
		tr, err = newTableScanTranslator(plan, comp, pipeline)
	case *planner.ProjectionPlan:
		tr, err = newProjectionTranslator(plan, comp, pipeline)
	case *planner.HashJoinPlan:
		tr, err = newHashJoinTranslator(plan, comp, pipeline)
	case *planner.UpdatePlan:
		tr, err = newUpdateTranslator(plan, comp, pipeline)
	case *planner.DeletePlan:
		tr, err = newDeleteTranslator(plan, comp, pipeline)
	case *planner.InsertPlan:
		tr, err = newInsertTranslator(plan, comp, pipeline)
	case *planner.AggregatePlan:
		tr, err = newHashGroupByTranslator(plan, comp, pipeline)
	default:
		return unsupportedPlan("%s: no translator for %s plans", plan, plan.PlanNodeType())
	}
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"plan":       plan.PlanNodeType(),
		"translator": tr.Name(),
		"stage":      pipeline.GetTranslatorStage(tr),
	}).Debug("codegen: prepared translator")

	comp.translators[plan] = tr
	comp.order = append(comp.order, tr)
	return nil
}

// Produce starts the translator prepared for plan producing rows.
func (comp *CompilationContext) Produce(ec *ExecutionContext, plan planner.AbstractPlan) error {
	tr, ok := comp.translators[plan]
	if !ok {
		panic(&InternalError{fmt.Sprintf("no translator prepared for plan %s", plan)})
	}
	return tr.Produce(ec)
}

// GetTranslator returns the translator prepared for plan.
func (comp *CompilationContext) GetTranslator(plan planner.AbstractPlan) OperatorTranslator {
	return comp.translators[plan]
}
