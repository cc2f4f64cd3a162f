package codegen

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/tilejit/concurrency"
	"github.com/leftmike/tilejit/flags"
	"github.com/leftmike/tilejit/planner"
)

// QueryCompiler lowers bound plans into queries which can be executed any number of times.
type QueryCompiler struct {
	Flags      flags.Flags
	VectorSize int
}

type Query struct {
	plan planner.AbstractPlan
	comp *CompilationContext
}

type ExecutionStats struct {
	QueryID      uuid.UUID
	NumProcessed uint64
	Duration     time.Duration
}

// Compile prepares a translator for each node of plan; plan must already be bound. The rows
// produced by the root of plan are passed to consumer.
func (qc QueryCompiler) Compile(plan planner.AbstractPlan,
	consumer QueryResultConsumer) (*Query, error) {

	flgs := qc.Flags
	if flgs == nil {
		flgs = flags.Default()
	}
	comp := newCompilationContext(flgs, qc.VectorSize, consumer)
	err := comp.Prepare(plan, comp.MainPipeline())
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"plan":     plan,
		"pipeline": comp.MainPipeline(),
		"slots":    comp.GetRuntimeState().NumSlots(),
	}).Debug("codegen: compiled query")
	return &Query{
		plan: plan,
		comp: comp,
	}, nil
}

// Translators returns the names of the translators of the query in the order they were
// prepared, children before parents.
func (q *Query) Translators() []string {
	names := make([]string, 0, len(q.comp.order))
	for _, tr := range q.comp.order {
		names = append(names, tr.Name())
	}
	return names
}

// Execute runs the query in txn with fresh runtime state. Conflicts do not cause an error; they
// set the result of txn to failure. The state of every translator which was initialized is
// torn down, even when the query fails.
func (q *Query) Execute(ctx context.Context, txn *concurrency.Transaction, tm TransactionManager,
	consumerState interface{}) (ExecutionStats, error) {

	start := time.Now()
	ec := NewExecutionContext(ctx, txn, tm)
	ec.State = q.comp.GetRuntimeState().Allocate()
	ec.ConsumerState = consumerState

	var initialized []OperatorTranslator
	defer func() {
		for idx := len(initialized) - 1; idx >= 0; idx -= 1 {
			initialized[idx].TearDownState(ec)
		}
	}()

	for _, tr := range q.comp.order {
		err := tr.InitializeState(ec)
		if err != nil {
			return ExecutionStats{QueryID: ec.QueryID}, err
		}
		initialized = append(initialized, tr)
	}

	err := q.comp.Produce(ec, q.plan)
	stats := ExecutionStats{
		QueryID:      ec.QueryID,
		NumProcessed: ec.NumProcessed,
		Duration:     time.Since(start),
	}

	log.WithFields(log.Fields{
		"query":     ec.QueryID,
		"txn":       txn,
		"processed": stats.NumProcessed,
		"result":    txn.Result(),
		"duration":  stats.Duration,
	}).Debug("codegen: executed query")
	return stats, err
}
