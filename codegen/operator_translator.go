package codegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/leftmike/tilejit/concurrency"
	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/storage"
)

var (
	ErrUnsupportedPlan = errors.New("unsupported plan")
)

// InternalError is raised with panic when the execution of a query finds its own state
// inconsistent.
type InternalError struct {
	Msg string
}

func (ie *InternalError) Error() string {
	return "codegen: internal error: " + ie.Msg
}

// TransactionManager is the part of the transaction manager used by compiled queries.
type TransactionManager interface {
	IsVisible(txn *concurrency.Transaction, tgh *storage.TileGroupHeader,
		off uint32) concurrency.VisibilityType
	IsOwner(txn *concurrency.Transaction, tgh *storage.TileGroupHeader, off uint32) bool
	IsWritten(txn *concurrency.Transaction, tgh *storage.TileGroupHeader, off uint32) bool
	IsOwnable(txn *concurrency.Transaction, tgh *storage.TileGroupHeader, off uint32) bool
	AcquireOwnership(txn *concurrency.Transaction, tgh *storage.TileGroupHeader,
		off uint32) bool
	YieldOwnership(txn *concurrency.Transaction, tgh *storage.TileGroupHeader, off uint32)
	PerformRead(txn *concurrency.Transaction, location storage.ItemPointer) bool
	PerformInsert(txn *concurrency.Transaction, location storage.ItemPointer,
		ind *storage.Indirection)
	PerformUpdate(txn *concurrency.Transaction, old, new storage.ItemPointer)
	PerformUpdateInPlace(txn *concurrency.Transaction, location storage.ItemPointer)
	PerformDelete(txn *concurrency.Transaction, old, new storage.ItemPointer)
	PerformDeleteInPlace(txn *concurrency.Transaction, location storage.ItemPointer)
	SetTransactionResult(txn *concurrency.Transaction, result concurrency.ResultType)
}

// ExecutionContext is everything one execution of a compiled query uses: the transaction it
// runs in, the state of its translators, and the state of its result consumer.
type ExecutionContext struct {
	ctx           context.Context
	QueryID       uuid.UUID
	Txn           *concurrency.Transaction
	TM            TransactionManager
	State         *StateBlock
	ConsumerState interface{}
	Pool          *VarlenPool
	NumProcessed  uint64
}

func NewExecutionContext(ctx context.Context, txn *concurrency.Transaction,
	tm TransactionManager) *ExecutionContext {

	return &ExecutionContext{
		ctx:     ctx,
		QueryID: uuid.New(),
		Txn:     txn,
		TM:      tm,
		Pool:    NewVarlenPool(),
	}
}

func (ec *ExecutionContext) Context() context.Context {
	return ec.ctx
}

// OperatorTranslator turns one plan node into the code that executes it. A translator is
// constructed when the query is compiled; each execution of the query calls InitializeState,
// then Produce, during which rows are passed to Consume or ConsumeRow, and finally
// TearDownState.
type OperatorTranslator interface {
	Name() string
	InitializeState(ec *ExecutionContext) error
	Produce(ec *ExecutionContext) error
	Consume(ec *ExecutionContext, cc *ConsumerContext, batch *RowBatch) error
	ConsumeRow(ec *ExecutionContext, cc *ConsumerContext, row *Row) error
	TearDownState(ec *ExecutionContext)
}

type rowConsumer interface {
	ConsumeRow(ec *ExecutionContext, cc *ConsumerContext, row *Row) error
}

// consumeBatchRows is the default handling of a batch: every row is consumed on its own.
func consumeBatchRows(ec *ExecutionContext, cc *ConsumerContext, batch *RowBatch,
	rc rowConsumer) error {

	return batch.Iterate(func(row *Row) error {
		return rc.ConsumeRow(ec, cc, row)
	})
}

func childPlan(plan planner.AbstractPlan, idx int) (planner.AbstractPlan, error) {
	children := plan.Children()
	if idx >= len(children) {
		return nil, fmt.Errorf("codegen: %s: missing child %d", plan, idx)
	}
	return children[idx], nil
}

func unsupportedPlan(format string, args ...interface{}) error {
	return fmt.Errorf("codegen: %s: %w", fmt.Sprintf(format, args...), ErrUnsupportedPlan)
}
