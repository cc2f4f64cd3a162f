package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
)

// QueryResultConsumer receives the rows at the end of the main pipeline of a query. State kept
// across one execution belongs in ec.ConsumerState, which is passed to Query.Execute.
type QueryResultConsumer interface {
	ConsumeResult(ec *ExecutionContext, row *Row) error
}

// BufferingConsumer collects the values of a list of attributes for every result row. Its
// consumer state must be a *BufferedRows.
type BufferingConsumer struct {
	ais []*planner.AttributeInfo
}

type BufferedRows struct {
	rows [][]sql.Value
}

func NewBufferingConsumer(ais []*planner.AttributeInfo) *BufferingConsumer {
	return &BufferingConsumer{
		ais: ais,
	}
}

func (_ *BufferingConsumer) GetState() *BufferedRows {
	return &BufferedRows{}
}

func (bc *BufferingConsumer) ConsumeResult(ec *ExecutionContext, row *Row) error {
	br, ok := ec.ConsumerState.(*BufferedRows)
	if !ok {
		panic(&InternalError{fmt.Sprintf("buffering consumer: unexpected state: %T",
			ec.ConsumerState)})
	}

	vals := make([]sql.Value, 0, len(bc.ais))
	for _, ai := range bc.ais {
		vals = append(vals, row.GetAttribute(ai).SQLValue())
	}
	br.rows = append(br.rows, vals)
	return nil
}

// GetOutputTuples returns the rows collected so far, in the order they were produced.
func (br *BufferedRows) GetOutputTuples() [][]sql.Value {
	return br.rows
}

// CountingConsumer counts the result rows into its consumer state, which must be a *uint64.
type CountingConsumer struct{}

func (_ CountingConsumer) ConsumeResult(ec *ExecutionContext, row *Row) error {
	cnt, ok := ec.ConsumerState.(*uint64)
	if !ok {
		panic(&InternalError{fmt.Sprintf("counting consumer: unexpected state: %T",
			ec.ConsumerState)})
	}
	*cnt += 1
	return nil
}
