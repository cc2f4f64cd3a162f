package planner

import (
	"fmt"

	"github.com/leftmike/tilejit/expression"
	"github.com/leftmike/tilejit/sql"
)

type AggregateType int

const (
	CountAggregate AggregateType = iota + 1
	CountStarAggregate
	SumAggregate
	MinAggregate
	MaxAggregate
)

func (at AggregateType) String() string {
	switch at {
	case CountAggregate:
		return "COUNT"
	case CountStarAggregate:
		return "COUNT(*)"
	case SumAggregate:
		return "SUM"
	case MinAggregate:
		return "MIN"
	case MaxAggregate:
		return "MAX"
	}
	return fmt.Sprintf("AGGREGATE(%d)", int(at))
}

type AggregateTerm struct {
	Type AggregateType
	Expr expression.Expression
}

func (at AggregateTerm) ResultType() sql.DataType {
	switch at.Type {
	case CountAggregate, CountStarAggregate:
		return sql.BigIntType
	case SumAggregate:
		if at.Expr.ResultType() == sql.DecimalType {
			return sql.DecimalType
		}
		return sql.BigIntType
	}
	return at.Expr.ResultType()
}

// AggregatePlan groups the rows of its child by GroupBy and computes the aggregates for each
// group. Output column i is group key i for i < len(GroupBy), followed by one column for each
// aggregate term.
type AggregatePlan struct {
	planChildren
	GroupBy    []expression.Expression
	Aggregates []AggregateTerm

	outputs []*AttributeInfo
}

func NewAggregatePlan(groupBy []expression.Expression, aggregates []AggregateTerm) *AggregatePlan {
	return &AggregatePlan{
		GroupBy:    groupBy,
		Aggregates: aggregates,
	}
}

func (ap *AggregatePlan) String() string {
	return fmt.Sprintf("Aggregate(%v GROUP BY %v)", ap.Aggregates, ap.GroupBy)
}

func (_ *AggregatePlan) PlanNodeType() PlanNodeType {
	return AggregateNode
}

func (ap *AggregatePlan) PerformBinding(bc *BindingContext) error {
	child, err := ap.child("aggregate", 0)
	if err != nil {
		return err
	}
	childCtx := NewBindingContext()
	err = child.PerformBinding(childCtx)
	if err != nil {
		return err
	}

	inputs := []*BindingContext{childCtx}
	err = bindExprs(inputs, ap.GroupBy)
	if err != nil {
		return err
	}
	for _, at := range ap.Aggregates {
		if at.Type == CountStarAggregate {
			continue
		}
		if at.Expr == nil {
			return fmt.Errorf("planner: aggregate: %s requires an expression", at.Type)
		}
		err = at.Expr.PerformBinding(inputs)
		if err != nil {
			return err
		}
	}

	ap.outputs = nil
	for idx, e := range ap.GroupBy {
		ai := &AttributeInfo{
			Name:        e.String(),
			Type:        e.ResultType(),
			Nullable:    true,
			AttributeID: idx,
		}
		if tv, ok := e.(*expression.TupleValue); ok {
			ai = tv.AttributeRef()
		}
		ap.outputs = append(ap.outputs, ai)
	}
	for _, at := range ap.Aggregates {
		ap.outputs = append(ap.outputs, &AttributeInfo{
			Name:        at.Type.String(),
			Type:        at.ResultType(),
			Nullable:    at.Type != CountAggregate && at.Type != CountStarAggregate,
			AttributeID: len(ap.outputs),
		})
	}
	for colID, ai := range ap.outputs {
		bc.BindNew(colID, ai)
	}
	return nil
}

// OutputAttributes returns the group key attributes followed by the aggregate attributes.
func (ap *AggregatePlan) OutputAttributes() []*AttributeInfo {
	return ap.outputs
}
