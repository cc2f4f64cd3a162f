package planner

import (
	"fmt"

	"github.com/leftmike/tilejit/expression"
)

type AttributeInfo = expression.AttributeInfo
type BindingContext = expression.BindingContext

var NewBindingContext = expression.NewBindingContext

type PlanNodeType int

const (
	SeqScanNode PlanNodeType = iota + 1
	HashNode
	HashJoinNode
	ProjectionNode
	UpdateNode
	DeleteNode
	InsertNode
	AggregateNode
)

func (pnt PlanNodeType) String() string {
	switch pnt {
	case SeqScanNode:
		return "SeqScan"
	case HashNode:
		return "Hash"
	case HashJoinNode:
		return "HashJoin"
	case ProjectionNode:
		return "Projection"
	case UpdateNode:
		return "Update"
	case DeleteNode:
		return "Delete"
	case InsertNode:
		return "Insert"
	case AggregateNode:
		return "Aggregate"
	}
	return fmt.Sprintf("PlanNode(%d)", int(pnt))
}

// AbstractPlan is a node of a physical plan tree. PerformBinding binds the plan and all of its
// children, and then binds the output columns of the plan into the binding context.
type AbstractPlan interface {
	fmt.Stringer
	PlanNodeType() PlanNodeType
	Children() []AbstractPlan
	PerformBinding(bc *BindingContext) error
}

type planChildren struct {
	children []AbstractPlan
}

func (pc *planChildren) AddChild(child AbstractPlan) {
	pc.children = append(pc.children, child)
}

func (pc *planChildren) Children() []AbstractPlan {
	return pc.children
}

func (pc *planChildren) child(name string, idx int) (AbstractPlan, error) {
	if idx >= len(pc.children) {
		return nil, fmt.Errorf("planner: %s: missing child %d", name, idx)
	}
	return pc.children[idx], nil
}

func bindExprs(ctxs []*BindingContext, exprs []expression.Expression) error {
	for _, e := range exprs {
		err := e.PerformBinding(ctxs)
		if err != nil {
			return err
		}
	}
	return nil
}
