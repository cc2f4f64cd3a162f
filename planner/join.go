package planner

import (
	"fmt"

	"github.com/leftmike/tilejit/expression"
)

type JoinType int

const (
	InnerJoin JoinType = iota + 1
	LeftJoin
	RightJoin
	OuterJoin
	SemiJoin
)

func (jt JoinType) String() string {
	switch jt {
	case InnerJoin:
		return "Inner"
	case LeftJoin:
		return "Left"
	case RightJoin:
		return "Right"
	case OuterJoin:
		return "Outer"
	case SemiJoin:
		return "Semi"
	}
	return fmt.Sprintf("Join(%d)", int(jt))
}

// HashPlan hashes the output of its child on the hash keys; it is the right child of a
// HashJoinPlan.
type HashPlan struct {
	planChildren
	HashKeys []expression.Expression
}

func NewHashPlan(hashKeys []expression.Expression) *HashPlan {
	return &HashPlan{HashKeys: hashKeys}
}

func (hp *HashPlan) String() string {
	return fmt.Sprintf("Hash(%v)", hp.HashKeys)
}

func (_ *HashPlan) PlanNodeType() PlanNodeType {
	return HashNode
}

func (hp *HashPlan) PerformBinding(bc *BindingContext) error {
	child, err := hp.child("hash", 0)
	if err != nil {
		return err
	}
	err = child.PerformBinding(bc)
	if err != nil {
		return err
	}
	return bindExprs([]*BindingContext{bc}, hp.HashKeys)
}

// HashJoinPlan joins its left child with the child of its right HashPlan child. The hash keys
// and the predicate refer to the left input as tuple 0 and the right input as tuple 1. The
// output is described by ProjectInfo, or is all the left attributes followed by all the right
// attributes if there is no ProjectInfo.
type HashJoinPlan struct {
	planChildren
	JoinType      JoinType
	Predicate     expression.Expression
	ProjectInfo   *ProjectInfo
	LeftHashKeys  []expression.Expression
	RightHashKeys []expression.Expression

	leftAttributes  []*AttributeInfo
	rightAttributes []*AttributeInfo
}

func NewHashJoinPlan(joinType JoinType, predicate expression.Expression, pi *ProjectInfo,
	leftHashKeys, rightHashKeys []expression.Expression) *HashJoinPlan {

	return &HashJoinPlan{
		JoinType:      joinType,
		Predicate:     predicate,
		ProjectInfo:   pi,
		LeftHashKeys:  leftHashKeys,
		RightHashKeys: rightHashKeys,
	}
}

func (hjp *HashJoinPlan) String() string {
	return fmt.Sprintf("HashJoin(%s, %v = %v)", hjp.JoinType, hjp.LeftHashKeys,
		hjp.RightHashKeys)
}

func (_ *HashJoinPlan) PlanNodeType() PlanNodeType {
	return HashJoinNode
}

func (hjp *HashJoinPlan) PerformBinding(bc *BindingContext) error {
	left, err := hjp.child("hash join", 0)
	if err != nil {
		return err
	}
	right, err := hjp.child("hash join", 1)
	if err != nil {
		return err
	}

	leftCtx := NewBindingContext()
	err = left.PerformBinding(leftCtx)
	if err != nil {
		return err
	}
	rightCtx := NewBindingContext()
	err = right.PerformBinding(rightCtx)
	if err != nil {
		return err
	}
	hjp.leftAttributes = leftCtx.Attributes()
	hjp.rightAttributes = rightCtx.Attributes()

	inputs := []*BindingContext{leftCtx, rightCtx}
	err = bindExprs(inputs, hjp.LeftHashKeys)
	if err != nil {
		return err
	}
	err = bindExprs(inputs, hjp.RightHashKeys)
	if err != nil {
		return err
	}
	if hjp.Predicate != nil {
		err = hjp.Predicate.PerformBinding(inputs)
		if err != nil {
			return err
		}
	}

	if hjp.ProjectInfo != nil {
		return hjp.ProjectInfo.PerformRebinding(bc, inputs)
	}
	var colID int
	for _, ai := range hjp.leftAttributes {
		bc.BindNew(colID, ai)
		colID += 1
	}
	for _, ai := range hjp.rightAttributes {
		bc.BindNew(colID, ai)
		colID += 1
	}
	return nil
}

// LeftAttributes returns the attributes produced by the left child, in column id order.
func (hjp *HashJoinPlan) LeftAttributes() []*AttributeInfo {
	return hjp.leftAttributes
}

func (hjp *HashJoinPlan) RightAttributes() []*AttributeInfo {
	return hjp.rightAttributes
}
