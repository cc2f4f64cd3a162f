package planner

import (
	"fmt"
)

type ProjectionPlan struct {
	planChildren
	ProjectInfo *ProjectInfo
}

func NewProjectionPlan(pi *ProjectInfo) *ProjectionPlan {
	return &ProjectionPlan{ProjectInfo: pi}
}

func (pp *ProjectionPlan) String() string {
	return fmt.Sprintf("Projection(%s)", pp.ProjectInfo)
}

func (_ *ProjectionPlan) PlanNodeType() PlanNodeType {
	return ProjectionNode
}

func (pp *ProjectionPlan) PerformBinding(bc *BindingContext) error {
	child, err := pp.child("projection", 0)
	if err != nil {
		return err
	}
	childCtx := NewBindingContext()
	err = child.PerformBinding(childCtx)
	if err != nil {
		return err
	}
	return pp.ProjectInfo.PerformRebinding(bc, []*BindingContext{childCtx})
}
