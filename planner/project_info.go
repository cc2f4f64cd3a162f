package planner

import (
	"fmt"

	"github.com/leftmike/tilejit/expression"
)

// Target computes destination column Column with an expression.
type Target struct {
	Column int
	Expr   expression.Expression
}

type DirectMapSource struct {
	Tuple  int
	Column int
}

// DirectMap copies column Source.Column of input tuple Source.Tuple to destination column Column.
type DirectMap struct {
	Column int
	Source DirectMapSource
}

type ProjectInfo struct {
	Targets    []Target
	DirectMaps []DirectMap

	targetAIs []*AttributeInfo
}

func NewProjectInfo(targets []Target, directMaps []DirectMap) *ProjectInfo {
	return &ProjectInfo{
		Targets:    targets,
		DirectMaps: directMaps,
	}
}

func (pi *ProjectInfo) String() string {
	s := "["
	for idx, t := range pi.Targets {
		if idx > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d = %s", t.Column, t.Expr)
	}
	for idx, dm := range pi.DirectMaps {
		if idx > 0 || len(pi.Targets) > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d = $%d.%d", dm.Column, dm.Source.Tuple, dm.Source.Column)
	}
	return s + "]"
}

// IsNonTrivial reports whether any destination column is computed.
func (pi *ProjectInfo) IsNonTrivial() bool {
	return len(pi.Targets) > 0
}

// Check returns an error unless the destination columns of the targets and the direct maps are
// disjoint and together cover exactly columns 0 through numColumns - 1.
func (pi *ProjectInfo) Check(numColumns int) error {
	seen := make([]bool, numColumns)
	mark := func(col int) error {
		if col < 0 || col >= numColumns {
			return fmt.Errorf("planner: project info: column %d out of range", col)
		}
		if seen[col] {
			return fmt.Errorf("planner: project info: column %d projected more than once", col)
		}
		seen[col] = true
		return nil
	}

	for _, t := range pi.Targets {
		err := mark(t.Column)
		if err != nil {
			return err
		}
	}
	for _, dm := range pi.DirectMaps {
		err := mark(dm.Column)
		if err != nil {
			return err
		}
	}
	for col, ok := range seen {
		if !ok {
			return fmt.Errorf("planner: project info: column %d not projected", col)
		}
	}
	return nil
}

// PerformRebinding binds the targets against the inputs and then binds every destination column
// into bc: a direct map passes the input attribute through, a target gets a new attribute.
func (pi *ProjectInfo) PerformRebinding(bc *BindingContext, inputs []*BindingContext) error {
	pi.targetAIs = make([]*AttributeInfo, len(pi.Targets))
	for idx, t := range pi.Targets {
		err := t.Expr.PerformBinding(inputs)
		if err != nil {
			return err
		}
		pi.targetAIs[idx] = &AttributeInfo{
			Name:        fmt.Sprintf("attr%d", t.Column),
			Type:        t.Expr.ResultType(),
			Nullable:    true,
			AttributeID: t.Column,
		}
		bc.BindNew(t.Column, pi.targetAIs[idx])
	}

	for _, dm := range pi.DirectMaps {
		if dm.Source.Tuple < 0 || dm.Source.Tuple >= len(inputs) {
			return fmt.Errorf("planner: project info: no input tuple %d", dm.Source.Tuple)
		}
		ai := inputs[dm.Source.Tuple].Find(dm.Source.Column)
		if ai == nil {
			return fmt.Errorf("planner: project info: column %d of tuple %d not found",
				dm.Source.Column, dm.Source.Tuple)
		}
		bc.BindNew(dm.Column, ai)
	}
	return nil
}

// TargetAttribute returns the attribute bound to target idx by PerformRebinding.
func (pi *ProjectInfo) TargetAttribute(idx int) *AttributeInfo {
	return pi.targetAIs[idx]
}
