package planner

import (
	"fmt"

	"github.com/leftmike/tilejit/sql"
	"github.com/leftmike/tilejit/storage"
)

// UpdatePlan updates every tuple produced by its child, which must scan Table. ProjectInfo
// describes the new version of the tuple: targets compute the updated columns and direct maps
// copy the rest from the current version.
type UpdatePlan struct {
	planChildren
	Table            *storage.DataTable
	ProjectInfo      *ProjectInfo
	UpdatePrimaryKey bool
}

func NewUpdatePlan(table *storage.DataTable, pi *ProjectInfo) *UpdatePlan {
	var updatePrimaryKey bool
	for _, t := range pi.Targets {
		if table.Schema().IsPrimaryKeyColumn(t.Column) {
			updatePrimaryKey = true
			break
		}
	}

	return &UpdatePlan{
		Table:            table,
		ProjectInfo:      pi,
		UpdatePrimaryKey: updatePrimaryKey,
	}
}

func (up *UpdatePlan) String() string {
	return fmt.Sprintf("Update(%s %s)", up.Table, up.ProjectInfo)
}

func (_ *UpdatePlan) PlanNodeType() PlanNodeType {
	return UpdateNode
}

func (up *UpdatePlan) PerformBinding(bc *BindingContext) error {
	err := up.ProjectInfo.Check(up.Table.Schema().ColumnCount())
	if err != nil {
		return fmt.Errorf("planner: update %s: %w", up.Table, err)
	}

	child, err := up.child("update", 0)
	if err != nil {
		return err
	}
	childCtx := NewBindingContext()
	err = child.PerformBinding(childCtx)
	if err != nil {
		return err
	}
	return up.ProjectInfo.PerformRebinding(NewBindingContext(), []*BindingContext{childCtx})
}

// DeletePlan deletes every tuple produced by its child, which must scan Table.
type DeletePlan struct {
	planChildren
	Table *storage.DataTable
}

func NewDeletePlan(table *storage.DataTable) *DeletePlan {
	return &DeletePlan{Table: table}
}

func (dp *DeletePlan) String() string {
	return fmt.Sprintf("Delete(%s)", dp.Table)
}

func (_ *DeletePlan) PlanNodeType() PlanNodeType {
	return DeleteNode
}

func (dp *DeletePlan) PerformBinding(bc *BindingContext) error {
	child, err := dp.child("delete", 0)
	if err != nil {
		return err
	}
	return child.PerformBinding(NewBindingContext())
}

// InsertPlan inserts either the constant Tuples or, if it has a child, every row produced by
// the child; column id i of the child is inserted into column i of Table.
type InsertPlan struct {
	planChildren
	Table  *storage.DataTable
	Tuples [][]sql.Value

	childAttributes []*AttributeInfo
}

func NewInsertPlan(table *storage.DataTable, tuples [][]sql.Value) *InsertPlan {
	return &InsertPlan{
		Table:  table,
		Tuples: tuples,
	}
}

func (ip *InsertPlan) String() string {
	if len(ip.children) > 0 {
		return fmt.Sprintf("Insert(%s SELECT)", ip.Table)
	}
	return fmt.Sprintf("Insert(%s, %d tuples)", ip.Table, len(ip.Tuples))
}

func (_ *InsertPlan) PlanNodeType() PlanNodeType {
	return InsertNode
}

func (ip *InsertPlan) PerformBinding(bc *BindingContext) error {
	schema := ip.Table.Schema()
	for _, tuple := range ip.Tuples {
		err := schema.CheckRow(tuple)
		if err != nil {
			return fmt.Errorf("planner: insert %s: %w", ip.Table, err)
		}
	}
	if len(ip.children) == 0 {
		return nil
	}

	childCtx := NewBindingContext()
	err := ip.children[0].PerformBinding(childCtx)
	if err != nil {
		return err
	}
	ip.childAttributes = make([]*AttributeInfo, schema.ColumnCount())
	for col := range ip.childAttributes {
		ai := childCtx.Find(col)
		if ai == nil {
			return fmt.Errorf("planner: insert %s: missing column %d", ip.Table, col)
		}
		ip.childAttributes[col] = ai
	}
	return nil
}

// ChildAttributes returns the attribute of the child's output for each column of Table.
func (ip *InsertPlan) ChildAttributes() []*AttributeInfo {
	return ip.childAttributes
}
