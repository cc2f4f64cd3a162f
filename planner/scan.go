package planner

import (
	"fmt"

	"github.com/leftmike/tilejit/expression"
	"github.com/leftmike/tilejit/storage"
)

// SeqScanPlan scans every visible tuple of a table, optionally filtered by a predicate over the
// table's columns. Every column of the table is bound by its column id; ColumnIDs are the columns
// the scan outputs.
type SeqScanPlan struct {
	Table     *storage.DataTable
	Predicate expression.Expression
	ColumnIDs []int

	attributes []*AttributeInfo
}

func NewSeqScanPlan(table *storage.DataTable, predicate expression.Expression,
	columnIDs []int) *SeqScanPlan {

	if columnIDs == nil {
		for col := 0; col < table.Schema().ColumnCount(); col += 1 {
			columnIDs = append(columnIDs, col)
		}
	}
	return &SeqScanPlan{
		Table:     table,
		Predicate: predicate,
		ColumnIDs: columnIDs,
	}
}

func (ssp *SeqScanPlan) String() string {
	if ssp.Predicate != nil {
		return fmt.Sprintf("SeqScan(%s WHERE %s)", ssp.Table, ssp.Predicate)
	}
	return fmt.Sprintf("SeqScan(%s)", ssp.Table)
}

func (_ *SeqScanPlan) PlanNodeType() PlanNodeType {
	return SeqScanNode
}

func (_ *SeqScanPlan) Children() []AbstractPlan {
	return nil
}

func (ssp *SeqScanPlan) PerformBinding(bc *BindingContext) error {
	cols := ssp.Table.Schema().Columns()
	ssp.attributes = make([]*AttributeInfo, len(cols))
	for colID, col := range cols {
		ssp.attributes[colID] = &AttributeInfo{
			Name:        col.Name,
			Type:        col.Type,
			Nullable:    !ssp.Table.Schema().IsPrimaryKeyColumn(colID),
			AttributeID: colID,
		}
		bc.BindNew(colID, ssp.attributes[colID])
	}

	if ssp.Predicate != nil {
		return ssp.Predicate.PerformBinding([]*BindingContext{bc})
	}
	return nil
}

// Attributes returns the attribute of each column of the table, indexed by column id.
func (ssp *SeqScanPlan) Attributes() []*AttributeInfo {
	return ssp.attributes
}
