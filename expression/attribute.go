package expression

import (
	"fmt"
	"sort"

	"github.com/leftmike/tilejit/sql"
)

// AttributeInfo identifies one value flowing through a query; expressions are bound to the
// AttributeInfo they read, and translators keep per row values keyed by it.
type AttributeInfo struct {
	Name        string
	Type        sql.DataType
	Nullable    bool
	AttributeID int
}

func (ai *AttributeInfo) String() string {
	return fmt.Sprintf("%s#%d", ai.Name, ai.AttributeID)
}

// BindingContext maps the column ids of a plan's output to attributes.
type BindingContext struct {
	mapping map[int]*AttributeInfo
}

func NewBindingContext() *BindingContext {
	return &BindingContext{
		mapping: map[int]*AttributeInfo{},
	}
}

func (bc *BindingContext) BindNew(colID int, ai *AttributeInfo) {
	bc.mapping[colID] = ai
}

func (bc *BindingContext) Find(colID int) *AttributeInfo {
	return bc.mapping[colID]
}

func (bc *BindingContext) Len() int {
	return len(bc.mapping)
}

// Attributes returns the bound attributes ordered by column id.
func (bc *BindingContext) Attributes() []*AttributeInfo {
	colIDs := make([]int, 0, len(bc.mapping))
	for colID := range bc.mapping {
		colIDs = append(colIDs, colID)
	}
	sort.Ints(colIDs)

	ais := make([]*AttributeInfo, 0, len(colIDs))
	for _, colID := range colIDs {
		ais = append(ais, bc.mapping[colID])
	}
	return ais
}
