package testutil

import (
	"sort"

	"github.com/leftmike/tilejit/sql"
)

type sortValues struct {
	values  [][]sql.Value
	columns []int
}

func (sv sortValues) Len() int {
	return len(sv.values)
}

func (sv sortValues) Swap(i, j int) {
	sv.values[i], sv.values[j] = sv.values[j], sv.values[i]
}

func (sv sortValues) Less(i, j int) bool {
	for _, col := range sv.columns {
		cmp := sql.Compare(sv.values[i][col], sv.values[j][col])
		if cmp < 0 {
			return true
		} else if cmp > 0 {
			return false
		}
	}
	return false
}

// SortValues sorts rows by the values of columns, in order.
func SortValues(columns []int, values [][]sql.Value) {
	sort.Stable(sortValues{values: values, columns: columns})
}
