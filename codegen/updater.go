package codegen

import (
	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
	"github.com/leftmike/tilejit/storage"
)

// Updater applies the updates of one update plan to the tuples of a table.
type Updater struct {
	table            *storage.DataTable
	targets          []planner.Target
	directMaps       []planner.DirectMap
	updatePrimaryKey bool
}

func (u *Updater) Init(table *storage.DataTable, targets []planner.Target,
	directMaps []planner.DirectMap, updatePrimaryKey bool) {

	u.table = table
	u.targets = targets
	u.directMaps = directMaps
	u.updatePrimaryKey = updatePrimaryKey
}

// Update updates the tuple at offset tid of tg; it returns false if the transaction failed.
func (u *Updater) Update(ec *ExecutionContext, tg *storage.TileGroup, tid uint32, colIDs []int,
	values []sql.Value) bool {

	if u.table == nil {
		panic(&InternalError{"updater used before init"})
	}
	return PerformUpdate(ec, u.table, tg, tid, colIDs, values, u.updatePrimaryKey, u.targets,
		u.directMaps)
}
