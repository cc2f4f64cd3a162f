package storage

import (
	"sync"

	"github.com/leftmike/tilejit/sql"
)

// Manager is the registry of tile groups by id. There is one Manager per database; it is passed
// explicitly to the tables and the transaction manager which need it.
type Manager struct {
	mutex      sync.RWMutex
	lastID     uint32
	tileGroups map[uint32]*TileGroup
}

func NewManager() *Manager {
	return &Manager{
		tileGroups: map[uint32]*TileGroup{},
	}
}

func (m *Manager) GetTileGroup(id uint32) *TileGroup {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.tileGroups[id]
}

func (m *Manager) TileGroupCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.tileGroups)
}

func (m *Manager) newTileGroup(dt *DataTable, capacity uint32) *TileGroup {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.lastID += 1
	tg := &TileGroup{
		id:     m.lastID,
		table:  dt,
		header: newTileGroupHeader(capacity),
		tuples: make([][]sql.Value, capacity),
	}
	m.tileGroups[tg.id] = tg
	return tg
}

// DropTileGroups removes all of the tile groups belonging to the table from the registry.
func (m *Manager) DropTileGroups(dt *DataTable) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for id, tg := range m.tileGroups {
		if tg.table == dt {
			delete(m.tileGroups, id)
		}
	}
}
