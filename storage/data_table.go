package storage

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/tilejit/sql"
)

const (
	DefaultTuplesPerTileGroup = 1024
)

type TableOptions struct {
	TuplesPerTileGroup uint32
	// MaxTileGroups limits the number of tile groups the table may allocate; zero is unlimited.
	MaxTileGroups int
}

// DataTable is an in-memory table made up of tile groups. Every tuple version lives in a slot
// of some tile group; the unique indexes map keys to the indirection cell of a tuple.
type DataTable struct {
	mutex      sync.Mutex
	manager    *Manager
	oid        uint32
	name       string
	schema     *Schema
	opts       TableOptions
	tileGroups []*TileGroup
	indexes    []*index
}

func NewDataTable(manager *Manager, oid uint32, name string, schema *Schema,
	opts TableOptions) *DataTable {

	if opts.TuplesPerTileGroup == 0 {
		opts.TuplesPerTileGroup = DefaultTuplesPerTileGroup
	}

	dt := &DataTable{
		manager: manager,
		oid:     oid,
		name:    name,
		schema:  schema,
		opts:    opts,
	}
	if len(schema.PrimaryKey()) > 0 {
		dt.indexes = append(dt.indexes, newIndex(name+"_pkey", schema.PrimaryKey(), true))
	}
	return dt
}

func (dt *DataTable) String() string {
	return dt.name
}

func (dt *DataTable) Name() string {
	return dt.name
}

func (dt *DataTable) OID() uint32 {
	return dt.oid
}

func (dt *DataTable) Schema() *Schema {
	return dt.schema
}

func (dt *DataTable) Manager() *Manager {
	return dt.manager
}

// AddUniqueIndex adds a unique secondary index; the table must not have any tuples yet.
func (dt *DataTable) AddUniqueIndex(name string, columns []int) error {
	dt.mutex.Lock()
	defer dt.mutex.Unlock()

	if len(dt.tileGroups) > 0 {
		return fmt.Errorf("storage: table %s: index %s: table is not empty", dt.name, name)
	}
	for _, col := range columns {
		if col < 0 || col >= dt.schema.ColumnCount() {
			return fmt.Errorf("storage: table %s: index %s: column %d out of range", dt.name,
				name, col)
		}
	}
	for _, idx := range dt.indexes {
		if idx.name == name {
			return fmt.Errorf("storage: table %s: index %s already exists", dt.name, name)
		}
	}
	dt.indexes = append(dt.indexes, newIndex(name, columns, false))
	return nil
}

func (dt *DataTable) TileGroupCount() int {
	dt.mutex.Lock()
	defer dt.mutex.Unlock()

	return len(dt.tileGroups)
}

func (dt *DataTable) GetTileGroup(idx int) *TileGroup {
	dt.mutex.Lock()
	defer dt.mutex.Unlock()

	return dt.tileGroups[idx]
}

// TileGroups returns a snapshot of the tile groups of the table.
func (dt *DataTable) TileGroups() []*TileGroup {
	dt.mutex.Lock()
	defer dt.mutex.Unlock()

	return append(make([]*TileGroup, 0, len(dt.tileGroups)), dt.tileGroups...)
}

func (dt *DataTable) getEmptyTupleSlot() (*TileGroup, uint32, bool) {
	dt.mutex.Lock()
	defer dt.mutex.Unlock()

	if len(dt.tileGroups) > 0 {
		tg := dt.tileGroups[len(dt.tileGroups)-1]
		off, ok := tg.header.nextTupleSlot()
		if ok {
			return tg, off, true
		}
	}

	if dt.opts.MaxTileGroups > 0 && len(dt.tileGroups) >= dt.opts.MaxTileGroups {
		log.WithFields(log.Fields{
			"table":       dt.name,
			"tile_groups": len(dt.tileGroups),
		}).Debug("storage: table full")
		return nil, 0, false
	}

	tg := dt.manager.newTileGroup(dt, dt.opts.TuplesPerTileGroup)
	dt.tileGroups = append(dt.tileGroups, tg)
	off, ok := tg.header.nextTupleSlot()
	if !ok {
		panic(fmt.Sprintf("storage: table %s: new tile group %d has no free slot", dt.name,
			tg.id))
	}
	return tg, off, true
}

func (dt *DataTable) allocate(row []sql.Value) ItemPointer {
	tg, off, ok := dt.getEmptyTupleSlot()
	if !ok {
		return InvalidItemPointer
	}
	tg.setTuple(off, row)
	return ItemPointer{Block: tg.id, Offset: off}
}

// InsertTuple stores row in a new slot for the transaction txnID and adds it to every index. It
// returns InvalidItemPointer if there is no room or if a unique key is already present; keys of
// tuples which txnID itself deleted are not present. The slot is not visible to any transaction
// until the transaction manager performs the insert.
func (dt *DataTable) InsertTuple(txnID uint64, row []sql.Value) (ItemPointer,
	*Indirection) {

	err := dt.schema.CheckRow(row)
	if err != nil {
		log.WithField("table", dt.name).WithError(err).Debug("storage: insert tuple")
		return InvalidItemPointer, nil
	}

	ip := dt.allocate(row)
	if ip.IsNull() {
		return InvalidItemPointer, nil
	}
	ind := NewIndirection(ip)
	live := dt.liveFor(txnID)

	for cnt, idx := range dt.indexes {
		if !idx.insert(idx.makeKey(row), ind, live) {
			log.WithFields(log.Fields{
				"table": dt.name,
				"index": idx.name,
			}).Debug("storage: insert tuple: duplicate key")

			for _, prev := range dt.indexes[:cnt] {
				prev.remove(prev.makeKey(row), ind)
			}
			dt.release(ip)
			return InvalidItemPointer, nil
		}
	}

	return ip, ind
}

// InsertEmptyVersion allocates a slot without values, used as the tombstone version of a
// deleted tuple.
func (dt *DataTable) InsertEmptyVersion() ItemPointer {
	return dt.allocate(nil)
}

// AcquireVersion allocates a slot for a new version of a tuple; the caller fills in the values.
func (dt *DataTable) AcquireVersion() ItemPointer {
	return dt.allocate(make([]sql.Value, dt.schema.ColumnCount()))
}

// InstallVersion adds the keys of the new version at location to every secondary index which
// covers one of the updated columns and whose key changed from the version at old. It returns
// false if a unique key would be duplicated.
func (dt *DataTable) InstallVersion(location, old ItemPointer, columns []int,
	ind *Indirection) bool {

	newRow := dt.manager.GetTileGroup(location.Block).GetTuple(location.Offset)
	oldRow := dt.manager.GetTileGroup(old.Block).GetTuple(old.Offset)

	var installed []*index
	for _, idx := range dt.indexes {
		if idx.primary || !idx.touches(columns) {
			continue
		}
		key := idx.makeKey(newRow)
		if compareKeys(key, idx.makeKey(oldRow)) == 0 {
			continue
		}
		if !idx.insert(key, ind, dt.liveFor(InvalidTxnID)) {
			log.WithFields(log.Fields{
				"table": dt.name,
				"index": idx.name,
			}).Debug("storage: install version: duplicate key")

			for _, prev := range installed {
				prev.remove(prev.makeKey(newRow), ind)
			}
			return false
		}
		installed = append(installed, idx)
	}

	return true
}

// RemoveIndexEntries removes the entries for row which still point at ind.
func (dt *DataTable) RemoveIndexEntries(row []sql.Value, ind *Indirection) {
	for _, idx := range dt.indexes {
		idx.remove(idx.makeKey(row), ind)
	}
}

// RestoreIndexEntries points the keys of row back at ind unless another live tuple holds them;
// used when the delete of the tuple at ind is undone.
func (dt *DataTable) RestoreIndexEntries(row []sql.Value, ind *Indirection) {
	live := dt.liveFor(InvalidTxnID)
	for _, idx := range dt.indexes {
		idx.insert(idx.makeKey(row), ind, live)
	}
}

// LookupPrimaryKey returns the indirection cell of the tuple with the primary key.
func (dt *DataTable) LookupPrimaryKey(key []sql.Value) (*Indirection, bool) {
	if len(dt.indexes) == 0 || !dt.indexes[0].primary {
		return nil, false
	}
	ind := dt.indexes[0].lookup(key)
	if ind == nil || !dt.isLive(InvalidTxnID, dt.indexes[0], key, ind) {
		return nil, false
	}
	return ind, true
}

func (dt *DataTable) IndexEntryCount(name string) int {
	for _, idx := range dt.indexes {
		if idx.name == name {
			return idx.count()
		}
	}
	return -1
}

func (dt *DataTable) release(ip ItemPointer) {
	tg := dt.manager.GetTileGroup(ip.Block)
	tg.header.SetTransactionID(ip.Offset, InvalidTxnID)
	tg.setTuple(ip.Offset, nil)
}

func (dt *DataTable) liveFor(txnID uint64) func(idx *index, key []sql.Value,
	ind *Indirection) bool {

	return func(idx *index, key []sql.Value, ind *Indirection) bool {
		return dt.isLive(txnID, idx, key, ind)
	}
}

// isLive reports whether the newest version reachable through ind still holds a tuple with key
// as seen by the transaction txnID. Entries left behind by aborted inserts, committed deletes,
// deletes by txnID itself, and key changing updates are not live.
func (dt *DataTable) isLive(txnID uint64, idx *index, key []sql.Value, ind *Indirection) bool {
	ip := ind.Load()
	tg := dt.manager.GetTileGroup(ip.Block)
	if tg == nil {
		return false
	}

	owner := tg.header.GetTransactionID(ip.Offset)
	if owner == InvalidTxnID {
		return false
	} else if owner == txnID && tg.header.GetEndCommitID(ip.Offset) == InvalidCID {
		// Uncommitted delete by txnID.
		return false
	}
	row := tg.GetTuple(ip.Offset)
	if row == nil {
		if owner == InitialTxnID && tg.header.GetBeginCommitID(ip.Offset) != MaxCID {
			// Committed delete.
			return false
		}

		// Uncommitted delete: the older version still counts.
		next := tg.header.GetNextItemPointer(ip.Offset)
		if next.IsNull() {
			return true
		}
		tg = dt.manager.GetTileGroup(next.Block)
		row = tg.GetTuple(next.Offset)
		if row == nil {
			return false
		}
	}

	return compareKeys(idx.makeKey(row), key) == 0
}
