package storage

import (
	"sync"

	"github.com/google/btree"

	"github.com/leftmike/tilejit/sql"
)

type index struct {
	mutex   sync.Mutex
	name    string
	columns []int
	primary bool
	tree    *btree.BTree
}

type indexItem struct {
	key         []sql.Value
	indirection *Indirection
}

func newIndex(name string, columns []int, primary bool) *index {
	return &index{
		name:    name,
		columns: columns,
		primary: primary,
		tree:    btree.New(16),
	}
}

func compareKeys(key1, key2 []sql.Value) int {
	for idx := range key1 {
		if idx >= len(key2) {
			return 1
		}
		cmp := sql.Compare(key1[idx], key2[idx])
		if cmp != 0 {
			return cmp
		}
	}
	if len(key1) < len(key2) {
		return -1
	}
	return 0
}

func (ii indexItem) Less(item btree.Item) bool {
	return compareKeys(ii.key, item.(indexItem).key) < 0
}

func (idx *index) makeKey(row []sql.Value) []sql.Value {
	key := make([]sql.Value, 0, len(idx.columns))
	for _, col := range idx.columns {
		key = append(key, row[col])
	}
	return key
}

func (idx *index) touches(columns []int) bool {
	for _, col := range columns {
		for _, kc := range idx.columns {
			if col == kc {
				return true
			}
		}
	}
	return false
}

// insert adds key to the index unless a live entry with the same key already exists; live
// decides whether an existing entry still refers to a tuple with that key.
func (idx *index) insert(key []sql.Value, ind *Indirection,
	live func(idx *index, key []sql.Value, ind *Indirection) bool) bool {

	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	item := idx.tree.Get(indexItem{key: key})
	if item != nil {
		ii := item.(indexItem)
		if ii.indirection != ind && live(idx, ii.key, ii.indirection) {
			return false
		}
	}
	idx.tree.ReplaceOrInsert(indexItem{key: key, indirection: ind})
	return true
}

// remove deletes the entry for key, but only if it still points at ind.
func (idx *index) remove(key []sql.Value, ind *Indirection) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	item := idx.tree.Get(indexItem{key: key})
	if item != nil && item.(indexItem).indirection == ind {
		idx.tree.Delete(item)
	}
}

func (idx *index) lookup(key []sql.Value) *Indirection {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	item := idx.tree.Get(indexItem{key: key})
	if item == nil {
		return nil
	}
	return item.(indexItem).indirection
}

func (idx *index) count() int {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	return idx.tree.Len()
}
