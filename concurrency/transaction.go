package concurrency

import (
	"fmt"

	"github.com/leftmike/tilejit/storage"
)

type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultAborted
)

func (rt ResultType) String() string {
	switch rt {
	case ResultSuccess:
		return "SUCCESS"
	case ResultFailure:
		return "FAILURE"
	case ResultAborted:
		return "ABORTED"
	}
	return fmt.Sprintf("RESULT(%d)", int(rt))
}

// RWType is what a transaction did to a tuple. Writes are recorded against the location of the
// version which was current when the transaction first wrote the tuple; for an insert that is
// the inserted version itself.
type RWType int

const (
	RWRead RWType = iota + 1
	RWReadOwn
	RWUpdate
	RWDelete
	RWInsert
	RWInsDel
)

func (rw RWType) String() string {
	switch rw {
	case RWRead:
		return "READ"
	case RWReadOwn:
		return "READ_OWN"
	case RWUpdate:
		return "UPDATE"
	case RWDelete:
		return "DELETE"
	case RWInsert:
		return "INSERT"
	case RWInsDel:
		return "INS_DEL"
	}
	return fmt.Sprintf("RW(%d)", int(rw))
}

type IsolationLevel int

const (
	// Snapshot reads never fail; write conflicts are detected when taking ownership.
	Snapshot IsolationLevel = iota
	// Serializable reads fail on tuples owned by another transaction.
	Serializable
)

type rwEntry struct {
	location storage.ItemPointer
	rwType   RWType
}

// Transaction is used by a single thread of execution at a time.
type Transaction struct {
	id        uint64
	readID    uint64
	commitID  uint64
	isolation IsolationLevel
	result    ResultType
	completed bool
	rwSet     map[storage.ItemPointer]int
	entries   []rwEntry
}

func (txn *Transaction) String() string {
	return fmt.Sprintf("txn(%d)", txn.id)
}

func (txn *Transaction) ID() uint64 {
	return txn.id
}

// ReadID is the commit id as of which the transaction reads.
func (txn *Transaction) ReadID() uint64 {
	return txn.readID
}

func (txn *Transaction) CommitID() uint64 {
	return txn.commitID
}

func (txn *Transaction) Isolation() IsolationLevel {
	return txn.isolation
}

func (txn *Transaction) Result() ResultType {
	return txn.result
}

// RWType returns what the transaction has done to the tuple at location, if anything.
func (txn *Transaction) RWType(location storage.ItemPointer) (RWType, bool) {
	idx, ok := txn.rwSet[location]
	if !ok {
		return 0, false
	}
	return txn.entries[idx].rwType, true
}

func (txn *Transaction) IsReadOnly() bool {
	for _, ent := range txn.entries {
		if ent.rwType != RWRead && ent.rwType != RWReadOwn {
			return false
		}
	}
	return true
}

// WriteCount returns the number of tuples inserted, updated, or deleted.
func (txn *Transaction) WriteCount() int {
	var cnt int
	for _, ent := range txn.entries {
		if ent.rwType != RWRead && ent.rwType != RWReadOwn {
			cnt += 1
		}
	}
	return cnt
}

func (txn *Transaction) record(location storage.ItemPointer, rwType RWType) {
	idx, ok := txn.rwSet[location]
	if ok {
		txn.entries[idx].rwType = rwType
		return
	}
	txn.rwSet[location] = len(txn.entries)
	txn.entries = append(txn.entries, rwEntry{location: location, rwType: rwType})
}
