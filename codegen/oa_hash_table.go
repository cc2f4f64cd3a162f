package codegen

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
)

const (
	DefaultGroupPrefetchSize = 16

	initialBuckets = 256
	emptyBucket    = -1
)

// HashAttribute holds the hash of the key of a row when the hash was computed ahead of the
// insert or probe.
var HashAttribute = &planner.AttributeInfo{
	Name: "hash",
	Type: sql.BigIntType,
}

type oaEntry struct {
	hash   uint64
	key    []Value
	values [][]byte
}

// OAHashTable is an open addressing hash table with linear probing. Each key has a list of
// fixed size payloads, so the same key can be inserted more than once. Entries are kept in
// insertion order.
type OAHashTable struct {
	keyTypes    []sql.DataType
	valueSize   int
	buckets     []int32
	entries     []*oaEntry
	numValues   int
	initialized bool
	destroyed   bool
}

func NewOAHashTable(keyTypes []sql.DataType, valueSize int) *OAHashTable {
	return &OAHashTable{
		keyTypes:  keyTypes,
		valueSize: valueSize,
	}
}

func (ht *OAHashTable) Init() {
	ht.buckets = make([]int32, initialBuckets)
	for idx := range ht.buckets {
		ht.buckets[idx] = emptyBucket
	}
	ht.entries = nil
	ht.numValues = 0
	ht.initialized = true
	ht.destroyed = false
}

// Destroy releases the storage of the table; destroying it again does nothing.
func (ht *OAHashTable) Destroy() {
	if ht.destroyed || !ht.initialized {
		log.WithField("destroyed", ht.destroyed).Debug("codegen: hash table already released")
		return
	}
	ht.buckets = nil
	ht.entries = nil
	ht.destroyed = true
}

func (ht *OAHashTable) IsDestroyed() bool {
	return ht.destroyed
}

func (ht *OAHashTable) NumEntries() int {
	return len(ht.entries)
}

func (ht *OAHashTable) NumValues() int {
	return ht.numValues
}

func (ht *OAHashTable) ValueSize() int {
	return ht.valueSize
}

func hashValue(d *xxhash.Digest, v Value) {
	var buf [8]byte
	if v.IsNull() {
		d.Write([]byte{1})
		return
	}
	d.Write([]byte{0})

	switch val := v.Val().(type) {
	case sql.BoolValue:
		if val {
			buf[0] = 1
		}
		d.Write(buf[:1])
	case sql.Int64Value:
		binary.LittleEndian.PutUint64(buf[:], numberBits(float64(val)))
		d.Write(buf[:])
	case sql.Float64Value:
		binary.LittleEndian.PutUint64(buf[:], numberBits(float64(val)))
		d.Write(buf[:])
	case sql.StringValue:
		d.WriteString(string(val))
	case sql.BytesValue:
		d.Write(val)
	default:
		panic(fmt.Sprintf("codegen: hash of unexpected value: %T: %v", val, val))
	}
}

// numberBits hashes every number as a float64, the way integers and decimals are compared, so
// numbers which compare equal hash the same.
func numberBits(f float64) uint64 {
	if f == 0 {
		f = 0
	} else if math.IsNaN(f) {
		f = math.NaN()
	}
	return math.Float64bits(f)
}

func (ht *OAHashTable) HashKey(key []Value) uint64 {
	d := xxhash.New()
	for _, v := range key {
		hashValue(d, v)
	}
	return d.Sum64()
}

// keysEqual treats two null values as equal, so nulls group together.
func keysEqual(key1, key2 []Value) bool {
	for idx := range key1 {
		n1 := key1[idx].IsNull()
		n2 := key2[idx].IsNull()
		if n1 || n2 {
			if n1 != n2 {
				return false
			}
			continue
		}
		if sql.Compare(key1[idx].Val(), key2[idx].Val()) != 0 {
			return false
		}
	}
	return true
}

func (ht *OAHashTable) bucket(hash uint64) int {
	return int(hash & uint64(len(ht.buckets)-1))
}

func (ht *OAHashTable) find(hash uint64, key []Value) (int, *oaEntry) {
	b := ht.bucket(hash)
	for {
		ei := ht.buckets[b]
		if ei == emptyBucket {
			return b, nil
		}
		ent := ht.entries[ei]
		if ent.hash == hash && keysEqual(ent.key, key) {
			return b, ent
		}
		b = (b + 1) & (len(ht.buckets) - 1)
	}
}

func (ht *OAHashTable) grow() {
	ht.buckets = make([]int32, len(ht.buckets)*2)
	for idx := range ht.buckets {
		ht.buckets[idx] = emptyBucket
	}
	for ei, ent := range ht.entries {
		b := ht.bucket(ent.hash)
		for ht.buckets[b] != emptyBucket {
			b = (b + 1) & (len(ht.buckets) - 1)
		}
		ht.buckets[b] = int32(ei)
	}
}

func (ht *OAHashTable) checkKey(key []Value) {
	if !ht.initialized || ht.destroyed {
		panic("codegen: hash table used outside of its lifetime")
	}
	if len(key) != len(ht.keyTypes) {
		panic(fmt.Sprintf("codegen: hash table: expected %d key values; got %d",
			len(ht.keyTypes), len(key)))
	}
}

func (ht *OAHashTable) newEntry(b int, hash uint64, key []Value) *oaEntry {
	ent := &oaEntry{
		hash: hash,
		key:  append(make([]Value, 0, len(key)), key...),
	}
	ht.buckets[b] = int32(len(ht.entries))
	ht.entries = append(ht.entries, ent)
	if len(ht.entries)*2 > len(ht.buckets) {
		ht.grow()
	}
	return ent
}

func (ht *OAHashTable) newValue(ent *oaEntry) []byte {
	data := make([]byte, ht.valueSize)
	ent.values = append(ent.values, data)
	ht.numValues += 1
	return data
}

// Insert adds a payload for key and returns it to be filled in by the caller.
func (ht *OAHashTable) Insert(key []Value) []byte {
	return ht.InsertHash(ht.HashKey(key), key)
}

// InsertHash is Insert with the hash of key already computed.
func (ht *OAHashTable) InsertHash(hash uint64, key []Value) []byte {
	ht.checkKey(key)

	b, ent := ht.find(hash, key)
	if ent == nil {
		ent = ht.newEntry(b, hash, key)
	}
	return ht.newValue(ent)
}

// ProbeOrInsert returns the first payload of key, adding a zeroed payload if key is not in
// the table; found reports whether key was already present.
func (ht *OAHashTable) ProbeOrInsert(hash uint64, key []Value) (data []byte, found bool) {
	ht.checkKey(key)

	b, ent := ht.find(hash, key)
	if ent != nil {
		return ent.values[0], true
	}
	ent = ht.newEntry(b, hash, key)
	return ht.newValue(ent), false
}

// FindAll calls fn with the stored key and each payload inserted for key, in insertion order.
func (ht *OAHashTable) FindAll(key []Value, fn func(key []Value, data []byte) error) error {
	return ht.FindAllHash(ht.HashKey(key), key, fn)
}

func (ht *OAHashTable) FindAllHash(hash uint64, key []Value,
	fn func(key []Value, data []byte) error) error {

	ht.checkKey(key)

	_, ent := ht.find(hash, key)
	if ent == nil {
		return nil
	}
	for _, data := range ent.values {
		err := fn(ent.key, data)
		if err != nil {
			return err
		}
	}
	return nil
}

// Iterate calls fn for every key and payload in the table, in insertion order.
func (ht *OAHashTable) Iterate(fn func(key []Value, data []byte) error) error {
	for _, ent := range ht.entries {
		for _, data := range ent.values {
			err := fn(ent.key, data)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// PrefetchBucket touches the bucket of hash so that a following insert or probe finds it in
// cache.
func (ht *OAHashTable) PrefetchBucket(hash uint64) int32 {
	return ht.buckets[ht.bucket(hash)]
}
