package codegen_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/leftmike/tilejit/codegen"
	"github.com/leftmike/tilejit/sql"
)

func intKey(i int64) []codegen.Value {
	return []codegen.Value{notNull(sql.BigIntType, sql.Int64Value(i))}
}

func TestOAHashTable(t *testing.T) {
	ht := codegen.NewOAHashTable([]sql.DataType{sql.BigIntType}, 8)
	ht.Init()

	for i := int64(0); i < 1000; i++ {
		for j := int64(0); j <= i%3; j++ {
			data := ht.Insert(intKey(i))
			if len(data) != 8 {
				t.Fatalf("Insert(%d) got %d bytes want 8", i, len(data))
			}
			binary.LittleEndian.PutUint64(data, uint64(i*10+j))
		}
	}
	if ht.NumEntries() != 1000 {
		t.Errorf("NumEntries() got %d want 1000", ht.NumEntries())
	}
	if ht.NumValues() != 334*1+333*2+333*3 {
		t.Errorf("NumValues() got %d want %d", ht.NumValues(), 334*1+333*2+333*3)
	}

	for i := int64(0); i < 1000; i++ {
		var got []int64
		err := ht.FindAll(intKey(i), func(key []codegen.Value, data []byte) error {
			if key[0].Val() != sql.Int64Value(i) {
				t.Errorf("FindAll(%d): got key %s", i, key[0])
			}
			got = append(got, int64(binary.LittleEndian.Uint64(data)))
			return nil
		})
		if err != nil {
			t.Fatalf("FindAll(%d) failed with %s", i, err)
		}
		if len(got) != int(i%3)+1 {
			t.Errorf("FindAll(%d) got %d matches want %d", i, len(got), i%3+1)
			continue
		}
		for j, v := range got {
			if v != i*10+int64(j) {
				t.Errorf("FindAll(%d)[%d] got %d want %d", i, j, v, i*10+int64(j))
			}
		}
	}

	var cnt int
	err := ht.FindAll(intKey(1000), func(key []codegen.Value, data []byte) error {
		cnt += 1
		return nil
	})
	if err != nil || cnt != 0 {
		t.Errorf("FindAll(1000) got %d matches want 0", cnt)
	}

	var prev int64 = -1
	err = ht.Iterate(func(key []codegen.Value, data []byte) error {
		i := int64(key[0].Val().(sql.Int64Value))
		if i < prev {
			t.Errorf("Iterate(): got key %d after %d", i, prev)
		}
		prev = i
		return nil
	})
	if err != nil {
		t.Errorf("Iterate() failed with %s", err)
	}

	ht.Destroy()
	if !ht.IsDestroyed() {
		t.Errorf("IsDestroyed() got false want true")
	}
}

func TestOAHashTableProbeOrInsert(t *testing.T) {
	ht := codegen.NewOAHashTable([]sql.DataType{sql.VarcharType, sql.IntegerType}, 4)
	ht.Init()
	defer ht.Destroy()

	keys := [][]codegen.Value{
		{notNull(sql.VarcharType, sql.StringValue("a")), notNull(sql.IntegerType,
			sql.Int64Value(1))},
		{notNull(sql.VarcharType, sql.StringValue("a")), codegen.MakeNull(sql.IntegerType)},
		{codegen.MakeNull(sql.VarcharType), codegen.MakeNull(sql.IntegerType)},
		{notNull(sql.VarcharType, sql.StringValue("b")), notNull(sql.IntegerType,
			sql.Int64Value(1))},
	}

	for n := 0; n < 3; n++ {
		for _, key := range keys {
			data, found := ht.ProbeOrInsert(ht.HashKey(key), key)
			if found != (n > 0) {
				t.Errorf("ProbeOrInsert(%v) got found %v want %v", key, found, n > 0)
			}
			if data[0] != byte(n) {
				t.Errorf("ProbeOrInsert(%v) got %d want %d", key, data[0], n)
			}
			data[0] += 1
		}
	}
	if ht.NumEntries() != len(keys) || ht.NumValues() != len(keys) {
		t.Errorf("NumEntries() got %d, NumValues() got %d want %d", ht.NumEntries(),
			ht.NumValues(), len(keys))
	}
}

func TestOAHashTableHashKey(t *testing.T) {
	ht := codegen.NewOAHashTable([]sql.DataType{sql.BigIntType}, 0)
	ht.Init()
	defer ht.Destroy()

	if ht.HashKey(intKey(17)) != ht.HashKey(intKey(17)) {
		t.Errorf("HashKey(17) is not stable")
	}
	if ht.HashKey(intKey(17)) == ht.HashKey(intKey(18)) {
		t.Errorf("HashKey(17) == HashKey(18)")
	}
	null1 := []codegen.Value{codegen.MakeNull(sql.BigIntType)}
	null2 := []codegen.Value{codegen.MakeValue(sql.BigIntType, sql.BigIntType.NullSentinel())}
	if ht.HashKey(null1) != ht.HashKey(null2) {
		t.Errorf("HashKey(NULL) depends on the null representation")
	}
	ht.PrefetchBucket(ht.HashKey(intKey(17)))
}

func TestOAHashTableDestroy(t *testing.T) {
	ht := codegen.NewOAHashTable([]sql.DataType{sql.BigIntType}, 8)
	ht.Destroy()
	if ht.IsDestroyed() {
		t.Errorf("Destroy() before Init() destroyed the table")
	}

	ht.Init()
	ht.Insert(intKey(1))
	ht.Destroy()
	ht.Destroy()
	if !ht.IsDestroyed() {
		t.Errorf("IsDestroyed() got false want true")
	}

	defer func() {
		if recover() == nil {
			t.Errorf("Insert() after Destroy() did not panic")
		}
	}()
	ht.Insert(intKey(2))
}

func TestOAHashTableKeyArity(t *testing.T) {
	ht := codegen.NewOAHashTable([]sql.DataType{sql.BigIntType, sql.BigIntType}, 8)
	ht.Init()
	defer ht.Destroy()

	defer func() {
		if recover() == nil {
			t.Errorf("Insert(one value key) did not panic")
		}
	}()
	ht.Insert(intKey(1))
}

func TestRuntimeState(t *testing.T) {
	var rs codegen.RuntimeState
	id1 := rs.RegisterState("one")
	id2 := rs.RegisterState("two")
	if id1 == id2 {
		t.Fatalf("RegisterState() returned %d twice", id1)
	}
	if rs.NumSlots() != 2 || rs.SlotName(id2) != "two" {
		t.Errorf("NumSlots() got %d, SlotName(%d) got %s", rs.NumSlots(), id2,
			rs.SlotName(id2))
	}

	sb1 := rs.Allocate()
	sb2 := rs.Allocate()
	sb1.Set(id1, 10)
	sb2.Set(id1, 20)
	if sb1.Get(id1) != 10 || sb2.Get(id1) != 20 {
		t.Errorf("Get(%d) got %v and %v want 10 and 20", id1, sb1.Get(id1), sb2.Get(id1))
	}
	if sb1.Get(id2) != nil {
		t.Errorf("Get(%d) got %v want nil", id2, sb1.Get(id2))
	}

	defer func() {
		if recover() == nil {
			t.Errorf("Get(unregistered) did not panic")
		}
	}()
	sb1.Get(codegen.StateID(2))
}

func TestOAHashTableNumericKeys(t *testing.T) {
	ht := codegen.NewOAHashTable([]sql.DataType{sql.DecimalType}, 0)
	ht.Init()
	defer ht.Destroy()

	decimal := func(v sql.Value) []codegen.Value {
		return []codegen.Value{notNull(sql.DecimalType, v)}
	}
	ht.Insert(decimal(sql.Int64Value(1)))
	ht.Insert(decimal(sql.Float64Value(0)))

	cases := []struct {
		key sql.Value
		cnt int
	}{
		{sql.Float64Value(1), 1},
		{sql.Int64Value(1), 1},
		{sql.Float64Value(1.5), 0},
		{sql.Int64Value(0), 1},
		{sql.Float64Value(math.Copysign(0, -1)), 1},
	}

	for _, c := range cases {
		key := decimal(c.key)
		if sql.Compare(c.key, sql.Int64Value(1)) == 0 &&
			ht.HashKey(key) != ht.HashKey(decimal(sql.Int64Value(1))) {

			t.Errorf("HashKey(%v) != HashKey(1)", c.key)
		}

		var cnt int
		err := ht.FindAll(key, func(key []codegen.Value, data []byte) error {
			cnt += 1
			return nil
		})
		if err != nil {
			t.Errorf("FindAll(%v) failed with %s", c.key, err)
		} else if cnt != c.cnt {
			t.Errorf("FindAll(%v) got %d matches want %d", c.key, cnt, c.cnt)
		}
	}
}
