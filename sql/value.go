package sql

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	NullString  = "NULL"
	TrueString  = "true"
	FalseString = "false"
)

// Value is a non-null value held in a tile or produced by an expression; NULL is a nil Value.
type Value interface {
	fmt.Stringer

	// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than v2; it fails if
	// the two values are not comparable.
	Compare(v2 Value) (int, error)
}

type BoolValue bool

type Int64Value int64

type Float64Value float64

type StringValue string

type BytesValue []byte

func (b BoolValue) String() string {
	if b {
		return TrueString
	}
	return FalseString
}

func (b BoolValue) Compare(v2 Value) (int, error) {
	b2, ok := v2.(BoolValue)
	if !ok {
		return 0, fmt.Errorf("sql: want boolean got %v", v2)
	}
	switch {
	case b == b2:
		return 0, nil
	case bool(b):
		return 1, nil
	}
	return -1, nil
}

func (i Int64Value) String() string {
	return fmt.Sprintf("%d", int64(i))
}

func (i Int64Value) Compare(v2 Value) (int, error) {
	return compareNumbers(i, v2)
}

func (f Float64Value) String() string {
	return fmt.Sprintf("%v", float64(f))
}

func (f Float64Value) Compare(v2 Value) (int, error) {
	return compareNumbers(f, v2)
}

func (s StringValue) String() string {
	return "'" + string(s) + "'"
}

func (s StringValue) Compare(v2 Value) (int, error) {
	s2, ok := v2.(StringValue)
	if !ok {
		return 0, fmt.Errorf("sql: want string got %v", v2)
	}
	return strings.Compare(string(s), string(s2)), nil
}

func (b BytesValue) String() string {
	return "'\\x" + hex.EncodeToString(b) + "'"
}

func (b BytesValue) Compare(v2 Value) (int, error) {
	b2, ok := v2.(BytesValue)
	if !ok {
		return 0, fmt.Errorf("sql: want bytes got %v", v2)
	}
	return bytes.Compare(b, b2), nil
}

// compareNumbers compares two integers exactly; otherwise both sides are compared as floats.
func compareNumbers(v1, v2 Value) (int, error) {
	if i1, ok := v1.(Int64Value); ok {
		if i2, ok := v2.(Int64Value); ok {
			return compareOrdered(int64(i1), int64(i2)), nil
		}
	}

	f1, ok1 := asFloat64(v1)
	f2, ok2 := asFloat64(v2)
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("sql: want number got %v", v2)
	}
	return compareOrdered(f1, f2), nil
}

func compareOrdered[T int64 | float64](n1, n2 T) int {
	if n1 < n2 {
		return -1
	} else if n1 > n2 {
		return 1
	}
	return 0
}

func asFloat64(v Value) (float64, bool) {
	switch v := v.(type) {
	case Int64Value:
		return float64(v), true
	case Float64Value:
		return float64(v), true
	}
	return 0, false
}

// typeRank orders values of different types: NULL < boolean < number < string < bytes.
func typeRank(v Value) int {
	switch v.(type) {
	case nil:
		return 0
	case BoolValue:
		return 1
	case Int64Value, Float64Value:
		return 2
	case StringValue:
		return 3
	case BytesValue:
		return 4
	}
	panic(fmt.Sprintf("unexpected type for sql.Value: %T: %v", v, v))
}

// Compare totally orders values, including NULL and values of different types, for sorting
// and grouping.
func Compare(v1, v2 Value) int {
	r1 := typeRank(v1)
	r2 := typeRank(v2)
	if r1 != r2 {
		return compareOrdered(int64(r1), int64(r2))
	} else if r1 == 0 {
		return 0
	}

	cmp, err := v1.Compare(v2)
	if err != nil {
		panic(err)
	}
	return cmp
}

func Format(v Value) string {
	if v == nil {
		return NullString
	}
	return v.String()
}
