package sql

import (
	"fmt"
	"math"
)

type DataType int

const (
	UnknownType DataType = iota
	BooleanType
	TinyIntType
	SmallIntType
	IntegerType
	BigIntType
	DecimalType
	DateType
	TimestampType
	VarcharType
	VarbinaryType
)

const (
	// Sizes of the materialized representation of a variable length value: the offset of the
	// bytes in a varlen pool followed by the length of the bytes.
	VarlenOffsetSize = 8
	VarlenLengthSize = 4
)

func (dt DataType) String() string {
	switch dt {
	case BooleanType:
		return "BOOLEAN"
	case TinyIntType:
		return "TINYINT"
	case SmallIntType:
		return "SMALLINT"
	case IntegerType:
		return "INTEGER"
	case BigIntType:
		return "BIGINT"
	case DecimalType:
		return "DECIMAL"
	case DateType:
		return "DATE"
	case TimestampType:
		return "TIMESTAMP"
	case VarcharType:
		return "VARCHAR"
	case VarbinaryType:
		return "VARBINARY"
	}

	return fmt.Sprintf("TYPE(%d)", int(dt))
}

func (dt DataType) IsVariableLength() bool {
	return dt == VarcharType || dt == VarbinaryType
}

func (dt DataType) IsInteger() bool {
	switch dt {
	case TinyIntType, SmallIntType, IntegerType, BigIntType, DateType, TimestampType:
		return true
	}
	return false
}

func (dt DataType) IsNumeric() bool {
	return dt.IsInteger() || dt == DecimalType
}

// MaterializedSize returns the number of bytes used to store a value of this type in a
// fixed size slot; for variable length types it is the size of the offset slot.
func (dt DataType) MaterializedSize() int {
	switch dt {
	case BooleanType, TinyIntType:
		return 1
	case SmallIntType:
		return 2
	case IntegerType, DateType:
		return 4
	case BigIntType, TimestampType, DecimalType:
		return 8
	case VarcharType, VarbinaryType:
		return VarlenOffsetSize
	}

	panic(fmt.Sprintf("expected a valid data type; got %v", dt))
}

// NullSentinel returns the value used to represent NULL for this type when no separate null
// flag is available, or nil if the type only represents NULL as a nil value.
func (dt DataType) NullSentinel() Value {
	switch dt {
	case TinyIntType:
		return Int64Value(math.MinInt8)
	case SmallIntType:
		return Int64Value(math.MinInt16)
	case IntegerType, DateType:
		return Int64Value(math.MinInt32)
	case BigIntType, TimestampType:
		return Int64Value(math.MinInt64)
	case DecimalType:
		return Float64Value(-math.MaxFloat64)
	}
	return nil
}

// IsNullValue reports whether v is the null representation of this type.
func (dt DataType) IsNullValue(v Value) bool {
	if v == nil {
		return true
	}
	ns := dt.NullSentinel()
	if ns == nil {
		return false
	}
	return ns == v
}

// CheckValue returns an error if v can not be held by a column of this type.
func (dt DataType) CheckValue(v Value) error {
	if v == nil {
		return nil
	}

	switch dt {
	case BooleanType:
		if _, ok := v.(BoolValue); ok {
			return nil
		}
	case TinyIntType, SmallIntType, IntegerType, BigIntType, DateType, TimestampType:
		if i, ok := v.(Int64Value); ok {
			if dt.inRange(int64(i)) {
				return nil
			}
			return fmt.Errorf("sql: %s out of range for %s", i, dt)
		}
	case DecimalType:
		if _, ok := v.(Float64Value); ok {
			return nil
		}
	case VarcharType:
		if _, ok := v.(StringValue); ok {
			return nil
		}
	case VarbinaryType:
		if _, ok := v.(BytesValue); ok {
			return nil
		}
	}
	return fmt.Errorf("sql: expected a %s value: %v", dt, v)
}

func (dt DataType) inRange(i int64) bool {
	switch dt {
	case TinyIntType:
		return i >= math.MinInt8 && i <= math.MaxInt8
	case SmallIntType:
		return i >= math.MinInt16 && i <= math.MaxInt16
	case IntegerType, DateType:
		return i >= math.MinInt32 && i <= math.MaxInt32
	}
	return true
}
