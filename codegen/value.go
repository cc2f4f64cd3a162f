package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/sql"
)

// Value is a typed value flowing through a compiled query. Variable length values carry their
// length. A value made without an explicit null flag is null when it holds the null
// representation of its type.
type Value struct {
	typ     sql.DataType
	val     sql.Value
	length  uint32
	null    bool
	hasNull bool
}

func varlenLength(val sql.Value) uint32 {
	switch val := val.(type) {
	case sql.StringValue:
		return uint32(len(val))
	case sql.BytesValue:
		return uint32(len(val))
	}
	return 0
}

func MakeValue(typ sql.DataType, val sql.Value) Value {
	return Value{
		typ:    typ,
		val:    val,
		length: varlenLength(val),
	}
}

func MakeNullableValue(typ sql.DataType, val sql.Value, null bool) Value {
	v := MakeValue(typ, val)
	v.null = null
	v.hasNull = true
	return v
}

// MakeNull returns the canonical null value of typ.
func MakeNull(typ sql.DataType) Value {
	return Value{
		typ:     typ,
		val:     typ.NullSentinel(),
		null:    true,
		hasNull: true,
	}
}

// valueOf converts a value stored in a table or produced by an expression.
func valueOf(typ sql.DataType, val sql.Value) Value {
	if val == nil {
		return MakeNull(typ)
	}
	return MakeNullableValue(typ, val, false)
}

func (v Value) Type() sql.DataType {
	return v.typ
}

func (v Value) Val() sql.Value {
	return v.val
}

func (v Value) Length() uint32 {
	return v.length
}

// HasNullFlag reports whether the null state of the value was given explicitly.
func (v Value) HasNullFlag() bool {
	return v.hasNull
}

func (v Value) IsNull() bool {
	if v.hasNull {
		return v.null
	}
	return v.typ.IsNullValue(v.val)
}

// SQLValue returns the value as stored in a table: nil if it is null.
func (v Value) SQLValue() sql.Value {
	if v.IsNull() {
		return nil
	}
	return v.val
}

func (v Value) String() string {
	if v.IsNull() {
		return fmt.Sprintf("%s(%s)", v.typ, sql.NullString)
	}
	return fmt.Sprintf("%s(%s)", v.typ, v.val)
}
