package expression

import (
	"fmt"
	"math"

	"github.com/leftmike/tilejit/sql"
)

// Row supplies the values of the attributes an expression reads.
type Row interface {
	Value(ai *AttributeInfo) sql.Value
}

type Expression interface {
	fmt.Stringer
	ResultType() sql.DataType
	Eval(row Row) (sql.Value, error)
	PerformBinding(ctxs []*BindingContext) error
	Children() []Expression
}

type Constant struct {
	Value sql.Value
	Type  sql.DataType
}

func NewConstant(v sql.Value) *Constant {
	var dt sql.DataType
	switch v := v.(type) {
	case sql.BoolValue:
		dt = sql.BooleanType
	case sql.Int64Value:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			dt = sql.IntegerType
		} else {
			dt = sql.BigIntType
		}
	case sql.Float64Value:
		dt = sql.DecimalType
	case sql.StringValue:
		dt = sql.VarcharType
	case sql.BytesValue:
		dt = sql.VarbinaryType
	case nil:
		dt = sql.UnknownType
	default:
		panic(fmt.Sprintf("unexpected type for sql.Value: %T: %v", v, v))
	}

	return &Constant{Value: v, Type: dt}
}

func Int64Constant(i int64) *Constant {
	return NewConstant(sql.Int64Value(i))
}

func (c *Constant) String() string {
	return sql.Format(c.Value)
}

func (c *Constant) ResultType() sql.DataType {
	return c.Type
}

func (c *Constant) Eval(row Row) (sql.Value, error) {
	return c.Value, nil
}

func (_ *Constant) PerformBinding(ctxs []*BindingContext) error {
	return nil
}

func (_ *Constant) Children() []Expression {
	return nil
}

// TupleValue reads column ColumnIdx of input tuple TupleIdx; for a join the left input is tuple
// 0 and the right input is tuple 1.
type TupleValue struct {
	TupleIdx  int
	ColumnIdx int
	Name      string
	ai        *AttributeInfo
}

func NewTupleValue(tupleIdx, columnIdx int) *TupleValue {
	return &TupleValue{TupleIdx: tupleIdx, ColumnIdx: columnIdx}
}

func (tv *TupleValue) String() string {
	if tv.Name != "" {
		return tv.Name
	}
	return fmt.Sprintf("$%d.%d", tv.TupleIdx, tv.ColumnIdx)
}

func (tv *TupleValue) ResultType() sql.DataType {
	if tv.ai == nil {
		return sql.UnknownType
	}
	return tv.ai.Type
}

// AttributeRef returns the attribute the value is bound to, or nil before binding.
func (tv *TupleValue) AttributeRef() *AttributeInfo {
	return tv.ai
}

func (tv *TupleValue) Eval(row Row) (sql.Value, error) {
	if tv.ai == nil {
		return nil, fmt.Errorf("expression: %s: not bound", tv)
	}
	return row.Value(tv.ai), nil
}

func (tv *TupleValue) PerformBinding(ctxs []*BindingContext) error {
	if tv.TupleIdx < 0 || tv.TupleIdx >= len(ctxs) || ctxs[tv.TupleIdx] == nil {
		return fmt.Errorf("expression: %s: no input tuple %d", tv, tv.TupleIdx)
	}
	ai := ctxs[tv.TupleIdx].Find(tv.ColumnIdx)
	if ai == nil {
		return fmt.Errorf("expression: %s: column %d of tuple %d not found", tv, tv.ColumnIdx,
			tv.TupleIdx)
	}
	tv.ai = ai
	if tv.Name == "" {
		tv.Name = ai.Name
	}
	return nil
}

func (_ *TupleValue) Children() []Expression {
	return nil
}

// UsedAttributes returns the distinct attributes read by e, in the order they are first found.
func UsedAttributes(e Expression) []*AttributeInfo {
	var ais []*AttributeInfo
	seen := map[*AttributeInfo]struct{}{}

	var walk func(e Expression)
	walk = func(e Expression) {
		if tv, ok := e.(*TupleValue); ok && tv.ai != nil {
			if _, ok := seen[tv.ai]; !ok {
				seen[tv.ai] = struct{}{}
				ais = append(ais, tv.ai)
			}
		}
		for _, child := range e.Children() {
			walk(child)
		}
	}
	walk(e)
	return ais
}

func bindChildren(ctxs []*BindingContext, exprs ...Expression) error {
	for _, e := range exprs {
		if e == nil {
			continue
		}
		err := e.PerformBinding(ctxs)
		if err != nil {
			return err
		}
	}
	return nil
}
