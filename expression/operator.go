package expression

import (
	"errors"
	"fmt"

	"github.com/leftmike/tilejit/sql"
)

var (
	errDivideByZero = errors.New("expression: division by zero")
)

type Op int

const (
	AddOp Op = iota
	AndOp
	DivideOp
	EqualOp
	GreaterEqualOp
	GreaterThanOp
	LessEqualOp
	LessThanOp
	ModuloOp
	MultiplyOp
	NotEqualOp
	OrOp
	SubtractOp
)

var opNames = [...]string{
	AddOp:          "+",
	AndOp:          "AND",
	DivideOp:       "/",
	EqualOp:        "=",
	GreaterEqualOp: ">=",
	GreaterThanOp:  ">",
	LessEqualOp:    "<=",
	LessThanOp:     "<",
	ModuloOp:       "%",
	MultiplyOp:     "*",
	NotEqualOp:     "!=",
	OrOp:           "OR",
	SubtractOp:     "-",
}

func (op Op) String() string {
	return opNames[op]
}

// Comparison compares two values; the result is NULL if either value is NULL.
type Comparison struct {
	Op    Op
	Left  Expression
	Right Expression
}

func NewComparison(op Op, left, right Expression) *Comparison {
	switch op {
	case EqualOp, NotEqualOp, LessThanOp, LessEqualOp, GreaterThanOp, GreaterEqualOp:
	default:
		panic(fmt.Sprintf("expression: %s is not a comparison", op))
	}
	return &Comparison{Op: op, Left: left, Right: right}
}

func (c *Comparison) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

func (_ *Comparison) ResultType() sql.DataType {
	return sql.BooleanType
}

func (c *Comparison) Eval(row Row) (sql.Value, error) {
	l, err := c.Left.Eval(row)
	if err != nil {
		return nil, err
	}
	r, err := c.Right.Eval(row)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}

	cmp, err := l.Compare(r)
	if err != nil {
		return nil, err
	}
	switch c.Op {
	case EqualOp:
		return sql.BoolValue(cmp == 0), nil
	case NotEqualOp:
		return sql.BoolValue(cmp != 0), nil
	case LessThanOp:
		return sql.BoolValue(cmp < 0), nil
	case LessEqualOp:
		return sql.BoolValue(cmp <= 0), nil
	case GreaterThanOp:
		return sql.BoolValue(cmp > 0), nil
	case GreaterEqualOp:
		return sql.BoolValue(cmp >= 0), nil
	}
	panic(fmt.Sprintf("unexpected comparison: %d", c.Op))
}

func (c *Comparison) PerformBinding(ctxs []*BindingContext) error {
	return bindChildren(ctxs, c.Left, c.Right)
}

func (c *Comparison) Children() []Expression {
	return []Expression{c.Left, c.Right}
}

// Operator is an arithmetic operator; the result is NULL if either value is NULL.
type Operator struct {
	Op    Op
	Left  Expression
	Right Expression
}

func NewOperator(op Op, left, right Expression) *Operator {
	switch op {
	case AddOp, SubtractOp, MultiplyOp, DivideOp, ModuloOp:
	default:
		panic(fmt.Sprintf("expression: %s is not an arithmetic operator", op))
	}
	return &Operator{Op: op, Left: left, Right: right}
}

func (o *Operator) String() string {
	return fmt.Sprintf("(%s %s %s)", o.Left, o.Op, o.Right)
}

func (o *Operator) ResultType() sql.DataType {
	lt := o.Left.ResultType()
	rt := o.Right.ResultType()
	if lt == sql.DecimalType || rt == sql.DecimalType {
		return sql.DecimalType
	}
	if lt == sql.UnknownType {
		return rt
	} else if rt == sql.UnknownType {
		return lt
	}
	if lt.MaterializedSize() >= rt.MaterializedSize() {
		return lt
	}
	return rt
}

func numFunc(a0 sql.Value, a1 sql.Value, ifn func(i0, i1 sql.Int64Value) (sql.Value, error),
	ffn func(f0, f1 sql.Float64Value) (sql.Value, error)) (sql.Value, error) {

	switch a0 := a0.(type) {
	case sql.Float64Value:
		switch a1 := a1.(type) {
		case sql.Float64Value:
			return ffn(a0, a1)
		case sql.Int64Value:
			return ffn(a0, sql.Float64Value(a1))
		}
	case sql.Int64Value:
		switch a1 := a1.(type) {
		case sql.Float64Value:
			return ffn(sql.Float64Value(a0), a1)
		case sql.Int64Value:
			return ifn(a0, a1)
		}
	default:
		return nil, fmt.Errorf("expression: want number got %v", a0)
	}
	return nil, fmt.Errorf("expression: want number got %v", a1)
}

func (o *Operator) Eval(row Row) (sql.Value, error) {
	l, err := o.Left.Eval(row)
	if err != nil {
		return nil, err
	}
	r, err := o.Right.Eval(row)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}

	switch o.Op {
	case AddOp:
		return numFunc(l, r,
			func(i0, i1 sql.Int64Value) (sql.Value, error) {
				return i0 + i1, nil
			},
			func(f0, f1 sql.Float64Value) (sql.Value, error) {
				return f0 + f1, nil
			})
	case SubtractOp:
		return numFunc(l, r,
			func(i0, i1 sql.Int64Value) (sql.Value, error) {
				return i0 - i1, nil
			},
			func(f0, f1 sql.Float64Value) (sql.Value, error) {
				return f0 - f1, nil
			})
	case MultiplyOp:
		return numFunc(l, r,
			func(i0, i1 sql.Int64Value) (sql.Value, error) {
				return i0 * i1, nil
			},
			func(f0, f1 sql.Float64Value) (sql.Value, error) {
				return f0 * f1, nil
			})
	case DivideOp:
		return numFunc(l, r,
			func(i0, i1 sql.Int64Value) (sql.Value, error) {
				if i1 == 0 {
					return nil, errDivideByZero
				}
				return i0 / i1, nil
			},
			func(f0, f1 sql.Float64Value) (sql.Value, error) {
				if f1 == 0 {
					return nil, errDivideByZero
				}
				return f0 / f1, nil
			})
	case ModuloOp:
		i0, ok := l.(sql.Int64Value)
		if !ok {
			return nil, fmt.Errorf("expression: want integer got %v", l)
		}
		i1, ok := r.(sql.Int64Value)
		if !ok {
			return nil, fmt.Errorf("expression: want integer got %v", r)
		}
		if i1 == 0 {
			return nil, errDivideByZero
		}
		return i0 % i1, nil
	}
	panic(fmt.Sprintf("unexpected operator: %d", o.Op))
}

func (o *Operator) PerformBinding(ctxs []*BindingContext) error {
	return bindChildren(ctxs, o.Left, o.Right)
}

func (o *Operator) Children() []Expression {
	return []Expression{o.Left, o.Right}
}

// Conjunction is AND or OR with three valued logic.
type Conjunction struct {
	Op    Op
	Left  Expression
	Right Expression
}

func NewConjunction(op Op, left, right Expression) *Conjunction {
	if op != AndOp && op != OrOp {
		panic(fmt.Sprintf("expression: %s is not a conjunction", op))
	}
	return &Conjunction{Op: op, Left: left, Right: right}
}

func (c *Conjunction) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

func (_ *Conjunction) ResultType() sql.DataType {
	return sql.BooleanType
}

func evalBool(e Expression, row Row) (sql.Value, error) {
	v, err := e.Eval(row)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(sql.BoolValue); !ok {
		return nil, fmt.Errorf("expression: want boolean got %v", v)
	}
	return v, nil
}

func (c *Conjunction) Eval(row Row) (sql.Value, error) {
	l, err := evalBool(c.Left, row)
	if err != nil {
		return nil, err
	}
	if c.Op == AndOp && l == sql.BoolValue(false) {
		return sql.BoolValue(false), nil
	} else if c.Op == OrOp && l == sql.BoolValue(true) {
		return sql.BoolValue(true), nil
	}

	r, err := evalBool(c.Right, row)
	if err != nil {
		return nil, err
	}
	if c.Op == AndOp && r == sql.BoolValue(false) {
		return sql.BoolValue(false), nil
	} else if c.Op == OrOp && r == sql.BoolValue(true) {
		return sql.BoolValue(true), nil
	}

	if l == nil || r == nil {
		return nil, nil
	}
	return r, nil
}

func (c *Conjunction) PerformBinding(ctxs []*BindingContext) error {
	return bindChildren(ctxs, c.Left, c.Right)
}

func (c *Conjunction) Children() []Expression {
	return []Expression{c.Left, c.Right}
}

// IsTrue reports whether v is the boolean true; NULL is not true.
func IsTrue(v sql.Value) bool {
	b, ok := v.(sql.BoolValue)
	return ok && bool(b)
}

// EvalPredicate evaluates e as a filter: a NULL result does not pass.
func EvalPredicate(e Expression, row Row) (bool, error) {
	v, err := evalBool(e, row)
	if err != nil {
		return false, err
	}
	return IsTrue(v), nil
}
