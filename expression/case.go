package expression

import (
	"fmt"
	"strings"

	"github.com/leftmike/tilejit/sql"
)

type WhenClause struct {
	When Expression
	Then Expression
}

// Case returns the result of the first clause whose condition is true, otherwise the result of
// Default, or NULL if there is no Default.
type Case struct {
	Clauses []WhenClause
	Default Expression
}

func NewCase(clauses []WhenClause, def Expression) *Case {
	return &Case{Clauses: clauses, Default: def}
}

func (c *Case) String() string {
	var buf strings.Builder
	buf.WriteString("CASE")
	for _, wc := range c.Clauses {
		fmt.Fprintf(&buf, " WHEN %s THEN %s", wc.When, wc.Then)
	}
	if c.Default != nil {
		fmt.Fprintf(&buf, " ELSE %s", c.Default)
	}
	buf.WriteString(" END")
	return buf.String()
}

func (c *Case) ResultType() sql.DataType {
	for _, wc := range c.Clauses {
		if dt := wc.Then.ResultType(); dt != sql.UnknownType {
			return dt
		}
	}
	if c.Default != nil {
		return c.Default.ResultType()
	}
	return sql.UnknownType
}

func (c *Case) Eval(row Row) (sql.Value, error) {
	for _, wc := range c.Clauses {
		v, err := evalBool(wc.When, row)
		if err != nil {
			return nil, err
		}
		if IsTrue(v) {
			return wc.Then.Eval(row)
		}
	}

	if c.Default == nil {
		return nil, nil
	}
	return c.Default.Eval(row)
}

func (c *Case) PerformBinding(ctxs []*BindingContext) error {
	for _, wc := range c.Clauses {
		err := bindChildren(ctxs, wc.When, wc.Then)
		if err != nil {
			return err
		}
	}
	return bindChildren(ctxs, c.Default)
}

func (c *Case) Children() []Expression {
	children := make([]Expression, 0, len(c.Clauses)*2+1)
	for _, wc := range c.Clauses {
		children = append(children, wc.When, wc.Then)
	}
	if c.Default != nil {
		children = append(children, c.Default)
	}
	return children
}
