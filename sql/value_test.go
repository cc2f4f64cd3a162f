package sql_test

import (
	"testing"

	"github.com/leftmike/tilejit/sql"
)

func TestCompare(t *testing.T) {
	cases := []struct {
		v1, v2 sql.Value
		cmp    int
	}{
		{nil, nil, 0},
		{nil, sql.BoolValue(false), -1},
		{sql.BytesValue{}, nil, 1},

		{sql.BoolValue(true), sql.BoolValue(true), 0},
		{sql.BoolValue(false), sql.BoolValue(true), -1},
		{sql.BoolValue(true), sql.BoolValue(false), 1},
		{sql.BoolValue(true), sql.Int64Value(-5), -1},

		{sql.Int64Value(-5), sql.Int64Value(3), -1},
		{sql.Int64Value(1 << 62), sql.Int64Value(1<<62 + 1), -1},
		{sql.Int64Value(3), sql.Float64Value(2.5), 1},
		{sql.Float64Value(3), sql.Int64Value(3), 0},
		{sql.Float64Value(-0.5), sql.Float64Value(0.25), -1},
		{sql.Float64Value(1e20), sql.StringValue(""), -1},

		{sql.StringValue("abc"), sql.StringValue("abd"), -1},
		{sql.StringValue("abc"), sql.StringValue("abc"), 0},
		{sql.StringValue("b"), sql.StringValue("abc"), 1},
		{sql.StringValue("zzz"), sql.BytesValue{0}, -1},

		{sql.BytesValue{1, 2}, sql.BytesValue{1, 2}, 0},
		{sql.BytesValue{1, 2}, sql.BytesValue{1, 2, 0}, -1},
		{sql.BytesValue{2}, sql.BytesValue{1, 255}, 1},
	}

	for _, c := range cases {
		cmp := sql.Compare(c.v1, c.v2)
		if cmp != c.cmp {
			t.Errorf("Compare(%v, %v) got %d want %d", c.v1, c.v2, cmp, c.cmp)
		}
		cmp = sql.Compare(c.v2, c.v1)
		if cmp != -c.cmp {
			t.Errorf("Compare(%v, %v) got %d want %d", c.v2, c.v1, cmp, -c.cmp)
		}
	}
}

func TestValueCompare(t *testing.T) {
	cases := []struct {
		v1, v2 sql.Value
		cmp    int
	}{
		{sql.BoolValue(false), sql.BoolValue(false), 0},
		{sql.BoolValue(true), sql.BoolValue(true), 0},
		{sql.BoolValue(true), sql.BoolValue(false), 1},
		{sql.BoolValue(false), sql.BoolValue(true), -1},
		{sql.Int64Value(2), sql.Float64Value(2.5), -1},
		{sql.StringValue("b"), sql.StringValue("a"), 1},
	}

	for _, c := range cases {
		cmp, err := c.v1.Compare(c.v2)
		if err != nil {
			t.Errorf("%v.Compare(%v) failed with %s", c.v1, c.v2, err)
		} else if cmp != c.cmp {
			t.Errorf("%v.Compare(%v) got %d want %d", c.v1, c.v2, cmp, c.cmp)
		}
	}
}

func TestValueCompareErrors(t *testing.T) {
	cases := []struct {
		v1, v2 sql.Value
	}{
		{sql.BoolValue(true), sql.Int64Value(1)},
		{sql.Int64Value(1), sql.StringValue("1")},
		{sql.Float64Value(1), sql.BoolValue(true)},
		{sql.StringValue("a"), sql.BytesValue("a")},
		{sql.BytesValue("a"), sql.StringValue("a")},
	}

	for _, c := range cases {
		_, err := c.v1.Compare(c.v2)
		if err == nil {
			t.Errorf("%v.Compare(%v) did not fail", c.v1, c.v2)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		v sql.Value
		s string
	}{
		{nil, "NULL"},
		{sql.BoolValue(true), "true"},
		{sql.BoolValue(false), "false"},
		{sql.Int64Value(-123), "-123"},
		{sql.Float64Value(1.5), "1.5"},
		{sql.StringValue("it"), "'it'"},
		{sql.BytesValue{0x0f, 0xa0}, "'\\x0fa0'"},
	}

	for _, c := range cases {
		s := sql.Format(c.v)
		if s != c.s {
			t.Errorf("Format(%#v) got %q want %q", c.v, s, c.s)
		}
	}
}
