package config

import (
	"fmt"
	"strconv"
)

type value interface {
	Set(s string) error
	SetValue(v interface{}) error
	String() string
}

// scalar is a variable of type T: it is parsed from flags and the environment, and taken as is
// from a decoded config file.
type scalar[T bool | int | string] struct {
	p      *T
	parse  func(s string) (T, error)
	format func(t T) string
}

func (sv scalar[T]) Set(s string) error {
	t, err := sv.parse(s)
	if err != nil {
		return err
	}
	*sv.p = t
	return nil
}

func (sv scalar[T]) SetValue(v interface{}) error {
	t, ok := v.(T)
	if !ok {
		var zero T
		return fmt.Errorf("want %T got %v", zero, v)
	}
	*sv.p = t
	return nil
}

func (sv scalar[T]) String() string {
	if sv.p == nil {
		return ""
	}
	return sv.format(*sv.p)
}

func boolVar(p *bool) value {
	return scalar[bool]{p: p, parse: strconv.ParseBool, format: strconv.FormatBool}
}

func intVar(p *int) value {
	return scalar[int]{
		p: p,
		parse: func(s string) (int, error) {
			i, err := strconv.ParseInt(s, 0, strconv.IntSize)
			return int(i), err
		},
		format: strconv.Itoa,
	}
}

func stringVar(p *string) value {
	return scalar[string]{
		p:      p,
		parse:  func(s string) (string, error) { return s, nil },
		format: func(s string) string { return s },
	}
}
