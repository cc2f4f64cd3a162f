package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
)

type setBy int

const (
	byDefault setBy = iota
	byFlag
	byEnv
	byConfig
)

func (sb setBy) String() string {
	switch sb {
	case byDefault:
		return "default"
	case byFlag:
		return "flag"
	case byEnv:
		return "environment"
	case byConfig:
		return "config"
	}
	return fmt.Sprintf("setBy(%d)", int(sb))
}

// Config is a set of named variables which are set, in order of precedence, by command line
// flags, the environment, a config file, or their defaults.
type Config struct {
	fs   *flag.FlagSet
	vars map[string]*Variable
}

type Variable struct {
	cfg      *Config
	name     string
	ptr      interface{}
	val      value
	usage    string
	env      string
	by       setBy
	hidden   bool
	noConfig bool
}

type flagValue struct {
	v *Variable
}

func (fv flagValue) Set(s string) error {
	err := fv.v.val.Set(s)
	if err != nil {
		return err
	}
	fv.v.by = byFlag
	return nil
}

func (fv flagValue) String() string {
	if fv.v == nil {
		return ""
	}
	return fv.v.val.String()
}

func (fv flagValue) IsBoolFlag() bool {
	_, ok := fv.v.ptr.(*bool)
	return ok
}

func NewConfig(fs *flag.FlagSet) *Config {
	return &Config{
		fs:   fs,
		vars: map[string]*Variable{},
	}
}

// Var defines a variable; p must be a *bool, *int, or *string. Set the default with the
// matching Bool, Int, or String method after any of Usage, Env, Hide, or NoConfig.
func (c *Config) Var(p interface{}, name string) *Variable {
	if _, ok := c.vars[name]; ok {
		panic(fmt.Sprintf("config: variable redefined: %s", name))
	}

	var val value
	switch p := p.(type) {
	case *bool:
		val = boolVar(p)
	case *int:
		val = intVar(p)
	case *string:
		val = stringVar(p)
	default:
		panic(fmt.Sprintf("config: unexpected variable type: %T", p))
	}

	v := &Variable{
		cfg:  c,
		name: name,
		ptr:  p,
		val:  val,
	}
	c.vars[name] = v
	return v
}

// Usage makes the variable settable as a command line flag.
func (v *Variable) Usage(usage string) *Variable {
	if v.hidden {
		panic(fmt.Sprintf("config: hidden variable %s can't be a flag", v.name))
	}
	v.usage = usage
	return v
}

func (v *Variable) Env(env string) *Variable {
	v.env = env
	return v
}

// Hide keeps the variable out of the command line flags; it can still be set in a config file.
func (v *Variable) Hide() *Variable {
	if v.usage != "" {
		panic(fmt.Sprintf("config: flag variable %s can't be hidden", v.name))
	}
	v.hidden = true
	return v
}

func (v *Variable) NoConfig() *Variable {
	v.noConfig = true
	return v
}

func (v *Variable) flag() {
	if v.usage != "" {
		v.cfg.fs.Var(flagValue{v}, v.name, v.usage)
	}
}

func (v *Variable) Bool(b bool) *bool {
	p := v.ptr.(*bool)
	*p = b
	v.flag()
	return p
}

func (v *Variable) Int(i int) *int {
	p := v.ptr.(*int)
	*p = i
	v.flag()
	return p
}

func (v *Variable) String(s string) *string {
	p := v.ptr.(*string)
	*p = s
	v.flag()
	return p
}

// Env sets variables from the environment unless they were already set by a flag.
func (c *Config) Env() error {
	for _, v := range c.vars {
		if v.env == "" || v.by != byDefault {
			continue
		}
		s, ok := os.LookupEnv(v.env)
		if !ok {
			continue
		}
		err := v.val.Set(s)
		if err != nil {
			return fmt.Errorf("config: %s: %s: %w", v.name, v.env, err)
		}
		v.by = byEnv
	}
	return nil
}

// Load sets variables from an hcl config file; flags and the environment take precedence.
func (c *Config) Load(filename string) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	err = c.decode(b)
	if err != nil {
		return fmt.Errorf("config: %s: %w", filename, err)
	}
	return nil
}

// List calls fn for every variable, sorted by name.
func (c *Config) List(fn func(name, val, by string)) {
	names := make([]string, 0, len(c.vars))
	for name := range c.vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := c.vars[name]
		fn(name, v.val.String(), v.by.String())
	}
}
