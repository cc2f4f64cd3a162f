package config

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl"
)

// decode sets the variables named in an hcl document which were not already set by a flag or
// the environment. Every name must be a variable which may be set from a config file.
func (c *Config) decode(b []byte) error {
	var doc map[string]interface{}
	err := hcl.Decode(&doc, string(b))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, ok := c.vars[name]
		if !ok {
			return fmt.Errorf("%s is not a config variable", name)
		} else if v.noConfig {
			return fmt.Errorf("%s can't be set in a config file", name)
		} else if v.by != byDefault {
			continue
		}

		err = v.val.SetValue(doc[name])
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		v.by = byConfig
	}
	return nil
}
