package flags

import (
	"strings"

	"github.com/leftmike/tilejit/config"
)

type Flag int

const (
	HashJoinPrefetch Flag = iota
	VectorizedScan
)

const (
	DefaultVectorSize = 1024
)

type flagDefault struct {
	flag Flag
	def  bool
}

var (
	defaultFlags = map[string]flagDefault{
		"hash_join_prefetch": {HashJoinPrefetch, false},
		"vectorized_scan":    {VectorizedScan, true},
	}
)

func LookupFlag(nam string) (Flag, bool) {
	fd, ok := defaultFlags[strings.ToLower(nam)]
	return fd.flag, ok
}

func ListFlags(fn func(nam string, f Flag)) {
	for nam, fd := range defaultFlags {
		fn(nam, fd.flag)
	}
}

type Flags []bool

func (flgs Flags) GetFlag(f Flag) bool {
	return flgs[f]
}

func (flgs Flags) SetFlag(f Flag, b bool) {
	flgs[f] = b
}

func Config(cfg *config.Config) Flags {
	flgs := make([]bool, len(defaultFlags))
	for nam, fd := range defaultFlags {
		flgs[fd.flag] = fd.def
		cfg.Var(&flgs[fd.flag], nam).Hide()
	}
	return flgs
}

func Default() Flags {
	flgs := make([]bool, len(defaultFlags))
	for _, fd := range defaultFlags {
		flgs[fd.flag] = fd.def
	}
	return flgs
}

// VectorSize is the number of tuples a table scan reads per batch when VectorizedScan is set.
func VectorSize(cfg *config.Config) *int {
	return cfg.Var(new(int), "vector_size").Int(DefaultVectorSize)
}
