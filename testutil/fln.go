package testutil

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// FileLineNumber is where an entry of a table driven test was written; failures are prefixed
// with it so they point at the entry instead of the loop.
type FileLineNumber struct {
	File string
	Line int
}

func (fln FileLineNumber) String() string {
	if fln.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d: ", filepath.Base(fln.File), fln.Line)
}

func callerAt(skip int) FileLineNumber {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok || line == 0 {
		return FileLineNumber{}
	}
	return FileLineNumber{File: file, Line: line}
}

// MakeFileLineNumber returns the location of the call to the function which called it; tests
// wrap it in a one line helper.
func MakeFileLineNumber() FileLineNumber {
	return callerAt(2)
}
