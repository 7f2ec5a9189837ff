package ir

import (
	"fmt"
	"path/filepath"

	"tlog.app/go/loc"
)

type (
	// UnsupportedError is returned for valid input
	// that is not implemented yet.
	UnsupportedError struct {
		Feature string
		PC      loc.PC
	}
)

func Unsupported(feature string, args ...any) *UnsupportedError {
	if len(args) != 0 {
		feature = fmt.Sprintf(feature, args...)
	}

	return &UnsupportedError{
		Feature: feature,
		PC:      loc.Caller(1),
	}
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported: %s", e.Feature)
}

// Where is the place the error was raised at, for debugging the compiler.
func (e *UnsupportedError) Where() string {
	if e.PC == 0 {
		return ""
	}

	_, file, line := e.PC.NameFileLine()

	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
