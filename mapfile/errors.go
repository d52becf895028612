package mapfile

import (
	"errors"
	"fmt"
)

// IOError is a read or write failure on a map file.
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("mapfile: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError is an encode or decode failure. Path is empty when the bytes did
// not come from a file.
type ParseError struct {
	Op   string // "parse" or "serialize"
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("mapfile: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("mapfile: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsIOError reports whether err is or wraps an *IOError.
func IsIOError(err error) bool {
	var e *IOError
	return errors.As(err, &e)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}
