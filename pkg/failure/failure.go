// Package failure classifies fatal conditions so the command layer can map
// each one to its own process exit status.
package failure

import (
	"errors"
	"fmt"
)

// Category identifies which step of the workflow failed.
type Category int

const (
	Unknown Category = iota
	Platform
	Network
	Parse
	Privilege
	Install
	Download
	Extract
	Placement
)

// String returns the human-readable name of the category.
func (c Category) String() string {
	switch c {
	case Platform:
		return "platform"
	case Network:
		return "network"
	case Parse:
		return "parse"
	case Privilege:
		return "privilege"
	case Install:
		return "install"
	case Download:
		return "download"
	case Extract:
		return "extract"
	case Placement:
		return "placement"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit status for the category. Every fatal
// category has its own nonzero code.
func (c Category) ExitCode() int {
	switch c {
	case Platform:
		return 2
	case Network:
		return 3
	case Parse:
		return 4
	case Privilege:
		return 5
	case Install:
		return 6
	case Download:
		return 7
	case Extract:
		return 8
	case Placement:
		return 9
	default:
		return 1
	}
}

// Error ties a category and the originating operation to an underlying cause.
type Error struct {
	Category Category
	Op       string
	Err      error
}

// New wraps err with a category and operation tag.
func New(cat Category, op string, err error) *Error {
	return &Error{Category: cat, Op: op, Err: err}
}

// Newf builds a categorized error from a format string.
func Newf(cat Category, op, format string, args ...interface{}) *Error {
	return &Error{Category: cat, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Category)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CategoryOf returns the category carried by err, or Unknown when err was
// never classified.
func CategoryOf(err error) Category {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Category
	}
	return Unknown
}
