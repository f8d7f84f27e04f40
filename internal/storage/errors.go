package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a persistence failure so callers can decide whether to
// continue or abort.
type Kind int

const (
	// SchemaError means a table could not be created.
	SchemaError Kind = iota + 1
	// RowRejected means a single row could not be stored. The run can continue.
	RowRejected
	// IOError means the store itself is unusable.
	IOError
)

func (k Kind) String() string {
	switch k {
	case SchemaError:
		return "SchemaError"
	case RowRejected:
		return "RowRejected"
	case IOError:
		return "IOError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the failure outcome of a persistence operation.
type Error struct {
	Kind      Kind
	Table     string
	Key       string   // Primary key of the offending row, if any
	Statement string   // Attempted statement (SchemaError)
	Types     []string // Column types of the table (SchemaError)
	Err       error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Table != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Table)
	}
	if e.Key != "" {
		fmt.Fprintf(&sb, " [%s]", e.Key)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if e.Statement != "" {
		fmt.Fprintf(&sb, " (statement: %s; types: %s)", e.Statement, strings.Join(e.Types, ", "))
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a storage Error of kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

// KeyOf returns the row key carried by a storage Error, or "".
func KeyOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Key
	}
	return ""
}
