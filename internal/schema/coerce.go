package schema

import (
	"fmt"
	"strconv"
	"time"
)

// DateTimeLayout is the text layout used for DATETIME columns.
const DateTimeLayout = "2006-01-02 15:04:05"

// Coerce converts a Go value into the SQLite value stored for column c.
//
// Integer columns store 0 for nil or empty input. Boolean columns store 1 only
// for the literal "TRUE" (or a true bool). Everything else passes through,
// with nil pointers becoming NULL.
func Coerce(c Column, value any) (any, error) {
	switch c.Type {
	case Integer:
		return coerceInteger(c.Name, value)
	case Boolean:
		switch v := value.(type) {
		case string:
			if v == "TRUE" {
				return 1, nil
			}
		case bool:
			if v {
				return 1, nil
			}
		}
		return 0, nil
	case DateTime:
		switch v := value.(type) {
		case time.Time:
			return v.Format(DateTimeLayout), nil
		case *time.Time:
			if v == nil {
				return nil, nil
			}
			return v.Format(DateTimeLayout), nil
		}
	}

	if s, ok := value.(*string); ok {
		if s == nil {
			return nil, nil
		}
		return *s, nil
	}
	return value, nil
}

func coerceInteger(name string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return int64(0), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		if v == "" {
			return int64(0), nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %q is not an integer", name, v)
		}
		return n, nil
	case *string:
		if v == nil {
			return int64(0), nil
		}
		return coerceInteger(name, *v)
	default:
		return nil, fmt.Errorf("column %s: cannot store %T as integer", name, value)
	}
}

// Values coerces a row given in column order.
func (t Table) Values(row []any) ([]any, error) {
	if len(row) != len(t.Columns) {
		return nil, fmt.Errorf("table %s: got %d values for %d columns", t.Name, len(row), len(t.Columns))
	}
	values := make([]any, len(row))
	for i, c := range t.Columns {
		v, err := Coerce(c, row[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
