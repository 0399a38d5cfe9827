package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package matches exactly one of
// these through errors.Is.
var (
	ErrFileNotFound         = errors.New("file not found")
	ErrEmptyInput           = errors.New("empty input")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrDateParse            = errors.New("date parse error")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrMissingColumn        = errors.New("missing column")
)

// Error carries the context of a failed stage: which column, row and value
// caused it.
type Error struct {
	Kind   error
	Stage  string
	Column string
	Row    int // 0-based record index, -1 when not row specific
	Value  interface{}
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(e.Stage)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Column != "" {
		fmt.Fprintf(&b, " (column %q", e.Column)
		if e.Row >= 0 {
			fmt.Fprintf(&b, ", row %d", e.Row)
		}
		if e.Value != nil {
			fmt.Fprintf(&b, ", value %q", fmt.Sprint(e.Value))
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, stage, column string, row int, value interface{}, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Column: column, Row: row, Value: value, Err: err}
}

func missingColumn(stage, column string) *Error {
	return newError(ErrMissingColumn, stage, column, -1, nil, nil)
}

func unsupported(stage, format string, args ...interface{}) *Error {
	return newError(ErrUnsupportedOperation, stage, "", -1, nil, fmt.Errorf(format, args...))
}

// Kind returns the kind sentinel of err, or nil when err did not come from
// this package.
func Kind(err error) error {
	for _, k := range []error{
		ErrFileNotFound, ErrEmptyInput, ErrTypeMismatch,
		ErrDateParse, ErrUnsupportedOperation, ErrMissingColumn,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName is a short label for metrics and logs.
func KindName(err error) string {
	switch Kind(err) {
	case ErrFileNotFound:
		return "file_not_found"
	case ErrEmptyInput:
		return "empty_input"
	case ErrTypeMismatch:
		return "type_mismatch"
	case ErrDateParse:
		return "date_parse"
	case ErrUnsupportedOperation:
		return "unsupported_operation"
	case ErrMissingColumn:
		return "missing_column"
	}
	return "other"
}
