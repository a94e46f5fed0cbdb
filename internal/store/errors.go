package store

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies backend failures so callers never match on provider text.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindRowLevelSecurity
	KindBucketNotFound
	KindInvalidInput
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRowLevelSecurity:
		return "row_level_security"
	case KindBucketNotFound:
		return "bucket_not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Op      string
	Table   string // table or bucket
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Table != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Table)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind, so errors.Is(err, store.ErrNotFound) works
// for any not-found error regardless of table.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Table == "" && t.Kind == e.Kind
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrRowLevelSecurity = &Error{Kind: KindRowLevelSecurity}
	ErrBucketNotFound   = &Error{Kind: KindBucketNotFound}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrUnavailable      = &Error{Kind: KindUnavailable}
)

// KindOf returns the kind of a store error, or KindUnknown.
func KindOf(err error) Kind {
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func NotFound(op, table string) error {
	return &Error{Kind: KindNotFound, Op: op, Table: table, Message: "not found"}
}

// Classify wraps a raw provider error into an *Error, guessing the kind from
// the provider's message. Errors that already carry a kind pass through.
func Classify(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return err
	}
	return &Error{Kind: KindFromMessage(err.Error()), Op: op, Table: table, Err: err}
}

// KindFromMessage recognizes the error strings the hosted backend returns.
// PostgREST formats errors as "(SQLSTATE) message"; storage returns plain text.
func KindFromMessage(msg string) Kind {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "bucket not found"):
		return KindBucketNotFound
	case strings.Contains(m, "row-level security"), strings.Contains(m, "(42501)"):
		return KindRowLevelSecurity
	case strings.Contains(m, "(23505)"), strings.Contains(m, "duplicate key"):
		return KindConflict
	case strings.Contains(m, "(pgrst116)"), strings.Contains(m, "no rows"):
		return KindNotFound
	case strings.Contains(m, "(22p02)"), strings.Contains(m, "invalid input syntax"):
		return KindInvalidInput
	case strings.Contains(m, "connection refused"), strings.Contains(m, "timeout"),
		strings.Contains(m, "no such host"), strings.Contains(m, "service unavailable"):
		return KindUnavailable
	}
	return KindUnknown
}

func invalidInput(op, table, format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Op: op, Table: table, Message: fmt.Sprintf(format, args...)}
}
