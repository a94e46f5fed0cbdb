package store

import (
	"fmt"
	"strconv"
	"strings"
)

type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpILike Op = "ilike"
	OpIn    Op = "in"
)

func (o Op) Valid() bool {
	switch o {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpILike, OpIn:
		return true
	}
	return false
}

// Filter is a single column predicate. For OpIn, Value is a []string.
// OpILike uses SQL patterns with % wildcards.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

type Order struct {
	Column    string
	Ascending bool
}

// Query selects rows. Filters are ANDed. A zero Limit means no limit.
type Query struct {
	Filters []Filter
	Order   []Order
	Limit   int
}

// Where starts a query with an equality filter.
func Where(column string, value any) Query {
	return Query{Filters: []Filter{{Column: column, Op: OpEq, Value: value}}}
}

// ByID selects a single row by primary key.
func ByID(id any) Query {
	return Where("id", id)
}

func (q Query) And(column string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: op, Value: value})
	return q
}

func (q Query) Eq(column string, value any) Query {
	return q.And(column, OpEq, value)
}

func (q Query) OrderBy(column string, ascending bool) Query {
	q.Order = append(append([]Order(nil), q.Order...), Order{Column: column, Ascending: ascending})
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// ParseFilter reads the "column=op.value" syntax used by realtime
// subscriptions, e.g. "couple_id=eq.3f6c...".
func ParseFilter(expr string) (Filter, error) {
	column, rest, ok := strings.Cut(expr, "=")
	if !ok || column == "" {
		return Filter{}, fmt.Errorf("filter %q: expected column=op.value", expr)
	}
	op, value, ok := strings.Cut(rest, ".")
	if !ok || !Op(op).Valid() {
		return Filter{}, fmt.Errorf("filter %q: unknown operator", expr)
	}
	f := Filter{Column: strings.TrimSpace(column), Op: Op(op), Value: value}
	if f.Op == OpIn {
		f.Value = strings.Split(strings.Trim(value, "()"), ",")
	}
	return f, nil
}

// Matches evaluates the filter against a decoded JSON record.
func (f Filter) Matches(record map[string]any) bool {
	raw, present := record[f.Column]
	if f.Op == OpIn {
		if !present || raw == nil {
			return false
		}
		actual := stringify(raw)
		for _, candidate := range toStrings(f.Value) {
			if candidate == actual {
				return true
			}
		}
		return false
	}
	if !present || raw == nil {
		return f.Op == OpNeq && f.Value != nil
	}

	actual := stringify(raw)
	expected := stringify(f.Value)
	switch f.Op {
	case OpEq:
		return actual == expected
	case OpNeq:
		return actual != expected
	case OpILike:
		return likeMatch(strings.ToLower(actual), strings.ToLower(expected))
	case OpGt, OpGte, OpLt, OpLte:
		c := compareValues(actual, expected)
		switch f.Op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	}
	return false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = stringify(item)
		}
		return out
	default:
		return []string{stringify(t)}
	}
}

// compareValues compares numerically when both sides parse as numbers and
// lexically otherwise, which orders ISO dates correctly.
func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// likeMatch implements SQL LIKE with % only.
func likeMatch(s, pattern string) bool {
	parts := strings.Split(pattern, "%")
	if len(parts) == 1 {
		return s == pattern
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}
	return strings.HasSuffix(s, last)
}
