package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"organizer/internal/store"
)

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var sqlOps = map[store.Op]string{
	store.OpEq:  "=",
	store.OpNeq: "<>",
	store.OpGt:  ">",
	store.OpGte: ">=",
	store.OpLt:  "<",
	store.OpLte: "<=",
}

func (db *DB) Select(ctx context.Context, table string, q store.Query) ([]byte, error) {
	sql, args, err := buildSelect(table, q)
	if err != nil {
		return nil, err
	}
	return db.collect(ctx, "select", table, sql, args)
}

func (db *DB) Insert(ctx context.Context, table string, row any) ([]byte, error) {
	sql, args, err := buildInsert(table, row, "")
	if err != nil {
		return nil, err
	}
	return db.collect(ctx, "insert", table, sql, args)
}

func (db *DB) Update(ctx context.Context, table string, q store.Query, patch map[string]any) ([]byte, error) {
	sql, args, err := buildUpdate(table, q, patch)
	if err != nil {
		return nil, err
	}
	return db.collect(ctx, "update", table, sql, args)
}

func (db *DB) Upsert(ctx context.Context, table string, row any, onConflict string) ([]byte, error) {
	if onConflict == "" {
		onConflict = "id"
	}
	sql, args, err := buildInsert(table, row, onConflict)
	if err != nil {
		return nil, err
	}
	return db.collect(ctx, "upsert", table, sql, args)
}

func (db *DB) Delete(ctx context.Context, table string, q store.Query) ([]byte, error) {
	sql, args, err := buildDelete(table, q)
	if err != nil {
		return nil, err
	}
	return db.collect(ctx, "delete", table, sql, args)
}

// collect runs a statement whose single output column is to_jsonb(row) and
// joins the rows into a JSON array.
func (db *DB) collect(ctx context.Context, op, table, sql string, args []any) ([]byte, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(op, table, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, classify(op, table, err)
	}
	raw := make([]json.RawMessage, len(records))
	for i, record := range records {
		raw[i] = record
	}
	return json.Marshal(raw)
}

func classify(op, table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := store.KindUnknown
		switch pgErr.Code {
		case "42501":
			kind = store.KindRowLevelSecurity
		case "23505":
			kind = store.KindConflict
		case "22P02", "23502", "23503", "23514", "42703":
			kind = store.KindInvalidInput
		}
		return &store.Error{Kind: kind, Op: op, Table: table, Message: pgErr.Message, Err: err}
	}
	if pgconn.Timeout(err) {
		return &store.Error{Kind: store.KindUnavailable, Op: op, Table: table, Err: err}
	}
	return store.Classify(op, table, err)
}

func buildSelect(table string, q store.Query) (string, []any, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return "", nil, err
	}
	where, args, err := buildWhere("select", table, q.Filters, 1)
	if err != nil {
		return "", nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT to_jsonb(r) FROM %s AS r", ident)
	b.WriteString(where)
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			if !columnPattern.MatchString(o.Column) {
				return "", nil, invalid("select", table, "invalid order column %q", o.Column)
			}
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			parts = append(parts, fmt.Sprintf("r.%s %s NULLS LAST", pgx.Identifier{o.Column}.Sanitize(), dir))
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args, nil
}

// buildInsert inserts through jsonb_populate_record so column types come
// from the table definition. A non-empty onConflict turns it into an upsert
// that overwrites every column but id and created_at.
func buildInsert(table string, row any, onConflict string) (string, []any, error) {
	op := "insert"
	if onConflict != "" {
		op = "upsert"
	}
	ident, err := tableIdent(table)
	if err != nil {
		return "", nil, err
	}
	payload, columns, err := encodeRecord(op, table, row)
	if err != nil {
		return "", nil, err
	}
	if len(columns) == 0 {
		return "", nil, invalid(op, table, "empty row")
	}
	quoted := quoteColumns(columns)

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %[1]s AS r (%[2]s) SELECT %[2]s FROM jsonb_populate_record(NULL::%[1]s, $1::jsonb)",
		ident, strings.Join(quoted, ", "))
	if onConflict != "" {
		targets := strings.Split(onConflict, ",")
		for i, target := range targets {
			target = strings.TrimSpace(target)
			if !columnPattern.MatchString(target) {
				return "", nil, invalid(op, table, "invalid conflict column %q", target)
			}
			targets[i] = pgx.Identifier{target}.Sanitize()
		}
		var sets []string
		for _, column := range columns {
			if column == "id" || column == "created_at" {
				continue
			}
			c := pgx.Identifier{column}.Sanitize()
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s)", strings.Join(targets, ", "))
		if len(sets) == 0 {
			b.WriteString(" DO NOTHING")
		} else {
			b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
		}
	}
	b.WriteString(" RETURNING to_jsonb(r)")
	return b.String(), []any{payload}, nil
}

func buildUpdate(table string, q store.Query, patch map[string]any) (string, []any, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return "", nil, err
	}
	if len(q.Filters) == 0 {
		return "", nil, invalid("update", table, "update without filters")
	}
	payload, columns, err := encodeRecord("update", table, patch)
	if err != nil {
		return "", nil, err
	}
	if len(columns) == 0 {
		return "", nil, invalid("update", table, "empty patch")
	}
	sets := make([]string, len(columns))
	for i, column := range columns {
		c := pgx.Identifier{column}.Sanitize()
		sets[i] = fmt.Sprintf("%s = p.%s", c, c)
	}
	where, args, err := buildWhere("update", table, q.Filters, 2)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("UPDATE %[1]s AS r SET %[2]s FROM jsonb_populate_record(NULL::%[1]s, $1::jsonb) AS p%[3]s RETURNING to_jsonb(r)",
		ident, strings.Join(sets, ", "), where)
	return sql, append([]any{payload}, args...), nil
}

func buildDelete(table string, q store.Query) (string, []any, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return "", nil, err
	}
	if len(q.Filters) == 0 {
		return "", nil, invalid("delete", table, "delete without filters")
	}
	where, args, err := buildWhere("delete", table, q.Filters, 1)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s AS r%s RETURNING to_jsonb(r)", ident, where), args, nil
}

// buildWhere renders filters against alias r with placeholders starting at
// $first. Values are compared as text so callers can pass any scalar.
func buildWhere(op, table string, filters []store.Filter, first int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		if !columnPattern.MatchString(f.Column) {
			return "", nil, invalid(op, table, "invalid column %q", f.Column)
		}
		column := "r." + pgx.Identifier{f.Column}.Sanitize()
		n := first + len(args)
		switch f.Op {
		case store.OpILike:
			clauses = append(clauses, fmt.Sprintf("%s::text ILIKE $%d", column, n))
			args = append(args, textValue(f.Value))
		case store.OpIn:
			clauses = append(clauses, fmt.Sprintf("%s::text = ANY($%d::text[])", column, n))
			args = append(args, textValues(f.Value))
		default:
			sqlOp, ok := sqlOps[f.Op]
			if !ok {
				return "", nil, invalid(op, table, "unknown operator %q", f.Op)
			}
			if f.Value == nil {
				if f.Op == store.OpNeq {
					clauses = append(clauses, column+" IS NOT NULL")
				} else {
					clauses = append(clauses, column+" IS NULL")
				}
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s %s $%d", column, sqlOp, n))
			args = append(args, textValue(f.Value))
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func tableIdent(table string) (string, error) {
	if err := store.CheckTable(table); err != nil {
		return "", err
	}
	return pgx.Identifier{table}.Sanitize(), nil
}

// encodeRecord marshals v into a JSON object and returns it with its sorted
// column names.
func encodeRecord(op, table string, v any) (string, []string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", nil, invalid(op, table, "encode row: %v", err)
	}
	var record map[string]json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil {
		return "", nil, invalid(op, table, "row must be a JSON object")
	}
	columns := make([]string, 0, len(record))
	for column := range record {
		if !columnPattern.MatchString(column) {
			return "", nil, invalid(op, table, "invalid column %q", column)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return string(data), columns, nil
}

func quoteColumns(columns []string) []string {
	out := make([]string, len(columns))
	for i, column := range columns {
		out[i] = pgx.Identifier{column}.Sanitize()
	}
	return out
}

// textValue sends scalars in text format so Postgres casts them to the
// column type.
func textValue(v any) any {
	switch t := v.(type) {
	case string, bool, int, int64, float64:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func textValues(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = fmt.Sprint(textValue(item))
		}
		return out
	default:
		return []string{fmt.Sprint(textValue(t))}
	}
}

func invalid(op, table, format string, args ...any) error {
	return &store.Error{Kind: store.KindInvalidInput, Op: op, Table: table, Message: fmt.Sprintf(format, args...)}
}
