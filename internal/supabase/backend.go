// Package supabase adapts the hosted backend's REST, storage and auth
// clients to the store and auth interfaces.
package supabase

import (
	"context"
	"fmt"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"organizer/internal/store"
)

// querier is the part of the supabase client the backend needs.
type querier interface {
	From(table string) *postgrest.QueryBuilder
}

// Backend implements store.Backend over PostgREST with the service role key.
type Backend struct {
	client querier
}

func NewClient(url, serviceRoleKey string) (*supa.Client, error) {
	client, err := supa.NewClient(url, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return client, nil
}

func NewBackend(client querier) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Select(ctx context.Context, table string, q store.Query) ([]byte, error) {
	if err := begin(ctx, "select", table); err != nil {
		return nil, err
	}
	filter := b.client.From(table).Select("*", "", false)
	filter, err := applyQuery(filter, q)
	if err != nil {
		return nil, classify("select", table, err)
	}
	return execute("select", table, filter)
}

func (b *Backend) Insert(ctx context.Context, table string, row any) ([]byte, error) {
	if err := begin(ctx, "insert", table); err != nil {
		return nil, err
	}
	return execute("insert", table, b.client.From(table).Insert(row, false, "", "representation", ""))
}

func (b *Backend) Update(ctx context.Context, table string, q store.Query, patch map[string]any) ([]byte, error) {
	if err := begin(ctx, "update", table); err != nil {
		return nil, err
	}
	if len(q.Filters) == 0 {
		return nil, &store.Error{Kind: store.KindInvalidInput, Op: "update", Table: table, Message: "update without filters"}
	}
	filter, err := applyQuery(b.client.From(table).Update(patch, "representation", ""), q)
	if err != nil {
		return nil, classify("update", table, err)
	}
	return execute("update", table, filter)
}

func (b *Backend) Upsert(ctx context.Context, table string, row any, onConflict string) ([]byte, error) {
	if err := begin(ctx, "upsert", table); err != nil {
		return nil, err
	}
	return execute("upsert", table, b.client.From(table).Upsert(row, onConflict, "representation", ""))
}

func (b *Backend) Delete(ctx context.Context, table string, q store.Query) ([]byte, error) {
	if err := begin(ctx, "delete", table); err != nil {
		return nil, err
	}
	if len(q.Filters) == 0 {
		return nil, &store.Error{Kind: store.KindInvalidInput, Op: "delete", Table: table, Message: "delete without filters"}
	}
	filter, err := applyQuery(b.client.From(table).Delete("representation", ""), q)
	if err != nil {
		return nil, classify("delete", table, err)
	}
	return execute("delete", table, filter)
}

// begin checks the table and the context. The REST client takes no context,
// so cancellation is only honoured before a request starts.
func begin(ctx context.Context, op, table string) error {
	if err := store.CheckTable(table); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &store.Error{Kind: store.KindUnavailable, Op: op, Table: table, Err: err}
	}
	return nil
}

func execute(op, table string, filter *postgrest.FilterBuilder) ([]byte, error) {
	data, _, err := filter.Execute()
	if err != nil {
		return nil, classify(op, table, err)
	}
	if len(data) == 0 {
		return []byte("[]"), nil
	}
	return data, nil
}

func applyQuery(filter *postgrest.FilterBuilder, q store.Query) (*postgrest.FilterBuilder, error) {
	for _, f := range q.Filters {
		switch f.Op {
		case store.OpIn:
			filter = filter.In(f.Column, inValues(f.Value))
		case store.OpILike:
			filter = filter.Ilike(f.Column, valueString(f.Value))
		case store.OpEq, store.OpNeq:
			if f.Value == nil {
				if f.Op == store.OpEq {
					filter = filter.Is(f.Column, "null")
				} else {
					filter = filter.Not(f.Column, "is", "null")
				}
				continue
			}
			if f.Op == store.OpEq {
				filter = filter.Eq(f.Column, valueString(f.Value))
			} else {
				filter = filter.Neq(f.Column, valueString(f.Value))
			}
		case store.OpGt:
			filter = filter.Gt(f.Column, valueString(f.Value))
		case store.OpGte:
			filter = filter.Gte(f.Column, valueString(f.Value))
		case store.OpLt:
			filter = filter.Lt(f.Column, valueString(f.Value))
		case store.OpLte:
			filter = filter.Lte(f.Column, valueString(f.Value))
		default:
			return nil, fmt.Errorf("unknown operator %q", f.Op)
		}
	}
	for _, o := range q.Order {
		filter = filter.Order(o.Column, &postgrest.OrderOpts{Ascending: o.Ascending})
	}
	if q.Limit > 0 {
		filter = filter.Limit(q.Limit, "")
	}
	return filter, nil
}

func valueString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func inValues(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = valueString(item)
		}
		return out
	default:
		return []string{valueString(v)}
	}
}

// classify maps PostgREST and storage failures onto store kinds. The raw
// provider text stays in the error so handlers can surface it.
func classify(op, table string, err error) error {
	return store.Classify(op, table, err)
}
