package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type preparer interface {
	Prepare(now time.Time)
}

// Table is a typed view over a Backend table. T must round-trip through
// encoding/json with json tags equal to the column names.
type Table[T any] struct {
	backend Backend
	name    string
	now     func() time.Time
}

func NewTable[T any](backend Backend, name string) *Table[T] {
	return &Table[T]{backend: backend, name: name, now: time.Now}
}

func (t *Table[T]) Name() string { return t.name }

func (t *Table[T]) List(ctx context.Context, q Query) ([]T, error) {
	data, err := t.backend.Select(ctx, t.name, q)
	if err != nil {
		return nil, err
	}
	return t.decode("select", data)
}

func (t *Table[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	rows, err := t.List(ctx, ByID(id).WithLimit(1))
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, NotFound("get", t.name)
	}
	return rows[0], nil
}

// First returns the first row matching q.
func (t *Table[T]) First(ctx context.Context, q Query) (T, error) {
	var zero T
	rows, err := t.List(ctx, q.WithLimit(1))
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, NotFound("select", t.name)
	}
	return rows[0], nil
}

// Insert assigns id and created_at when the row type supports it and
// returns the stored row.
func (t *Table[T]) Insert(ctx context.Context, row *T) (T, error) {
	if p, ok := any(row).(preparer); ok {
		p.Prepare(t.now())
	}
	data, err := t.backend.Insert(ctx, t.name, row)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.single("insert", data)
}

// Update applies a column patch to one row.
func (t *Table[T]) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (T, error) {
	return t.UpdateWhere(ctx, ByID(id), patch)
}

// UpdateWhere applies a column patch to the rows matched by q and returns
// the first of them. It fails with NotFound when nothing matched.
func (t *Table[T]) UpdateWhere(ctx context.Context, q Query, patch map[string]any) (T, error) {
	data, err := t.backend.Update(ctx, t.name, q, patch)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.single("update", data)
}

// Save writes every column of row except its primary key back to row id.
// Used for read-modify-write of array columns.
func (t *Table[T]) Save(ctx context.Context, id uuid.UUID, row T) (T, error) {
	patch, err := ToPatch(row)
	if err != nil {
		var zero T
		return zero, err
	}
	delete(patch, "id")
	delete(patch, "created_at")
	return t.Update(ctx, id, patch)
}

func (t *Table[T]) Upsert(ctx context.Context, row *T, onConflict string) (T, error) {
	if p, ok := any(row).(preparer); ok {
		p.Prepare(t.now())
	}
	data, err := t.backend.Upsert(ctx, t.name, row, onConflict)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.single("upsert", data)
}

func (t *Table[T]) Delete(ctx context.Context, q Query) ([]T, error) {
	data, err := t.backend.Delete(ctx, t.name, q)
	if err != nil {
		return nil, err
	}
	return t.decode("delete", data)
}

// DeleteWhere removes the rows matched by q and fails with NotFound when
// nothing matched.
func (t *Table[T]) DeleteWhere(ctx context.Context, q Query) error {
	rows, err := t.Delete(ctx, q)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return NotFound("delete", t.name)
	}
	return nil
}

func (t *Table[T]) decode(op string, data []byte) ([]T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &Error{Kind: KindUnknown, Op: op, Table: t.name, Message: fmt.Sprintf("decode rows: %v", err), Err: err}
	}
	return rows, nil
}

func (t *Table[T]) single(op string, data []byte) (T, error) {
	var zero T
	rows, err := t.decode(op, data)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, NotFound(op, t.name)
	}
	return rows[0], nil
}

// ToPatch converts a struct into a column map via its json tags.
func ToPatch(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	var patch map[string]any
	if err := json.Unmarshal(data, &patch); err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	return patch, nil
}
