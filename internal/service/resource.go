package service

import (
	"context"

	"github.com/google/uuid"

	"organizer/internal/models"
	"organizer/internal/store"
)

// Resource is CRUD over one table. Rows of couple-scoped types are only
// visible to and writable by their couple; other types are global.
type Resource[T any, PT interface {
	*T
	models.Record
}] struct {
	table   *store.Table[T]
	orderBy string
	scoped  bool
}

// NewResource lists rows newest first by orderBy, usually created_at.
func NewResource[T any, PT interface {
	*T
	models.Record
}](backend store.Backend, table, orderBy string) *Resource[T, PT] {
	_, scoped := any(PT(new(T))).(models.CoupleRecord)
	return &Resource[T, PT]{
		table:   store.NewTable[T](backend, table),
		orderBy: orderBy,
		scoped:  scoped,
	}
}

func (r *Resource[T, PT]) Name() string { return r.table.Name() }

func (r *Resource[T, PT]) Table() *store.Table[T] { return r.table }

func (r *Resource[T, PT]) scope(actor Actor, q store.Query) store.Query {
	if r.scoped {
		return q.Eq("couple_id", actor.CoupleID)
	}
	return q
}

func (r *Resource[T, PT]) List(ctx context.Context, actor Actor) ([]T, error) {
	q := r.scope(actor, store.Query{})
	if r.orderBy != "" {
		q = q.OrderBy(r.orderBy, false)
	}
	rows, err := r.table.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

func (r *Resource[T, PT]) Get(ctx context.Context, actor Actor, id uuid.UUID) (T, error) {
	return r.table.First(ctx, r.scope(actor, store.ByID(id)))
}

// Create stamps the row with the caller's couple and owner, validates it and
// inserts it. Client-supplied ids are discarded.
func (r *Resource[T, PT]) Create(ctx context.Context, actor Actor, row T) (T, error) {
	p := PT(&row)
	*p.GetBase() = models.Base{}
	r.stamp(actor, p)
	if err := Validate(r.table.Name(), row); err != nil {
		var zero T
		return zero, err
	}
	return r.table.Insert(ctx, &row)
}

func (r *Resource[T, PT]) stamp(actor Actor, p PT) {
	if scoped, ok := any(p).(models.CoupleRecord); ok {
		scoped.SetCoupleID(actor.CoupleID)
	}
	if owned, ok := any(p).(models.Owned); ok {
		owned.SetOwner(actor.UserID)
	}
}

// Replace overwrites every editable column of row id with row.
func (r *Resource[T, PT]) Replace(ctx context.Context, actor Actor, id uuid.UUID, row T) (T, error) {
	existing, err := r.Get(ctx, actor, id)
	if err != nil {
		var zero T
		return zero, err
	}
	p := PT(&row)
	*p.GetBase() = *PT(&existing).GetBase()
	r.stamp(actor, p)
	if err := Validate(r.table.Name(), row); err != nil {
		var zero T
		return zero, err
	}
	patch, err := store.ToPatch(row)
	if err != nil {
		var zero T
		return zero, err
	}
	delete(patch, "id")
	delete(patch, "created_at")
	return r.table.UpdateWhere(ctx, r.scope(actor, store.ByID(id)), patch)
}

// Patch writes the given columns of row id.
func (r *Resource[T, PT]) Patch(ctx context.Context, actor Actor, id uuid.UUID, columns map[string]any) (T, error) {
	patch, err := store.ToPatch(columns)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.table.UpdateWhere(ctx, r.scope(actor, store.ByID(id)), patch)
}

func (r *Resource[T, PT]) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	return r.table.DeleteWhere(ctx, r.scope(actor, store.ByID(id)))
}
