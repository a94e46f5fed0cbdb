package metrics

import (
	"context"
	"time"

	"organizer/internal/store"
)

// InstrumentedBackend is a store.Backend decorator that records operation
// counts, outcomes and latency.
type InstrumentedBackend struct {
	inner     store.Backend
	collector *Collector
}

func InstrumentBackend(inner store.Backend, collector *Collector) *InstrumentedBackend {
	return &InstrumentedBackend{inner: inner, collector: collector}
}

func (b *InstrumentedBackend) Select(ctx context.Context, table string, q store.Query) ([]byte, error) {
	defer b.observe("select", table, time.Now())
	data, err := b.inner.Select(ctx, table, q)
	b.count("select", table, err)
	return data, err
}

func (b *InstrumentedBackend) Insert(ctx context.Context, table string, row any) ([]byte, error) {
	defer b.observe("insert", table, time.Now())
	data, err := b.inner.Insert(ctx, table, row)
	b.count("insert", table, err)
	return data, err
}

func (b *InstrumentedBackend) Update(ctx context.Context, table string, q store.Query, patch map[string]any) ([]byte, error) {
	defer b.observe("update", table, time.Now())
	data, err := b.inner.Update(ctx, table, q, patch)
	b.count("update", table, err)
	return data, err
}

func (b *InstrumentedBackend) Upsert(ctx context.Context, table string, row any, onConflict string) ([]byte, error) {
	defer b.observe("upsert", table, time.Now())
	data, err := b.inner.Upsert(ctx, table, row, onConflict)
	b.count("upsert", table, err)
	return data, err
}

func (b *InstrumentedBackend) Delete(ctx context.Context, table string, q store.Query) ([]byte, error) {
	defer b.observe("delete", table, time.Now())
	data, err := b.inner.Delete(ctx, table, q)
	b.count("delete", table, err)
	return data, err
}

func (b *InstrumentedBackend) observe(op, table string, start time.Time) {
	b.collector.StoreDuration.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
}

func (b *InstrumentedBackend) count(op, table string, err error) {
	status := "ok"
	if err != nil {
		status = store.KindOf(err).String()
	}
	b.collector.StoreOperations.WithLabelValues(op, table, status).Inc()
}
