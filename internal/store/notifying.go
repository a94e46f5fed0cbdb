package store

import (
	"context"

	"go.uber.org/zap"
)

// Notifying decorates a Backend and publishes one ChangeEvent per row
// written through it.
type Notifying struct {
	Backend
	publisher Publisher
	logger    *zap.Logger
}

func NewNotifying(backend Backend, publisher Publisher, logger *zap.Logger) *Notifying {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifying{Backend: backend, publisher: publisher, logger: logger}
}

func (n *Notifying) Insert(ctx context.Context, table string, row any) ([]byte, error) {
	data, err := n.Backend.Insert(ctx, table, row)
	if err == nil {
		n.publish(table, ChangeInsert, data)
	}
	return data, err
}

func (n *Notifying) Update(ctx context.Context, table string, q Query, patch map[string]any) ([]byte, error) {
	data, err := n.Backend.Update(ctx, table, q, patch)
	if err == nil {
		n.publish(table, ChangeUpdate, data)
	}
	return data, err
}

// Upsert reports UPDATE because the backends cannot tell which branch ran.
func (n *Notifying) Upsert(ctx context.Context, table string, row any, onConflict string) ([]byte, error) {
	data, err := n.Backend.Upsert(ctx, table, row, onConflict)
	if err == nil {
		n.publish(table, ChangeUpdate, data)
	}
	return data, err
}

func (n *Notifying) Delete(ctx context.Context, table string, q Query) ([]byte, error) {
	data, err := n.Backend.Delete(ctx, table, q)
	if err == nil {
		n.publish(table, ChangeDelete, data)
	}
	return data, err
}

func (n *Notifying) publish(table string, kind ChangeType, data []byte) {
	rows, err := splitRows(data)
	if err != nil {
		n.logger.Warn("skipping change notification", zap.String("table", table), zap.Error(err))
		return
	}
	for _, row := range rows {
		n.publisher.Publish(ChangeEvent{Table: table, Type: kind, Record: row})
	}
}
