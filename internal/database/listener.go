package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"organizer/internal/store"
)

// Listener relays NOTIFY payloads from the change triggers to a publisher.
// It is used when REALTIME_SOURCE=postgres so that writes made outside this
// process still reach websocket subscribers.
type Listener struct {
	db        *DB
	publisher store.Publisher
	retry     time.Duration
}

func NewListener(db *DB, publisher store.Publisher) *Listener {
	return &Listener{db: db, publisher: publisher, retry: 2 * time.Second}
}

// Run listens until ctx is cancelled, reconnecting after failures.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.db.logger.Warn("change listener disconnected", zap.Error(err), zap.Duration("retry_in", l.retry))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retry):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangesChannel}.Sanitize()); err != nil {
		return err
	}
	l.db.logger.Info("listening for row changes", zap.String("channel", ChangesChannel))

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		event, err := parseNotification(notification.Payload)
		if err != nil {
			l.db.logger.Warn("dropping malformed change notification", zap.Error(err))
			continue
		}
		l.publisher.Publish(event)
	}
}

func parseNotification(payload string) (store.ChangeEvent, error) {
	var event store.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return event, err
	}
	if err := store.CheckTable(event.Table); err != nil {
		return event, err
	}
	return event, nil
}
