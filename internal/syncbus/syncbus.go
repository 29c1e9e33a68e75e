// Package syncbus listens for document-update notifications so the cache
// refreshes as soon as the backend publishes new content instead of waiting
// for the next periodic sync.
package syncbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// UpdateEvent is the payload published when backend documents change.
type UpdateEvent struct {
	DocumentIDs []string  `json:"document_ids"`
	PublishedAt time.Time `json:"published_at"`
}

// SyncFunc refreshes the local cache. Errors are logged, not escalated; a
// failed sync will be retried by the next event or periodic tick.
type SyncFunc func(ctx context.Context) error

// Listener subscribes to a NATS subject and triggers a cache sync for each
// update event.
type Listener struct {
	log     *slog.Logger
	nc      *nats.Conn
	subject string
	sync    SyncFunc
}

func NewListener(log *slog.Logger, nc *nats.Conn, subject string, sync SyncFunc) *Listener {
	return &Listener{log: log, nc: nc, subject: subject, sync: sync}
}

// Listen blocks until ctx is cancelled, syncing on every received event.
// Malformed events still trigger a sync: the notification matters more than
// its payload.
func (l *Listener) Listen(ctx context.Context) error {
	sub, err := l.nc.Subscribe(l.subject, func(msg *nats.Msg) {
		l.handleMessage(ctx, msg)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (l *Listener) handleMessage(ctx context.Context, msg *nats.Msg) {
	var event UpdateEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		l.log.Warn("failed to decode update event; syncing anyway", "err", err)
	} else {
		l.log.Debug("document update received", "documents", len(event.DocumentIDs))
	}

	if err := l.sync(ctx); err != nil {
		l.log.Warn("event-triggered sync failed", "err", err)
	}
}
