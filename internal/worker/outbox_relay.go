package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

type outboxStore interface {
	PendingEvents(ctx context.Context, limit int) ([]domain.Event, error)
	MarkEventsSent(ctx context.Context, ids []int64) error
}

// OutboxRelay forwards committed outbox events to the publisher. Delivery is
// at least once: a batch that was published but not marked is sent again.
type OutboxRelay struct {
	store     outboxStore
	publisher port.EventPublisher
	logger    *zap.Logger
	interval  time.Duration
	batch     int
}

func NewOutboxRelay(store outboxStore, publisher port.EventPublisher, logger *zap.Logger, interval time.Duration, batch int) *OutboxRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &OutboxRelay{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batch:     batch,
	}
}

// Start blocks until ctx is done.
func (r *OutboxRelay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", zap.Duration("interval", r.interval), zap.Int("batch", r.batch))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.Error("outbox relay failed", zap.Error(err))
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many events were marked sent.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	events, err := r.store.PendingEvents(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("load pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	if err := r.publisher.Publish(ctx, events); err != nil {
		return 0, fmt.Errorf("publish %d events: %w", len(events), err)
	}

	ids := make([]int64, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	if err := r.store.MarkEventsSent(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark %d events sent: %w", len(ids), err)
	}

	r.logger.Debug("outbox events relayed",
		zap.Int("count", len(events)),
		zap.Int64("first_id", ids[0]),
		zap.Int64("last_id", ids[len(ids)-1]))

	return len(events), nil
}
