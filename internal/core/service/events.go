package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
)

func newEvent(eventType string, aggregateID int64, payload any, at time.Time) (domain.Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return domain.Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return domain.Event{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   at.UTC(),
		AggregateID:  aggregateID,
		Payload:      b,
	}, nil
}
