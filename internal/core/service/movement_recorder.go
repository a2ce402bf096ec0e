package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

// MovementRecorder appends the audit row for a stock change. The numbers it
// receives were already validated by the ledger, so it only checks presence.
type MovementRecorder struct {
	now func() time.Time
}

func NewMovementRecorder() *MovementRecorder {
	return &MovementRecorder{now: time.Now}
}

func (r *MovementRecorder) Record(
	ctx context.Context,
	tx port.Tx,
	actorID int64,
	kind domain.MovementKind,
	unit domain.UniformUnit,
	quantity int,
	resultingStock int,
) (domain.Movement, error) {
	switch {
	case actorID <= 0:
		return domain.Movement{}, fmt.Errorf("movement actor is required: %w", domain.ErrValidation)
	case !kind.Valid():
		return domain.Movement{}, fmt.Errorf("movement kind %q: %w", kind, domain.ErrValidation)
	case unit.ID <= 0 || unit.Garment == "":
		return domain.Movement{}, fmt.Errorf("movement unit is required: %w", domain.ErrValidation)
	case quantity <= 0:
		return domain.Movement{}, fmt.Errorf("movement quantity must be positive: %w", domain.ErrValidation)
	}

	m := domain.Movement{
		ActorID:        actorID,
		Kind:           kind,
		Garment:        unit.Garment,
		Size:           unit.Size,
		Quantity:       quantity,
		ResultingStock: resultingStock,
		CreatedAt:      r.now(),
	}

	id, err := tx.InsertMovement(ctx, m)
	if err != nil {
		return domain.Movement{}, fmt.Errorf("insert movement: %w", err)
	}
	m.ID = id

	ev, err := newEvent(domain.EventStockMoved, unit.ID, domain.StockMovedPayload{
		UnitID:         unit.ID,
		ActorID:        actorID,
		Kind:           kind,
		Quantity:       quantity,
		ResultingStock: resultingStock,
	}, m.CreatedAt)
	if err != nil {
		return domain.Movement{}, err
	}
	if err := tx.EnqueueEvent(ctx, ev); err != nil {
		return domain.Movement{}, fmt.Errorf("enqueue movement event: %w", err)
	}

	return m, nil
}
