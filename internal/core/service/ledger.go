package service

import (
	"context"
	"fmt"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

// Ledger owns the authoritative quantity of every uniform unit. It only ever
// runs inside a caller's transaction.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Adjust applies delta to the unit and returns the unit as it stands after the
// change. The read is taken under a row lock so the sufficiency check sees the
// latest committed quantity.
func (l *Ledger) Adjust(ctx context.Context, tx port.Tx, unitID int64, delta int) (domain.UniformUnit, error) {
	if delta == 0 {
		return domain.UniformUnit{}, fmt.Errorf("adjust unit %d by zero: %w", unitID, domain.ErrValidation)
	}
	if delta > domain.MaxQuantity || delta < -domain.MaxQuantity {
		return domain.UniformUnit{}, fmt.Errorf("adjust unit %d by %d exceeds %d: %w", unitID, delta, domain.MaxQuantity, domain.ErrValidation)
	}

	unit, err := tx.LockUnit(ctx, unitID)
	if err != nil {
		return domain.UniformUnit{}, err
	}

	if !unit.CanHold(delta) {
		return domain.UniformUnit{}, fmt.Errorf("unit %d has %d, adding %d exceeds %d: %w",
			unitID, unit.Quantity, delta, domain.MaxQuantity, domain.ErrValidation)
	}
	if !unit.CanApply(delta) {
		return domain.UniformUnit{}, fmt.Errorf("unit %d has %d, requested %d: %w",
			unitID, unit.Quantity, -delta, domain.ErrInsufficientStock)
	}

	if err := tx.ApplyDelta(ctx, unitID, delta); err != nil {
		return domain.UniformUnit{}, err
	}

	unit.Quantity += delta
	unit.Version++
	return *unit, nil
}
