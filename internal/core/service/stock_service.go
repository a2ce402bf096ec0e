package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

// StockService records manual stock entries and exits. Each call is one
// transaction covering the ledger change and its movement row.
type StockService struct {
	tx       txRunner
	ledger   *Ledger
	recorder *MovementRecorder
	logger   *zap.Logger
}

func NewStockService(store port.Store, ledger *Ledger, recorder *MovementRecorder, logger *zap.Logger, txTimeout time.Duration) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{
		tx:       newTxRunner(store, txTimeout, logger),
		ledger:   ledger,
		recorder: recorder,
		logger:   logger,
	}
}

// RecordEntry adds quantity to the unit and returns the resulting stock.
func (s *StockService) RecordEntry(ctx context.Context, unitID int64, quantity int, actorID int64) (int, error) {
	return s.move(ctx, domain.MovementEntry, unitID, quantity, actorID)
}

// RecordExit removes quantity from the unit. It fails with
// domain.ErrInsufficientStock, leaving nothing behind, when the unit holds less.
func (s *StockService) RecordExit(ctx context.Context, unitID int64, quantity int, actorID int64) (int, error) {
	return s.move(ctx, domain.MovementExit, unitID, quantity, actorID)
}

func (s *StockService) move(ctx context.Context, kind domain.MovementKind, unitID int64, quantity int, actorID int64) (int, error) {
	if err := validateMovement(unitID, quantity, actorID); err != nil {
		return 0, err
	}

	delta := quantity
	if kind == domain.MovementExit {
		delta = -quantity
	}

	var resulting int
	err := s.tx.run(ctx, "record "+string(kind), func(ctx context.Context, tx port.Tx) error {
		unit, err := s.ledger.Adjust(ctx, tx, unitID, delta)
		if err != nil {
			return err
		}
		if _, err := s.recorder.Record(ctx, tx, actorID, kind, unit, quantity, unit.Quantity); err != nil {
			return err
		}
		resulting = unit.Quantity
		return nil
	})
	if err != nil {
		s.logger.Info("stock movement rejected",
			zap.String("kind", string(kind)),
			zap.Int64("unit_id", unitID),
			zap.Int("quantity", quantity),
			zap.String("reason", domain.Kind(err)))
		return 0, err
	}

	s.logger.Info("stock movement recorded",
		zap.String("kind", string(kind)),
		zap.Int64("unit_id", unitID),
		zap.Int("quantity", quantity),
		zap.Int("resulting_stock", resulting),
		zap.Int64("actor_id", actorID))

	return resulting, nil
}

func validateMovement(unitID int64, quantity int, actorID int64) error {
	switch {
	case unitID <= 0:
		return fmt.Errorf("unit id is required: %w", domain.ErrValidation)
	case quantity <= 0:
		return fmt.Errorf("quantity must be a positive integer: %w", domain.ErrValidation)
	case quantity > domain.MaxQuantity:
		return fmt.Errorf("quantity cannot exceed %d: %w", domain.MaxQuantity, domain.ErrValidation)
	case actorID <= 0:
		return fmt.Errorf("actor id is required: %w", domain.ErrValidation)
	}
	return nil
}
