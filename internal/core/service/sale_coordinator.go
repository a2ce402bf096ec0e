package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

const idempotencyKeyFormat = "idem:sale:%d:%s"

type SaleRequest struct {
	CustomerName   string
	ActorID        int64
	Total          decimal.Decimal
	Lines          []domain.SaleLine
	IdempotencyKey string
}

// Validate rejects malformed sales before any transaction opens. Empty sales
// and totals that disagree with the line subtotals are refused.
func (r SaleRequest) Validate() error {
	if strings.TrimSpace(r.CustomerName) == "" {
		return fmt.Errorf("customer name is required: %w", domain.ErrValidation)
	}
	if r.ActorID <= 0 {
		return fmt.Errorf("actor id is required: %w", domain.ErrValidation)
	}
	if len(r.Lines) == 0 {
		return fmt.Errorf("a sale needs at least one line: %w", domain.ErrValidation)
	}
	for i, l := range r.Lines {
		switch {
		case l.UnitID <= 0:
			return fmt.Errorf("line %d: unit id is required: %w", i+1, domain.ErrValidation)
		case l.Quantity <= 0:
			return fmt.Errorf("line %d: quantity must be positive: %w", i+1, domain.ErrValidation)
		case l.Quantity > domain.MaxQuantity:
			return fmt.Errorf("line %d: quantity cannot exceed %d: %w", i+1, domain.MaxQuantity, domain.ErrValidation)
		case l.UnitPrice.IsNegative():
			return fmt.Errorf("line %d: unit price cannot be negative: %w", i+1, domain.ErrValidation)
		case !domain.FitsMoney(l.UnitPrice, domain.PriceDigits):
			return fmt.Errorf("line %d: unit price %s needs at most 2 decimals and %d integer digits: %w",
				i+1, l.UnitPrice, domain.PriceDigits, domain.ErrValidation)
		}
	}
	if !domain.FitsMoney(r.Total, domain.TotalDigits) {
		return fmt.Errorf("total %s needs at most 2 decimals and %d integer digits: %w", r.Total, domain.TotalDigits, domain.ErrValidation)
	}
	if sum := (domain.Sale{Lines: r.Lines}).LinesTotal(); !sum.Equal(r.Total) {
		return fmt.Errorf("total %s does not match lines %s: %w", r.Total, sum, domain.ErrValidation)
	}
	return nil
}

// SaleCoordinator registers multi-line sales as one atomic unit: every line's
// stock decrement, the header and the lines commit together or not at all.
type SaleCoordinator struct {
	tx     txRunner
	ledger *Ledger
	cache  port.CacheRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewSaleCoordinator builds the coordinator. cache may be nil, which turns off
// idempotency keys.
func NewSaleCoordinator(store port.Store, ledger *Ledger, cache port.CacheRepository, logger *zap.Logger, txTimeout time.Duration) *SaleCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleCoordinator{
		tx:     newTxRunner(store, txTimeout, logger),
		ledger: ledger,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterSale returns the new sale id. A replayed idempotency key returns
// domain.ErrDuplicateRequest together with the id of the original sale, or 0
// while that sale is still in flight.
func (c *SaleCoordinator) RegisterSale(ctx context.Context, req SaleRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	if req.IdempotencyKey == "" || c.cache == nil {
		return c.register(ctx, req)
	}

	key := fmt.Sprintf(idempotencyKeyFormat, req.ActorID, req.IdempotencyKey)
	existing, claimed, err := c.cache.ClaimIdempotency(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !claimed {
		saleID, _ := strconv.ParseInt(existing, 10, 64)
		return saleID, domain.ErrDuplicateRequest
	}

	saleID, err := c.register(ctx, req)
	if err != nil {
		if relErr := c.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); relErr != nil {
			c.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return 0, err
	}

	if err := c.cache.CompleteIdempotency(context.WithoutCancel(ctx), key, strconv.FormatInt(saleID, 10)); err != nil {
		c.logger.Warn("failed to store idempotency result", zap.String("key", key), zap.Error(err))
	}
	return saleID, nil
}

func (c *SaleCoordinator) register(ctx context.Context, req SaleRequest) (int64, error) {
	sale := domain.Sale{
		CustomerName: strings.TrimSpace(req.CustomerName),
		Total:        req.Total,
		ActorID:      req.ActorID,
		CreatedAt:    c.now(),
		Lines:        req.Lines,
	}

	var saleID int64
	err := c.tx.run(ctx, "register sale", func(ctx context.Context, tx port.Tx) error {
		for i, line := range sale.Lines {
			if _, err := c.ledger.Adjust(ctx, tx, line.UnitID, -line.Quantity); err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
		}

		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		if err := tx.InsertSaleLines(ctx, id, sale.Lines); err != nil {
			return fmt.Errorf("insert sale lines: %w", err)
		}

		ev, err := newEvent(domain.EventSaleRegistered, id, domain.SaleRegisteredPayload{
			SaleID:       id,
			CustomerName: sale.CustomerName,
			ActorID:      sale.ActorID,
			Total:        sale.Total.String(),
			Lines:        sale.Lines,
		}, sale.CreatedAt)
		if err != nil {
			return err
		}
		if err := tx.EnqueueEvent(ctx, ev); err != nil {
			return fmt.Errorf("enqueue sale event: %w", err)
		}

		saleID = id
		return nil
	})
	if err != nil {
		c.logger.Info("sale rejected",
			zap.String("customer", sale.CustomerName),
			zap.Int("lines", len(sale.Lines)),
			zap.String("reason", domain.Kind(err)))
		return 0, err
	}

	c.logger.Info("sale registered",
		zap.Int64("sale_id", saleID),
		zap.String("total", sale.Total.String()),
		zap.Int("lines", len(sale.Lines)),
		zap.Int64("actor_id", sale.ActorID))

	return saleID, nil
}
