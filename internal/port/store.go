package port

import (
	"context"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
)

// Store is the transactional relational store behind the core.
type Store interface {
	// WithinTx runs fn in one transaction: commit when fn returns nil, rollback otherwise
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	ListUniforms(ctx context.Context) ([]domain.UniformUnit, error)
	CreateUniform(ctx context.Context, unit domain.UniformUnit) (int64, error)
	ListMovements(ctx context.Context) ([]domain.Movement, error)
	ListSales(ctx context.Context) ([]domain.SaleSummary, error)
	StockValuation(ctx context.Context) ([]domain.StockValue, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// PendingEvents returns unsent outbox events, oldest first
	PendingEvents(ctx context.Context, limit int) ([]domain.Event, error)
	MarkEventsSent(ctx context.Context, ids []int64) error
}

// Tx is the set of statements allowed inside one atomic unit.
type Tx interface {
	// LockUnit reads the latest committed row and holds it until the transaction ends
	LockUnit(ctx context.Context, unitID int64) (*domain.UniformUnit, error)

	// ApplyDelta changes quantity by delta, refusing to go below zero
	ApplyDelta(ctx context.Context, unitID int64, delta int) error

	InsertMovement(ctx context.Context, m domain.Movement) (int64, error)
	InsertSale(ctx context.Context, s domain.Sale) (int64, error)
	InsertSaleLines(ctx context.Context, saleID int64, lines []domain.SaleLine) error
	EnqueueEvent(ctx context.Context, ev domain.Event) error
}
