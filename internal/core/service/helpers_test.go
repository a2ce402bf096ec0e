package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rl1809/uniform-inventory/internal/adapter/storage"
	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

var errConnReset = errors.New("driver: connection reset by peer")

// failingStore wraps the memory store and breaks one statement kind.
type failingStore struct {
	*storage.MemoryAdapter
	failOn string
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	return f.MemoryAdapter.WithinTx(ctx, func(tx port.Tx) error {
		return fn(&failingTx{Tx: tx, failOn: f.failOn})
	})
}

type failingTx struct {
	port.Tx
	failOn string
}

func (f *failingTx) InsertMovement(ctx context.Context, m domain.Movement) (int64, error) {
	if f.failOn == "movement" {
		return 0, errConnReset
	}
	return f.Tx.InsertMovement(ctx, m)
}

func (f *failingTx) InsertSaleLines(ctx context.Context, saleID int64, lines []domain.SaleLine) error {
	if f.failOn == "sale_lines" {
		return errConnReset
	}
	return f.Tx.InsertSaleLines(ctx, saleID, lines)
}

// Mock CacheRepository
type mockCacheRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{values: make(map[string]string)}
}

func (m *mockCacheRepo) ClaimIdempotency(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.values[key]; ok {
		return v, false, nil
	}
	m.values[key] = "pending"
	return "", true, nil
}

func (m *mockCacheRepo) CompleteIdempotency(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func seedUnit(t *testing.T, store *storage.MemoryAdapter, garment, size string, qty int, price int64) int64 {
	t.Helper()
	id, err := store.CreateUniform(context.Background(), domain.UniformUnit{
		Garment:  garment,
		Size:     size,
		Quantity: qty,
		Price:    decimal.NewFromInt(price),
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return id
}

func quantityOf(t *testing.T, store *storage.MemoryAdapter, id int64) int {
	t.Helper()
	u, ok := store.Unit(id)
	if !ok {
		t.Fatalf("unit %d missing", id)
	}
	return u.Quantity
}

func newStockService(store port.Store) *StockService {
	return NewStockService(store, NewLedger(), NewMovementRecorder(), nil, 0)
}
