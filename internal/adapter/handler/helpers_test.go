package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/uniform-inventory/internal/adapter/storage"
	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/core/service"
)

type fixture struct {
	store   *storage.MemoryAdapter
	svc     Services
	actorID int64
	token   string
	unitID  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secreto"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	store := storage.NewMemoryAdapter()
	actorID := store.AddUser(domain.User{Username: "maria", PasswordHash: string(hash), Role: "admin"})
	unitID, err := store.CreateUniform(context.Background(), domain.UniformUnit{
		Garment: "Shirt", Size: "M", Quantity: 3, Price: decimal.NewFromInt(75),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	ledger := service.NewLedger()
	auth := service.NewAuthService(store, "test-secret", time.Hour)
	svc := Services{
		Auth:    auth,
		Catalog: service.NewCatalogService(store),
		Stock:   service.NewStockService(store, ledger, service.NewMovementRecorder(), nil, 0),
		Sales:   service.NewSaleCoordinator(store, ledger, nil, nil, 0),
		Reports: service.NewReportService(store),
	}

	token, err := auth.Issue(domain.Claims{ActorID: actorID, Username: "maria", Role: "admin"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	return &fixture{store: store, svc: svc, actorID: actorID, token: token, unitID: unitID}
}

func (f *fixture) quantity(t *testing.T) int {
	t.Helper()
	u, ok := f.store.Unit(f.unitID)
	if !ok {
		t.Fatal("unit missing")
	}
	return u.Quantity
}

// Mock CacheRepository
type mockCacheRepo struct {
	mu     sync.Mutex
	values map[string]string
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

func newSalesWithCache(f *fixture) *service.SaleCoordinator {
	return service.NewSaleCoordinator(f.store, service.NewLedger(), &mockCacheRepo{values: map[string]string{}}, nil, 0)
}
