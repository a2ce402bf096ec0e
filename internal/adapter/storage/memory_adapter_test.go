package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

func seedUnit(t *testing.T, m *MemoryAdapter, garment, size string, qty int, price string) int64 {
	t.Helper()
	id, err := m.CreateUniform(context.Background(), domain.UniformUnit{
		Garment:  garment,
		Size:     size,
		Quantity: qty,
		Price:    decimal.RequireFromString(price),
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return id
}

func TestMemoryWithinTx_RollbackRestoresEverything(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	id := seedUnit(t, m, "Shirt", "M", 10, "75")

	boom := errors.New("boom")
	err := m.WithinTx(ctx, func(tx port.Tx) error {
		if err := tx.ApplyDelta(ctx, id, -4); err != nil {
			return err
		}
		if _, err := tx.InsertMovement(ctx, domain.Movement{ActorID: 1, Kind: domain.MovementExit}); err != nil {
			return err
		}
		if _, err := tx.InsertSale(ctx, domain.Sale{CustomerName: "Ana"}); err != nil {
			return err
		}
		if err := tx.EnqueueEvent(ctx, domain.Event{EventType: domain.EventStockMoved}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	u, _ := m.Unit(id)
	if u.Quantity != 10 {
		t.Errorf("expected quantity 10 after rollback, got %d", u.Quantity)
	}
	movements, _ := m.ListMovements(ctx)
	if len(movements) != 0 {
		t.Errorf("expected no movements, got %d", len(movements))
	}
	if _, ok := m.Sale(1); ok {
		t.Error("expected sale to be rolled back")
	}
	events, _ := m.PendingEvents(ctx, 10)
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestMemoryWithinTx_CommitKeepsChanges(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	id := seedUnit(t, m, "Shirt", "M", 10, "75")

	err := m.WithinTx(ctx, func(tx port.Tx) error {
		return tx.ApplyDelta(ctx, id, 3)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, _ := m.Unit(id)
	if u.Quantity != 13 {
		t.Errorf("expected quantity 13, got %d", u.Quantity)
	}
	if u.Version != 1 {
		t.Errorf("expected version 1, got %d", u.Version)
	}
}

func TestMemoryApplyDelta_RefusesNegative(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	id := seedUnit(t, m, "Skirt", "S", 2, "40")

	err := m.WithinTx(ctx, func(tx port.Tx) error {
		return tx.ApplyDelta(ctx, id, -3)
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestMemoryLockUnit_NotFound(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()

	err := m.WithinTx(ctx, func(tx port.Tx) error {
		_, err := tx.LockUnit(ctx, 99)
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryWithinTx_CancelledContext(t *testing.T) {
	m := NewMemoryAdapter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := m.WithinTx(ctx, func(tx port.Tx) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if called {
		t.Error("expected fn not to run")
	}
}

func TestMemoryListSales_NewestFirstWithProducts(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	shirt := seedUnit(t, m, "Shirt", "M", 10, "75")
	pants := seedUnit(t, m, "Pants", "32", 10, "90")
	m.AddUser(domain.User{ID: 2, Username: "maria"})

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, lines := range [][]domain.SaleLine{
		{{UnitID: shirt, Quantity: 1, UnitPrice: decimal.NewFromInt(75)}},
		{{UnitID: shirt, Quantity: 1, UnitPrice: decimal.NewFromInt(75)}, {UnitID: pants, Quantity: 1, UnitPrice: decimal.NewFromInt(90)}},
	} {
		err := m.WithinTx(ctx, func(tx port.Tx) error {
			id, err := tx.InsertSale(ctx, domain.Sale{CustomerName: "Ana", ActorID: 2, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
			if err != nil {
				return err
			}
			return tx.InsertSaleLines(ctx, id, lines)
		})
		if err != nil {
			t.Fatalf("insert sale: %v", err)
		}
	}

	sales, err := m.ListSales(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("expected 2 sales, got %d", len(sales))
	}
	if sales[0].ID != 2 {
		t.Errorf("expected newest sale first, got %d", sales[0].ID)
	}
	if sales[0].Products != "Shirt (M), Pants (32)" {
		t.Errorf("unexpected products %q", sales[0].Products)
	}
	if sales[0].ActorName != "maria" {
		t.Errorf("expected actor maria, got %q", sales[0].ActorName)
	}
}

func TestMemoryStockValuation(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	seedUnit(t, m, "Shirt", "M", 3, "75.50")
	seedUnit(t, m, "Pants", "32", 0, "90")

	values, err := m.StockValuation(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(values))
	}
	if !values[0].TotalValue.Equal(decimal.RequireFromString("226.5")) {
		t.Errorf("expected 226.5, got %s", values[0].TotalValue)
	}
	if !values[1].TotalValue.IsZero() {
		t.Errorf("expected 0, got %s", values[1].TotalValue)
	}
}

func TestMemoryOutbox_PendingAndMarkSent(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()

	err := m.WithinTx(ctx, func(tx port.Tx) error {
		for i := 0; i < 3; i++ {
			if err := tx.EnqueueEvent(ctx, domain.Event{EventType: domain.EventStockMoved}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pending, _ := m.PendingEvents(ctx, 2)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if err := m.MarkEventsSent(ctx, []int64{pending[0].ID, pending[1].ID}); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	pending, _ = m.PendingEvents(ctx, 10)
	if len(pending) != 1 || pending[0].ID != 3 {
		t.Errorf("expected only event 3 pending, got %+v", pending)
	}
}
