package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/uniform-inventory/internal/adapter/storage"
	"github.com/rl1809/uniform-inventory/internal/config"
	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/core/service"
	"github.com/rl1809/uniform-inventory/internal/port"
)

const (
	initialStock  = 20
	totalRequests = 50
	actorID       = 1
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	var store port.Store
	var unitQuantity func(id int64) int
	if cfg.StoreDriver == config.StoreMemory {
		mem := storage.NewMemoryAdapter()
		store = mem
		unitQuantity = func(id int64) int {
			u, _ := mem.Unit(id)
			return u.Quantity
		}
	} else {
		db, err := storage.OpenMySQL(ctx, cfg.MySQLDSN, cfg.DBMaxOpenConns)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		defer db.Close()
		store = storage.NewMySQLAdapter(db)
		unitQuantity = func(id int64) int {
			var q int
			_ = db.QueryRowContext(ctx, "SELECT quantity FROM uniforms WHERE id = ?", id).Scan(&q)
			return q
		}
	}

	// Fresh unit per run
	unitID, err := store.CreateUniform(ctx, domain.UniformUnit{
		Garment:  fmt.Sprintf("stress-%d", time.Now().UnixNano()),
		Size:     "M",
		Quantity: initialStock,
		Price:    decimal.NewFromInt(10),
	})
	if err != nil {
		log.Fatalf("failed to create unit: %v", err)
	}

	stock := service.NewStockService(store, service.NewLedger(), service.NewMovementRecorder(), nil, cfg.TxTimeout)

	// Counters
	var successCount atomic.Int32
	var insufficientCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent exits
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := stock.RecordExit(ctx, unitID, 1, actorID)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficientCount.Add(1)
			default:
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	insufficient := insufficientCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Store:            %s\n", cfg.StoreDriver)
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Insufficient:     %d\n", insufficient)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == int32(initialStock) && insufficient == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d exits succeeded, %d were refused\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d insufficient, got %d/%d (%d failed)\n",
			initialStock, totalRequests-initialStock, success, insufficient, fail)
	}

	finalStock := unitQuantity(unitID)
	fmt.Printf("Final Stock: %d\n", finalStock)

	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}
}
