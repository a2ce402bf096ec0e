package service

import (
	"context"
	"fmt"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

type ReportService struct {
	store port.Store
}

func NewReportService(store port.Store) *ReportService {
	return &ReportService{store: store}
}

// ListMovements returns movements newest first.
func (s *ReportService) ListMovements(ctx context.Context) ([]domain.Movement, error) {
	out, err := s.store.ListMovements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return out, nil
}

// ListSales returns sales newest first with their products flattened.
func (s *ReportService) ListSales(ctx context.Context) ([]domain.SaleSummary, error) {
	out, err := s.store.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return out, nil
}

// StockValuation returns quantity x price for every unit.
func (s *ReportService) StockValuation(ctx context.Context) ([]domain.StockValue, error) {
	out, err := s.store.StockValuation(ctx)
	if err != nil {
		return nil, fmt.Errorf("stock valuation: %w", err)
	}
	return out, nil
}
