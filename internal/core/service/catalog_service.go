package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

// CatalogService lists and creates uniform units. Quantities of existing
// units are never touched here; only the ledger changes them.
type CatalogService struct {
	store port.Store
}

func NewCatalogService(store port.Store) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) ListUniforms(ctx context.Context) ([]domain.UniformUnit, error) {
	units, err := s.store.ListUniforms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uniforms: %w", err)
	}
	return units, nil
}

func (s *CatalogService) CreateUniform(ctx context.Context, unit domain.UniformUnit) (int64, error) {
	unit.Garment = strings.TrimSpace(unit.Garment)
	unit.Size = strings.TrimSpace(unit.Size)

	switch {
	case unit.Garment == "" || unit.Size == "":
		return 0, fmt.Errorf("garment and size are required: %w", domain.ErrValidation)
	case unit.Quantity < 0:
		return 0, fmt.Errorf("quantity cannot be negative: %w", domain.ErrValidation)
	case unit.Quantity > domain.MaxQuantity:
		return 0, fmt.Errorf("quantity cannot exceed %d: %w", domain.MaxQuantity, domain.ErrValidation)
	case !unit.Price.IsPositive():
		return 0, fmt.Errorf("price must be positive: %w", domain.ErrValidation)
	case !domain.FitsMoney(unit.Price, domain.PriceDigits):
		return 0, fmt.Errorf("price %s needs at most 2 decimals and %d integer digits: %w", unit.Price, domain.PriceDigits, domain.ErrValidation)
	}

	id, err := s.store.CreateUniform(ctx, unit)
	if err != nil {
		return 0, fmt.Errorf("create uniform: %w", err)
	}
	return id, nil
}
