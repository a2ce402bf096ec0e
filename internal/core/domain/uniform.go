package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// MaxQuantity matches the INT column holding unit quantities.
const MaxQuantity = math.MaxInt32

// UniformUnit is one garment/size stock-keeping record.
type UniformUnit struct {
	ID       int64           `json:"id"`
	Garment  string          `json:"garment"`
	Size     string          `json:"size"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Version  int64           `json:"-"`
}

// CanApply reports whether delta keeps the quantity non-negative.
func (u UniformUnit) CanApply(delta int) bool {
	return u.Quantity+delta >= 0
}

// CanHold reports whether delta keeps the quantity within MaxQuantity.
func (u UniformUnit) CanHold(delta int) bool {
	return delta <= 0 || u.Quantity <= MaxQuantity-delta
}

type StockValue struct {
	Garment    string          `json:"garment"`
	Size       string          `json:"size"`
	Quantity   int             `json:"quantity"`
	TotalValue decimal.Decimal `json:"total_value"`
}
