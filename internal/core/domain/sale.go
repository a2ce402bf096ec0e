package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Integer digits allowed by the DECIMAL(10,2) price and DECIMAL(12,2) total columns.
const (
	PriceDigits = 8
	TotalDigits = 10
)

// FitsMoney reports whether d has at most two fractional digits and fewer
// than intDigits integer digits, so the store keeps it exactly.
func FitsMoney(d decimal.Decimal, intDigits int) bool {
	return d.Equal(d.Round(2)) && d.Abs().LessThan(decimal.New(1, int32(intDigits)))
}

type SaleLine struct {
	UnitID    int64           `json:"unit_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l SaleLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Sale struct {
	ID           int64           `json:"id"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	ActorID      int64           `json:"actor_id"`
	CreatedAt    time.Time       `json:"created_at"`
	Lines        []SaleLine      `json:"lines,omitempty"`
}

// LinesTotal sums quantity x unit price over every line.
func (s Sale) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// SaleSummary is the history view of a sale with its products flattened
// into a single "Garment (Size), ..." string.
type SaleSummary struct {
	ID           int64           `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	ActorName    string          `json:"actor_name"`
	Products     string          `json:"products"`
}
