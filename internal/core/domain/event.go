package domain

import (
	"encoding/json"
	"time"
)

const (
	EventStockMoved     = "stock.moved"
	EventSaleRegistered = "sale.registered"
)

// Event is the outbox envelope written in the same transaction as the change it describes.
type Event struct {
	ID           int64           `json:"-"`
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	AggregateID  int64           `json:"aggregate_id"`
	Payload      json.RawMessage `json:"payload"`
}

type StockMovedPayload struct {
	UnitID         int64        `json:"unit_id"`
	ActorID        int64        `json:"actor_id"`
	Kind           MovementKind `json:"kind"`
	Quantity       int          `json:"quantity"`
	ResultingStock int          `json:"resulting_stock"`
}

type SaleRegisteredPayload struct {
	SaleID       int64      `json:"sale_id"`
	CustomerName string     `json:"customer_name"`
	ActorID      int64      `json:"actor_id"`
	Total        string     `json:"total"`
	Lines        []SaleLine `json:"lines"`
}
