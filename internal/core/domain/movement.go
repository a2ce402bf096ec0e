package domain

import "time"

type MovementKind string

const (
	MovementEntry MovementKind = "ENTRY"
	MovementExit  MovementKind = "EXIT"
)

func (k MovementKind) Valid() bool {
	return k == MovementEntry || k == MovementExit
}

// Movement is an append-only audit record of a stock change outside of a sale.
type Movement struct {
	ID             int64        `json:"id"`
	ActorID        int64        `json:"actor_id"`
	ActorName      string       `json:"actor_name,omitempty"`
	Kind           MovementKind `json:"kind"`
	Garment        string       `json:"garment"`
	Size           string       `json:"size"`
	Quantity       int          `json:"quantity"`
	ResultingStock int          `json:"resulting_stock"`
	CreatedAt      time.Time    `json:"created_at"`
}
