package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid sides as they appear on the wire ("type" field).
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Round statuses.
const (
	RoundStatusOpen    = "open"
	RoundStatusCleared = "cleared"
)

// Bid is a single price/quantity point of a participant's schedule for one
// round. Seq preserves the order of the points within the submitted schedule;
// it is the deterministic tie-breaker when rationing at the clearing margin.
type Bid struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ParticipantID string          `gorm:"size:36;not null;index:idx_bids_round_participant" json:"participantId"`
	RoundNumber   int             `gorm:"not null;index:idx_bids_round_participant" json:"round_number"`
	Price         decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"price"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	Side          string          `gorm:"size:10;not null" json:"type"`
	Seq           int             `gorm:"not null" json:"seq"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName specifies the table name for Bid model
func (Bid) TableName() string {
	return "bids"
}

// AuctionRound records a cleared round. Rows are only written once a round
// clears; a round with no row is still open.
type AuctionRound struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	RoundNumber   int             `gorm:"uniqueIndex;not null" json:"round_number"`
	Status        string          `gorm:"size:20;not null;default:cleared" json:"status"`
	UniformPrice  decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"uniform_price"`
	TotalQuantity int             `gorm:"not null" json:"total_quantity"`
	ClearedAt     time.Time       `json:"cleared_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName specifies the table name for AuctionRound model
func (AuctionRound) TableName() string {
	return "auction_rounds"
}

// ParticipantRoundResult is one participant's outcome for one cleared round.
// Derived by the clearing engine and never mutated afterwards.
type ParticipantRoundResult struct {
	ID               uint            `gorm:"primaryKey" json:"-"`
	RoundNumber      int             `gorm:"not null;index:idx_results_round_participant" json:"round_number"`
	ParticipantID    string          `gorm:"size:36;not null;index:idx_results_round_participant" json:"participantId"`
	ExecutedQuantity int             `gorm:"not null" json:"executed_quantity"`
	Profit           decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"profit"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName specifies the table name for ParticipantRoundResult model
func (ParticipantRoundResult) TableName() string {
	return "participant_round_results"
}
