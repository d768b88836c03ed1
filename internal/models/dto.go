package models

import "github.com/shopspring/decimal"

// Money fields go over the wire as plain JSON numbers; clients round for
// display only.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// RegisterRequest is the payload for POST /register.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// RegisterResponse echoes the assigned role parameters so the client can keep
// them in session storage, plus a signed session token for the optional
// bearer-token mode.
type RegisterResponse struct {
	Message             string          `json:"message"`
	ParticipantID       string          `json:"participantId"`
	Role                string          `json:"role"`
	InitialMoney        decimal.Decimal `json:"initial_money"`
	Water               decimal.Decimal `json:"water"`
	MarginalValueFirst  decimal.Decimal `json:"marginal_value_first"`
	MarginalValueSecond decimal.Decimal `json:"marginal_value_second"`
	SessionToken        string          `json:"session_token,omitempty"`
}

// DescriptionRequest is the payload for POST /submit_description.
type DescriptionRequest struct {
	ParticipantID string `json:"participantId"`
	Answer1       string `json:"answer1"`
	Answer2       string `json:"answer2"`
}

// BidEntry is one price/quantity point of a submitted schedule.
type BidEntry struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Type     string          `json:"type"`
}

// BidSubmitRequest is the payload for POST /bid_submit. The schedule always
// targets the currently open round.
type BidSubmitRequest struct {
	ParticipantID string     `json:"participantId"`
	Bids          []BidEntry `json:"bids"`
}

// RoundInfo is the round-level part of a cleared result.
type RoundInfo struct {
	RoundNumber   int             `json:"round_number"`
	UniformPrice  decimal.Decimal `json:"uniform_price"`
	TotalQuantity int             `json:"total_quantity"`
}

// ParticipantResult is the per-participant part of a cleared result.
type ParticipantResult struct {
	ExecutedQuantity int             `json:"executed_quantity"`
	Profit           decimal.Decimal `json:"profit"`
}

// RoundResultInfo is the flattened shape returned by GET /round_result.
type RoundResultInfo struct {
	RoundNumber      int             `json:"round_number"`
	UniformPrice     decimal.Decimal `json:"uniform_price"`
	TotalQuantity    int             `json:"total_quantity"`
	ExecutedQuantity int             `json:"executed_quantity"`
	Profit           decimal.Decimal `json:"profit"`
}

// FinalTokensResponse is the payload for GET /final_tokens.
type FinalTokensResponse struct {
	ParticipantID string          `json:"participantId"`
	TotalTokens   decimal.Decimal `json:"total_tokens"`
}
