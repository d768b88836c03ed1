package auctionerrors

import "errors"

// User-correctable errors
var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("participant not found")
)

// Round lifecycle errors
var (
	ErrRoundClosed         = errors.New("round has already cleared")
	ErrAuctionComplete     = errors.New("auction completed, no further rounds are allowed")
	ErrDuplicateSubmission = errors.New("schedule already submitted for this round")
)

// ErrEngine marks malformed input reaching the clearing engine. Upstream
// validation is expected to make this unreachable.
var ErrEngine = errors.New("clearing engine: malformed input")
