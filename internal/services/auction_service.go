package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"water-auction/internal/auctionerrors"
	"water-auction/internal/config"
	"water-auction/internal/models"
	"water-auction/internal/repository"
	"water-auction/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionReceipt is what a participant gets back for a stored schedule.
// When the submission was the one that completed the round, it carries the
// cleared round info and the submitter's own result.
type SubmissionReceipt struct {
	ReceiptID         string
	RoundNumber       int
	RoundCleared      bool
	AuctionComplete   bool
	RoundInfo         *models.RoundInfo
	ParticipantResult *models.ParticipantResult
}

// AuctionService is the round coordinator and bid ledger. Rounds advance
// strictly in sequence: schedules accumulate for the current round until every
// registered participant has one, then the round clears inside the same
// critical section and the next round opens (or the auction completes).
type AuctionService struct {
	repo    *repository.Repository
	engine  *ClearingEngine
	results *ResultCache

	totalRounds          int
	requiredParticipants int

	mu           sync.Mutex
	currentRound int
	complete     bool
}

// NewAuctionService builds the coordinator and recovers the round position
// from storage, so a restarted server resumes where it stopped.
func NewAuctionService(repo *repository.Repository, engine *ClearingEngine, results *ResultCache, cfg config.AuctionConfig) (*AuctionService, error) {
	lastCleared, err := repo.MaxClearedRound(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to recover round state: %w", err)
	}

	return &AuctionService{
		repo:                 repo,
		engine:               engine,
		results:              results,
		totalRounds:          cfg.TotalRounds,
		requiredParticipants: cfg.RequiredParticipants,
		currentRound:         lastCleared + 1,
		complete:             lastCleared >= cfg.TotalRounds,
	}, nil
}

// CurrentRound returns the round currently accepting schedules.
func (s *AuctionService) CurrentRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRound
}

// Completed reports whether the auction has run all its rounds.
func (s *AuctionService) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// SubmitBids stores a schedule for the currently open round. A resubmission
// in the same round replaces the earlier schedule, so client retries are
// harmless.
func (s *AuctionService) SubmitBids(ctx context.Context, participantID string, entries []models.BidEntry) (*SubmissionReceipt, error) {
	return s.submit(ctx, participantID, 0, entries)
}

// SubmitBidsForRound stores a schedule for an explicit round number. Only the
// currently open round accepts schedules; earlier rounds are closed.
func (s *AuctionService) SubmitBidsForRound(ctx context.Context, participantID string, roundNumber int, entries []models.BidEntry) (*SubmissionReceipt, error) {
	if roundNumber <= 0 {
		return nil, fmt.Errorf("%w: round number must be positive", auctionerrors.ErrValidation)
	}
	return s.submit(ctx, participantID, roundNumber, entries)
}

func (s *AuctionService) submit(ctx context.Context, participantID string, roundNumber int, entries []models.BidEntry) (*SubmissionReceipt, error) {
	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete {
		return nil, auctionerrors.ErrAuctionComplete
	}
	if roundNumber == 0 {
		roundNumber = s.currentRound
	}
	if roundNumber < s.currentRound {
		return nil, fmt.Errorf("%w: round %d", auctionerrors.ErrRoundClosed, roundNumber)
	}
	if roundNumber > s.currentRound {
		return nil, fmt.Errorf("%w: round %d is not open yet", auctionerrors.ErrValidation, roundNumber)
	}

	if _, err := s.repo.GetParticipant(ctx, participantID); err != nil {
		return nil, mapNotFound(err)
	}

	bids := make([]models.Bid, len(entries))
	for i, e := range entries {
		bids[i] = models.Bid{
			ParticipantID: participantID,
			RoundNumber:   roundNumber,
			Price:         e.Price,
			Quantity:      e.Quantity,
			Side:          e.Type,
			Seq:           i,
		}
	}

	var clearing *ClearingResult
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.ReplaceSchedule(ctx, participantID, roundNumber, bids); err != nil {
			return err
		}

		submitters, err := tx.DistinctSubmitters(ctx, roundNumber)
		if err != nil {
			return err
		}
		registered, err := tx.CountParticipants(ctx)
		if err != nil {
			return err
		}
		if registered < int64(s.requiredParticipants) || submitters < registered {
			return nil
		}

		clearing, err = s.clearRound(ctx, tx, roundNumber)
		return err
	})
	if err != nil {
		return nil, err
	}

	receipt := &SubmissionReceipt{
		ReceiptID:   uuid.New().String(),
		RoundNumber: roundNumber,
	}

	if clearing == nil {
		utils.Info("schedule stored, waiting for remaining participants", map[string]any{
			"participant_id": participantID,
			"round_number":   roundNumber,
			"points":         len(entries),
		})
		return receipt, nil
	}

	round := models.RoundInfo{
		RoundNumber:   roundNumber,
		UniformPrice:  clearing.UniformPrice,
		TotalQuantity: clearing.TotalQuantity,
	}
	outcomes := make(map[string]models.ParticipantResult, len(clearing.Outcomes))
	for pid, o := range clearing.Outcomes {
		outcomes[pid] = models.ParticipantResult{ExecutedQuantity: o.ExecutedQuantity, Profit: o.Profit}
	}
	s.results.Put(round, outcomes)

	if roundNumber >= s.totalRounds {
		s.complete = true
	} else {
		s.currentRound = roundNumber + 1
	}

	own := outcomes[participantID]
	receipt.RoundCleared = true
	receipt.AuctionComplete = s.complete
	receipt.RoundInfo = &round
	receipt.ParticipantResult = &own

	utils.Info("round cleared", map[string]any{
		"round_number":   roundNumber,
		"uniform_price":  clearing.UniformPrice.String(),
		"total_quantity": clearing.TotalQuantity,
		"complete":       s.complete,
	})

	return receipt, nil
}

// clearRound runs the engine over the round's schedules and persists the
// outcome. Called with the coordinator lock held, inside a transaction.
func (s *AuctionService) clearRound(ctx context.Context, tx *repository.Repository, roundNumber int) (*ClearingResult, error) {
	stored, err := tx.RoundBids(ctx, roundNumber)
	if err != nil {
		return nil, err
	}
	participants, err := tx.ListParticipants(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]ClearingOrder, len(stored))
	for i, b := range stored {
		orders[i] = ClearingOrder{
			ParticipantID: b.ParticipantID,
			Price:         b.Price,
			Quantity:      b.Quantity,
			Side:          b.Side,
			Seq:           i,
		}
	}
	params := make([]ParticipantParams, len(participants))
	for i, p := range participants {
		params[i] = ParticipantParams{
			ParticipantID: p.ParticipantID,
			ValueFirst:    p.MarginalValueFirst,
			ValueSecond:   p.MarginalValueSecond,
		}
	}

	result, err := s.engine.Clear(orders, params)
	if err != nil {
		return nil, err
	}

	if err := tx.CreateRound(ctx, &models.AuctionRound{
		RoundNumber:   roundNumber,
		Status:        models.RoundStatusCleared,
		UniformPrice:  result.UniformPrice,
		TotalQuantity: result.TotalQuantity,
		ClearedAt:     time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	rows := make([]models.ParticipantRoundResult, 0, len(result.Outcomes))
	for pid, o := range result.Outcomes {
		rows = append(rows, models.ParticipantRoundResult{
			RoundNumber:      roundNumber,
			ParticipantID:    pid,
			ExecutedQuantity: o.ExecutedQuantity,
			Profit:           o.Profit,
		})
		if err := tx.AddTokens(ctx, pid, o.Profit); err != nil {
			return nil, err
		}
	}
	if err := tx.CreateResults(ctx, rows); err != nil {
		return nil, err
	}

	return result, nil
}

// GetResult returns a participant's result for a round, or ok=false while the
// round has not cleared yet. Reads are idempotent; pollers retry on false.
func (s *AuctionService) GetResult(ctx context.Context, participantID string, roundNumber int) (*models.RoundResultInfo, bool, error) {
	if roundNumber <= 0 {
		return nil, false, fmt.Errorf("%w: round number must be positive", auctionerrors.ErrValidation)
	}
	if _, err := s.repo.GetParticipant(ctx, participantID); err != nil {
		return nil, false, mapNotFound(err)
	}

	if info, ok := s.results.Get(participantID, roundNumber); ok {
		return &info, true, nil
	}

	round, err := s.repo.GetRound(ctx, roundNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	info := models.RoundResultInfo{
		RoundNumber:   round.RoundNumber,
		UniformPrice:  round.UniformPrice,
		TotalQuantity: round.TotalQuantity,
	}
	result, err := s.repo.GetResult(ctx, participantID, roundNumber)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if result != nil {
		info.ExecutedQuantity = result.ExecutedQuantity
		info.Profit = result.Profit
	}

	s.results.PutOne(
		models.RoundInfo{RoundNumber: round.RoundNumber, UniformPrice: round.UniformPrice, TotalQuantity: round.TotalQuantity},
		participantID,
		models.ParticipantResult{ExecutedQuantity: info.ExecutedQuantity, Profit: info.Profit},
	)

	return &info, true, nil
}

// FinalTokens returns a participant's cumulative profit across all cleared
// rounds.
func (s *AuctionService) FinalTokens(ctx context.Context, participantID string) (*models.FinalTokensResponse, error) {
	p, err := s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &models.FinalTokensResponse{
		ParticipantID: p.ParticipantID,
		TotalTokens:   p.Tokens,
	}, nil
}

// ListRounds returns every cleared round in order.
func (s *AuctionService) ListRounds(ctx context.Context) ([]models.AuctionRound, error) {
	return s.repo.ListRounds(ctx)
}

func validateEntries(entries []models.BidEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: bids are required", auctionerrors.ErrValidation)
	}
	for _, e := range entries {
		if e.Price.IsNegative() {
			return fmt.Errorf("%w: price must be non-negative", auctionerrors.ErrValidation)
		}
		if e.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be a positive integer", auctionerrors.ErrValidation)
		}
		if e.Type != models.SideBuy && e.Type != models.SideSell {
			return fmt.Errorf("%w: type must be %q or %q", auctionerrors.ErrValidation, models.SideBuy, models.SideSell)
		}
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auctionerrors.ErrNotFound
	}
	return err
}
