package repository

import (
	"context"

	"water-auction/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a transaction-scoped repository. The round
// coordinator uses it so schedule storage, clearing results and token updates
// commit or roll back as one unit.
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// CreateParticipant creates a new participant
func (r *Repository) CreateParticipant(ctx context.Context, p *models.Participant) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetParticipant retrieves a participant by its public id
func (r *Repository) GetParticipant(ctx context.Context, participantID string) (*models.Participant, error) {
	var p models.Participant
	err := r.db.WithContext(ctx).Where("participant_id = ?", participantID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants retrieves all registered participants
func (r *Repository) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.WithContext(ctx).Order("id ASC").Find(&participants).Error
	return participants, err
}

// CountParticipants returns the number of registered participants
func (r *Repository) CountParticipants(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Participant{}).Count(&n).Error
	return n, err
}

// TakenRoles returns the role slots already assigned
func (r *Repository) TakenRoles(ctx context.Context) ([]string, error) {
	var roles []string
	err := r.db.WithContext(ctx).Model(&models.Participant{}).Pluck("role", &roles).Error
	return roles, err
}

// AddTokens adds a (signed) profit to a participant's cumulative tokens
func (r *Repository) AddTokens(ctx context.Context, participantID string, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("participant_id = ?", participantID).
		Update("tokens", gorm.Expr("tokens + ?", delta)).Error
}

// UpsertResponse stores questionnaire answers, overwriting a prior submission
func (r *Repository) UpsertResponse(ctx context.Context, resp *models.ParticipantResponse) error {
	var existing models.ParticipantResponse
	err := r.db.WithContext(ctx).Where("participant_id = ?", resp.ParticipantID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(resp).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"answer1": resp.Answer1,
		"answer2": resp.Answer2,
	}).Error
}

// GetResponse retrieves a participant's questionnaire answers
func (r *Repository) GetResponse(ctx context.Context, participantID string) (*models.ParticipantResponse, error) {
	var resp models.ParticipantResponse
	err := r.db.WithContext(ctx).Where("participant_id = ?", participantID).First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReplaceSchedule replaces a participant's schedule for a round with a new one
func (r *Repository) ReplaceSchedule(ctx context.Context, participantID string, roundNumber int, bids []models.Bid) error {
	if err := r.db.WithContext(ctx).
		Where("participant_id = ? AND round_number = ?", participantID, roundNumber).
		Delete(&models.Bid{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&bids).Error
}

// RoundBids retrieves every schedule point submitted for a round
func (r *Repository) RoundBids(ctx context.Context, roundNumber int) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.WithContext(ctx).
		Where("round_number = ?", roundNumber).
		Order("id ASC").
		Find(&bids).Error
	return bids, err
}

// DistinctSubmitters counts the participants with a stored schedule for a round
func (r *Repository) DistinctSubmitters(ctx context.Context, roundNumber int) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Bid{}).
		Where("round_number = ?", roundNumber).
		Distinct("participant_id").
		Count(&n).Error
	return n, err
}

// CreateRound stores a cleared round
func (r *Repository) CreateRound(ctx context.Context, round *models.AuctionRound) error {
	return r.db.WithContext(ctx).Create(round).Error
}

// GetRound retrieves a cleared round by number
func (r *Repository) GetRound(ctx context.Context, roundNumber int) (*models.AuctionRound, error) {
	var round models.AuctionRound
	err := r.db.WithContext(ctx).Where("round_number = ?", roundNumber).First(&round).Error
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// ListRounds retrieves all cleared rounds in order
func (r *Repository) ListRounds(ctx context.Context) ([]models.AuctionRound, error) {
	var rounds []models.AuctionRound
	err := r.db.WithContext(ctx).Order("round_number ASC").Find(&rounds).Error
	return rounds, err
}

// MaxClearedRound returns the highest cleared round number, 0 when none
func (r *Repository) MaxClearedRound(ctx context.Context) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&models.AuctionRound{}).
		Select("COALESCE(MAX(round_number), 0)").
		Scan(&max).Error
	return max, err
}

// CreateResults stores the per-participant results of a cleared round
func (r *Repository) CreateResults(ctx context.Context, results []models.ParticipantRoundResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&results).Error
}

// GetResult retrieves one participant's result for a round
func (r *Repository) GetResult(ctx context.Context, participantID string, roundNumber int) (*models.ParticipantRoundResult, error) {
	var result models.ParticipantRoundResult
	err := r.db.WithContext(ctx).
		Where("participant_id = ? AND round_number = ?", participantID, roundNumber).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}
