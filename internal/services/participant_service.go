package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"water-auction/internal/auctionerrors"
	"water-auction/internal/config"
	"water-auction/internal/models"
	"water-auction/internal/repository"
	"water-auction/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoleProfile is the private parameter set attached to one participant slot.
type RoleProfile struct {
	Role                string
	InitialMoney        decimal.Decimal
	Water               decimal.Decimal
	MarginalValueFirst  decimal.Decimal
	MarginalValueSecond decimal.Decimal
}

// defaultRoleProfiles returns the fixed slot table of the original
// experiment: two buyers with money and no water, two sellers with water and
// no money.
func defaultRoleProfiles() []RoleProfile {
	return []RoleProfile{
		{
			Role:                "bidder1",
			InitialMoney:        decimal.NewFromInt(100),
			Water:               decimal.Zero,
			MarginalValueFirst:  decimal.NewFromInt(8),
			MarginalValueSecond: decimal.NewFromInt(6),
		},
		{
			Role:                "bidder2",
			InitialMoney:        decimal.NewFromInt(120),
			Water:               decimal.Zero,
			MarginalValueFirst:  decimal.NewFromInt(10),
			MarginalValueSecond: decimal.NewFromInt(8),
		},
		{
			Role:                "seller1",
			InitialMoney:        decimal.Zero,
			Water:               decimal.NewFromInt(14),
			MarginalValueFirst:  decimal.NewFromInt(6),
			MarginalValueSecond: decimal.NewFromInt(4),
		},
		{
			Role:                "seller2",
			InitialMoney:        decimal.Zero,
			Water:               decimal.NewFromInt(16),
			MarginalValueFirst:  decimal.NewFromInt(8),
			MarginalValueSecond: decimal.NewFromInt(6),
		},
	}
}

// ParticipantService is the participant registry: it assigns identity and
// private valuation parameters at registration and serves them back later.
type ParticipantService struct {
	repo     *repository.Repository
	profiles []RoleProfile
	capacity int

	randomize bool
	rng       *rand.Rand

	mu sync.Mutex
}

func NewParticipantService(repo *repository.Repository, cfg config.AuctionConfig) *ParticipantService {
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	profiles := defaultRoleProfiles()
	capacity := cfg.RequiredParticipants
	if capacity > len(profiles) {
		// More slots than the fixed table: repeat the table with numbered roles.
		extended := make([]RoleProfile, 0, capacity)
		for i := 0; i < capacity; i++ {
			p := profiles[i%len(profiles)]
			p.Role = fmt.Sprintf("%s-%d", p.Role, i/len(profiles)+1)
			extended = append(extended, p)
		}
		profiles = extended
	}

	return &ParticipantService{
		repo:      repo,
		profiles:  profiles,
		capacity:  capacity,
		randomize: cfg.RandomizeRoles,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Register creates a participant in the next free role slot.
func (s *ParticipantService) Register(ctx context.Context, firstName, lastName string) (*models.Participant, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("%w: missing registration fields", auctionerrors.ErrValidation)
	}

	// Slot assignment must not race with a concurrent registration.
	s.mu.Lock()
	defer s.mu.Unlock()

	taken, err := s.repo.TakenRoles(ctx)
	if err != nil {
		return nil, err
	}
	if len(taken) >= s.capacity {
		return nil, fmt.Errorf("%w: maximum number of participants reached", auctionerrors.ErrValidation)
	}

	profile, err := s.nextFreeProfile(taken)
	if err != nil {
		return nil, err
	}
	if s.randomize {
		profile = s.randomizedProfile(profile)
	}

	participant := &models.Participant{
		ParticipantID:       uuid.New().String(),
		FirstName:           firstName,
		LastName:            lastName,
		Role:                profile.Role,
		InitialMoney:        profile.InitialMoney,
		Water:               profile.Water,
		MarginalValueFirst:  profile.MarginalValueFirst,
		MarginalValueSecond: profile.MarginalValueSecond,
		Tokens:              decimal.Zero,
	}
	if err := s.repo.CreateParticipant(ctx, participant); err != nil {
		return nil, err
	}

	utils.Info("participant registered", map[string]any{
		"participant_id": participant.ParticipantID,
		"role":           participant.Role,
	})

	return participant, nil
}

func (s *ParticipantService) nextFreeProfile(taken []string) (RoleProfile, error) {
	assigned := make(map[string]bool, len(taken))
	for _, role := range taken {
		assigned[role] = true
	}
	for _, profile := range s.profiles {
		if !assigned[profile.Role] {
			return profile, nil
		}
	}
	return RoleProfile{}, fmt.Errorf("%w: no available roles", auctionerrors.ErrValidation)
}

// randomizedProfile draws the monetary parameters from ranges around the
// fixed table instead of using it verbatim, keeping the buyer/seller shape of
// the slot. Tier values stay ordered (first >= second).
func (s *ParticipantService) randomizedProfile(base RoleProfile) RoleProfile {
	out := base

	second := decimal.NewFromInt(int64(s.rng.Intn(5) + 4)) // 4..8
	first := second.Add(decimal.NewFromInt(int64(s.rng.Intn(3) + 1)))
	out.MarginalValueFirst = first
	out.MarginalValueSecond = second

	if base.Water.IsZero() {
		out.InitialMoney = decimal.NewFromInt(int64(s.rng.Intn(61) + 80)) // 80..140
	} else {
		out.Water = decimal.NewFromInt(int64(s.rng.Intn(11) + 10)) // 10..20
	}

	return out
}

// GetInfo retrieves a participant's record by id.
func (s *ParticipantService) GetInfo(ctx context.Context, participantID string) (*models.Participant, error) {
	p, err := s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return p, nil
}

// RecordDescription stores a participant's questionnaire answers. A repeat
// submission overwrites the earlier one.
func (s *ParticipantService) RecordDescription(ctx context.Context, participantID, answer1, answer2 string) error {
	if _, err := s.repo.GetParticipant(ctx, participantID); err != nil {
		return mapNotFound(err)
	}
	return s.repo.UpsertResponse(ctx, &models.ParticipantResponse{
		ParticipantID: participantID,
		Answer1:       answer1,
		Answer2:       answer2,
	})
}
