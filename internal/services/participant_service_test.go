package services

import (
	"context"
	"testing"

	"water-auction/internal/auctionerrors"
	"water-auction/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsRoleSlots(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	svc := NewParticipantService(repo, testAuctionConfig(8))
	ctx := context.Background()

	ps := registerFour(t, svc)

	require.Equal(t, "bidder1", ps[0].Role)
	require.Equal(t, "bidder2", ps[1].Role)
	require.Equal(t, "seller1", ps[2].Role)
	require.Equal(t, "seller2", ps[3].Role)

	// bidder1 holds money and no water; seller1 the reverse.
	require.True(t, ps[0].InitialMoney.Equal(decimal.NewFromInt(100)))
	require.True(t, ps[0].Water.IsZero())
	require.True(t, ps[0].MarginalValueFirst.Equal(decimal.NewFromInt(8)))
	require.True(t, ps[0].MarginalValueSecond.Equal(decimal.NewFromInt(6)))
	require.True(t, ps[2].InitialMoney.IsZero())
	require.True(t, ps[2].Water.Equal(decimal.NewFromInt(14)))

	for _, p := range ps {
		require.NotEmpty(t, p.ParticipantID)
		require.True(t, p.Tokens.IsZero())
	}

	// All slots taken: the fifth registration is refused.
	_, err := svc.Register(ctx, "Eve", "Ekdal")
	require.ErrorIs(t, err, auctionerrors.ErrValidation)
}

func TestRegisterValidatesNames(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	svc := NewParticipantService(repo, testAuctionConfig(8))
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "Berg")
	require.ErrorIs(t, err, auctionerrors.ErrValidation)
	_, err = svc.Register(ctx, "Bo", "   ")
	require.ErrorIs(t, err, auctionerrors.ErrValidation)
}

func TestGetInfoUnknownParticipant(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	svc := NewParticipantService(repo, testAuctionConfig(8))

	_, err := svc.GetInfo(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
}

func TestRecordDescriptionOverwrites(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	svc := NewParticipantService(repo, testAuctionConfig(8))
	ctx := context.Background()

	p, err := svc.Register(ctx, "Alice", "Ahn")
	require.NoError(t, err)

	require.NoError(t, svc.RecordDescription(ctx, p.ParticipantID, "first answer", "second answer"))
	require.NoError(t, svc.RecordDescription(ctx, p.ParticipantID, "revised answer", "second answer"))

	resp, err := repo.GetResponse(ctx, p.ParticipantID)
	require.NoError(t, err)
	require.Equal(t, "revised answer", resp.Answer1)
	require.Equal(t, "second answer", resp.Answer2)

	err = svc.RecordDescription(ctx, uuid.New().String(), "a", "b")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
}

func TestRandomizedProfilesStayInRange(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	cfg := testAuctionConfig(8)
	cfg.RandomizeRoles = true
	cfg.RandomSeed = 42
	svc := NewParticipantService(repo, cfg)

	for _, p := range registerFour(t, svc) {
		require.True(t, p.MarginalValueFirst.GreaterThan(p.MarginalValueSecond),
			"%s: first %s <= second %s", p.Role, p.MarginalValueFirst, p.MarginalValueSecond)
		require.True(t, p.MarginalValueSecond.GreaterThanOrEqual(decimal.NewFromInt(4)))
		require.True(t, p.MarginalValueSecond.LessThanOrEqual(decimal.NewFromInt(8)))

		if p.Water.IsZero() {
			require.True(t, p.InitialMoney.GreaterThanOrEqual(decimal.NewFromInt(80)), p.Role)
			require.True(t, p.InitialMoney.LessThanOrEqual(decimal.NewFromInt(140)), p.Role)
		} else {
			require.True(t, p.Water.GreaterThanOrEqual(decimal.NewFromInt(10)), p.Role)
			require.True(t, p.Water.LessThanOrEqual(decimal.NewFromInt(20)), p.Role)
		}
	}
}

func TestExtendedCapacityNumbersRoles(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	cfg := testAuctionConfig(8)
	cfg.RequiredParticipants = 6
	svc := NewParticipantService(repo, cfg)
	ctx := context.Background()

	roles := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		p, err := svc.Register(ctx, "Pat", "Quinn")
		require.NoError(t, err)
		roles = append(roles, p.Role)
	}
	require.Equal(t, []string{
		"bidder1-1", "bidder2-1", "seller1-1", "seller2-1",
		"bidder1-2", "bidder2-2",
	}, roles)
}
