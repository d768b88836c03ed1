package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"water-auction/internal/auctionerrors"
	"water-auction/internal/auth"
	"water-auction/internal/models"
	"water-auction/internal/services"

	"github.com/gin-gonic/gin"
)

type AuctionHandler struct {
	auctionService *services.AuctionService
}

func NewAuctionHandler(auctionService *services.AuctionService) *AuctionHandler {
	return &AuctionHandler{
		auctionService: auctionService,
	}
}

// SubmitBids stores a schedule for the current round and, when the round
// clears, returns the result inline. A "Waiting" message tells the client to
// poll /round_result.
// POST /bid_submit
func (h *AuctionHandler) SubmitBids(c *gin.Context) {
	var req models.BidSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if req.ParticipantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Participant ID and bids are required"})
		return
	}
	if !auth.Authorized(c, req.ParticipantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match participant"})
		return
	}

	receipt, err := h.auctionService.SubmitBids(c.Request.Context(), req.ParticipantID, req.Bids)
	if errors.Is(err, auctionerrors.ErrAuctionComplete) {
		c.JSON(http.StatusOK, gin.H{
			"message":      "Auction completed. No further rounds are allowed.",
			"round_number": h.auctionService.CurrentRound(),
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if !receipt.RoundCleared {
		c.JSON(http.StatusOK, gin.H{
			"message":      "Waiting for other participants to submit bids for this round.",
			"round_number": receipt.RoundNumber,
		})
		return
	}

	message := "Round processed successfully."
	if receipt.AuctionComplete {
		message = "Auction completed. This was the final round."
	}
	c.JSON(http.StatusOK, gin.H{
		"message":            message,
		"round_info":         receipt.RoundInfo,
		"participant_result": receipt.ParticipantResult,
	})
}

// RoundResult returns a cleared round's result for a participant, or an empty
// object while the round is still pending. Pollers retry until non-empty.
// GET /round_result?participantId=&roundNumber=
func (h *AuctionHandler) RoundResult(c *gin.Context) {
	participantID := c.Query("participantId")
	roundParam := c.Query("roundNumber")
	if participantID == "" || roundParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing participantId or roundNumber"})
		return
	}
	roundNumber, err := strconv.Atoi(roundParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid roundNumber"})
		return
	}
	if !auth.Authorized(c, participantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match participant"})
		return
	}

	info, ok, err := h.auctionService.GetResult(c.Request.Context(), participantID, roundNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	c.JSON(http.StatusOK, gin.H{"round_info": info})
}

// FinalTokens returns a participant's cumulative profit
// GET /final_tokens?participantId=
func (h *AuctionHandler) FinalTokens(c *gin.Context) {
	participantID := c.Query("participantId")
	if participantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing participantId"})
		return
	}
	if !auth.Authorized(c, participantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match participant"})
		return
	}

	resp, err := h.auctionService.FinalTokens(c.Request.Context(), participantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListRounds returns all cleared rounds, an operator view of the round ledger
// GET /rounds
func (h *AuctionHandler) ListRounds(c *gin.Context) {
	rounds, err := h.auctionService.ListRounds(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rounds":        rounds,
		"current_round": h.auctionService.CurrentRound(),
		"complete":      h.auctionService.Completed(),
	})
}
