package handlers

import (
	"net/http"

	"water-auction/internal/auth"
	"water-auction/internal/models"
	"water-auction/internal/services"
	"water-auction/internal/utils"

	"github.com/gin-gonic/gin"
)

type ParticipantHandler struct {
	participantService *services.ParticipantService
	issueTokens        bool
}

func NewParticipantHandler(participantService *services.ParticipantService, issueTokens bool) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: participantService,
		issueTokens:        issueTokens,
	}
}

// Register creates a participant and returns its private parameters
// POST /register
func (h *ParticipantHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	participant, err := h.participantService.Register(c.Request.Context(), req.FirstName, req.LastName)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.RegisterResponse{
		Message:             "Registration successful!",
		ParticipantID:       participant.ParticipantID,
		Role:                participant.Role,
		InitialMoney:        participant.InitialMoney,
		Water:               participant.Water,
		MarginalValueFirst:  participant.MarginalValueFirst,
		MarginalValueSecond: participant.MarginalValueSecond,
	}
	if h.issueTokens {
		token, err := auth.GenerateToken(participant.ParticipantID)
		if err != nil {
			utils.Error("failed to issue session token", map[string]any{
				"participant_id": participant.ParticipantID,
				"error":          err.Error(),
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue session token"})
			return
		}
		resp.SessionToken = token
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitDescription stores the questionnaire answers
// POST /submit_description
func (h *ParticipantHandler) SubmitDescription(c *gin.Context) {
	var req models.DescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if req.ParticipantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Participant ID is required"})
		return
	}
	if !auth.Authorized(c, req.ParticipantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match participant"})
		return
	}

	if err := h.participantService.RecordDescription(c.Request.Context(), req.ParticipantID, req.Answer1, req.Answer2); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Description submitted successfully!"})
}

// GetParticipantInfo returns the participant's private parameters
// GET /participant_info?participantId=
func (h *ParticipantHandler) GetParticipantInfo(c *gin.Context) {
	participantID := c.Query("participantId")
	if participantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing participantId"})
		return
	}
	if !auth.Authorized(c, participantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match participant"})
		return
	}

	participant, err := h.participantService.GetInfo(c.Request.Context(), participantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"initial_money":         participant.InitialMoney,
		"water":                 participant.Water,
		"marginal_value_first":  participant.MarginalValueFirst,
		"marginal_value_second": participant.MarginalValueSecond,
		"profit_function": "For buyers: Profit = (Assigned Marginal Value - Uniform Price) x Executed Quantity. " +
			"For sellers: Profit = (Uniform Price - Assigned Marginal Value) x Executed Quantity.",
		"auction_rule": "The auction uses a call auction mechanism with a uniform price.",
	})
}
