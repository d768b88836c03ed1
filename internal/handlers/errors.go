package handlers

import (
	"errors"
	"net/http"

	"water-auction/internal/auctionerrors"
	"water-auction/internal/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto the single {error: message} shape of
// the contract. Internal errors are logged but never leaked.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auctionerrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auctionerrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
	case errors.Is(err, auctionerrors.ErrRoundClosed),
		errors.Is(err, auctionerrors.ErrAuctionComplete),
		errors.Is(err, auctionerrors.ErrDuplicateSubmission):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		utils.Error("internal error", map[string]any{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
