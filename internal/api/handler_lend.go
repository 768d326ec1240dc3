package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"battery-rental-backend/internal/lending"
)

type lendRequest struct {
	CustomerID string   `json:"customerId" binding:"required"`
	AssetIDs   []string `json:"assetIds" binding:"required"`
}

// Lend handles POST /api/lend.
func (h *Handler) Lend(c *gin.Context) {
	var req lendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome := h.lending.Lend(c.Request.Context(), req.CustomerID, req.AssetIDs)
	c.JSON(outcomeStatus(outcome), outcome)
}

func outcomeStatus(o lending.Outcome) int {
	if o.Kind == lending.OutcomeError {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}
