package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type returnRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
}

// Return handles POST /api/return.
func (h *Handler) Return(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome := h.lending.Return(c.Request.Context(), req.TransactionID)
	c.JSON(outcomeStatus(outcome), outcome)
}
