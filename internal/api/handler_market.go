package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type setMarketRequest struct {
	Market string `json:"market" binding:"required"`
}

// SetMarket handles PUT /api/market: switches the active market for the
// shared view. The selection is persisted across restarts.
func (h *Handler) SetMarket(c *gin.Context) {
	var req setMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.engine.SetMarket(req.Market)
	c.JSON(http.StatusOK, gin.H{"market": req.Market})
}
