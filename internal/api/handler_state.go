package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"battery-rental-backend/internal/livesync"
	"battery-rental-backend/internal/model"
)

// stateResponse is the read-only view handed to front-end clients.
type stateResponse struct {
	Customers    []model.Customer        `json:"customers"`
	Assets       []model.Asset           `json:"assets"`
	Transactions []model.LoanTransaction `json:"transactions"`
	Markets      []string                `json:"markets"`
	Market       string                  `json:"market"`
	Loading      bool                    `json:"loading"`
	Counters     livesync.Counters       `json:"counters"`
}

func toStateResponse(s livesync.Snapshot) stateResponse {
	return stateResponse{
		Customers:    s.Customers,
		Assets:       s.Assets,
		Transactions: s.Transactions,
		Markets:      s.Markets,
		Market:       s.Market,
		Loading:      s.Loading,
		Counters:     s.Counters(),
	}
}

// GetState handles the GET /api/state request.
func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, toStateResponse(h.engine.Snapshot()))
}

// GetPendingReturns handles the GET /api/returns/pending request: the
// customers with outstanding batteries, most outstanding first.
func (h *Handler) GetPendingReturns(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot().PendingReturns())
}
