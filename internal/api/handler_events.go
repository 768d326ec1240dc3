package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

// StreamEvents handles GET /api/events: a server-sent-event stream that
// delivers the current snapshot on connect and a fresh snapshot after
// every change. Slow readers receive the latest snapshot, not a backlog.
func (h *Handler) StreamEvents(c *gin.Context) {
	snapshots, cancel := h.engine.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", toStateResponse(snap))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
