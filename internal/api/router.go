package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"battery-rental-backend/config"
	"battery-rental-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, h *Handler) *gin.Engine {
	r := gin.Default()

	if len(cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORSOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	// Snapshot reads are cached for a couple of seconds at most; the key
	// includes the active market so a switch is visible immediately.
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 10*time.Minute)
	caching := mw.Cache(cacheStore, cacheTTL, func(c *gin.Context) string {
		return c.Request.RequestURI + "|" + h.engine.Market()
	})

	api := r.Group("/api")
	api.Use(rateLimiter)
	if cfg.Auth.Secret != "" {
		api.Use(mw.RequireAuth([]byte(cfg.Auth.Secret)))
	}
	{
		api.GET("/state", caching, h.GetState)
		api.GET("/events", h.StreamEvents)
		api.PUT("/market", h.SetMarket)

		api.POST("/lend", h.Lend)
		api.POST("/return", h.Return)
		api.GET("/returns/pending", caching, h.GetPendingReturns)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
