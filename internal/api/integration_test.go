package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"battery-rental-backend/config"
	appdb "battery-rental-backend/internal/db"
	"battery-rental-backend/internal/lending"
	"battery-rental-backend/internal/livesync"
	"battery-rental-backend/internal/model"
	"battery-rental-backend/internal/store"
)

const (
	waitFor = 3 * time.Second
	tick    = 25 * time.Millisecond
)

// startTestApp wires the full stack the way main does, over in-memory
// SQLite: store, synchronization engine, lending service and router.
func startTestApp(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, appdb.Migrate(db))

	require.NoError(t, db.Create(&[]model.Customer{
		{ID: "c1", Name: "Asha", Market: "Alpha", SerialNumber: "s1", IsActive: 1},
		{ID: "c2", Name: "Bruno", Market: "Beta", SerialNumber: "s2", IsActive: 1},
	}).Error)
	require.NoError(t, db.Create(&[]model.Asset{
		{ID: "a1", Number: "1", Status: model.AssetAvailable},
		{ID: "a2", Number: "2", Status: model.AssetAvailable},
		{ID: "a3", Number: "10", Status: model.AssetAvailable},
	}).Error)
	require.NoError(t, db.Create(&model.Setting{
		Key: model.SettingsKey, Value: `["Alpha","Beta"]`,
	}).Error)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s := store.NewGormStore(db)
	engine := livesync.NewEngine(s, livesync.NewStateFile(t.TempDir()))
	engine.Start(ctx)
	lendSvc := lending.NewService(s, engine, nil)

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 1

	return NewRouter(cfg, NewHandler(s, engine, lendSvc, nil)), db
}

func getState(t *testing.T, r *gin.Engine) stateResponse {
	t.Helper()
	w := doJSON(t, r, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp stateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestIntegration_LendAndReturnRoundTrip(t *testing.T) {
	r, db := startTestApp(t)

	// The state settles once the engine finishes its initial load.
	assert.Eventually(t, func() bool {
		st := getState(t, r)
		return !st.Loading && len(st.Assets) == 3 && len(st.Customers) == 2
	}, waitFor, tick)

	st := getState(t, r)
	assert.Equal(t, model.MarketAll, st.Market)
	assert.Equal(t, []string{"Alpha", "Beta"}, st.Markets)
	assert.Equal(t, []string{"1", "2", "10"}, assetNumbers(st.Assets))

	// Lending is refused while the shared view is unscoped.
	w := doJSON(t, r, http.MethodPost, "/api/lend", gin.H{
		"customerId": "c1", "assetIds": []string{"a1"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/market", gin.H{"market": "Alpha"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Eventually(t, func() bool {
		st := getState(t, r)
		return st.Market == "Alpha" && len(st.Customers) == 1
	}, waitFor, tick, "market switch rescopes customers")

	w = doJSON(t, r, http.MethodPost, "/api/lend", gin.H{
		"customerId": "c1", "assetIds": []string{"a1", "a2"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2 batteries given successfully")

	assert.Eventually(t, func() bool {
		st := getState(t, r)
		return st.Counters.Given == 2 && st.Counters.Pending == 2
	}, waitFor, tick, "the shared view converges on the committed lend")

	w = doJSON(t, r, http.MethodGet, "/api/returns/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []livesync.PendingReturn
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "c1", pending[0].Customer.ID)
	assert.Equal(t, 2, pending[0].Count)

	var trans model.LoanTransaction
	require.NoError(t, db.First(&trans, "asset_number = ?", "1").Error)
	w = doJSON(t, r, http.MethodPost, "/api/return", gin.H{
		"transactionId": trans.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Battery 1 returned")

	assert.Eventually(t, func() bool {
		st := getState(t, r)
		return st.Counters.Given == 1 && st.Counters.Pending == 1 && st.Counters.Available == 2
	}, waitFor, tick)

	// Returning the same transaction again is a no-op with an info outcome.
	w = doJSON(t, r, http.MethodPost, "/api/return", gin.H{
		"transactionId": trans.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already returned")

	w = doJSON(t, r, http.MethodPost, "/api/return", gin.H{
		"transactionId": "missing",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func assetNumbers(assets []model.Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Number
	}
	return out
}

func TestIntegration_Healthz(t *testing.T) {
	r, _ := startTestApp(t)
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
