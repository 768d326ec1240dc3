package lending

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appdb "battery-rental-backend/internal/db"
	"battery-rental-backend/internal/model"
	"battery-rental-backend/internal/store"
)

// testView is a click-time snapshot frozen at construction, standing in
// for the synchronized view a client was looking at when it submitted.
type testView struct {
	market string
	assets []model.Asset
}

func (v *testView) Market() string { return v.market }

func (v *testView) SelectAssets(ids []string) []model.Asset {
	byID := make(map[string]model.Asset, len(v.assets))
	for _, a := range v.assets {
		byID[a.ID] = a
	}
	seen := make(map[string]struct{}, len(ids))
	var out []model.Asset
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

type seqIDGen struct {
	prefix string
	n      int
}

func (g *seqIDGen) New() (string, error) {
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n), nil
}

// dupIDGen always mints the same id, forcing a mid-batch failure on the
// second create.
type dupIDGen struct{}

func (dupIDGen) New() (string, error) { return "dup", nil }

type recordingNotifier struct{ dispatched []string }

func (n *recordingNotifier) Dispatch(number string) { n.dispatched = append(n.dispatched, number) }

func newTestStore(t *testing.T) (store.Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, appdb.Migrate(db))
	return store.NewGormStore(db), db
}

func seedInventory(t *testing.T, db *gorm.DB) []model.Asset {
	t.Helper()
	assets := []model.Asset{
		{ID: "a1", Number: "1", Status: model.AssetAvailable},
		{ID: "a2", Number: "2", Status: model.AssetAvailable},
		{ID: "a3", Number: "3", Status: model.AssetAvailable},
	}
	require.NoError(t, db.Create(&assets).Error)
	require.NoError(t, db.Create(&model.Customer{
		ID: "c1", Name: "Asha", Market: "Alpha", SerialNumber: "s1", IsActive: 1,
	}).Error)
	return assets
}

func newTestService(s store.Store, view InventoryView, notify Notifier) *Service {
	svc := NewService(s, view, notify)
	svc.clock = fixedClock{at: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	svc.id = &seqIDGen{prefix: "t"}
	return svc
}

func transactionCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.LoanTransaction{}).Count(&n).Error)
	return n
}

func assetStatus(t *testing.T, db *gorm.DB, id string) model.AssetStatus {
	t.Helper()
	var a model.Asset
	require.NoError(t, db.First(&a, "id = ?", id).Error)
	return a.Status
}

func TestLend_Validation(t *testing.T) {
	s, db := newTestStore(t)
	assets := seedInventory(t, db)
	ctx := context.Background()

	testCases := []struct {
		name       string
		market     string
		customerID string
		assetIDs   []string
	}{
		{"unscoped market", model.MarketAll, "c1", []string{"a1"}},
		{"missing customer", "Alpha", "", []string{"a1"}},
		{"empty selection", "Alpha", "c1", nil},
		{"unknown assets only", "Alpha", "c1", []string{"nope"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(s, &testView{market: tc.market, assets: assets}, nil)
			outcome := svc.Lend(ctx, tc.customerID, tc.assetIDs)
			assert.Equal(t, OutcomeError, outcome.Kind)
			assert.NotEmpty(t, outcome.Message)
			assert.Equal(t, int64(0), transactionCount(t, db), "validation failures must not reach the store")
		})
	}
}

func TestLend_CreatesPendingTransactionsAndFlipsAssets(t *testing.T) {
	s, db := newTestStore(t)
	assets := seedInventory(t, db)
	ctx := context.Background()

	svc := newTestService(s, &testView{market: "Alpha", assets: assets}, nil)
	outcome := svc.Lend(ctx, "c1", []string{"a1", "a2", "a1"})
	require.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "2 batteries given successfully", outcome.Message)

	var transactions []model.LoanTransaction
	require.NoError(t, db.Order("id").Find(&transactions).Error)
	require.Len(t, transactions, 2)
	for _, tr := range transactions {
		assert.Equal(t, "c1", tr.CustomerID)
		assert.Equal(t, "Alpha", tr.Market)
		assert.Equal(t, model.TransactionPending, tr.Status)
		assert.Nil(t, tr.DateReturned)
	}
	assert.Equal(t, "1", transactions[0].AssetNumber)
	assert.Equal(t, "2", transactions[1].AssetNumber)

	assert.Equal(t, model.AssetGiven, assetStatus(t, db, "a1"))
	assert.Equal(t, model.AssetGiven, assetStatus(t, db, "a2"))
	assert.Equal(t, model.AssetAvailable, assetStatus(t, db, "a3"))
}

func TestLend_MidBatchFailureLeavesNoPartialState(t *testing.T) {
	s, db := newTestStore(t)
	assets := seedInventory(t, db)
	ctx := context.Background()

	svc := newTestService(s, &testView{market: "Alpha", assets: assets}, nil)
	svc.id = dupIDGen{}

	outcome := svc.Lend(ctx, "c1", []string{"a1", "a2"})
	assert.Equal(t, OutcomeError, outcome.Kind)

	assert.Equal(t, int64(0), transactionCount(t, db))
	assert.Equal(t, model.AssetAvailable, assetStatus(t, db, "a1"))
	assert.Equal(t, model.AssetAvailable, assetStatus(t, db, "a2"))
}

func TestReturn_FlipsTransactionAndAsset(t *testing.T) {
	s, db := newTestStore(t)
	assets := seedInventory(t, db)
	ctx := context.Background()

	notifier := &recordingNotifier{}
	svc := newTestService(s, &testView{market: "Alpha", assets: assets}, notifier)
	require.Equal(t, OutcomeSuccess, svc.Lend(ctx, "c1", []string{"a1", "a2"}).Kind)

	var trans model.LoanTransaction
	require.NoError(t, db.First(&trans, "asset_number = ?", "1").Error)

	outcome := svc.Return(ctx, trans.ID)
	require.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "Battery 1 returned", outcome.Message)

	require.NoError(t, db.First(&trans, "id = ?", trans.ID).Error)
	assert.Equal(t, model.TransactionReturned, trans.Status)
	require.NotNil(t, trans.DateReturned)

	assert.Equal(t, model.AssetAvailable, assetStatus(t, db, "a1"))
	assert.Equal(t, model.AssetGiven, assetStatus(t, db, "a2"), "only the returned battery flips back")
	assert.Equal(t, []string{"1"}, notifier.dispatched)
}

func TestReturn_AlreadyReturnedIsRejected(t *testing.T) {
	s, db := newTestStore(t)
	assets := seedInventory(t, db)
	ctx := context.Background()

	svc := newTestService(s, &testView{market: "Alpha", assets: assets}, nil)
	require.Equal(t, OutcomeSuccess, svc.Lend(ctx, "c1", []string{"a1"}).Kind)

	var trans model.LoanTransaction
	require.NoError(t, db.First(&trans, "asset_number = ?", "1").Error)
	require.Equal(t, OutcomeSuccess, svc.Return(ctx, trans.ID).Kind)

	var returnedAt time.Time
	require.NoError(t, db.First(&trans, "id = ?", trans.ID).Error)
	returnedAt = *trans.DateReturned

	outcome := svc.Return(ctx, trans.ID)
	assert.Equal(t, OutcomeInfo, outcome.Kind)

	require.NoError(t, db.First(&trans, "id = ?", trans.ID).Error)
	assert.Equal(t, model.TransactionReturned, trans.Status)
	assert.Equal(t, returnedAt, *trans.DateReturned, "re-return must not restamp the returned time")
}

func TestReturn_ResolutionMissStillReturnsTransaction(t *testing.T) {
	s, db := newTestStore(t)
	assets := seedInventory(t, db)
	ctx := context.Background()

	notifier := &recordingNotifier{}
	svc := newTestService(s, &testView{market: "Alpha", assets: assets}, notifier)
	require.Equal(t, OutcomeSuccess, svc.Lend(ctx, "c1", []string{"a1"}).Kind)

	// Data drift: the asset row disappears between lend and return.
	require.NoError(t, db.Delete(&model.Asset{}, "id = ?", "a1").Error)

	var trans model.LoanTransaction
	require.NoError(t, db.First(&trans, "asset_number = ?", "1").Error)

	outcome := svc.Return(ctx, trans.ID)
	assert.Equal(t, OutcomeSuccess, outcome.Kind)

	require.NoError(t, db.First(&trans, "id = ?", trans.ID).Error)
	assert.Equal(t, model.TransactionReturned, trans.Status)

	var count int64
	db.Model(&model.Asset{}).Where("number = ?", "1").Count(&count)
	assert.Equal(t, int64(0), count, "no asset row may be touched or created")
	assert.Empty(t, notifier.dispatched, "no availability notification without an asset")
}

// Two clients observe the same battery as Available and both lend it
// before either commit lands. The store accepts both batches (last write
// wins); the battery ends Given with two pending transactions against it,
// and both transactions remain independently returnable. No single-writer
// guarantee exists and none is asserted.
func TestLend_ConcurrentDuplicateLendIsAccepted(t *testing.T) {
	s, db := newTestStore(t)
	assets := seedInventory(t, db)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.Customer{
		ID: "c2", Name: "Bruno", Market: "Alpha", SerialNumber: "s2", IsActive: 1,
	}).Error)

	// Both views were captured while battery 1 was still Available.
	svcA := newTestService(s, &testView{market: "Alpha", assets: assets}, nil)
	svcA.id = &seqIDGen{prefix: "ta"}
	svcB := newTestService(s, &testView{market: "Alpha", assets: assets}, nil)
	svcB.id = &seqIDGen{prefix: "tb"}

	require.Equal(t, OutcomeSuccess, svcA.Lend(ctx, "c1", []string{"a1"}).Kind)
	require.Equal(t, OutcomeSuccess, svcB.Lend(ctx, "c2", []string{"a1"}).Kind)

	assert.Equal(t, model.AssetGiven, assetStatus(t, db, "a1"))

	var pending []model.LoanTransaction
	require.NoError(t, db.Where("asset_number = ? AND status = ?", "1", model.TransactionPending).
		Find(&pending).Error)
	require.Len(t, pending, 2, "the duplicate-lend race is accepted, not rejected")

	// Both pending transactions can still be returned without error.
	require.Equal(t, OutcomeSuccess, svcA.Return(ctx, pending[0].ID).Kind)
	require.Equal(t, OutcomeSuccess, svcB.Return(ctx, pending[1].ID).Kind)
	assert.Equal(t, model.AssetAvailable, assetStatus(t, db, "a1"))
}
