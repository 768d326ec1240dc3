// Package lending implements the two workflows allowed to mutate the
// asset/transaction consistency unit. Each workflow issues exactly one
// atomic batch; there is no partial state on failure and no retry.
package lending

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"battery-rental-backend/internal/model"
	"battery-rental-backend/internal/store"
)

// Clock supplies commit timestamps.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// IDGen mints new document ids.
type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// InventoryView is the synchronized click-time view the workflows trust.
// The lend path does not re-verify asset status against the store before
// commit; two concurrent lends of the same asset are both accepted (last
// write wins) and surface as two pending transactions.
type InventoryView interface {
	Market() string
	SelectAssets(ids []string) []model.Asset
}

// Notifier is told when a battery becomes available again.
type Notifier interface {
	Dispatch(assetNumber string)
}

// Service validates lend and return requests and turns them into atomic
// batches against the entity store.
type Service struct {
	store  store.Store
	view   InventoryView
	notify Notifier
	clock  Clock
	id     IDGen
}

// NewService creates the workflow service. notify may be nil when push
// notifications are not configured.
func NewService(s store.Store, view InventoryView, notify Notifier) *Service {
	return &Service{
		store:  s,
		view:   view,
		notify: notify,
		clock:  realClock{},
		id:     ulidGen{},
	}
}

// Lend hands the selected batteries to one customer: per battery, one new
// pending transaction plus the Available -> Given flip, all inside a
// single batch. Validation failures never reach the store.
func (s *Service) Lend(ctx context.Context, customerID string, assetIDs []string) Outcome {
	market := s.view.Market()
	if market == model.MarketAll || market == "" {
		return failure("You must select a specific market to give batteries")
	}
	if customerID == "" {
		return failure("Please select a customer")
	}

	assets := s.view.SelectAssets(assetIDs)
	if len(assets) == 0 {
		return failure("Please select at least one battery")
	}

	now := s.clock.Now()
	batch := store.NewBatch()
	for _, a := range assets {
		id, err := s.id.New()
		if err != nil {
			return failure("Transaction failed")
		}
		batch.CreateTransaction(model.LoanTransaction{
			ID:          id,
			CustomerID:  customerID,
			AssetNumber: a.Number,
			Market:      market,
			DateGiven:   now,
			Status:      model.TransactionPending,
		})
		batch.SetAssetStatus(a.ID, model.AssetGiven)
	}

	if err := s.store.Commit(ctx, batch); err != nil {
		log.Printf("lending: lend batch for customer %s failed: %v", customerID, err)
		return failure("Transaction failed")
	}
	return success(fmt.Sprintf("%d batteries given successfully", len(assets)))
}

// Return marks one pending transaction returned and flips its battery back
// to Available in a single batch. The battery is resolved by display
// number immediately before the batch is built; when the number resolves
// to nothing the transaction is still marked returned and no asset row is
// touched.
func (s *Service) Return(ctx context.Context, transactionID string) Outcome {
	if transactionID == "" {
		return failure("Please select a transaction")
	}

	trans, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		log.Printf("lending: loading transaction %s failed: %v", transactionID, err)
		return failure("Return failed")
	}
	if trans == nil {
		return failure("Transaction not found")
	}
	if trans.Status != model.TransactionPending {
		return info(fmt.Sprintf("Battery %s was already returned", trans.AssetNumber))
	}

	asset, err := s.store.FindAssetByNumber(ctx, trans.AssetNumber)
	if err != nil {
		log.Printf("lending: resolving asset %s failed: %v", trans.AssetNumber, err)
		return failure("Return failed")
	}
	if asset == nil {
		log.Printf("lending: no asset matches number %s; marking transaction %s returned anyway",
			trans.AssetNumber, trans.ID)
	}

	batch := store.NewBatch()
	batch.MarkTransactionReturned(trans.ID, s.clock.Now())
	if asset != nil {
		batch.SetAssetStatus(asset.ID, model.AssetAvailable)
	}

	if err := s.store.Commit(ctx, batch); err != nil {
		log.Printf("lending: return batch for transaction %s failed: %v", trans.ID, err)
		return failure("Return failed")
	}

	if asset != nil && s.notify != nil {
		s.notify.Dispatch(asset.Number)
	}
	return success(fmt.Sprintf("Battery %s returned", trans.AssetNumber))
}
