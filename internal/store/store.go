package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"battery-rental-backend/internal/model"
	"battery-rental-backend/internal/parse"
)

// Store is the entity store boundary: filtered list queries, point reads,
// atomic batch commits and a post-commit change feed. List queries always
// return the entire current result set for their filter; consumers replace
// their view wholesale rather than merging deltas.
type Store interface {
	DB() *gorm.DB

	// ListActiveCustomers returns active customers, optionally scoped to
	// one market (empty market means unscoped), ordered by name.
	ListActiveCustomers(ctx context.Context, market string) ([]model.Customer, error)
	// ListAssets returns the global asset pool in display-number order.
	// Assets are never market-filtered.
	ListAssets(ctx context.Context) ([]model.Asset, error)
	// ListTransactions returns loan transactions, optionally scoped to one
	// market, newest first.
	ListTransactions(ctx context.Context, market string) ([]model.LoanTransaction, error)
	// Markets returns the configured market list, falling back to the
	// default list when the settings document is absent or unreadable.
	Markets(ctx context.Context) ([]string, error)

	// FindAssetByNumber resolves one asset by display number. A miss
	// returns (nil, nil): the caller decides whether that is an error.
	FindAssetByNumber(ctx context.Context, number string) (*model.Asset, error)
	GetTransaction(ctx context.Context, id string) (*model.LoanTransaction, error)
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)

	// Commit runs every operation in the batch inside one transaction and,
	// only after the transaction commits, publishes the touched
	// collections to the change feed.
	Commit(ctx context.Context, b *Batch) error

	// Watch returns a channel of coalesced change sets delivered after
	// every committed write, until ctx is cancelled.
	Watch(ctx context.Context) <-chan Changes

	// UpsertAssets and UpsertCustomers exist for inventory onboarding.
	// Conflicts are keyed on the human-assigned identifier (battery
	// number, customer serial number) so reruns are idempotent.
	UpsertAssets(ctx context.Context, assets []model.Asset) error
	UpsertCustomers(ctx context.Context, customers []model.Customer) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db   *gorm.DB
	feed *feed
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, feed: newFeed()}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) ListActiveCustomers(ctx context.Context, market string) ([]model.Customer, error) {
	q := s.db.WithContext(ctx).Where("is_active = ?", 1)
	if market != "" {
		q = q.Where("market = ?", market)
	}
	var customers []model.Customer
	if err := q.Order("name").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (s *gormStore) ListAssets(ctx context.Context) ([]model.Asset, error) {
	var assets []model.Asset
	if err := s.db.WithContext(ctx).Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		return parse.LessNumber(assets[i].Number, assets[j].Number)
	})
	return assets, nil
}

func (s *gormStore) ListTransactions(ctx context.Context, market string) ([]model.LoanTransaction, error) {
	q := s.db.WithContext(ctx)
	if market != "" {
		q = q.Where("market = ?", market)
	}
	var transactions []model.LoanTransaction
	if err := q.Order("date_given DESC").Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (s *gormStore) Markets(ctx context.Context) ([]string, error) {
	var setting model.Setting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", model.SettingsKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DefaultMarkets(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var markets []string
	if err := json.Unmarshal([]byte(setting.Value), &markets); err != nil || len(markets) == 0 {
		log.Printf("settings document %q is unreadable, using defaults: %v", model.SettingsKey, err)
		return model.DefaultMarkets(), nil
	}
	return markets, nil
}

func (s *gormStore) FindAssetByNumber(ctx context.Context, number string) (*model.Asset, error) {
	var asset model.Asset
	err := s.db.WithContext(ctx).First(&asset, "number = ?", number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset %q: %w", number, err)
	}
	return &asset, nil
}

func (s *gormStore) GetTransaction(ctx context.Context, id string) (*model.LoanTransaction, error) {
	var t model.LoanTransaction
	err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %q: %w", id, err)
	}
	return &t, nil
}

func (s *gormStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %q: %w", id, err)
	}
	return &c, nil
}

func (s *gormStore) Commit(ctx context.Context, b *Batch) error {
	if b == nil || len(b.ops) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range b.ops {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch commit failed: %w", err)
	}
	s.feed.publish(b.touched)
	return nil
}

func (s *gormStore) Watch(ctx context.Context) <-chan Changes {
	return s.feed.subscribe(ctx)
}

func (s *gormStore) UpsertAssets(ctx context.Context, assets []model.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"color", "market", "updated_at"}),
	}).Create(&assets).Error
	if err != nil {
		return fmt.Errorf("batch upsert assets failed: %w", err)
	}
	s.feed.publish(Changes{Assets: {}})
	return nil
}

func (s *gormStore) UpsertCustomers(ctx context.Context, customers []model.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "serial_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "market", "mobile", "address", "is_active", "updated_at"}),
	}).Create(&customers).Error
	if err != nil {
		return fmt.Errorf("batch upsert customers failed: %w", err)
	}
	s.feed.publish(Changes{Customers: {}})
	return nil
}
