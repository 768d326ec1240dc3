package store

import (
	"time"

	"gorm.io/gorm"

	"battery-rental-backend/internal/model"
)

// Batch accumulates create and update operations that must commit together
// or not at all. Operations run in order inside a single transaction; if
// any one fails the whole batch is rolled back and no change notification
// is published.
type Batch struct {
	ops     []func(tx *gorm.DB) error
	touched Changes
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{touched: Changes{}}
}

// Len returns the number of queued operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// CreateTransaction queues the creation of a new loan transaction.
func (b *Batch) CreateTransaction(t model.LoanTransaction) {
	b.touched.add(Transactions)
	b.ops = append(b.ops, func(tx *gorm.DB) error {
		return tx.Create(&t).Error
	})
}

// SetAssetStatus queues a status flip for one asset.
func (b *Batch) SetAssetStatus(assetID string, status model.AssetStatus) {
	b.touched.add(Assets)
	b.ops = append(b.ops, func(tx *gorm.DB) error {
		return tx.Model(&model.Asset{}).Where("id = ?", assetID).
			Update("status", status).Error
	})
}

// MarkTransactionReturned queues the Pending -> Returned transition for one
// transaction, stamping the returned time.
func (b *Batch) MarkTransactionReturned(transactionID string, at time.Time) {
	b.touched.add(Transactions)
	b.ops = append(b.ops, func(tx *gorm.DB) error {
		return tx.Model(&model.LoanTransaction{}).Where("id = ?", transactionID).
			Updates(map[string]any{
				"status":        model.TransactionReturned,
				"date_returned": at,
			}).Error
	})
}
