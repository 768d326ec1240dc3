package model

import "time"

// TransactionStatus is the lifecycle state of a loan transaction. The only
// transition is Pending -> Returned, exactly once.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "Pending"
	TransactionReturned TransactionStatus = "Returned"
)

// LoanTransaction records one battery handed to one customer. The asset is
// referenced by display number rather than id; the return path resolves
// the number against the global pool.
type LoanTransaction struct {
	ID           string            `gorm:"primaryKey;size:26" json:"id"`
	CustomerID   string            `gorm:"index;size:26;not null" json:"customerId"`
	AssetNumber  string            `gorm:"index;size:64;not null" json:"batteryNumber"`
	Market       string            `gorm:"index;size:64;not null" json:"market"`
	DateGiven    time.Time         `gorm:"not null" json:"dateGiven"`
	DateReturned *time.Time        `json:"dateReturned"`
	Status       TransactionStatus `gorm:"index;size:16;not null" json:"status"`
}
