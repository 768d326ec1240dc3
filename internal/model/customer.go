package model

import "time"

// Customer is a borrower. Customers are created and edited out-of-band;
// this service only reads them, and only when IsActive is set.
type Customer struct {
	ID           string    `gorm:"primaryKey;size:26" json:"id"`
	Name         string    `gorm:"size:256;not null" json:"name"`
	Market       string    `gorm:"index;size:64" json:"market"`
	Mobile       string    `gorm:"size:32" json:"mobile"`
	Address      string    `gorm:"size:512" json:"address"`
	SerialNumber string    `gorm:"uniqueIndex;size:64" json:"serialNumber"`
	IsActive     int       `gorm:"not null;default:1" json:"isActive"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}
