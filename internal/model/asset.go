package model

import "time"

// AssetStatus is the lifecycle state of a battery.
type AssetStatus string

const (
	AssetAvailable AssetStatus = "Available"
	AssetGiven     AssetStatus = "Given"
	// AssetReturned exists in the upstream data model but no workflow ever
	// sets it; an asset only cycles Available <-> Given.
	AssetReturned AssetStatus = "Returned"
)

// Asset represents one physical battery. The pool is global: assets are
// never scoped to a market, only tagged with a home market.
type Asset struct {
	ID        string      `gorm:"primaryKey;size:26" json:"id"`
	Number    string      `gorm:"uniqueIndex;size:64;not null" json:"batteryNumber"`
	Status    AssetStatus `gorm:"size:16;not null;default:'Available'" json:"status"`
	Color     string      `gorm:"size:32" json:"color"`
	Market    string      `gorm:"size:64" json:"market"`
	CreatedAt time.Time   `json:"-"`
	UpdatedAt time.Time   `json:"-"`
}
