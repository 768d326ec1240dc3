package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	AssetNumbers []SubscribedAsset `gorm:"foreignKey:Endpoint;references:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscribedAsset maps a push subscription to one watched battery number.
// Subscribers are notified when that battery becomes available again.
type SubscribedAsset struct {
	Endpoint    string `gorm:"primaryKey"`
	AssetNumber string `gorm:"primaryKey;size:64"`
}
