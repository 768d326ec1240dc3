package model

// MarketAll is the unscoped pseudo-market. Selecting it widens the working
// set to every market; lending requires a concrete market first.
const MarketAll = "All"

// SettingsKey is the key of the single settings document.
const SettingsKey = "appSettings"

// Setting is a key/value document. The ordered market list lives under
// SettingsKey as a JSON string array.
type Setting struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"type:text;not null"`
}

// DefaultMarkets is the market list used when no settings document exists.
func DefaultMarkets() []string {
	return []string{"Sunday", "Wednesday", "Friday", "Unassigned"}
}
