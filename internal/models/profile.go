package models

import "time"

// Profile holds the user's quit timestamp and consumption habits.
// There is at most one Profile per UserID.
type Profile struct {
	ID               string     `json:"id,omitempty"`
	UserID           string     `json:"user_id"`
	QuitAt           time.Time  `json:"quit_at"`
	DailyConsumption int        `json:"cigarettes_per_day"`
	UnitPrice        float64    `json:"price_per_pack"`
	Currency         *string    `json:"currency,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// CurrencyOr returns the profile currency, or fallback when unset.
func (p Profile) CurrencyOr(fallback string) string {
	if p.Currency == nil || *p.Currency == "" {
		return fallback
	}
	return *p.Currency
}

// ProfileUpdate is the onboarding/edit payload for a profile upsert.
type ProfileUpdate struct {
	QuitAt           time.Time
	DailyConsumption int
	UnitPrice        float64
	Currency         *string
	// ResetQuitAt allows QuitAt to replace the quit timestamp of an existing profile.
	ResetQuitAt bool
}
