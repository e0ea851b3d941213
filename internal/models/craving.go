package models

import "time"

// CravingEvent is an append-only record of a craving
type CravingEvent struct {
	ID          string     `json:"id,omitempty"`
	UserID      string     `json:"user_id"`
	LoggedAt    time.Time  `json:"logged_at"`
	Intensity   *int       `json:"intensity"`
	TriggerText *string    `json:"trigger_text"`
	Note        *string    `json:"note"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}
