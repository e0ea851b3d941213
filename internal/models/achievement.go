package models

import "time"

// HealthMilestone is a physiological recovery milestone reached a fixed
// number of hours after quitting. Milestones are identified by position.
type HealthMilestone struct {
	Title          string
	Detail         string
	HoursAfterQuit float64
	Icon           string
}

// Duration returns the time after quitting at which the milestone is reached.
func (m HealthMilestone) Duration() time.Duration {
	return time.Duration(m.HoursAfterQuit * float64(time.Hour))
}

// MissionCategory groups missions in the catalog
type MissionCategory string

const (
	CategoryMorningWins       MissionCategory = "morning-wins"
	CategorySocialVictories   MissionCategory = "social-victories"
	CategoryDailyLife         MissionCategory = "daily-life"
	CategoryEmotionalStrength MissionCategory = "emotional-strength"
	CategoryCelebrations      MissionCategory = "celebrations"
)

// Title returns the display name of the category
func (c MissionCategory) Title() string {
	switch c {
	case CategoryMorningWins:
		return "Morning Wins"
	case CategorySocialVictories:
		return "Social Victories"
	case CategoryDailyLife:
		return "Daily Life"
	case CategoryEmotionalStrength:
		return "Emotional Strength"
	case CategoryCelebrations:
		return "Celebrations"
	default:
		return string(c)
	}
}

// Mission is a user-completable "first time without" achievement
type Mission struct {
	ID          string
	Title       string
	Description string
	Category    MissionCategory
	Icon        string
}

// MissionCompletion records that a user completed a mission.
// A row exists exactly while the mission is completed.
type MissionCompletion struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id"`
	MissionID   string    `json:"mission_id"`
	CompletedAt time.Time `json:"completed_at"`
}
