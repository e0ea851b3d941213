package catalog

import "github.com/julianstephens/ember/internal/models"

var categories = []models.MissionCategory{
	models.CategoryMorningWins,
	models.CategorySocialVictories,
	models.CategoryDailyLife,
	models.CategoryEmotionalStrength,
	models.CategoryCelebrations,
}

var missions = []models.Mission{
	// Morning wins
	{ID: "first-morning", Title: "First Morning", Description: "Wake up and start your day without reaching for a cigarette.", Category: models.CategoryMorningWins, Icon: "sunrise.fill"},
	{ID: "first-coffee", Title: "First Coffee", Description: "Enjoy your morning coffee without the usual smoke.", Category: models.CategoryMorningWins, Icon: "cup.and.saucer.fill"},
	{ID: "first-breakfast", Title: "First Breakfast", Description: "Complete your breakfast routine smoke-free.", Category: models.CategoryMorningWins, Icon: "fork.knife"},

	// Social victories
	{ID: "first-friends-gathering", Title: "Friends Gathering", Description: "Hang out with friends without stepping away to smoke.", Category: models.CategorySocialVictories, Icon: "person.3.fill"},
	{ID: "first-party", Title: "First Party", Description: "Enjoy a party from start to finish without smoking.", Category: models.CategorySocialVictories, Icon: "party.popper.fill"},
	{ID: "first-date", Title: "First Date", Description: "Go on a date and stay present the whole time.", Category: models.CategorySocialVictories, Icon: "heart.fill"},
	{ID: "first-family-dinner", Title: "Family Dinner", Description: "Share a meal with family without excusing yourself to smoke.", Category: models.CategorySocialVictories, Icon: "house.fill"},

	// Daily life
	{ID: "first-work-break", Title: "Work Break", Description: "Take a break at work without reaching for cigarettes.", Category: models.CategoryDailyLife, Icon: "briefcase.fill"},
	{ID: "first-phone-call", Title: "Long Phone Call", Description: "Have a lengthy conversation without lighting up.", Category: models.CategoryDailyLife, Icon: "phone.fill"},
	{ID: "first-long-drive", Title: "Long Drive", Description: "Complete a road trip without smoking in the car.", Category: models.CategoryDailyLife, Icon: "car.fill"},
	{ID: "first-waiting-room", Title: "Waiting Room", Description: "Wait patiently at a doctor's office or similar without craving.", Category: models.CategoryDailyLife, Icon: "clock.fill"},
	{ID: "first-commute", Title: "Daily Commute", Description: "Complete your commute to work smoke-free.", Category: models.CategoryDailyLife, Icon: "tram.fill"},

	// Emotional strength
	{ID: "first-stress", Title: "Stressful Moment", Description: "Handle a stressful situation without using cigarettes to cope.", Category: models.CategoryEmotionalStrength, Icon: "bolt.heart.fill"},
	{ID: "first-bad-news", Title: "Bad News", Description: "Process difficult news without reaching for a smoke.", Category: models.CategoryEmotionalStrength, Icon: "cloud.rain.fill"},
	{ID: "first-argument", Title: "After an Argument", Description: "Cool down after a disagreement without smoking.", Category: models.CategoryEmotionalStrength, Icon: "bubble.left.and.bubble.right.fill"},
	{ID: "first-boredom", Title: "Boredom Buster", Description: "Find something else to do when bored instead of smoking.", Category: models.CategoryEmotionalStrength, Icon: "sparkles"},
	{ID: "first-anxiety", Title: "Anxious Moment", Description: "Manage anxiety without relying on cigarettes.", Category: models.CategoryEmotionalStrength, Icon: "waveform.path.ecg"},

	// Celebrations
	{ID: "first-celebration", Title: "Celebration", Description: "Celebrate good news or an achievement smoke-free.", Category: models.CategoryCelebrations, Icon: "star.fill"},
	{ID: "first-drink", Title: "First Drink", Description: "Enjoy an alcoholic beverage without the cigarette pairing.", Category: models.CategoryCelebrations, Icon: "wineglass.fill"},
	{ID: "first-concert", Title: "Concert or Event", Description: "Attend a live event without stepping out to smoke.", Category: models.CategoryCelebrations, Icon: "music.note.list"},
	{ID: "first-weekend", Title: "Full Weekend", Description: "Complete an entire weekend without a single cigarette.", Category: models.CategoryCelebrations, Icon: "sun.max.fill"},
	{ID: "first-vacation-day", Title: "Vacation Day", Description: "Enjoy a relaxing day off completely smoke-free.", Category: models.CategoryCelebrations, Icon: "beach.umbrella.fill"},
}

// Categories returns the mission categories in display order
func Categories() []models.MissionCategory {
	out := make([]models.MissionCategory, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory accepts a category identifier such as "daily-life"
func ParseCategory(s string) (models.MissionCategory, bool) {
	for _, c := range categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Missions returns every mission in catalog order
func Missions() []models.Mission {
	out := make([]models.Mission, len(missions))
	copy(out, missions)
	return out
}

// MissionsFor returns the missions of one category in catalog order
func MissionsFor(category models.MissionCategory) []models.Mission {
	var out []models.Mission
	for _, m := range missions {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

// MissionByID looks up a mission by its stable identifier
func MissionByID(id string) (models.Mission, bool) {
	for _, m := range missions {
		if m.ID == id {
			return m, true
		}
	}
	return models.Mission{}, false
}
