// Package catalog holds the static health milestone and mission catalogs.
package catalog

import "github.com/julianstephens/ember/internal/models"

var milestones = []models.HealthMilestone{
	{Title: "Pulse normalizes", Detail: "Heart rate and blood pressure begin to drop to normal levels.", HoursAfterQuit: 0.33, Icon: "heart.fill"},
	{Title: "CO cleared", Detail: "Carbon monoxide levels in blood drop; oxygen levels rise.", HoursAfterQuit: 8, Icon: "lungs.fill"},
	{Title: "Heart attack risk drops", Detail: "Your chance of a heart attack begins to decrease.", HoursAfterQuit: 24, Icon: "bolt.heart.fill"},
	{Title: "Sense of taste returns", Detail: "Nerve endings start recovering and senses improve.", HoursAfterQuit: 48, Icon: "fork.knife"},
	{Title: "Nicotine leaves body", Detail: "All nicotine has been metabolized and eliminated.", HoursAfterQuit: 72, Icon: "leaf.fill"},
	{Title: "Breathing improves", Detail: "Bronchial tubes begin to relax and open up.", HoursAfterQuit: 168, Icon: "wind"},
	{Title: "Lung function improves", Detail: "Cilia regrow; breathing becomes easier.", HoursAfterQuit: 336, Icon: "waveform.path.ecg"},
	{Title: "Circulation restored", Detail: "Blood circulation significantly improves throughout your body.", HoursAfterQuit: 720, Icon: "arrow.triangle.2.circlepath"},
	{Title: "Coughing decreases", Detail: "Cilia are fully functional; lungs are cleaner.", HoursAfterQuit: 2160, Icon: "bubbles.and.sparkles.fill"},
	{Title: "Energy boost", Detail: "Fatigue and shortness of breath decrease dramatically.", HoursAfterQuit: 4320, Icon: "bolt.fill"},
	{Title: "Heart risk halves", Detail: "Risk of heart disease is now half that of a smoker.", HoursAfterQuit: 8760, Icon: "heart.circle.fill"},
	{Title: "Stroke risk drops", Detail: "Your stroke risk begins to approach that of a non-smoker.", HoursAfterQuit: 43800, Icon: "brain.head.profile"},
	{Title: "Lung cancer risk halves", Detail: "Risk of lung cancer is now half that of a continuing smoker.", HoursAfterQuit: 87600, Icon: "shield.checkered"},
	{Title: "Heart disease risk normal", Detail: "Your risk is now the same as someone who never smoked.", HoursAfterQuit: 131400, Icon: "star.fill"},
}

// Milestones returns the health milestones in catalog order.
// The returned slice is a copy.
func Milestones() []models.HealthMilestone {
	out := make([]models.HealthMilestone, len(milestones))
	copy(out, milestones)
	return out
}

// MilestoneAt returns the milestone at position i
func MilestoneAt(i int) (models.HealthMilestone, bool) {
	if i < 0 || i >= len(milestones) {
		return models.HealthMilestone{}, false
	}
	return milestones[i], true
}
