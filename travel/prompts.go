package travel

import (
	"github.com/effective-security/tripcrew/pkg/prompts"
)

var (
	itineraryTask = prompts.MustTemplate("itinerary_task",
		"Plan a trip to {{ .destination }} for {{ .days }} days, starting on {{ .start_date }}. "+
			"The budget is {{ .budget }}. "+
			"Please provide a detailed day-wise itinerary with weather forecasts.",
		"destination", "days", "start_date", "budget")

	researchTask = prompts.MustTemplate("research_task",
		"Research the travel market in {{ .destination }} for a {{ .days }}-day trip with a total budget of {{ .budget }}. "+
			"Find hotel options and local transport options that fit the budget.",
		"destination", "days", "budget")
)

// ItineraryTask returns the task of the itinerary team.
// Equal requests produce identical text.
func ItineraryTask(req *ItineraryRequest) (string, error) {
	return itineraryTask.Format(map[string]any{
		"destination": req.Destination,
		"days":        req.Days,
		"start_date":  req.StartDate,
		"budget":      req.Budget,
	})
}

// ResearchTask returns the task of the research team.
// Equal requests produce identical text.
func ResearchTask(req *ResearchRequest) (string, error) {
	return researchTask.Format(map[string]any{
		"destination": req.Destination,
		"days":        req.Days,
		"budget":      req.Budget,
	})
}
