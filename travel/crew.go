package travel

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/agents"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/teams"
	"github.com/effective-security/tripcrew/tools"
)

// Agent IDs, used to map agents to models in the LLM config
const (
	WeatherAgentID         = "weather_agent"
	ItineraryAgentID       = "itinerary_agent"
	ItineraryCoordinatorID = "itinerary_coordinator"
	HotelAgentID           = "hotel_agent"
	TransportAgentID       = "transport_agent"
	ResearchCoordinatorID  = "research_coordinator"
)

// Team names
const (
	ItineraryTeamName = "travel_planning_team"
	ResearchTeamName  = "market_research_team"
)

var (
	WeatherInstructions = []string{
		"You are a weather information specialist.",
		"Provide weather details for the destination on each date of the trip.",
		"Include temperature, conditions, and any relevant forecasts.",
		"Use the web search tool to find the forecast or the seasonal climate.",
	}

	ItineraryInstructions = []string{
		"You are a travel itinerary expert.",
		"Based on the destination, budget and the weather provided:",
		"1. Suggest must-visit cities in that country or region",
		"2. Create a detailed day-by-day itinerary with specific activities",
		"3. Include approximate costs for each day's activities",
		"4. Ensure the total cost stays within the user's budget",
		"5. Make the itinerary practical and enjoyable",
		"Present the itinerary in a clear, organized format with daily activities and costs.",
	}

	ItineraryCoordinatorInstructions = []string{
		"You coordinate a travel planning team.",
		"Merge the weather details and the itinerary of the team members into one plan.",
		"Use one entry of day_wise_itinerary per day of the trip, keyed by a unique day label.",
		"Do not invent information that is not provided by the team members.",
	}

	HotelInstructions = []string{
		"You are a hotel research specialist.",
		"Find hotel options at the destination that fit the budget of the trip.",
		"For each hotel include the name, price per night, rating, location and amenities.",
		"Use the web search tool to find current prices.",
	}

	TransportInstructions = []string{
		"You are a local transport research specialist.",
		"Find local transport options at the destination such as rental cars, passes and taxis.",
		"For each option include the type, price per day, capacity and a short description.",
		"Use the web search tool to find current prices.",
	}

	ResearchCoordinatorInstructions = []string{
		"You lead a travel market research team.",
		"Merge the hotel options and the transport options of the team members into one result.",
		"Keep every option reported by the members and write a short summary.",
		"Do not invent options that are not provided by the team members.",
	}
)

// ModelProvider returns the model of an agent.
// llmfactory.Factory implements it.
type ModelProvider interface {
	AgentModel(agentID string, preferredModels ...string) (llms.Model, error)
}

// Crew is the teams of the travel domain,
// built once at startup and shared by all requests.
type Crew struct {
	Itinerary *teams.Team[ItineraryResult]
	Research  *teams.Team[MarketResearchResult]
}

// NewCrew returns the Crew with agents on the models of the provider.
// The search tool is given to the agents gathering facts.
func NewCrew(models ModelProvider, search tools.ITool, opts ...agents.Option) (*Crew, error) {
	if models == nil {
		return nil, errors.New("model provider is required")
	}
	if search == nil {
		return nil, errors.New("search tool is required")
	}

	weather, err := newMember(models, WeatherAgentID, WeatherInstructions, opts, search)
	if err != nil {
		return nil, err
	}
	itinerary, err := newMember(models, ItineraryAgentID, ItineraryInstructions, opts)
	if err != nil {
		return nil, err
	}
	itineraryCoordinator, err := newCoordinator[ItineraryResult](models, ItineraryCoordinatorID, ItineraryCoordinatorInstructions, opts)
	if err != nil {
		return nil, err
	}

	hotel, err := newMember(models, HotelAgentID, HotelInstructions, opts, search)
	if err != nil {
		return nil, err
	}
	transport, err := newMember(models, TransportAgentID, TransportInstructions, opts, search)
	if err != nil {
		return nil, err
	}
	researchCoordinator, err := newCoordinator[MarketResearchResult](models, ResearchCoordinatorID, ResearchCoordinatorInstructions, opts)
	if err != nil {
		return nil, err
	}

	// the itinerary depends on the weather
	itineraryTeam, err := teams.New[ItineraryResult](ItineraryTeamName, teams.Sequential(weather, itinerary), itineraryCoordinator)
	if err != nil {
		return nil, err
	}
	researchTeam, err := teams.New[MarketResearchResult](ResearchTeamName, teams.FanOut(hotel, transport), researchCoordinator)
	if err != nil {
		return nil, err
	}

	return &Crew{
		Itinerary: itineraryTeam,
		Research:  researchTeam,
	}, nil
}

func newMember(models ModelProvider, id string, instructions []string, opts []agents.Option, list ...tools.ITool) (*agents.Agent[chatmodel.String], error) {
	llm, err := models.AgentModel(id)
	if err != nil {
		return nil, errors.WithMessagef(err, "agent %s", id)
	}
	a, err := agents.New[chatmodel.String](id, llm, instructions, opts...)
	if err != nil {
		return nil, err
	}
	return a.WithTools(list...), nil
}

func newCoordinator[O any](models ModelProvider, id string, instructions []string, opts []agents.Option) (*agents.Agent[O], error) {
	llm, err := models.AgentModel(id)
	if err != nil {
		return nil, errors.WithMessagef(err, "agent %s", id)
	}
	copts := append(append([]agents.Option(nil), opts...), agents.WithJSONMode(true))
	return agents.New[O](id, llm, instructions, copts...)
}
