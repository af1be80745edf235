package travel

import (
	"slices"
	"strings"
)

// MaxHotels is the number of hotels kept in the research result
const MaxHotels = 10

// Weather is the forecast of a day
type Weather struct {
	Temperature float64 `json:"temperature" yaml:"temperature" jsonschema:"title=Temperature,description=Expected temperature in Celsius"`
	Conditions  string  `json:"conditions" yaml:"conditions" validate:"required" jsonschema:"title=Conditions,description=Weather conditions such as sunny or rain"`
	Forecast    string  `json:"forecast" yaml:"forecast" jsonschema:"title=Forecast,description=Short forecast for the day"`
}

// DayPlan is the plan of a day of the trip
type DayPlan struct {
	Day             string   `json:"day" yaml:"day" validate:"required" jsonschema:"title=Day,description=Date or label of the day"`
	Activities      []string `json:"activities" yaml:"activities" validate:"required" jsonschema:"title=Activities,description=Activities of the day"`
	ApproximateCost float64  `json:"approximate_cost" yaml:"approximate_cost" validate:"gte=0" jsonschema:"title=Approximate Cost,description=Approximate cost of the day activities"`
	Weather         Weather  `json:"weather" yaml:"weather" jsonschema:"title=Weather,description=Weather forecast of the day"`
}

// ItineraryResult is the planned trip
type ItineraryResult struct {
	AIReply               string             `json:"ai_reply" yaml:"ai_reply" validate:"required" jsonschema:"title=AI Reply,description=Short summary of the plan for the traveler"`
	SuggestedDestinations []string           `json:"suggested_destinations" yaml:"suggested_destinations" validate:"required" jsonschema:"title=Suggested Destinations,description=Must-visit places of the region"`
	Activities            []string           `json:"activities" yaml:"activities" validate:"required" jsonschema:"title=Activities,description=Highlights of the trip"`
	DayWiseItinerary      map[string]DayPlan `json:"day_wise_itinerary" yaml:"day_wise_itinerary" validate:"required,dive" jsonschema:"title=Day Wise Itinerary,description=Plan of each day keyed by a unique day label such as Day 1"`
	EstimatedCost         float64            `json:"estimated_cost" yaml:"estimated_cost" validate:"gte=0" jsonschema:"title=Estimated Cost,description=Estimated total cost of the trip"`
	HotelDetails          map[string]any     `json:"hotel_details,omitempty" yaml:"hotel_details,omitempty" jsonschema:"title=Hotel Details,description=Optional details of the suggested hotels"`
}

// IsEmpty returns true when the result has no day plans
func (r *ItineraryResult) IsEmpty() bool {
	return r == nil || len(r.DayWiseItinerary) == 0
}

// DayLabels returns the sorted labels of the day plans
func (r *ItineraryResult) DayLabels() []string {
	if r == nil {
		return nil
	}
	labels := make([]string, 0, len(r.DayWiseItinerary))
	for k := range r.DayWiseItinerary {
		labels = append(labels, k)
	}
	slices.Sort(labels)
	return labels
}

// Hotel is a hotel option
type Hotel struct {
	Name          string   `json:"name" yaml:"name" validate:"required" jsonschema:"title=Name,description=Hotel name"`
	PricePerNight float64  `json:"price_per_night" yaml:"price_per_night" validate:"gte=0" jsonschema:"title=Price Per Night,description=Price per night"`
	Rating        string   `json:"rating" yaml:"rating" jsonschema:"title=Rating,description=Guest or star rating"`
	Location      string   `json:"location" yaml:"location" jsonschema:"title=Location,description=Area or address"`
	Amenities     []string `json:"amenities" yaml:"amenities" jsonschema:"title=Amenities,description=Notable amenities"`
}

// Transport is a local transport option
type Transport struct {
	Type        string  `json:"type" yaml:"type" validate:"required" jsonschema:"title=Type,description=Kind of transport such as rental car or metro pass"`
	PricePerDay float64 `json:"price_per_day" yaml:"price_per_day" validate:"gte=0" jsonschema:"title=Price Per Day,description=Price per day"`
	Capacity    string  `json:"capacity" yaml:"capacity" jsonschema:"title=Capacity,description=Number of passengers"`
	Description string  `json:"description" yaml:"description" jsonschema:"title=Description,description=Short description"`
}

// PriceRange is the range of hotel prices per night
type PriceRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// MarketResearchResult is the hotel and transport options of a destination
type MarketResearchResult struct {
	Hotels    []Hotel     `json:"hotels" yaml:"hotels" validate:"required,dive" jsonschema:"title=Hotels,description=Hotel options that fit the budget"`
	Transport []Transport `json:"transport" yaml:"transport" validate:"required,dive" jsonschema:"title=Transport,description=Local transport options"`
	Summary   string      `json:"summary" yaml:"summary" jsonschema:"title=Summary,description=Summary of the research"`

	// PriceRange is computed by Normalize
	PriceRange *PriceRange `json:"price_range,omitempty" yaml:"price_range,omitempty" jsonschema:"-"`
}

// IsEmpty returns true when the result has neither hotels nor transport
func (r *MarketResearchResult) IsEmpty() bool {
	return r == nil || (len(r.Hotels) == 0 && len(r.Transport) == 0)
}

// Normalize removes hotels with duplicate names, sorts the hotels by price
// and keeps at most MaxHotels of them.
func (r *MarketResearchResult) Normalize() {
	if r == nil {
		return
	}

	seen := make(map[string]struct{}, len(r.Hotels))
	hotels := make([]Hotel, 0, len(r.Hotels))
	for _, h := range r.Hotels {
		key := strings.ToLower(strings.TrimSpace(h.Name))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		hotels = append(hotels, h)
	}

	slices.SortStableFunc(hotels, func(a, b Hotel) int {
		switch {
		case a.PricePerNight < b.PricePerNight:
			return -1
		case a.PricePerNight > b.PricePerNight:
			return 1
		}
		return 0
	})
	if len(hotels) > MaxHotels {
		hotels = hotels[:MaxHotels]
	}
	r.Hotels = hotels

	r.PriceRange = nil
	for _, h := range hotels {
		if h.PricePerNight <= 0 {
			continue
		}
		if r.PriceRange == nil {
			r.PriceRange = &PriceRange{Min: h.PricePerNight, Max: h.PricePerNight}
			continue
		}
		r.PriceRange.Min = min(r.PriceRange.Min, h.PricePerNight)
		r.PriceRange.Max = max(r.PriceRange.Max, h.PricePerNight)
	}
}
