package travel_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/encoding"
	"github.com/effective-security/tripcrew/travel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kyotoResearch = `{
	"hotels": [{"name": "Hotel Granvia", "price_per_night": 200, "rating": "4.5", "location": "Kyoto Station", "amenities": ["wifi"]}],
	"transport": [{"type": "Bus pass", "price_per_day": 8, "capacity": "1", "description": "City buses"}],
	"summary": "Central options"
}`

// without returns the JSON document with the property at path removed,
// or set to null when null is true.
func without(t *testing.T, doc string, path string, null bool) string {
	t.Helper()

	var root any
	require.NoError(t, json.Unmarshal([]byte(doc), &root))

	parts := strings.Split(path, ".")
	cur := root
	for _, p := range parts[:len(parts)-1] {
		switch v := cur.(type) {
		case map[string]any:
			cur = v[p]
		case []any:
			cur = v[0]
			if m, ok := cur.(map[string]any); ok {
				cur = m[p]
			}
		}
	}
	obj := cur.(map[string]any)
	last := parts[len(parts)-1]
	require.Contains(t, obj, last, path)
	if null {
		obj[last] = nil
	} else {
		delete(obj, last)
	}

	js, err := json.Marshal(root)
	require.NoError(t, err)
	return string(js)
}

func TestItineraryResult_Contract(t *testing.T) {
	t.Parallel()

	parser, err := encoding.NewTypedOutputParser(travel.ItineraryResult{}, encoding.ModeJSON)
	require.NoError(t, err)

	res, err := parser.Parse(kyotoItinerary)
	require.NoError(t, err)
	assert.Equal(t, 1400.0, res.EstimatedCost)
	assert.Equal(t, 18.0, res.DayWiseItinerary["Day 1"].Weather.Temperature)

	for _, path := range []string{
		"ai_reply",
		"suggested_destinations",
		"activities",
		"day_wise_itinerary",
		"estimated_cost",
		"day_wise_itinerary.Day 1.day",
		"day_wise_itinerary.Day 1.activities",
		"day_wise_itinerary.Day 1.approximate_cost",
		"day_wise_itinerary.Day 1.weather",
		"day_wise_itinerary.Day 1.weather.temperature",
		"day_wise_itinerary.Day 1.weather.conditions",
		"day_wise_itinerary.Day 1.weather.forecast",
	} {
		t.Run(path, func(t *testing.T) {
			_, err := parser.Parse(without(t, kyotoItinerary, path, false))
			require.Error(t, err)
			assert.Equal(t, chatmodel.KindSchemaViolation, chatmodel.KindOf(err))
			assert.Contains(t, err.Error(), path+" is required")

			_, err = parser.Parse(without(t, kyotoItinerary, path, true))
			require.Error(t, err)
			assert.Equal(t, chatmodel.KindSchemaViolation, chatmodel.KindOf(err))
		})
	}
}

func TestMarketResearchResult_Contract(t *testing.T) {
	t.Parallel()

	parser, err := encoding.NewTypedOutputParser(travel.MarketResearchResult{}, encoding.ModeJSON)
	require.NoError(t, err)

	res, err := parser.Parse(kyotoResearch)
	require.NoError(t, err)
	assert.Equal(t, 200.0, res.Hotels[0].PricePerNight)
	assert.Equal(t, 8.0, res.Transport[0].PricePerDay)

	_, err = parser.Parse(`{"hotels":[{"name":"Granvia"}],"transport":[{"type":"bus"}],"summary":"x"}`)
	require.Error(t, err)
	assert.Equal(t, chatmodel.KindSchemaViolation, chatmodel.KindOf(err))
	assert.Contains(t, err.Error(), "hotels[0].price_per_night is required")

	for _, tc := range []struct {
		path string
		exp  string
	}{
		{"hotels", "hotels is required"},
		{"transport", "transport is required"},
		{"summary", "summary is required"},
		{"hotels.name", "hotels[0].name is required"},
		{"hotels.price_per_night", "hotels[0].price_per_night is required"},
		{"hotels.rating", "hotels[0].rating is required"},
		{"hotels.location", "hotels[0].location is required"},
		{"hotels.amenities", "hotels[0].amenities is required"},
		{"transport.type", "transport[0].type is required"},
		{"transport.price_per_day", "transport[0].price_per_day is required"},
		{"transport.capacity", "transport[0].capacity is required"},
		{"transport.description", "transport[0].description is required"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			_, err := parser.Parse(without(t, kyotoResearch, tc.path, false))
			require.Error(t, err)
			assert.Equal(t, chatmodel.KindSchemaViolation, chatmodel.KindOf(err))
			assert.Contains(t, err.Error(), tc.exp)
		})
	}
}
