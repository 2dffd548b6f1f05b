package travel

import (
	"context"
	"fmt"
)

// ItineraryTool spreads places across the nights of the stay.
type ItineraryTool struct{}

func NewItineraryTool() *ItineraryTool { return &ItineraryTool{} }

func (t *ItineraryTool) Name() string    { return "ItineraryPlannerTool" }
func (t *ItineraryTool) Requires() []Tag { return []Tag{TagPlaces} }
func (t *ItineraryTool) Produces() []Tag { return []Tag{TagItinerary} }

func (t *ItineraryTool) Execute(ctx context.Context, state *State) error {
	state.Itinerary = BuildItinerary(state.Query.Nights, state.Attractions, state.Restaurants, state.Hotels, state.Transportation)
	state.tool(t.Name(), fmt.Sprintf("Itinerary planned for %d nights", state.Query.Nights), state.Itinerary)
	return nil
}

// BuildItinerary returns one entry per night. Day i gets every nights-th
// attraction starting at i and cycles restaurants and transportation.
func BuildItinerary(nights int, attractions, restaurants, hotels, transportation []string) []DayPlan {
	if nights < 0 {
		nights = 0
	}
	plan := make([]DayPlan, 0, nights)
	for i := 0; i < nights; i++ {
		day := DayPlan{
			Day:            i + 1,
			Hotel:          "No hotel found",
			Attractions:    []string{},
			Restaurant:     "No restaurant found",
			Transportation: "No transportation info",
		}
		if len(hotels) > 0 {
			day.Hotel = hotels[0]
		}
		for j := i; j < len(attractions); j += nights {
			day.Attractions = append(day.Attractions, attractions[j])
		}
		if len(restaurants) > 0 {
			day.Restaurant = restaurants[i%len(restaurants)]
		}
		if len(transportation) > 0 {
			day.Transportation = transportation[i%len(transportation)]
		}
		plan = append(plan, day)
	}
	return plan
}
