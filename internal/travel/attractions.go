package travel

import (
	"context"
	"fmt"
)

type placeCategory struct {
	key   string
	query func(q Query) string
}

var placeCategories = []placeCategory{
	{"attractions", func(q Query) string { return withDate("top tourist attractions in "+q.Destination, q.StartDate) }},
	{"restaurants", func(q Query) string { return "restaurants in " + q.Destination }},
	{"transportation", func(q Query) string { return "transportation in " + q.Destination }},
	{"activities", func(q Query) string { return withDate("things to do in "+q.Destination, q.StartDate) }},
	{"hotels", func(q Query) string { return withDate("hotels in "+q.Destination, q.StartDate) }},
}

func withDate(s, date string) string {
	if date == "" {
		return s
	}
	return s + " on " + date
}

// PlacesSearcher looks up place names for a text query.
type PlacesSearcher interface {
	TextSearch(ctx context.Context, query, placeType string) ([]string, string, error)
}

// AttractionTool fills attractions, restaurants, transportation, activities and hotels.
type AttractionTool struct {
	places PlacesSearcher
}

func NewAttractionTool(places PlacesSearcher) *AttractionTool {
	return &AttractionTool{places: places}
}

func (t *AttractionTool) Name() string    { return "AttractionSearchTool" }
func (t *AttractionTool) Requires() []Tag { return nil }
func (t *AttractionTool) Produces() []Tag { return []Tag{TagPlaces} }

func (t *AttractionTool) Execute(ctx context.Context, state *State) error {
	dest := state.Query.Destination
	results := make(map[string][]string, len(placeCategories))
	for _, c := range placeCategories {
		names, _, err := t.places.TextSearch(ctx, c.query(state.Query), c.key)
		if err != nil {
			state.Attractions, state.Restaurants, state.Transportation = []string{}, []string{}, []string{}
			state.Activities, state.Hotels = []string{}, []string{}
			state.tool(t.Name(), fmt.Sprintf("Error fetching attractions for %s: %v", dest, err), nil)
			return err
		}
		if names == nil {
			names = []string{}
		}
		results[c.key] = names
	}
	state.Attractions = results["attractions"]
	state.Restaurants = results["restaurants"]
	state.Transportation = results["transportation"]
	state.Activities = results["activities"]
	state.Hotels = results["hotels"]
	state.tool(t.Name(), "Found attractions for "+dest, results)
	return nil
}
