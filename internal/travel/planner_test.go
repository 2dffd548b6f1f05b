package travel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
)

type staticPlaces map[string][]string

func (p staticPlaces) TextSearch(ctx context.Context, query, placeType string) ([]string, string, error) {
	return p[placeType], "OK", nil
}

type failingSummarizer struct{}

func (failingSummarizer) Summarize(ctx context.Context, s *State) (string, error) {
	return "", errors.New("model unavailable")
}

func newTestPlanner(t *testing.T, places PlacesSearcher, summarizer Summarizer) *Planner {
	t.Helper()
	rates := rateFunc(func(from, to string) (float64, error) { return 0.9, nil })
	tools := DefaultTools(places, nil, staticForecast{}, rates, nil, nil)
	ex, err := NewExecutor(tools, WithParallel(true))
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return NewPlanner(ex, summarizer, nil)
}

type staticForecast struct{}

func (staticForecast) Forecast(ctx context.Context, city string) (Forecast, error) {
	return Forecast{}, nil
}

func TestPlanScenarioOneHotelTwoRestaurants(t *testing.T) {
	places := staticPlaces{
		"hotels":      {"Hotel Artemide"},
		"restaurants": {"Roscioli", "Armando"},
		"attractions": {"Colosseum", "Pantheon", "Trevi"},
	}
	p := newTestPlanner(t, places, TemplateSummarizer{})
	res, err := p.Plan(context.Background(), Query{Destination: "Rome", StartDate: "2025-06-01", Nights: 3})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if _, err := uuid.Parse(res.ThreadID); err != nil {
		t.Fatalf("thread id is not a uuid: %q", res.ThreadID)
	}
	if res.Messages[0].Role != "supervisor" || !strings.HasPrefix(res.Messages[0].Content, "Supervisor invoked with query: ") {
		t.Fatalf("unexpected first message %+v", res.Messages[0])
	}
	last := res.Messages[len(res.Messages)-1]
	if last.Content != "Final summary generated for user." {
		t.Fatalf("unexpected last message %+v", last)
	}

	var itinerary []DayPlan
	for _, m := range res.Messages {
		if m.ToolName == "ItineraryPlannerTool" {
			itinerary = m.Result.([]DayPlan)
		}
	}
	if len(itinerary) != 3 {
		t.Fatalf("expected 3 days, got %d", len(itinerary))
	}
	for i, d := range itinerary {
		if want := places["restaurants"][i%2]; d.Restaurant != want {
			t.Fatalf("day %d: restaurant %q, want %q", i+1, d.Restaurant, want)
		}
		if d.Hotel != "Hotel Artemide" {
			t.Fatalf("day %d: hotel %q", i+1, d.Hotel)
		}
	}
	if !strings.Contains(res.FinalAnswer, "**Trip to Rome**") || !strings.Contains(res.FinalAnswer, "Getting around**\n"+missing) {
		t.Fatalf("summary should note missing transportation:\n%s", res.FinalAnswer)
	}
}

func TestPlanSummaryFailure(t *testing.T) {
	p := newTestPlanner(t, staticPlaces{}, failingSummarizer{})
	res, err := p.Plan(context.Background(), Query{Destination: "Oslo", StartDate: "2025-01-10"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.FinalAnswer != "An error occurred." {
		t.Fatalf("unexpected final answer %q", res.FinalAnswer)
	}
	last := res.Messages[len(res.Messages)-1]
	if last.Role != "supervisor" || last.Content != "Error: model unavailable" {
		t.Fatalf("unexpected last message %+v", last)
	}
}

func TestPlanRejectsInvalidQuery(t *testing.T) {
	p := newTestPlanner(t, staticPlaces{}, TemplateSummarizer{})
	cases := []Query{
		{StartDate: "2025-01-10"},
		{Destination: "Oslo"},
		{Destination: "Oslo", StartDate: "10/01/2025"},
		{Destination: "Oslo", StartDate: "2025-01-10", Currency: "DOLLARS"},
	}
	for _, q := range cases {
		_, err := p.Plan(context.Background(), q)
		if !core.IsConfigError(err) {
			t.Fatalf("%+v: expected config error, got %v", q, err)
		}
	}
}

func TestQueryDefaults(t *testing.T) {
	q := Query{Destination: " Oslo ", StartDate: "2025-01-10", Currency: "nok"}
	if err := q.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if q.Destination != "Oslo" || q.Nights != 3 || q.Adults != 1 || q.Currency != "NOK" {
		t.Fatalf("unexpected defaults %+v", q)
	}
	q = Query{Destination: "Oslo", StartDate: "2025-01-10"}
	q.Normalize()
	if q.Currency != "USD" {
		t.Fatalf("expected USD default, got %q", q.Currency)
	}
	err := (&Query{StartDate: "2025-01-10"}).Validate()
	if !errors.Is(err, ErrInvalidQuery) || !strings.Contains(err.Error(), "destination is required") {
		t.Fatalf("unexpected error %v", err)
	}
}
