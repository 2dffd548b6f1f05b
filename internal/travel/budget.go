package travel

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
)

var priceRe = regexp.MustCompile(`(?i)(\d{1,6}(?:\.\d{1,2})?)\s?(USD|INR|EUR|₹|\$)?`)

type budgetItem struct {
	key      string
	query    string
	fallback float64
}

func budgetItems(dest, currency string) []budgetItem {
	return []budgetItem{
		{"hotel", fmt.Sprintf("average price per night for a 3-star hotel room (not hostel) in the city center of %s in %s", dest, currency), 100},
		{"restaurant", fmt.Sprintf("average total daily cost for three meals (breakfast, lunch, dinner) per person at mid-range restaurants in %s in %s", dest, currency), 40},
		{"attraction", fmt.Sprintf("average total daily cost of visiting two popular attractions per person in %s in %s", dest, currency), 20},
		{"transportation", fmt.Sprintf("average daily cost of public transportation (bus, metro, taxi) per person in %s in %s", dest, currency), 15},
	}
}

// BudgetTool estimates daily costs by web search, then the language model,
// then fixed fallbacks, and adds the flight prices.
type BudgetTool struct {
	search core.WebSearcher
	llm    core.TextGenerator
}

func NewBudgetTool(search core.WebSearcher, llm core.TextGenerator) *BudgetTool {
	return &BudgetTool{search: search, llm: llm}
}

func (t *BudgetTool) Name() string    { return "BudgetCalculatorTool" }
func (t *BudgetTool) Requires() []Tag { return []Tag{TagFlights} }
func (t *BudgetTool) Produces() []Tag { return []Tag{TagBudget} }

func (t *BudgetTool) Execute(ctx context.Context, state *State) error {
	q := state.Query
	nights := float64(q.Nights)
	daily := make(map[string]float64, 4)
	for _, item := range budgetItems(q.Destination, q.Currency) {
		v, ok := t.fromSearch(ctx, item.query)
		if !ok {
			v, ok = t.fromLLM(ctx, item.key, q.Destination, q.Currency)
		}
		if !ok {
			v = item.fallback
		}
		daily[item.key] = v
	}

	b := BudgetBreakdown{
		Hotel:          daily["hotel"] * nights,
		Restaurants:    daily["restaurant"] * nights,
		Attractions:    daily["attraction"] * nights,
		Transportation: daily["transportation"] * nights,
		FlightTotal:    state.FlightOnwardPrice + state.FlightReturnPrice,
	}
	state.BudgetBreakdown = b
	state.TotalBudget = b.FlightTotal + b.Hotel + b.Restaurants + b.Attractions + b.Transportation
	state.tool(t.Name(), fmt.Sprintf(
		"Estimated total budget: %s (hotel: %s, restaurants: %s, attractions: %s, transportation: %s, flight onward: %s, flight return: %s)",
		formatAmount(state.TotalBudget), formatAmount(b.Hotel), formatAmount(b.Restaurants), formatAmount(b.Attractions),
		formatAmount(b.Transportation), formatAmount(state.FlightOnwardPrice), formatAmount(state.FlightReturnPrice)), b)
	return nil
}

func (t *BudgetTool) fromSearch(ctx context.Context, query string) (float64, bool) {
	if t.search == nil {
		return 0, false
	}
	results, err := t.search.Discover(ctx, query, 3, nil, 0)
	if err != nil {
		return 0, false
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Snippet)
	}
	return firstPrice(strings.Join(parts, "\n"))
}

func (t *BudgetTool) fromLLM(ctx context.Context, key, dest, currency string) (float64, bool) {
	if t.llm == nil {
		return 0, false
	}
	out, err := t.llm.Generate(ctx, fmt.Sprintf("What is the average %s price in %s in %s?", key, dest, currency))
	if err != nil {
		return 0, false
	}
	return firstPrice(out)
}

func firstPrice(text string) (float64, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
