package travel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
)

const missing = "Not available"

// Summarizer turns a finished state into a traveller-facing plan.
type Summarizer interface {
	Summarize(ctx context.Context, state *State) (string, error)
}

// LLMSummarizer asks a language model for a markdown plan.
type LLMSummarizer struct {
	llm core.TextGenerator
}

func NewLLMSummarizer(llm core.TextGenerator) *LLMSummarizer {
	return &LLMSummarizer{llm: llm}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, state *State) (string, error) {
	out, err := s.llm.Generate(ctx, summaryPrompt(state))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty summary")
	}
	return out, nil
}

func summaryPrompt(s *State) string {
	f := fieldsOf(s)
	var sb strings.Builder
	sb.WriteString("You are a travel planning assistant. Here is the user's question:\n")
	sb.WriteString(queryJSON(s.Query))
	sb.WriteString("\n\nYou have access to the following tools and their results:\n")
	for _, fv := range f {
		fmt.Fprintf(&sb, "- %s: %s\n", fv.tool, fv.value)
	}
	sb.WriteString(`
Please summarize all this information into a clear, friendly, and actionable travel plan for the user.
- Organize the summary by category (dates, flights, hotel, attractions, weather, budget, etc.).
- Use markdown formatting: bold section headings, bullet points for lists, and clear separation between sections.
- Every result marked "` + missing + `" must be mentioned politely as missing, never left out.
- End with a friendly closing or travel tip.
- When summarizing flights, highlight the cheapest options and recommend the best value considering both price and convenience.
- Write for a traveler, not a developer.
`)
	return sb.String()
}

type fieldValue struct {
	tool    string
	heading string
	value   string
}

func list(items []string) string {
	if len(items) == 0 {
		return missing
	}
	return strings.Join(items, "; ")
}

func text(s string) string {
	if strings.TrimSpace(s) == "" {
		return missing
	}
	return s
}

func amount(v float64, currency string) string {
	if v == 0 {
		return missing
	}
	return formatAmount(v) + " " + currency
}

func fieldsOf(s *State) []fieldValue {
	cur := s.Query.Currency
	itinerary := missing
	if len(s.Itinerary) > 0 {
		days := make([]string, len(s.Itinerary))
		for i, d := range s.Itinerary {
			attractions := "free day"
			if len(d.Attractions) > 0 {
				attractions = strings.Join(d.Attractions, ", ")
			}
			days[i] = fmt.Sprintf("Day %d: %s | eat at %s | get around by %s", d.Day, attractions, d.Restaurant, d.Transportation)
		}
		itinerary = strings.Join(days, "\n  ")
	}
	return []fieldValue{
		{"AttractionSearchTool", "Attractions", list(s.Attractions)},
		{"RestaurantSearchTool", "Restaurants", list(s.Restaurants)},
		{"HotelSearchTool", "Hotels", list(s.Hotels)},
		{"TransportationSearchTool", "Getting around", list(s.Transportation)},
		{"ActivitySearchTool", "Activities", list(s.Activities)},
		{"WeatherInfoTool", "Weather", text(s.Weather)},
		{"BudgetCalculatorTool", "Estimated budget", amount(s.TotalBudget, cur)},
		{"ItineraryPlannerTool", "Itinerary", itinerary},
		{"CurrencyConvertorTool", "Currency", text(s.CurrencyConversion)},
		{"FlightSearchTool", "Flights", fmt.Sprintf("Onward: %s, Return: %s", list(s.FlightsOnward), list(s.FlightsReturn))},
		{"FlightPriceTool", "Cheapest fares", fmt.Sprintf("Onward: %s, Return: %s", amount(s.FlightOnwardPrice, cur), amount(s.FlightReturnPrice, cur))},
	}
}

// TemplateSummarizer renders a fixed markdown layout without a model.
type TemplateSummarizer struct{}

func (TemplateSummarizer) Summarize(ctx context.Context, s *State) (string, error) {
	var sb strings.Builder
	q := s.Query
	fmt.Fprintf(&sb, "**Trip to %s**\n\n", q.Destination)
	fmt.Fprintf(&sb, "- Dates: %s, %d nights", q.StartDate, q.Nights)
	if q.ReturnDate != "" {
		fmt.Fprintf(&sb, ", returning %s", q.ReturnDate)
	}
	fmt.Fprintf(&sb, "\n- Travellers: %d adult(s)\n", q.Adults)
	for _, f := range fieldsOf(s) {
		fmt.Fprintf(&sb, "\n**%s**\n%s\n", f.heading, f.value)
	}
	sb.WriteString("\nHave a great trip!")
	return sb.String(), nil
}
