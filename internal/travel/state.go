package travel

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidQuery wraps every query validation failure.
var ErrInvalidQuery = errors.New("invalid travel query")

// Query is the structured trip request.
type Query struct {
	Destination string `json:"destination" validate:"required"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	ReturnDate  string `json:"return_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Nights      int    `json:"nights" validate:"gte=1,lte=60"`
	Adults      int    `json:"adults" validate:"gte=1,lte=9"`
	Currency    string `json:"currency" validate:"len=3,alpha"`
	// IATA codes for the flight search; optional.
	From string `json:"from,omitempty" validate:"omitempty,len=3,alpha"`
	To   string `json:"to,omitempty" validate:"omitempty,len=3,alpha"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func queryValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Normalize fills defaults: 3 nights, 1 adult, USD.
func (q *Query) Normalize() {
	q.Destination = strings.TrimSpace(q.Destination)
	q.StartDate = strings.TrimSpace(q.StartDate)
	q.ReturnDate = strings.TrimSpace(q.ReturnDate)
	if q.Nights == 0 {
		q.Nights = 3
	}
	if q.Adults == 0 {
		q.Adults = 1
	}
	q.Currency = strings.ToUpper(strings.TrimSpace(q.Currency))
	if q.Currency == "" {
		q.Currency = "USD"
	}
	q.From = strings.ToUpper(strings.TrimSpace(q.From))
	q.To = strings.ToUpper(strings.TrimSpace(q.To))
}

// Validate normalizes q and checks it.
func (q *Query) Validate() error {
	q.Normalize()
	if err := queryValidator().Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidQuery, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "datetime":
		return fe.Field() + " must be a YYYY-MM-DD date"
	default:
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
}

// Message is one audit entry of a travel run.
type Message struct {
	Role     string `json:"role"`
	ToolName string `json:"tool_name,omitempty"`
	Content  string `json:"content"`
	Result   any    `json:"result,omitempty"`
}

// DayPlan is one itinerary day.
type DayPlan struct {
	Day            int      `json:"day"`
	Hotel          string   `json:"hotel"`
	Attractions    []string `json:"attractions"`
	Restaurant     string   `json:"restaurant"`
	Transportation string   `json:"transportation"`
}

// BudgetBreakdown holds per-category totals for the whole stay.
type BudgetBreakdown struct {
	Hotel          float64 `json:"hotel"`
	Restaurants    float64 `json:"restaurants"`
	Attractions    float64 `json:"attractions"`
	Transportation float64 `json:"transportation"`
	FlightTotal    float64 `json:"flight_total"`
}

// State is shared by every tool of one travel run.
type State struct {
	Query    Query     `json:"query"`
	Messages []Message `json:"messages"`

	FinalAnswer string `json:"final_answer"`

	Attractions    []string `json:"attractions"`
	Restaurants    []string `json:"restaurants"`
	Transportation []string `json:"transportation"`
	Activities     []string `json:"activities"`
	Hotels         []string `json:"hotels"`

	Weather string `json:"weather"`

	ExchangeRate       float64 `json:"exchange_rate"`
	CurrencyConversion string  `json:"currency_conversion"`

	FlightsOnward     []string `json:"flights_onward"`
	FlightsReturn     []string `json:"flights_return"`
	FlightOnwardPrice float64  `json:"flight_onward_prices"`
	FlightReturnPrice float64  `json:"flight_return_prices"`

	TotalBudget     float64         `json:"total_budget"`
	BudgetBreakdown BudgetBreakdown `json:"budget_breakdown"`

	Itinerary []DayPlan `json:"itinerary"`
}

// NewState starts a run for an already validated query.
func NewState(q Query) *State {
	return &State{Query: q, ExchangeRate: 1, CurrencyConversion: q.Currency}
}

func (s *State) supervisor(content string, result any) {
	s.Messages = append(s.Messages, Message{Role: "supervisor", Content: content, Result: result})
}

func (s *State) tool(name, content string, result any) {
	s.Messages = append(s.Messages, Message{Role: "tool", ToolName: name, Content: content, Result: result})
}

// fork copies s for a concurrently running tool. Slices are shared
// read-only; tools replace them rather than appending in place.
func (s *State) fork() *State {
	cp := *s
	cp.Messages = append([]Message(nil), s.Messages...)
	return &cp
}

// merge copies the fields named by tags from a fork, and the messages the
// fork appended after base messages.
func (s *State) merge(f *State, tags []Tag, base int) {
	for _, tag := range tags {
		switch tag {
		case TagPlaces:
			s.Attractions, s.Restaurants, s.Transportation, s.Activities, s.Hotels = f.Attractions, f.Restaurants, f.Transportation, f.Activities, f.Hotels
		case TagWeather:
			s.Weather = f.Weather
		case TagRates:
			s.ExchangeRate, s.CurrencyConversion = f.ExchangeRate, f.CurrencyConversion
		case TagFlights:
			s.FlightsOnward, s.FlightsReturn = f.FlightsOnward, f.FlightsReturn
			s.FlightOnwardPrice, s.FlightReturnPrice = f.FlightOnwardPrice, f.FlightReturnPrice
		case TagBudget:
			s.TotalBudget, s.BudgetBreakdown = f.TotalBudget, f.BudgetBreakdown
		case TagItinerary:
			s.Itinerary = f.Itinerary
		}
	}
	if len(f.Messages) > base {
		s.Messages = append(s.Messages, f.Messages[base:]...)
	}
}

func queryJSON(q Query) string {
	b, err := json.Marshal(q)
	if err != nil {
		return q.Destination
	}
	return string(b)
}
