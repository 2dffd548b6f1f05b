package travel

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const maxFlightOffers = 5

// FlightSource searches one-way flight offers.
type FlightSource interface {
	Offers(ctx context.Context, origin, destination, date string, adults, max int) ([]FlightOffer, error)
}

// FlightTool lists onward and, when a return date is set, return offers.
type FlightTool struct {
	flights FlightSource
	rates   RateSource
}

func NewFlightTool(flights FlightSource, rates RateSource) *FlightTool {
	return &FlightTool{flights: flights, rates: rates}
}

func (t *FlightTool) Name() string    { return "FlightSearchTool" }
func (t *FlightTool) Requires() []Tag { return nil }
func (t *FlightTool) Produces() []Tag { return []Tag{TagFlights} }

func (t *FlightTool) Execute(ctx context.Context, state *State) error {
	q := state.Query
	state.FlightsOnward, state.FlightsReturn = []string{}, []string{}
	state.FlightOnwardPrice, state.FlightReturnPrice = 0, 0
	if q.From == "" || q.To == "" {
		state.tool(t.Name(), "No origin or destination airport given; skipping flight search.", nil)
		return nil
	}

	rates := newRateMemo(t.rates, q.Currency)
	onward, onwardPrice, err := t.leg(ctx, q.From, q.To, q.StartDate, q.Adults, rates)
	if err != nil {
		state.tool(t.Name(), "Error fetching flights: "+err.Error(), nil)
		return err
	}
	var ret []string
	var retPrice float64
	if q.ReturnDate != "" {
		ret, retPrice, err = t.leg(ctx, q.To, q.From, q.ReturnDate, q.Adults, rates)
		if err != nil {
			state.tool(t.Name(), "Error fetching flights: "+err.Error(), nil)
			return err
		}
	}

	state.FlightsOnward, state.FlightOnwardPrice = onward, onwardPrice
	if ret != nil {
		state.FlightsReturn, state.FlightReturnPrice = ret, retPrice
	}
	content := fmt.Sprintf("Flights from %s to %s on %s", q.From, q.To, q.StartDate)
	if q.ReturnDate != "" {
		content += " and return on " + q.ReturnDate
	}
	state.tool(t.Name(), content, map[string][]string{"onward": state.FlightsOnward, "return": state.FlightsReturn})
	return nil
}

// leg formats the offers of one direction and returns the cheapest price in
// the user currency.
func (t *FlightTool) leg(ctx context.Context, origin, dest, date string, adults int, rates *rateMemo) ([]string, float64, error) {
	offers, err := t.flights.Offers(ctx, origin, dest, date, adults, maxFlightOffers)
	if err != nil {
		return nil, 0, err
	}
	out := make([]string, 0, len(offers))
	cheapest := 0.0
	for _, o := range offers {
		if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
			continue
		}
		segs := o.Itineraries[0].Segments
		price := extractFloat(o.Price.Total)
		converted, priceStr := price, formatAmount(price)+" "+o.Price.Currency
		if o.Price.Currency != "" && o.Price.Currency != rates.target {
			if rate, ok := rates.rate(ctx, o.Price.Currency); ok {
				converted = math.Round(price*rate*100) / 100
				priceStr = fmt.Sprintf("%s %s (converted from %s %s)", formatAmount(converted), rates.target, formatAmount(price), o.Price.Currency)
			}
		}
		out = append(out, fmt.Sprintf("Carrier: %s, Departs: %s, Arrives: %s, Price: %s",
			segs[0].CarrierCode, segs[0].Departure.At, segs[len(segs)-1].Arrival.At, priceStr))
		if cheapest == 0 || converted < cheapest {
			cheapest = converted
		}
	}
	return out, cheapest, nil
}

var firstNumber = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

func extractFloat(s string) float64 {
	m := firstNumber.FindString(s)
	if m == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(m, 64)
	return f
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// rateMemo caches conversion rates into one target currency for a single run.
type rateMemo struct {
	source RateSource
	target string
	rates  map[string]float64
}

func newRateMemo(source RateSource, target string) *rateMemo {
	return &rateMemo{source: source, target: strings.ToUpper(target), rates: make(map[string]float64)}
}

func (m *rateMemo) rate(ctx context.Context, from string) (float64, bool) {
	if r, ok := m.rates[from]; ok {
		return r, r > 0
	}
	if m.source == nil {
		return 0, false
	}
	r, err := m.source.Rate(ctx, from, m.target)
	if err != nil {
		r = 0
	}
	m.rates[from] = r
	return r, r > 0
}
