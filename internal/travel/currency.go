package travel

import (
	"context"
	"fmt"
	"strconv"
)

// RateSource returns exchange rates.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// CurrencyTool records the USD rate of the requested currency.
type CurrencyTool struct {
	rates RateSource
}

func NewCurrencyTool(rates RateSource) *CurrencyTool {
	return &CurrencyTool{rates: rates}
}

func (t *CurrencyTool) Name() string    { return "CurrencyConvertorTool" }
func (t *CurrencyTool) Requires() []Tag { return nil }
func (t *CurrencyTool) Produces() []Tag { return []Tag{TagRates} }

func (t *CurrencyTool) Execute(ctx context.Context, state *State) error {
	cur := state.Query.Currency
	rate, err := t.rates.Rate(ctx, "USD", cur)
	if err != nil {
		state.ExchangeRate = 1
		state.CurrencyConversion = "1 USD = 1 " + cur
		state.tool(t.Name(), fmt.Sprintf("Error fetching exchange rate for %s: %v", cur, err), nil)
		return err
	}
	r := strconv.FormatFloat(rate, 'f', -1, 64)
	state.ExchangeRate = rate
	state.CurrencyConversion = fmt.Sprintf("1 USD = %s %s", r, cur)
	state.tool(t.Name(), fmt.Sprintf("Currency conversion rate for %s is %s", cur, r), state.CurrencyConversion)
	return nil
}
