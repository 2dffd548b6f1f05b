package travel

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ForecastSource returns the multi-day forecast for a city.
type ForecastSource interface {
	Forecast(ctx context.Context, city string) (Forecast, error)
}

// WeatherTool summarizes the forecast for each night of the stay.
type WeatherTool struct {
	source ForecastSource
}

func NewWeatherTool(source ForecastSource) *WeatherTool {
	return &WeatherTool{source: source}
}

func (t *WeatherTool) Name() string    { return "WeatherInfoTool" }
func (t *WeatherTool) Requires() []Tag { return nil }
func (t *WeatherTool) Produces() []Tag { return []Tag{TagWeather} }

func (t *WeatherTool) Execute(ctx context.Context, state *State) error {
	dest := state.Query.Destination
	dates, err := stayDates(state.Query.StartDate, state.Query.Nights)
	if err == nil {
		var f Forecast
		f, err = t.source.Forecast(ctx, dest)
		if err == nil {
			state.Weather = summarizeForecast(f, dates)
			state.tool(t.Name(), fmt.Sprintf("Weather for %s: %s", dest, state.Weather), nil)
			return nil
		}
	}
	state.Weather = "Error retrieving weather information: " + err.Error()
	state.tool(t.Name(), fmt.Sprintf("Error retrieving weather information for %s: %v", dest, err), nil)
	return err
}

func stayDates(start string, nights int) ([]string, error) {
	d, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, err
	}
	out := make([]string, nights)
	for i := range out {
		out[i] = d.AddDate(0, 0, i).Format("2006-01-02")
	}
	return out, nil
}

func summarizeForecast(f Forecast, dates []string) string {
	lines := make([]string, 0, len(dates))
	for _, date := range dates {
		var sum float64
		var n int
		var descs []string
		for _, e := range f.List {
			if !strings.HasPrefix(e.DtTxt, date) {
				continue
			}
			sum += e.Main.Temp
			n++
			if len(e.Weather) > 0 {
				descs = append(descs, e.Weather[0].Description)
			}
		}
		if n == 0 {
			lines = append(lines, date+": No weather data available.")
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s, avg temp %.1f°C", date, mostCommon(descs), sum/float64(n)))
	}
	return "Weather forecast:\n" + strings.Join(lines, "\n")
}

// mostCommon returns the most frequent value, preferring the earliest on ties.
func mostCommon(values []string) string {
	counts := make(map[string]int, len(values))
	best, bestN := "", 0
	for _, v := range values {
		counts[v]++
	}
	for _, v := range values {
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best
}
