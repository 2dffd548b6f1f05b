package travel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/Prasann123/Tradition-RAG/internal/helpers"
)

// ErrNotConfigured is returned by clients that lack credentials.
var ErrNotConfigured = errors.New("travel api not configured")

// apiClient issues cached JSON GETs.
type apiClient struct {
	http  *helpers.HTTPClient
	cache Cache
	ttl   time.Duration
}

func (c apiClient) getJSON(ctx context.Context, endpoint string, query url.Values, headers map[string]string, out any) error {
	key := cacheKey(endpoint, query)
	if c.cache != nil {
		if b, ok := c.cache.Get(ctx, key); ok && json.Unmarshal(b, out) == nil {
			return nil
		}
	}
	var raw json.RawMessage
	if err := c.http.GetJSON(ctx, endpoint, query, headers, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	if c.cache != nil {
		c.cache.Set(ctx, key, raw, c.ttl)
	}
	return nil
}

// PlacesClient wraps the Google Places text search.
type PlacesClient struct {
	api      apiClient
	endpoint string
	key      string
}

func NewPlacesClient(cfg config.APIConfig, http *helpers.HTTPClient, cache Cache, ttl time.Duration) *PlacesClient {
	return &PlacesClient{api: apiClient{http: http, cache: cache, ttl: ttl}, endpoint: cfg.Endpoint, key: cfg.APIKey}
}

// TextSearch returns the place names for query. A status other than OK
// yields no names and no error.
func (c *PlacesClient) TextSearch(ctx context.Context, query, placeType string) ([]string, string, error) {
	if c.endpoint == "" {
		return nil, "", ErrNotConfigured
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("key", c.key)
	params.Set("type", placeType)
	var resp struct {
		Status  string `json:"status"`
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := c.api.getJSON(ctx, c.endpoint, params, nil, &resp); err != nil {
		return nil, "", err
	}
	if resp.Status != "OK" {
		return []string{}, resp.Status, nil
	}
	names := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		names = append(names, r.Name)
	}
	return names, resp.Status, nil
}

// Forecast is a 3-hourly OpenWeather forecast.
type Forecast struct {
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// WeatherClient wraps the OpenWeather 5 day forecast.
type WeatherClient struct {
	api      apiClient
	endpoint string
	key      string
}

func NewWeatherClient(cfg config.APIConfig, http *helpers.HTTPClient, cache Cache, ttl time.Duration) *WeatherClient {
	return &WeatherClient{api: apiClient{http: http, cache: cache, ttl: ttl}, endpoint: cfg.Endpoint, key: cfg.APIKey}
}

func (c *WeatherClient) Forecast(ctx context.Context, city string) (Forecast, error) {
	var f Forecast
	if c.endpoint == "" {
		return f, ErrNotConfigured
	}
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.key)
	params.Set("units", "metric")
	err := c.api.getJSON(ctx, c.endpoint, params, nil, &f)
	return f, err
}

// RatesClient reads exchange rates from a Frankfurter-compatible endpoint.
type RatesClient struct {
	api      apiClient
	endpoint string
	key      string
}

func NewRatesClient(cfg config.APIConfig, http *helpers.HTTPClient, cache Cache, ttl time.Duration) *RatesClient {
	return &RatesClient{api: apiClient{http: http, cache: cache, ttl: ttl}, endpoint: cfg.Endpoint, key: cfg.APIKey}
}

// Rate returns how many units of to one unit of from buys.
func (c *RatesClient) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}
	if c.endpoint == "" {
		return 0, ErrNotConfigured
	}
	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)
	var headers map[string]string
	if c.key != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.key}
	}
	var resp struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := c.api.getJSON(ctx, c.endpoint, params, headers, &resp); err != nil {
		return 0, err
	}
	rate, ok := resp.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no %s->%s rate in response", from, to)
	}
	return rate, nil
}

// FlightOffer is the subset of an Amadeus flight offer the planner uses.
type FlightOffer struct {
	Itineraries []struct {
		Segments []struct {
			CarrierCode string `json:"carrierCode"`
			Departure   struct {
				At string `json:"at"`
			} `json:"departure"`
			Arrival struct {
				At string `json:"at"`
			} `json:"arrival"`
		} `json:"segments"`
	} `json:"itineraries"`
	Price struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"price"`
}

// AmadeusClient searches flight offers with OAuth2 client credentials.
type AmadeusClient struct {
	http    *helpers.HTTPClient
	baseURL string
}

// NewAmadeusClient returns nil when no credentials are configured.
func NewAmadeusClient(cfg config.AmadeusConfig, base *helpers.HTTPClient) *AmadeusClient {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return &AmadeusClient{
		http:    base.WithTransport(cc.Client(context.Background())),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (c *AmadeusClient) Offers(ctx context.Context, origin, destination, date string, adults, max int) ([]FlightOffer, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	params := url.Values{}
	params.Set("originLocationCode", origin)
	params.Set("destinationLocationCode", destination)
	params.Set("departureDate", date)
	params.Set("adults", strconv.Itoa(adults))
	params.Set("max", strconv.Itoa(max))
	var resp struct {
		Data []FlightOffer `json:"data"`
	}
	if err := c.http.GetJSON(ctx, c.baseURL+"/v2/shopping/flight-offers", params, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
