package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/units"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

// WeatherClient performs the two provider lookups the dashboard needs.
type WeatherClient interface {
	FetchCurrent(ctx context.Context, place string, unit units.Profile) (models.CurrentPayload, error)
	FetchForecast(ctx context.Context, coords *models.Coords, unit units.Profile) (models.ForecastPayload, error)
}

var (
	ErrNetwork  = errors.New("network error")
	ErrProvider = errors.New("provider error")

	// Refinements of ErrProvider.
	ErrInvalidAPIKey     = fmt.Errorf("%w: invalid API key", ErrProvider)
	ErrLocationNotFound  = fmt.Errorf("%w: location not found", ErrProvider)
	ErrRateLimited       = fmt.Errorf("%w: rate limited", ErrProvider)
	ErrUpstreamFailure   = fmt.Errorf("%w: upstream failure", ErrProvider)
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrProvider)
)

const (
	endpointCurrent  = "weather"
	endpointForecast = "onecall"
)

type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenWeatherClient returns a client for baseURL (e.g. https://api.openweathermap.org/data/2.5).
// timeout bounds each HTTP call; zero means no limit.
func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	return &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchCurrent looks up current conditions by place name. A blank name fails
// with validation.ErrEmptyInput without touching the network.
func (c *OpenWeatherClient) FetchCurrent(ctx context.Context, place string, unit units.Profile) (models.CurrentPayload, error) {
	place, err := validation.Place(place)
	if err != nil {
		return models.CurrentPayload{}, err
	}

	params := url.Values{}
	params.Set("q", place)
	params.Set("units", unitParam(unit))

	var payload models.CurrentPayload
	if err := c.get(ctx, endpointCurrent, params, &payload); err != nil {
		return models.CurrentPayload{}, err
	}
	if m := payload.Missing(); m != "" {
		return models.CurrentPayload{}, c.fail(endpointCurrent, fmt.Errorf("%w: missing %s", ErrMalformedResponse, m))
	}
	return payload, nil
}

// FetchForecast looks up the multi-day forecast for coords, excluding minutely
// and alert data. Nil or non-finite coords fail with validation.ErrMissingCoords.
func (c *OpenWeatherClient) FetchForecast(ctx context.Context, coords *models.Coords, unit units.Profile) (models.ForecastPayload, error) {
	if err := validation.Coords(coords); err != nil {
		return models.ForecastPayload{}, err
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	params.Set("units", unitParam(unit))
	params.Set("exclude", "minutely,alerts")

	var payload models.ForecastPayload
	if err := c.get(ctx, endpointForecast, params, &payload); err != nil {
		return models.ForecastPayload{}, err
	}
	if m := payload.Missing(); m != "" {
		return models.ForecastPayload{}, c.fail(endpointForecast, fmt.Errorf("%w: missing %s", ErrMalformedResponse, m))
	}
	return payload, nil
}

// get issues one GET against endpoint and decodes the JSON body into out.
func (c *OpenWeatherClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	start := time.Now()

	req, err := c.buildRequest(ctx, endpoint, params)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return c.fail(endpoint, fmt.Errorf("build request: %w", err))
	}

	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.WeatherAPIDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		return c.fail(endpoint, fmt.Errorf("%w: %s request failed: %w", ErrNetwork, endpoint, err))
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return c.fail(endpoint, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(endpoint, fmt.Errorf("%w: read response body: %w", ErrNetwork, err))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(endpoint, fmt.Errorf("%w: parse response: %w", ErrMalformedResponse, err))
	}
	return nil
}

func (c *OpenWeatherClient) fail(endpoint string, err error) error {
	observability.WeatherAPIErrorsTotal.WithLabelValues(endpoint, string(CategorizeError(err))).Inc()
	return err
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	u = u.JoinPath(endpoint)

	params.Set("appid", c.apiKey)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrInvalidAPIKey
	case http.StatusNotFound:
		return ErrLocationNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func unitParam(p units.Profile) string {
	if p.IsZero() {
		return units.Default().System.String()
	}
	return p.System.String()
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
