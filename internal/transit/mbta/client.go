// Package mbta provides a read-only client for the MBTA V3 API, covering the
// facility, alert, and route queries needed to track accessibility equipment.
package mbta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/provider/resilience"
)

const (
	// ProviderName identifies this transit data provider.
	ProviderName = "mbta"

	// DefaultBaseURL is the MBTA V3 API base URL.
	DefaultBaseURL = "https://api-v3.mbta.com"

	// facilityTypeFilter selects the accessibility conveyance types we track.
	facilityTypeFilter = "ELEVATOR,ESCALATOR,RAMP,PORTABLE_BOARDING_LIFT"

	// activityFilter selects alerts relevant to riders who depend on
	// elevators and escalators.
	activityFilter = "USING_WHEELCHAIR,USING_ESCALATOR"
)

// ClientConfig holds configuration for the MBTA client.
type ClientConfig struct {
	// APIKey is sent as x-api-key when set. The API permits anonymous
	// access at reduced rate limits, so an empty key is not an error.
	APIKey string

	// BaseURL overrides the API base URL (defaults to the MBTA V3 API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a circuit-breaker protected client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an MBTA V3 API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new MBTA client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetFacilities fetches all tracked accessibility facilities with their owning
// stop records embedded in the response.
func (c *Client) GetFacilities(ctx context.Context) (*FacilitiesResponse, error) {
	query := url.Values{}
	query.Set("filter[type]", facilityTypeFilter)
	query.Set("include", "stop")

	doc, err := c.get(ctx, "/facilities", query)
	if err != nil {
		return nil, err
	}

	resp := &FacilitiesResponse{
		Facilities: make([]Facility, 0, len(doc.Data)),
		Stops:      make([]Stop, 0, len(doc.Included)),
	}

	for i := range doc.Data {
		res := &doc.Data[i]
		var attrs facilityAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("decoding facility %s: %w", res.ID, err)
		}
		resp.Facilities = append(resp.Facilities, Facility{
			ID:        res.ID,
			Type:      attrs.Type,
			LongName:  attrs.LongName,
			ShortName: attrs.ShortName,
			StopID:    res.relatedID("stop"),
		})
	}

	for i := range doc.Included {
		res := &doc.Included[i]
		if res.Type != "stop" {
			continue
		}
		var attrs stopAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("decoding stop %s: %w", res.ID, err)
		}
		resp.Stops = append(resp.Stops, Stop{
			ID:                 res.ID,
			Name:               attrs.Name,
			Latitude:           attrs.Latitude,
			Longitude:          attrs.Longitude,
			WheelchairBoarding: attrs.WheelchairBoarding,
		})
	}

	return resp, nil
}

// GetAccessibilityAlerts fetches current alerts affecting riders who use
// wheelchairs or escalators.
func (c *Client) GetAccessibilityAlerts(ctx context.Context) (*AlertsResponse, error) {
	query := url.Values{}
	query.Set("filter[activity]", activityFilter)

	doc, err := c.get(ctx, "/alerts", query)
	if err != nil {
		return nil, err
	}

	return c.decodeAlerts(doc)
}

// GetRoutesServing returns the identifiers of routes serving a stop.
// An empty result is valid: the stop is served by no tracked routes.
func (c *Client) GetRoutesServing(ctx context.Context, stopID string) ([]string, error) {
	query := url.Values{}
	query.Set("filter[stop]", stopID)

	doc, err := c.get(ctx, "/routes", query)
	if err != nil {
		return nil, err
	}

	routeIDs := make([]string, 0, len(doc.Data))
	for i := range doc.Data {
		routeIDs = append(routeIDs, doc.Data[i].ID)
	}
	return routeIDs, nil
}

// GetAlertsForRoutes fetches alerts scoped to the given routes. Callers must
// not pass an empty route set: an unfiltered alerts query returns an unbounded
// system-wide collection.
func (c *Client) GetAlertsForRoutes(ctx context.Context, routeIDs []string) (*AlertsResponse, error) {
	if len(routeIDs) == 0 {
		return nil, fmt.Errorf("fetching alerts: empty route set")
	}

	query := url.Values{}
	query.Set("filter[route]", strings.Join(routeIDs, ","))

	doc, err := c.get(ctx, "/alerts", query)
	if err != nil {
		return nil, err
	}

	return c.decodeAlerts(doc)
}

// get issues a GET request against the API and decodes the JSON:API envelope.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*document, error) {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("mbta request failed")
		return nil, &UpstreamError{StatusCode: resp.StatusCode, URL: reqURL}
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &doc, nil
}

// setHeaders sets common request headers. The API key header is omitted when
// no key is configured.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.api+json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}

func (c *Client) decodeAlerts(doc *document) (*AlertsResponse, error) {
	resp := &AlertsResponse{Alerts: make([]Alert, 0, len(doc.Data))}

	for i := range doc.Data {
		res := &doc.Data[i]
		var attrs alertAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("decoding alert %s: %w", res.ID, err)
		}

		description := ""
		if attrs.Description != nil {
			description = *attrs.Description
		}

		resp.Alerts = append(resp.Alerts, Alert{
			ID:               res.ID,
			Header:           attrs.Header,
			Description:      description,
			Severity:         attrs.Severity,
			Cause:            attrs.Cause,
			Effect:           attrs.Effect,
			UpdatedAt:        attrs.UpdatedAt,
			ActivePeriods:    attrs.ActivePeriod,
			InformedEntities: attrs.InformedEntity,
		})
	}

	return resp, nil
}
