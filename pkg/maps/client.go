// Package maps reverse-geocodes coordinates into display labels using
// OpenStreetMap Nominatim.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL             = "https://nominatim.openstreetmap.org"
	defaultUserAgent           = "NeighBridge-App/1.0"
	defaultMinInterval         = time.Second
	requestBodyReadLimit int64 = 1024
	unknownLocationName        = "Unknown Location"
)

var errUserAgentRequired = errors.New("geocoder user agent is required")

// LabelCache stores resolved places keyed by rounded coordinate.
type LabelCache interface {
	Get(ctx context.Context, lat, lng float64) (*Place, bool)
	Put(ctx context.Context, lat, lng float64, place Place)
}

// Client wraps the Nominatim reverse endpoint. Each instance owns its rate
// limiter so separate clients never share request budget.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	cache      LabelCache
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Nominatim base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithMinInterval sets the minimum spacing between outbound requests.
// A non-positive interval disables throttling.
func WithMinInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithCache enables the label cache.
func WithCache(cache LabelCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient builds a reverse geocoding client identified by userAgent.
func NewClient(userAgent string, opts ...Option) (*Client, error) {
	agent := strings.TrimSpace(userAgent)
	if agent == "" {
		return nil, errUserAgentRequired
	}

	client := &Client{
		userAgent:  agent,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(defaultMinInterval), 1),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// Place is the normalized reverse geocoding result.
type Place struct {
	LocationName string `json:"locationName"`
	Address      string `json:"address"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
}

// FallbackPlace is the label used when no geocoder answer is available. It
// combines name (default "Location") with the coordinate.
func FallbackPlace(name string, c geo.Coordinate) Place {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Location"
	}
	return Place{
		LocationName: fmt.Sprintf("%s (%.4f, %.4f)", name, c.Latitude, c.Longitude),
		Address:      fmt.Sprintf("Latitude: %.6f, Longitude: %.6f", c.Latitude, c.Longitude),
	}
}

type nominatimResponse struct {
	DisplayName string            `json:"display_name"`
	Error       string            `json:"error"`
	Address     map[string]string `json:"address"`
}

// Reverse resolves a coordinate into a place label. Failures are returned as
// CodeDependency so callers can degrade to FallbackPlace.
func (c *Client) Reverse(ctx context.Context, at geo.Coordinate) (*Place, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "geocoder not configured")
	}
	if err := at.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coordinate")
	}

	if c.cache != nil {
		if place, ok := c.cache.Get(ctx, at.Latitude, at.Longitude); ok {
			return place, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "wait for geocoder rate limit")
	}

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	query.Set("format", "json")
	query.Set("addressdetails", "1")
	query.Set("zoom", "18")
	query.Set("accept-language", "en")

	endpoint := fmt.Sprintf("%s/reverse?%s", strings.TrimRight(c.baseURL, "/"), query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build reverse geocode request")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute reverse geocode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "reverse geocode request failed")
	}

	var apiResp nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode reverse geocode response")
	}
	if apiResp.Error != "" || apiResp.DisplayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reverse geocode returned no result")
	}

	place := Place{
		LocationName: locationName(apiResp.Address),
		Address:      apiResp.DisplayName,
		City:         firstOf(apiResp.Address, "city", "town", "village", "hamlet"),
		State:        firstOf(apiResp.Address, "state", "province"),
		Country:      apiResp.Address["country"],
		PostalCode:   apiResp.Address["postcode"],
	}

	if c.cache != nil {
		c.cache.Put(ctx, at.Latitude, at.Longitude, place)
	}
	return &place, nil
}

// most specific component first
var nameComponents = []string{
	"name", "house_name", "amenity", "shop", "office", "building", "road",
	"neighbourhood", "suburb", "city", "town", "village", "hamlet", "state", "country",
}

func locationName(address map[string]string) string {
	if name := firstOf(address, nameComponents...); name != "" {
		return name
	}
	return unknownLocationName
}

func firstOf(address map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(address[key]); v != "" {
			return v
		}
	}
	return ""
}
