// internal/adapter/geocode/geoapify.go

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"rendezvous/internal/domain/geo"
)

// DefaultBaseURL is the public Geoapify API root
const DefaultBaseURL = "https://api.geoapify.com"

// GeoapifyClient reverse-geocodes coordinates with the Geoapify API
type GeoapifyClient struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
}

type reverseResponse struct {
	Features []struct {
		Properties struct {
			Name      string `json:"name"`
			Suburb    string `json:"suburb"`
			City      string `json:"city"`
			State     string `json:"state"`
			Country   string `json:"country"`
			Formatted string `json:"formatted"`
		} `json:"properties"`
	} `json:"features"`
}

// NewGeoapifyClient creates a new Geoapify client
func NewGeoapifyClient(baseURL, apiKey string, timeout time.Duration) *GeoapifyClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &GeoapifyClient{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		BaseURL: baseURL,
		APIKey:  apiKey,
	}
}

// ReverseGeocode returns the place at location
func (c *GeoapifyClient) ReverseGeocode(ctx context.Context, location geo.Location) (*geo.Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(location.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(location.Lng, 'f', -1, 64))
	q.Set("apiKey", c.APIKey)
	endpoint := c.BaseURL + "/v1/geocode/reverse?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Geoapify API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Geoapify API returned status code %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode Geoapify API response: %w", err)
	}
	if len(body.Features) == 0 {
		return nil, fmt.Errorf("no place found at %.5f,%.5f", location.Lat, location.Lng)
	}

	props := body.Features[0].Properties
	return &geo.Place{
		Name:          props.Name,
		Neighborhood:  props.Suburb,
		Locality:      props.City,
		AdminArea:     props.State,
		Country:       props.Country,
		FormattedAddr: props.Formatted,
	}, nil
}
