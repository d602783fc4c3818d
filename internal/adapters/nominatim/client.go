package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"soldprices/internal/adapters/observability"
	"soldprices/internal/domain"
)

// Client is a forward geocoder for the Nominatim search API.
type Client struct {
	base string
	ua   string
	hc   *http.Client
	rl   *rate.Limiter
}

// New returns a Client limited to rps requests per second. The public
// Nominatim instance asks for at most one request per second and an
// identifying User-Agent.
func New(base, userAgent string, rps int, timeout time.Duration) (*Client, error) {
	if userAgent == "" {
		return nil, fmt.Errorf("user agent is required")
	}
	if rps <= 0 {
		rps = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		ua:   userAgent,
		hc:   &http.Client{Timeout: timeout},
		rl:   rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the best match for query, or nil when there is none.
func (c *Client) Geocode(ctx context.Context, query string) (*domain.LatLng, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	v := url.Values{}
	v.Set("q", query)
	v.Set("format", "jsonv2")
	v.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/search?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("nominatim", "search", 0, time.Since(start))
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("nominatim", "search", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("geocode %q: bad status %d: %s", query, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("geocode %q: decode: %w", query, err)
	}
	if len(places) == 0 {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: lat: %w", query, err)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: lon: %w", query, err)
	}
	return &domain.LatLng{Lat: lat, Lng: lng}, nil
}
