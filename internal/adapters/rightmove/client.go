package rightmove

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"soldprices/internal/adapters/observability"
	"soldprices/internal/domain"
)

const (
	stateStart = "<script>window.__PRELOADED_STATE__ = "
	stateEnd   = "</script>"

	maxBody = 16 << 20
)

// Client fetches sold-price result pages. It never retries: a failed page
// aborts the caller's collection.
type Client struct {
	base     string
	hc       *http.Client
	minDelay time.Duration
	maxDelay time.Duration
}

// New returns a Client that waits a uniformly random duration in
// [minDelay, maxDelay] before every request.
func New(base string, minDelay, maxDelay time.Duration) *Client {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Client{
		base:     strings.TrimRight(base, "/"),
		hc:       &http.Client{Timeout: 30 * time.Second},
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (c *Client) PageURL(q domain.PageQuery) string {
	return fmt.Sprintf("%s/house-prices/%s.html?propertyType=%s&soldIn=%d&tenure=%s&page=%d",
		c.base,
		url.PathEscape(q.Area),
		url.QueryEscape(q.PropertyType),
		q.SoldInYears,
		url.QueryEscape(q.Tenure),
		q.Page,
	)
}

func (c *Client) FetchPage(ctx context.Context, u string) ([]domain.PropertyRecord, error) {
	if !sleepCtx(ctx, c.delay()) {
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; soldprices/1.0)")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("rightmove", "house-prices", 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("rightmove", "house-prices", resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", u, domain.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch %s: bad status %d: %s", u, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	rows, err := ParseResultsPage(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u, err)
	}
	return rows, nil
}

// ParseResultsPage extracts results.properties from the preloaded state
// script embedded in a results page.
func ParseResultsPage(page []byte) ([]domain.PropertyRecord, error) {
	i := bytes.Index(page, []byte(stateStart))
	if i < 0 {
		return nil, fmt.Errorf("%w: preloaded state marker not found", domain.ErrPayloadShape)
	}
	rest := page[i+len(stateStart):]
	j := bytes.Index(rest, []byte(stateEnd))
	if j < 0 {
		return nil, fmt.Errorf("%w: unterminated preloaded state script", domain.ErrPayloadShape)
	}
	raw := bytes.TrimSuffix(bytes.TrimSpace(rest[:j]), []byte(";"))

	var state struct {
		Results *struct {
			Properties json.RawMessage `json:"properties"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPayloadShape, err)
	}
	if state.Results == nil {
		return nil, fmt.Errorf("%w: missing key results", domain.ErrPayloadShape)
	}
	if len(state.Results.Properties) == 0 || string(state.Results.Properties) == "null" {
		return nil, fmt.Errorf("%w: missing key results.properties", domain.ErrPayloadShape)
	}

	var out []domain.PropertyRecord
	if err := json.Unmarshal(state.Results.Properties, &out); err != nil {
		return nil, fmt.Errorf("%w: results.properties: %v", domain.ErrPayloadShape, err)
	}
	return out, nil
}

func (c *Client) delay() time.Duration {
	span := c.maxDelay - c.minDelay
	if span <= 0 {
		return c.minDelay
	}
	return c.minDelay + rand.N(span+1)
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
