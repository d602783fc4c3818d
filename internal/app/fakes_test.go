package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"soldprices/internal/domain"
)

// ---- fakes ----

type fakeSource struct {
	mu      sync.Mutex
	queries map[string]domain.PageQuery
	calls   []domain.PageQuery
	page    func(q domain.PageQuery) ([]domain.PropertyRecord, error)
}

func (f *fakeSource) PageURL(q domain.PageQuery) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queries == nil {
		f.queries = map[string]domain.PageQuery{}
	}
	u := fmt.Sprintf("fake://%s/%s/%s/%d?soldIn=%d", q.Area, q.PropertyType, q.Tenure, q.Page, q.SoldInYears)
	f.queries[u] = q
	return u
}

func (f *fakeSource) FetchPage(ctx context.Context, url string) ([]domain.PropertyRecord, error) {
	f.mu.Lock()
	q, ok := f.queries[url]
	if ok {
		f.calls = append(f.calls, q)
	}
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown url %s", url)
	}
	if f.page == nil {
		return nil, nil
	}
	return f.page(q)
}

type fakeGeocoder struct {
	result  *domain.LatLng
	err     error
	queries []string
	hadDL   bool
}

func (g *fakeGeocoder) Geocode(ctx context.Context, query string) (*domain.LatLng, error) {
	g.queries = append(g.queries, query)
	_, g.hadDL = ctx.Deadline()
	if g.result == nil {
		return nil, g.err
	}
	out := *g.result
	return &out, g.err
}

type fakeStore struct {
	rows   map[string][]domain.SaleRow
	loads  atomic.Int32
	saves  int
	errOn  string
	loadFn func(ctx context.Context) error
}

func (s *fakeStore) Load(ctx context.Context, area string) ([]domain.SaleRow, bool, error) {
	s.loads.Add(1)
	if s.loadFn != nil {
		if err := s.loadFn(ctx); err != nil {
			return nil, false, err
		}
	}
	if s.errOn == "load" {
		return nil, false, fmt.Errorf("disk on fire")
	}
	rows, ok := s.rows[area]
	return rows, ok, nil
}

func (s *fakeStore) Save(ctx context.Context, area string, rows []domain.SaleRow) error {
	s.saves++
	if s.errOn == "save" {
		return fmt.Errorf("disk full")
	}
	if s.rows == nil {
		s.rows = map[string][]domain.SaleRow{}
	}
	s.rows[area] = rows
	return nil
}

// fakeCache round-trips through JSON so cached values never alias the caller's.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

// ---- helpers ----

func ptr[T any](v T) *T { return &v }

func records(prefix string, n int) []domain.PropertyRecord {
	out := make([]domain.PropertyRecord, n)
	for i := range out {
		out[i] = domain.PropertyRecord{Address: fmt.Sprintf("%d, %s Road, Epsom, Surrey KT17 4PF", i+1, prefix)}
	}
	return out
}
