package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"soldprices/internal/domain"
)

// loadTimeout bounds a shared store read, which outlives any single caller.
const loadTimeout = 30 * time.Second

type QueryService struct {
	store    domain.SalesStore
	cache    domain.Cache
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewQueryService reads extracts from store. cache may be nil.
func NewQueryService(s domain.SalesStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, cacheTTL: ttl}
}

func salesKey(area string) string {
	return "sales:" + strings.ToLower(area)
}

// ListSales returns the stored sales for area, oldest first, narrowed by f.
// It returns domain.ErrNotFound when the area has never been extracted.
func (s *QueryService) ListSales(ctx context.Context, area string, f domain.SalesFilter) ([]domain.SaleRow, error) {
	rows, err := s.load(ctx, area)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SaleRow, 0, len(rows))
	for _, r := range rows {
		if f.PropertyType != "" && !strings.EqualFold(r.PropertyType, f.PropertyType) {
			continue
		}
		if f.Bedrooms != nil && (r.Bedrooms == nil || *r.Bedrooms != *f.Bedrooms) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateSold.Before(out[j].DateSold) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Invalidate drops the cached copy of area.
func (s *QueryService) Invalidate(ctx context.Context, area string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, salesKey(area))
}

func (s *QueryService) load(ctx context.Context, area string) ([]domain.SaleRow, error) {
	key := salesKey(area)
	if s.cache != nil {
		var cached []domain.SaleRow
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	// concurrent misses for one area share a single store read
	v, err, _ := s.group.Do(key, func() (any, error) {
		// detached from the first caller so its cancellation does not fail the others
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		rows, ok, err := s.store.Load(lctx, area)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", area, err)
		}
		if !ok {
			return nil, fmt.Errorf("area %q: %w", area, domain.ErrNotFound)
		}
		if s.cache != nil {
			_ = s.cache.Set(lctx, key, rows, int(s.cacheTTL.Seconds()))
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	// shared with other waiters; ListSales copies before sorting
	return v.([]domain.SaleRow), nil
}
