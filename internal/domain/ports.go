package domain

import "context"

// SoldPriceSource is the paginated house-prices source.
type SoldPriceSource interface {
	PageURL(q PageQuery) string
	FetchPage(ctx context.Context, url string) ([]PropertyRecord, error)
}

// Geocoder performs a free-text forward lookup. A nil result with a nil
// error means no match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*LatLng, error)
}

// SalesStore persists complete extracts keyed by search area.
type SalesStore interface {
	Load(ctx context.Context, area string) ([]SaleRow, bool, error)
	Save(ctx context.Context, area string, rows []SaleRow) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
