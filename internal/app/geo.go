package app

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"soldprices/internal/adapters/observability"
	"soldprices/internal/domain"
)

// OutlierThreshold is the largest per-axis shift, in degrees, a lookup may
// apply to an existing estimate before it is treated as a misparse.
const OutlierThreshold = 0.1

type GeoResolver struct {
	geo       domain.Geocoder
	timeout   time.Duration
	Threshold float64
}

func NewGeoResolver(g domain.Geocoder, timeout time.Duration) *GeoResolver {
	return &GeoResolver{geo: g, timeout: timeout, Threshold: OutlierThreshold}
}

// Resolve returns a best-effort location for the address parts. It never
// fails: on a missing match, a lookup error or an outlier it returns prior,
// which may be nil.
func (r *GeoResolver) Resolve(ctx context.Context, number, road, town string, prior *domain.LatLng) *domain.LatLng {
	query := strings.Join(strings.Fields(number+" "+road+" "+town), " ")

	lctx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	found, err := r.geo.Geocode(lctx, query)
	if err != nil {
		observability.ObserveGeocode("error")
		log.Warn().Err(err).Str("query", query).Msg("geocode failed, keeping estimate")
		return prior
	}
	if found == nil {
		observability.ObserveGeocode("nomatch")
		log.Debug().Str("query", query).Msg("geocode found no match")
		return prior
	}

	if prior != nil &&
		(math.Abs(found.Lat-prior.Lat) > r.Threshold || math.Abs(found.Lng-prior.Lng) > r.Threshold) {
		observability.ObserveGeocode("outlier")
		log.Info().
			Str("query", query).
			Float64("lat", found.Lat).Float64("lng", found.Lng).
			Float64("prior_lat", prior.Lat).Float64("prior_lng", prior.Lng).
			Msg("geocode result too far from estimate, keeping estimate")
		return prior
	}

	observability.ObserveGeocode("updated")
	out := *found
	return &out
}
