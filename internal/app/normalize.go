package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"soldprices/internal/adapters/observability"
	"soldprices/internal/domain"
)

type Normalizer struct {
	geo *GeoResolver
}

func NewNormalizer(geo *GeoResolver) *Normalizer {
	return &Normalizer{geo: geo}
}

// Normalize splits each address and refines its location. Rows whose
// address cannot be split are dropped.
func (n *Normalizer) Normalize(ctx context.Context, rows []domain.PropertyRecord) []domain.PropertyRecord {
	out := make([]domain.PropertyRecord, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		parts, err := SplitAddress(r.Address)
		if err != nil {
			skipped++
			log.Warn().Err(err).Str("address", r.Address).Msg("skipping row")
			continue
		}
		r.Number, r.Road, r.Town, r.Postcode = parts.Number, parts.Road, parts.Town, parts.Postcode

		r.Location = n.geo.Resolve(ctx, r.Number, r.Road, r.Town, r.Location)
		r.Lat, r.Lon = nil, nil
		if r.Location != nil {
			lat, lon := r.Location.Lat, r.Location.Lng
			r.Lat, r.Lon = &lat, &lon
		}
		out = append(out, r)
	}
	observability.ObserveRows("skipped", skipped)
	return out
}

type AddressParts struct {
	Number, Road, Town, Postcode string
}

// SplitAddress reads "number, road, town, ..., county POSTCODE". The
// postcode is the last seven characters of the final segment.
func SplitAddress(addr string) (AddressParts, error) {
	segs := strings.Split(addr, ",")
	if len(segs) < 3 {
		return AddressParts{}, fmt.Errorf("%w: %d segments in %q", domain.ErrMalformedAddress, len(segs), addr)
	}
	last := []rune(segs[len(segs)-1])
	if len(last) > 7 {
		last = last[len(last)-7:]
	}
	return AddressParts{
		Number:   strings.TrimSpace(segs[0]),
		Road:     strings.TrimSpace(segs[1]),
		Town:     strings.TrimSpace(segs[2]),
		Postcode: strings.TrimSpace(string(last)),
	}, nil
}
