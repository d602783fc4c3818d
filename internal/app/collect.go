package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"soldprices/internal/adapters/observability"
	"soldprices/internal/domain"
)

const (
	// DuplicateThreshold is how many repeated addresses a combination may
	// accumulate before the source is assumed to be recycling results.
	DuplicateThreshold = 50
	SoldInYears        = 7
)

var (
	DefaultPropertyTypes = []string{"SEMI_DETACHED", "TERRACED", "DETACHED", "FLAT"}
	DefaultTenures       = []string{"FREEHOLD", "LEASEHOLD"}
)

// Collector walks every (property type, tenure) search combination page by
// page. Requests are strictly sequential.
type Collector struct {
	src                domain.SoldPriceSource
	SoldInYears        int
	DuplicateThreshold int
}

func NewCollector(src domain.SoldPriceSource) *Collector {
	return &Collector{src: src, SoldInYears: SoldInYears, DuplicateThreshold: DuplicateThreshold}
}

// Collect returns the raw property records for area in scrape order. A limit
// of zero or less means no limit; otherwise the result has at most limit rows.
// Empty types or tenures select the defaults. Any page error aborts the run.
func (c *Collector) Collect(ctx context.Context, area string, types, tenures []string, limit int) ([]domain.PropertyRecord, error) {
	if len(types) == 0 {
		types = DefaultPropertyTypes
	}
	if len(tenures) == 0 {
		tenures = DefaultTenures
	}

	var all []domain.PropertyRecord
	total := 0

combos:
	for _, pt := range types {
		for _, tenure := range tenures {
			var subset []domain.PropertyRecord
			page := 0
			for {
				if limit > 0 && total > limit {
					log.Info().Int("rows", total).Int("limit", limit).Msg("row limit reached")
					all = append(all, subset...)
					break combos
				}

				page++
				q := domain.PageQuery{Area: area, PropertyType: pt, Tenure: tenure, SoldInYears: c.SoldInYears, Page: page}
				url := c.src.PageURL(q)
				log.Info().Str("url", url).Msg("requesting page")

				rows, err := c.src.FetchPage(ctx, url)
				if err != nil {
					return nil, err
				}
				if len(rows) == 0 {
					break
				}
				if n := duplicateAddresses(subset); n > c.DuplicateThreshold {
					log.Info().
						Str("type", pt).Str("tenure", tenure).
						Int("page", page).Int("duplicates", n).
						Msg("source is repeating results, moving on")
					break
				}

				for i := range rows {
					if rows[i].Tenure == "" {
						rows[i].Tenure = tenure
					}
				}
				subset = append(subset, rows...)
				total += len(rows)
			}
			all = append(all, subset...)
		}
	}

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	observability.ObserveRows("collected", len(all))
	return all, nil
}

// duplicateAddresses counts rows whose address already appeared earlier.
func duplicateAddresses(rows []domain.PropertyRecord) int {
	seen := make(map[string]struct{}, len(rows))
	n := 0
	for _, r := range rows {
		if _, ok := seen[r.Address]; ok {
			n++
			continue
		}
		seen[r.Address] = struct{}{}
	}
	return n
}
