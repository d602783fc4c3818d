package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"soldprices/internal/adapters/observability"
	"soldprices/internal/domain"
)

var dateLayouts = []string{
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"2006-01-02",
	"02/01/2006",
	time.RFC3339,
}

// Flatten explodes each property's transactions into one SaleRow per sale,
// joined to the first property record carrying the same address, and drops
// repeated (address, dateSold) pairs keeping the first. now is the reference
// for MonthsBeforeToday.
func Flatten(rows []domain.PropertyRecord, now time.Time) ([]domain.SaleRow, error) {
	parents := make(map[string]*domain.PropertyRecord, len(rows))
	for i := range rows {
		if _, ok := parents[rows[i].Address]; !ok {
			parents[rows[i].Address] = &rows[i]
		}
	}

	type key struct {
		address string
		sold    time.Time
	}
	seen := make(map[key]struct{})
	var out []domain.SaleRow
	emitted, dropped := 0, 0

	for _, r := range rows {
		for _, t := range r.Transactions {
			sold, err := ParseDateSold(t.DateSold)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", r.Address, err)
			}
			price, err := ParsePrice(t.DisplayPrice)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", r.Address, err)
			}
			p, ok := parents[r.Address]
			if !ok {
				return nil, fmt.Errorf("%w: %q", domain.ErrOrphanTransaction, r.Address)
			}
			emitted++

			k := key{address: r.Address, sold: sold}
			if _, dup := seen[k]; dup {
				dropped++
				continue
			}
			seen[k] = struct{}{}

			out = append(out, domain.SaleRow{
				Address:           r.Address,
				DateSold:          sold,
				DisplayPrice:      price,
				MonthsBeforeToday: MonthsBefore(sold, now),
				TransactionTenure: t.Tenure,
				NewBuild:          t.NewBuild,
				PropertyType:      p.PropertyType,
				Bedrooms:          p.Bedrooms,
				Tenure:            p.Tenure,
				DetailURL:         p.DetailURL,
				Number:            p.Number,
				Road:              p.Road,
				Town:              p.Town,
				Postcode:          p.Postcode,
				Lat:               p.Lat,
				Lon:               p.Lon,
			})
		}
	}

	observability.ObserveRows("flattened", emitted)
	observability.ObserveRows("deduped", dropped)
	return out, nil
}

// ParsePrice turns "£350,000" into 350000.
func ParsePrice(s string) (int64, error) {
	clean := strings.NewReplacer("£", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: price %q", domain.ErrPayloadShape, s)
	}
	return n, nil
}

// ParseDateSold returns the calendar date of s at UTC midnight.
func ParseDateSold(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", domain.ErrPayloadShape, s)
}

// MonthsBefore is the whole days from now to sold divided by 30; negative
// for past sales.
func MonthsBefore(sold, now time.Time) float64 {
	days := int64(sold.Sub(now).Hours() / 24)
	return float64(days) / 30
}
