// Package csvfile keeps one CSV file per search area.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"soldprices/internal/adapters/observability"
	"soldprices/internal/domain"
)

const dateLayout = "2006-01-02"

var header = []string{
	"address", "dateSold", "displayPrice", "months_before_today", "transactionTenure", "newBuild",
	"propertyType", "bedrooms", "tenure", "detailUrl", "number", "road", "town", "postcode", "lat", "lon",
}

type Store struct{ dir string }

func New(dir string) *Store { return &Store{dir: dir} }

func (s *Store) path(area string) (string, error) {
	if area == "" || area == "." || area == ".." || strings.ContainsAny(area, `/\`) {
		return "", fmt.Errorf("invalid search area %q", area)
	}
	return filepath.Join(s.dir, area+".csv"), nil
}

func (s *Store) Load(ctx context.Context, area string) ([]domain.SaleRow, bool, error) {
	p, err := s.path(area)
	if err != nil {
		return nil, false, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		observability.ObserveCache("csv", "miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", p, err)
	}
	if len(recs) == 0 {
		return nil, false, fmt.Errorf("read %s: missing header", p)
	}
	col := make(map[string]int, len(recs[0]))
	for i, name := range recs[0] {
		col[name] = i
	}
	for _, name := range []string{"address", "dateSold", "displayPrice"} {
		if _, ok := col[name]; !ok {
			return nil, false, fmt.Errorf("read %s: missing column %s", p, name)
		}
	}

	out := make([]domain.SaleRow, 0, len(recs)-1)
	for n, rec := range recs[1:] {
		row, err := decodeRow(col, rec)
		if err != nil {
			return nil, false, fmt.Errorf("read %s line %d: %w", p, n+2, err)
		}
		out = append(out, row)
	}
	observability.ObserveCache("csv", "hit")
	return out, true, nil
}

// Save writes the extract to a temporary file and renames it into place, so
// a reader never sees a partial file.
func (s *Store) Save(ctx context.Context, area string, rows []domain.SaleRow) error {
	p, err := s.path(area)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+area+"-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	_ = w.Write(header)
	for _, r := range rows {
		_ = w.Write(encodeRow(r))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return err
	}
	observability.ObserveCache("csv", "set")
	return nil
}

func encodeRow(r domain.SaleRow) []string {
	return []string{
		r.Address,
		r.DateSold.Format(dateLayout),
		strconv.FormatInt(r.DisplayPrice, 10),
		strconv.FormatFloat(r.MonthsBeforeToday, 'f', -1, 64),
		r.TransactionTenure,
		strconv.FormatBool(r.NewBuild),
		r.PropertyType,
		optInt(r.Bedrooms),
		r.Tenure,
		r.DetailURL,
		r.Number,
		r.Road,
		r.Town,
		r.Postcode,
		optFloat(r.Lat),
		optFloat(r.Lon),
	}
}

func decodeRow(col map[string]int, rec []string) (domain.SaleRow, error) {
	get := func(name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}
	var (
		r   domain.SaleRow
		err error
	)
	r.Address = get("address")
	if r.DateSold, err = time.Parse(dateLayout, get("dateSold")); err != nil {
		return r, fmt.Errorf("dateSold: %w", err)
	}
	if r.DisplayPrice, err = strconv.ParseInt(get("displayPrice"), 10, 64); err != nil {
		return r, fmt.Errorf("displayPrice: %w", err)
	}
	if v := get("months_before_today"); v != "" {
		if r.MonthsBeforeToday, err = strconv.ParseFloat(v, 64); err != nil {
			return r, fmt.Errorf("months_before_today: %w", err)
		}
	}
	r.TransactionTenure = get("transactionTenure")
	r.NewBuild = get("newBuild") == "true"
	r.PropertyType = get("propertyType")
	if r.Bedrooms, err = parseOptInt(get("bedrooms")); err != nil {
		return r, fmt.Errorf("bedrooms: %w", err)
	}
	r.Tenure = get("tenure")
	r.DetailURL = get("detailUrl")
	r.Number, r.Road, r.Town, r.Postcode = get("number"), get("road"), get("town"), get("postcode")
	if r.Lat, err = parseOptFloat(get("lat")); err != nil {
		return r, fmt.Errorf("lat: %w", err)
	}
	if r.Lon, err = parseOptFloat(get("lon")); err != nil {
		return r, fmt.Errorf("lon: %w", err)
	}
	return r, nil
}

func optInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func optFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func parseOptInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
