package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"soldprices/internal/adapters/observability"
	"soldprices/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// Repo stores one complete extract per search area.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Save replaces the area's extract in a single transaction.
func (r *Repo) Save(ctx context.Context, area string, rows []domain.SaleRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // no-op after commit

	if _, err := tx.ExecContext(ctx, deleteSalesSQL, area); err != nil {
		return fmt.Errorf("clear %s: %w", area, err)
	}
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		if err := insertSales(ctx, tx, area, start, rows[start:end]); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, upsertExtractSQL, area, len(rows)); err != nil {
		return fmt.Errorf("mark %s: %w", area, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	observability.ObserveCache("mysql", "set")
	return nil
}

func insertSales(ctx context.Context, tx *sql.Tx, area string, offset int, rows []domain.SaleRow) error {
	values := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*18)
	for i, s := range rows {
		values = append(values, insertSalesRow)
		args = append(args,
			area,
			offset+i,
			s.Address,
			s.DateSold,
			s.DisplayPrice,
			s.MonthsBeforeToday,
			valStr(s.TransactionTenure),
			s.NewBuild,
			valStr(s.PropertyType),
			valInt(s.Bedrooms),
			valStr(s.Tenure),
			valStr(s.DetailURL),
			valStr(s.Number),
			valStr(s.Road),
			valStr(s.Town),
			valStr(s.Postcode),
			valF64(s.Lat),
			valF64(s.Lon),
		)
	}
	_, err := tx.ExecContext(ctx, insertSalesPrefix+strings.Join(values, ","), args...)
	if err != nil {
		return fmt.Errorf("insert sales for %s: %w", area, err)
	}
	return nil
}

func (r *Repo) Load(ctx context.Context, area string) ([]domain.SaleRow, bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, getExtractSQL, area).Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			observability.ObserveCache("mysql", "miss")
			return nil, false, nil
		}
		return nil, false, err
	}

	rows, err := r.db.QueryContext(ctx, listSalesSQL, area)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	out := make([]domain.SaleRow, 0, count)
	for rows.Next() {
		var s domain.SaleRow
		var (
			txTenure, ptype, tenure, detail sql.NullString
			number, road, town, postcode    sql.NullString
			bedrooms                        sql.NullInt64
			lat, lon                        sql.NullFloat64
		)
		if err := rows.Scan(
			&s.Address,
			&s.DateSold,
			&s.DisplayPrice,
			&s.MonthsBeforeToday,
			&txTenure,
			&s.NewBuild,
			&ptype,
			&bedrooms,
			&tenure,
			&detail,
			&number, &road, &town, &postcode,
			&lat, &lon,
		); err != nil {
			return nil, false, err
		}
		s.DateSold = s.DateSold.UTC()
		s.TransactionTenure = txTenure.String
		s.PropertyType = ptype.String
		s.Tenure = tenure.String
		s.DetailURL = detail.String
		s.Number, s.Road, s.Town, s.Postcode = number.String, road.String, town.String, postcode.String
		if bedrooms.Valid {
			b := int(bedrooms.Int64)
			s.Bedrooms = &b
		}
		if lat.Valid && lon.Valid {
			la, lo := lat.Float64, lon.Float64
			s.Lat, s.Lon = &la, &lo
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	observability.ObserveCache("mysql", "hit")
	return out, true, nil
}
