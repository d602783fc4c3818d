package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"soldprices/internal/domain"
)

// ExtractService serves extracts from the store and scrapes on a miss.
type ExtractService struct {
	store     domain.SalesStore
	collector *Collector
	norm      *Normalizer
	now       func() time.Time
}

func NewExtractService(store domain.SalesStore, c *Collector, n *Normalizer) *ExtractService {
	return &ExtractService{store: store, collector: c, norm: n, now: time.Now}
}

// WithClock replaces the reference time used for MonthsBeforeToday.
func (s *ExtractService) WithClock(now func() time.Time) *ExtractService {
	s.now = now
	return s
}

// GetData returns the stored extract for area, scraping and saving it first
// if there is none. Nothing is saved unless the whole scrape succeeds.
func (s *ExtractService) GetData(ctx context.Context, area string, limit int) ([]domain.SaleRow, error) {
	rows, ok, err := s.store.Load(ctx, area)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", area, err)
	}
	if ok {
		log.Info().Str("area", area).Int("rows", len(rows)).Msg("using stored extract")
		return rows, nil
	}

	rows, err = s.Scrape(ctx, area, limit)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, area, rows); err != nil {
		return nil, fmt.Errorf("save %s: %w", area, err)
	}
	return rows, nil
}

// Scrape runs collection, normalization and flattening without touching
// the store.
func (s *ExtractService) Scrape(ctx context.Context, area string, limit int) ([]domain.SaleRow, error) {
	start := time.Now()
	raw, err := s.collector.Collect(ctx, area, nil, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", area, err)
	}
	clean := s.norm.Normalize(ctx, raw)
	rows, err := Flatten(clean, s.now())
	if err != nil {
		return nil, fmt.Errorf("flatten %s: %w", area, err)
	}
	log.Info().
		Str("area", area).
		Int("properties", len(raw)).
		Int("normalized", len(clean)).
		Int("sales", len(rows)).
		Dur("took", time.Since(start)).
		Msg("scrape finished")
	return rows, nil
}
