package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"soldprices/internal/adapters/nominatim"
	"soldprices/internal/adapters/observability"
	redisad "soldprices/internal/adapters/redis"
	"soldprices/internal/adapters/rightmove"
	"soldprices/internal/app"
	"soldprices/internal/domain"
	"soldprices/internal/shared"
	"soldprices/internal/storage/csvfile"
	mysqlrepo "soldprices/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr)

	log.Info().
		Str("area", cfg.SearchArea).
		Int("limit", cfg.ScrapeLimit).
		Str("store", cfg.Store).
		Msg("extract starting")

	store := openStore(cfg)

	geo, err := nominatim.New(cfg.GeocoderBase, cfg.GeocoderUserAgent, cfg.GeocoderRPS, cfg.GeocodeTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize geocoder")
	}
	src := rightmove.New(cfg.SourceBase, cfg.DelayMin, cfg.DelayMax)

	collector := app.NewCollector(src)
	collector.SoldInYears = cfg.SoldInYears
	collector.DuplicateThreshold = cfg.DuplicateThreshold
	norm := app.NewNormalizer(app.NewGeoResolver(geo, cfg.GeocodeTimeout))
	svc := app.NewExtractService(store, collector, norm)

	rows, err := svc.GetData(ctx, cfg.SearchArea, cfg.ScrapeLimit)
	if err != nil {
		log.Fatal().Err(err).Str("area", cfg.SearchArea).Msg("extract failed")
	}
	log.Info().Str("area", cfg.SearchArea).Int("sales", len(rows)).Msg("extract completed")

	// the API may hold a cached copy from before this extract
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		q := app.NewQueryService(store, rc, cfg.CacheTTL)
		if err := q.Invalidate(ctx, cfg.SearchArea); err != nil {
			log.Warn().Err(err).Str("area", cfg.SearchArea).Msg("cache invalidation failed")
		}
	}
}

func openStore(cfg shared.Config) domain.SalesStore {
	if cfg.Store != "mysql" {
		return csvfile.New(cfg.DataDir)
	}
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")
	return mysqlrepo.New(db)
}
