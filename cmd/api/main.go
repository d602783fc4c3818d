package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "soldprices/internal/adapters/http_server"
	"soldprices/internal/adapters/observability"
	redisad "soldprices/internal/adapters/redis"
	"soldprices/internal/app"
	"soldprices/internal/domain"
	"soldprices/internal/shared"
	"soldprices/internal/storage/csvfile"
	mysqlrepo "soldprices/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	var store domain.SalesStore = csvfile.New(cfg.DataDir)
	if cfg.Store == "mysql" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		store = mysqlrepo.New(db)
	}

	// redis is optional; without it every request reads the store
	var cache domain.Cache
	var rc *redisad.Cache
	if cfg.RedisAddr != "" {
		rc = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, serving without cache")
		} else {
			cache = rc
		}
	}
	q := app.NewQueryService(store, cache, cfg.CacheTTL)

	srv := server.New(log.Logger)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		if rc != nil {
			if err := rc.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close failed")
			}
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.Store).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
