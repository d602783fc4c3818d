package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	Store     string // csv|mysql
	DataDir   string
	MySQLDSN  string
	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	SourceBase         string
	SearchArea         string
	ScrapeLimit        int
	SoldInYears        int
	DuplicateThreshold int
	DelayMin, DelayMax time.Duration

	GeocoderBase      string
	GeocoderUserAgent string
	GeocoderRPS       int
	GeocodeTimeout    time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		Store:     env("STORE", "csv"),
		DataDir:   env("DATA_DIR", "saved_extracts"),
		MySQLDSN:  env("MYSQL_DSN", "root:root@tcp(localhost:3306)/soldprices?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		SourceBase:         env("SOURCE_BASE_URL", "https://www.rightmove.co.uk"),
		SearchArea:         env("SEARCH_AREA", "Epsom"),
		ScrapeLimit:        atoi("SCRAPE_LIMIT", 10),
		SoldInYears:        atoi("SOLD_IN_YEARS", 7),
		DuplicateThreshold: atoi("DUPLICATE_THRESHOLD", 50),
		DelayMin:           time.Duration(atoi("REQUEST_DELAY_MIN_MS", 100)) * time.Millisecond,
		DelayMax:           time.Duration(atoi("REQUEST_DELAY_MAX_MS", 2000)) * time.Millisecond,

		GeocoderBase:      env("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: env("GEOCODER_USER_AGENT", "location-finder"),
		GeocoderRPS:       atoi("GEOCODER_RPS", 1),
		GeocodeTimeout:    time.Duration(atoi("GEOCODE_TIMEOUT_SECONDS", 10)) * time.Second,
	}
	if c.DelayMax < c.DelayMin {
		log.Warn().Dur("min", c.DelayMin).Dur("max", c.DelayMax).Msg("request delay max below min, clamping")
		c.DelayMax = c.DelayMin
	}
	if c.Store != "csv" && c.Store != "mysql" {
		log.Warn().Str("store", c.Store).Msg("unknown STORE, using csv")
		c.Store = "csv"
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
