package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when OPENWEATHER_API_KEY is not set.
var ErrMissingAPIKey = errors.New("OPENWEATHER_API_KEY is required")

type AppConfig struct {
	OpenWeatherAPIKey string
	ForecastBaseURL   string
	ForecastLang      string

	// HTTPTimeout bounds every outbound forecast request.
	HTTPTimeout time.Duration
	// RateLimitPerMinute caps outbound forecast requests (0 = unlimited).
	RateLimitPerMinute int

	Cache CacheConfig

	// RefreshInterval enables periodic refresh of the selected region (0 = off).
	RefreshInterval time.Duration

	Location LocationConfig

	Port      string
	LogLevel  string
	LogFormat string
}

type CacheConfig struct {
	Backend string // bolt, redis, postgres or memory
	Path    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string
}

type LocationConfig struct {
	Enabled bool

	// A fixed coordinate takes precedence over geocoding.
	Lat *float64
	Lon *float64

	Address        string
	City           string
	Country        string
	GeocoderAPIKey string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg.ForecastBaseURL = getenvDefault("FORECAST_BASE_URL", "https://api.openweathermap.org/data/2.5/forecast")
	cfg.ForecastLang = getenvDefault("FORECAST_LANG", "ja")

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout
	cfg.RateLimitPerMinute = getenvInt("RATE_LIMIT_PER_MINUTE", 60)

	cfg.Cache = CacheConfig{
		Backend:       getenvDefault("CACHE_BACKEND", "bolt"),
		Path:          getenvDefault("CACHE_PATH", "forecast-cache.db"),
		RedisAddr:     getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
	}
	switch cfg.Cache.Backend {
	case "bolt", "redis", "memory":
	case "postgres":
		if cfg.Cache.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required when CACHE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q", cfg.Cache.Backend)
	}

	interval, err := time.ParseDuration(getenvDefault("REFRESH_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = interval

	loc, err := loadLocation()
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "text")

	return cfg, nil
}

func loadLocation() (LocationConfig, error) {
	loc := LocationConfig{
		Enabled:        getenvBool("LOCATION_ENABLED", false),
		Address:        os.Getenv("LOCATION_ADDRESS"),
		City:           os.Getenv("LOCATION_CITY"),
		Country:        os.Getenv("LOCATION_COUNTRY"),
		GeocoderAPIKey: os.Getenv("GEOCODER_API_KEY"),
	}

	latStr, lonStr := os.Getenv("LOCATION_LAT"), os.Getenv("LOCATION_LON")
	if (latStr == "") != (lonStr == "") {
		return loc, fmt.Errorf("LOCATION_LAT and LOCATION_LON must be set together")
	}
	if latStr == "" {
		return loc, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return loc, fmt.Errorf("invalid LOCATION_LAT %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return loc, fmt.Errorf("invalid LOCATION_LON %q", lonStr)
	}
	loc.Lat, loc.Lon = &lat, &lon
	return loc, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
