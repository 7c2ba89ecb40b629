// Package config reads server settings from the environment, after loading
// an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/joho/godotenv"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	Port           string
	MongoURI       string
	MongoDB        string
	StoreBackend   string
	RedisAddr      string // empty disables the cache
	RedisDB        int
	CacheTTL       time.Duration
	AllowedOrigins []string
	Debug          bool
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults and validation.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:           withDefault(getenv("PORT"), "8080"),
		MongoURI:       getenv("MONGODB_URI"),
		MongoDB:        withDefault(getenv("MONGODB_DB"), "hot"),
		StoreBackend:   withDefault(getenv("STORE_BACKEND"), BackendMongo),
		RedisAddr:      getenv("REDIS_ADDR"),
		CacheTTL:       10 * time.Minute,
		AllowedOrigins: []string{"*"},
	}

	switch cfg.StoreBackend {
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, errors.New("MONGODB_URI environment variable is not set")
		}
	case BackendMemory:
	default:
		return nil, errors.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if v := getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid REDIS_DB value %q", v)
		}
		cfg.RedisDB = db
	}

	if v := getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid CACHE_TTL value %q", v)
		}
		if ttl <= 0 {
			return nil, errors.Errorf("CACHE_TTL must be positive, got %s", ttl)
		}
		cfg.CacheTTL = ttl
	}

	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if v := getenv("DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid DEBUG value %q", v)
		}
		cfg.Debug = debug
	}

	return cfg, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
