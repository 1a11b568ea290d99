package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret string

	// Path to a YAML file overriding the built-in section quota tables.
	QuotaFile string

	// Free-tier generation limit. <= 0 disables the check.
	FreeTestLimit int
	// sql (count tests table) or redis (per-user counter).
	QuotaBackend string
	RedisAddr    string

	CORSOrigins []string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		DBDriver:      envOr("DB_DRIVER", "sqlite"),
		DBDSN:         envOr("DB_DSN", ""),
		AuthSecret:    envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		QuotaFile:     os.Getenv("QUOTA_FILE"),
		FreeTestLimit: envInt("FREE_TEST_LIMIT", 5),
		QuotaBackend:  envOr("QUOTA_BACKEND", "sql"),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		CORSOrigins:   csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
