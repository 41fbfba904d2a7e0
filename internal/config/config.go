package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Env  string
	Port int

	// store
	StoreDriver   string
	DBURL         string
	DBInsecureTLS bool
	DBMaxConns    int32
	DBAutoSchema  bool

	// password hashing
	BcryptCost      int
	HashConcurrency int

	// http
	MaxBodyBytes   int64
	AllowedOrigins []string
	StaticDir      string

	// observability
	MetricsEnabled  bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

func Load() Config {
	// a missing .env file is fine, real deployments use the environment
	_ = godotenv.Load()

	dbURL, fromURL := buildDBURL()

	return Config{
		Env:             getEnv("APP_ENV", "dev"),
		Port:            getEnvInt("PORT", 3000),
		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DBURL:           dbURL,
		DBInsecureTLS:   getEnvBool("DB_INSECURE_TLS", fromURL),
		DBMaxConns:      int32(getEnvInt("DB_MAX_CONNS", 5)),
		DBAutoSchema:    getEnvBool("DB_AUTO_SCHEMA", true),
		BcryptCost:      getEnvInt("BCRYPT_COST", 12),
		HashConcurrency: getEnvInt("HASH_CONCURRENCY", 0),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 64<<10)),
		AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
		StaticDir:       getEnv("STATIC_DIR", ""),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelSampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1),
	}
}

// buildDBURL prefers DATABASE_URL as handed out by hosting platforms and
// falls back to discrete DB_* variables for local setups.
func buildDBURL() (string, bool) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v, true
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	pass := getEnv("DB_PASSWORD", "postgres")
	name := getEnv("DB_NAME", "users")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl, false
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer in environment, using default", "key", key, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)

		if err != nil {
			slog.Warn("invalid number in environment, using default", "key", key, "default", fallback)
			return fallback
		}

		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)

		if err != nil {
			slog.Warn("invalid boolean in environment, using default", "key", key, "default", fallback)
			return fallback
		}

		return b
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
