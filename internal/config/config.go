package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
)

type Config struct {
	HTTPPort        string
	GRPCPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxRequestBody  int64
	LogLevel        string
	Development     bool

	CatalogDriver string
	CatalogDSN    string

	StorageBackend string
	RedisAddr      string
	MongoURI       string
	MongoDatabase  string
	SessionMaxIdle time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	MailerURL     string
	MailerTimeout time.Duration
	TrackerURL    string
	ShippingCost  float64
}

func Load() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		GRPCPort:        getEnv("GRPC_PORT", "9090"),
		RequestTimeout:  parseDuration(getEnv("REQUEST_TIMEOUT", "30s"), 30*time.Second),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
		MaxRequestBody:  1 << 20, // 1MB
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Development:     parseBool(getEnv("DEV_MODE", "false")),

		CatalogDriver: getEnv("CATALOG_DRIVER", "sqlite"),
		CatalogDSN:    getEnv("CATALOG_DSN", "storefront.db"),

		StorageBackend: getEnv("STORAGE_BACKEND", StorageMemory),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "storefront"),
		SessionMaxIdle: parseDuration(getEnv("SESSION_MAX_IDLE", "2h"), 2*time.Hour),

		KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront-orders"),

		MailerURL:     getEnv("MAILER_URL", ""),
		MailerTimeout: parseDuration(getEnv("MAILER_TIMEOUT", "10s"), 10*time.Second),
		TrackerURL:    getEnv("TRACKER_URL", ""),
		ShippingCost:  parseFloat(getEnv("SHIPPING_COST", "7"), 7),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return fallback
	}
	return f
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
