// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DefaultRegions are the cities the heatmap buckets by
var DefaultRegions = []string{
	"Cambridge", "Somerville", "Boston", "Brookline",
	"Medford", "Watertown", "Everett", "Arlington",
	"Belmont", "Chelsea", "Malden", "Revere",
	"Winchester", "Newton", "Winthrop", "Melrose",
}

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	NATS        NATSConfig
	Geo         GeoConfig
	Heatmap     HeatmapConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// StorageConfig selects the storage backend
type StorageConfig struct {
	Driver string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
	Migrate      bool
}

// RedisConfig holds Redis configuration. An empty URL keeps heat buckets in
// the primary store.
type RedisConfig struct {
	URL string
}

// NATSConfig holds NATS configuration. An empty URL disables event publishing.
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	EventsTopic    string
}

// GeoConfig holds geospatial configuration
type GeoConfig struct {
	DefaultLimit     int
	MaxLimit         int
	GeocoderURL      string
	GeocoderAPIKey   string
	GeocoderTimeout  time.Duration
	SupportedRegions []string
}

// HeatmapConfig holds heatmap configuration
type HeatmapConfig struct {
	HalfLife time.Duration
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", DriverPostgres),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "rendezvous"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			Migrate:      getEnvAsBool("DB_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", ""),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			EventsTopic:    getEnv("NATS_EVENTS_TOPIC", "rendezvous"),
		},
		Geo: GeoConfig{
			DefaultLimit:     getEnvAsInt("GEO_DEFAULT_LIMIT", 20),
			MaxLimit:         getEnvAsInt("GEO_MAX_LIMIT", 100),
			GeocoderURL:      getEnv("GEOAPIFY_URL", "https://api.geoapify.com"),
			GeocoderAPIKey:   getEnv("GEOAPIFY_API_KEY", ""),
			GeocoderTimeout:  getEnvAsDuration("GEOAPIFY_TIMEOUT", 3*time.Second),
			SupportedRegions: getEnvAsSlice("GEO_SUPPORTED_REGIONS", DefaultRegions),
		},
		Heatmap: HeatmapConfig{
			HalfLife: getEnvAsDuration("HEATMAP_HALF_LIFE", 24*time.Hour),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	switch config.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	if config.Geo.DefaultLimit <= 0 {
		return fmt.Errorf("geo default limit must be positive")
	}
	if config.Geo.MaxLimit < config.Geo.DefaultLimit {
		return fmt.Errorf("geo max limit %d is below default limit %d", config.Geo.MaxLimit, config.Geo.DefaultLimit)
	}
	if config.Heatmap.HalfLife <= 0 {
		return fmt.Errorf("heatmap half-life must be positive")
	}
	if config.Environment != "development" && config.Storage.Driver == DriverMemory {
		return fmt.Errorf("memory storage is only allowed in development")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}
