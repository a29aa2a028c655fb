package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DB            DBConfig
	MinIO         MinIOConfig
	JWT           JWTConfig
	Server        ServerConfig
	Suggest       SuggestConfig
	Notifications NotificationConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MinIOConfig struct {
	Enabled        bool
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	PresignExpiry  time.Duration
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
	RememberDays    int
}

type ServerConfig struct {
	Port         string
	AllowOrigins string
}

type SuggestConfig struct {
	MinQueryLength int
	MaxResults     int
}

type NotificationConfig struct {
	FeedLimit int
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "groceryshare"),
			Password: getEnv("DB_PASSWORD", "groceryshare_secret"),
			Name:     getEnv("DB_NAME", "groceryshare"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MinIO: MinIOConfig{
			Enabled:        getEnvAsBool("MINIO_ENABLED", false),
			Endpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicEndpoint: getEnv("MINIO_PUBLIC_ENDPOINT", getEnv("MINIO_ENDPOINT", "localhost:9000")),
			AccessKey:      getEnv("MINIO_ACCESS_KEY", "groceryshare"),
			SecretKey:      getEnv("MINIO_SECRET_KEY", "groceryshare_secret"),
			Bucket:         getEnv("MINIO_BUCKET", "groceryshare-exports"),
			UseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
			PresignExpiry:  getEnvAsDuration("MINIO_PRESIGN_EXPIRY", 24*time.Hour),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
			RememberDays:    getEnvAsInt("JWT_REMEMBER_DAYS", 7),
		},
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000"),
		},
		Suggest: SuggestConfig{
			MinQueryLength: getEnvAsInt("SUGGEST_MIN_QUERY_LENGTH", 2),
			MaxResults:     getEnvAsInt("SUGGEST_MAX_RESULTS", 5),
		},
		Notifications: NotificationConfig{
			FeedLimit: getEnvAsInt("NOTIFICATION_FEED_LIMIT", 50),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
