package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Redis   RedisConfig
	JWT     JWTConfig
	CORS    CORSConfig
	Log     LogConfig
	Booking BookingConfig
	Queue   QueueConfig
	Export  ExportConfig
	Demo    DemoConfig
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BookingConfig tunes scheduling-engine behaviour.
type BookingConfig struct {
	// MinLeadTime is how far in the future a new availability slot must
	// start to be accepted.
	MinLeadTime time.Duration
}

// QueueConfig governs the queue-status snapshot cache.
type QueueConfig struct {
	StatusCacheTTL time.Duration
}

// ExportConfig governs the on-disk schedule export archive.
type ExportConfig struct {
	Dir      string
	TokenTTL time.Duration
}

// DemoConfig toggles demo-data seeding at startup.
type DemoConfig struct {
	Enabled    bool
	Professors int
	Counselors int
	Students   int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Booking = BookingConfig{
		MinLeadTime: parseDuration(v.GetString("BOOKING_MIN_LEAD_TIME"), time.Minute),
	}

	cfg.Queue = QueueConfig{
		StatusCacheTTL: parseDuration(v.GetString("QUEUE_STATUS_CACHE_TTL"), 30*time.Second),
	}

	cfg.Export = ExportConfig{
		Dir:      v.GetString("EXPORT_DIR"),
		TokenTTL: parseDuration(v.GetString("EXPORT_TOKEN_TTL"), 24*time.Hour),
	}

	cfg.Demo = DemoConfig{
		Enabled:    v.GetBool("ENABLE_DEMO_DATA"),
		Professors: v.GetInt("DEMO_PROFESSORS"),
		Counselors: v.GetInt("DEMO_COUNSELORS"),
		Students:   v.GetInt("DEMO_STUDENTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "consultation-queue")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_MIN_LEAD_TIME", "1m")
	v.SetDefault("QUEUE_STATUS_CACHE_TTL", "30s")

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_TOKEN_TTL", "24h")

	v.SetDefault("ENABLE_DEMO_DATA", false)
	v.SetDefault("DEMO_PROFESSORS", 3)
	v.SetDefault("DEMO_COUNSELORS", 1)
	v.SetDefault("DEMO_STUDENTS", 10)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
