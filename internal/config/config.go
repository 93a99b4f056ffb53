package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env          string
	Port         string
	DatabaseURL  string
	RedisURL     string
	PublicAppURL string
	SnowflakeID  int64
	JWT          JWTConfig
	Telegram     TelegramConfig
	WebPush      WebPushConfig
	OTel         OTelConfig
	Presence     PresenceConfig
	AuditTimeout time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type TelegramConfig struct {
	BotToken string
}

type WebPushConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type PresenceConfig struct {
	StaleAfter time.Duration
}

// Load reads configuration from the environment. Outside production a local
// .env file is loaded first when present.
func Load() (Config, error) {
	if getEnv("APP_ENV", "development") != "production" {
		_ = godotenv.Load()
	}

	cfg := Config{
		Env:          getEnv("APP_ENV", "development"),
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  getEnv("DATABASE_URL", "host=localhost user=user password=password dbname=giveboxdb port=5432 sslmode=disable"),
		RedisURL:     getEnv("REDIS_URL", ""),
		PublicAppURL: getEnv("PUBLIC_APP_URL", "http://localhost:3000"),
		SnowflakeID:  int64(getEnvInt("SNOWFLAKE_NODE", 1)),
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			Issuer: getEnv("JWT_ISSUER", "givebox"),
			TTL:    getEnvDuration("JWT_TTL", 72*time.Hour),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		},
		WebPush: WebPushConfig{
			PublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
			PrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			Subject:    getEnv("VAPID_SUBJECT", "mailto:admin@givebox.local"),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "givebox"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Presence: PresenceConfig{
			StaleAfter: getEnvDuration("PRESENCE_STALE_AFTER", DefaultPresenceStaleAfter),
		},
		AuditTimeout: getEnvDuration("AUDIT_TIMEOUT", DefaultAuditTimeout),
	}

	if cfg.JWT.Secret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != ""
}

func (c WebPushConfig) Enabled() bool {
	return c.PublicKey != "" && c.PrivateKey != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
