package config

import (
	"os"
	"time"

	"github.com/Skotchmaster/storefront/pkg/config"
)

type Config struct {
	Port           string
	LogLevel       string
	DatabaseURL    string
	JWTSecret      []byte
	AccessTokenTTL time.Duration

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	RedisAddr       string
	RedisPassword   string
	LoginRateLimit  int
	LoginRateWindow time.Duration

	SeedAdmin SeedAdmin
}

type SeedAdmin struct {
	Username string
	Email    string
	Password string
}

func (s SeedAdmin) Enabled() bool {
	return s.Username != "" && s.Email != "" && s.Password != ""
}

func Load() *Config {
	config.LoadDotEnv()

	return &Config{
		Port:           config.EnvDefault("SERVER_PORT", "8000"),
		LogLevel:       config.EnvDefault("LOG_LEVEL", "info"),
		DatabaseURL:    config.MustNonEmpty(os.Getenv("DATABASE_URL"), "DATABASE_URL"),
		JWTSecret:      []byte(config.MustNonEmpty(os.Getenv("JWT_SECRET"), "JWT_SECRET")),
		AccessTokenTTL: config.EnvDurationDefault("ACCESS_TOKEN_TTL", 30*time.Minute),

		KafkaBrokers: config.CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    config.EnvDefault("ES_INDEX", "products"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		LoginRateLimit:  config.EnvIntDefault("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: config.EnvDurationDefault("LOGIN_RATE_WINDOW", time.Minute),

		SeedAdmin: SeedAdmin{
			Username: os.Getenv("SEED_ADMIN_USERNAME"),
			Email:    os.Getenv("SEED_ADMIN_EMAIL"),
			Password: os.Getenv("SEED_ADMIN_PASSWORD"),
		},
	}
}
