package config

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/pkg/config"
)

type Config struct {
	Port           string
	LogLevel       string
	APIURL         string
	APITimeout     time.Duration
	SessionKey     []byte
	CSRFKey        []byte
	CookieSecure   bool
	TrustedOrigins []string
}

func Load() *Config {
	config.LoadDotEnv()

	port := config.EnvDefault("SERVER_PORT", "5000")
	origins := config.CSV(os.Getenv("TRUSTED_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"localhost:" + port, "127.0.0.1:" + port}
	}

	return &Config{
		Port:           port,
		LogLevel:       config.EnvDefault("LOG_LEVEL", "info"),
		APIURL:         strings.TrimRight(config.EnvDefault("API_URL", "http://localhost:8000/api/v1"), "/"),
		APITimeout:     config.EnvDurationDefault("API_TIMEOUT", 5*time.Second),
		SessionKey:     keyFromEnv("SESSION_KEY"),
		CSRFKey:        keyFromEnv("CSRF_KEY"),
		CookieSecure:   config.EnvBoolDefault("COOKIE_SECURE", false),
		TrustedOrigins: origins,
	}
}

// keyFromEnv decodes a base64 key of at least 32 bytes. A missing or short
// key is replaced by a random one, which invalidates sessions on restart.
func keyFromEnv(name string) []byte {
	raw := os.Getenv(name)
	if raw == "" {
		slog.Warn("key not set, generating a random one", "env", name)
		return randomKey()
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(key) < 32 {
		slog.Warn("key is invalid or shorter than 32 bytes, generating a random one", "env", name)
		return randomKey()
	}
	return key
}

func randomKey() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return b
}
