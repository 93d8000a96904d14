// Package config loads runtime configuration from a .env file (when present)
// and environment variables, with typed defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	App     AppConfig
	Check   CheckConfig
	Pricing PricingConfig
}

type AppConfig struct {
	LogLevel  string
	LogFormat string // "text" or "json"
}

type CheckConfig struct {
	Timeout     time.Duration // per probe attempt
	Retries     int
	Backoff     time.Duration
	Concurrency int
	DNSResolver string // host:port
}

type PricingConfig struct {
	// Policy selects the winning quote: "first-year" or "total".
	Policy string

	PorkbunAPIKey       string
	PorkbunSecretAPIKey string

	NamecheapAPIUser  string
	NamecheapAPIKey   string
	NamecheapUsername string
	NamecheapClientIP string
}

// Load reads .env if it exists, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using environment variables")
	}

	return &Config{
		App: AppConfig{
			LogLevel:  getEnv("TLDSCOUT_LOG_LEVEL", "warn"),
			LogFormat: getEnv("TLDSCOUT_LOG_FORMAT", "text"),
		},
		Check: CheckConfig{
			Timeout:     getEnvDuration("TLDSCOUT_TIMEOUT", 8*time.Second),
			Retries:     getEnvInt("TLDSCOUT_RETRIES", 2),
			Backoff:     getEnvDuration("TLDSCOUT_BACKOFF", 100*time.Millisecond),
			Concurrency: getEnvInt("TLDSCOUT_CONCURRENCY", 0),
			DNSResolver: getEnv("TLDSCOUT_DNS_RESOLVER", "8.8.8.8:53"),
		},
		Pricing: PricingConfig{
			Policy:              getEnv("TLDSCOUT_PRICE_POLICY", "first-year"),
			PorkbunAPIKey:       getEnv("PORKBUN_API_KEY", ""),
			PorkbunSecretAPIKey: getEnv("PORKBUN_SECRET_API_KEY", ""),
			NamecheapAPIUser:    getEnv("NAMECHEAP_API_USER", ""),
			NamecheapAPIKey:     getEnv("NAMECHEAP_API_KEY", ""),
			NamecheapUsername:   getEnv("NAMECHEAP_USERNAME", ""),
			NamecheapClientIP:   getEnv("NAMECHEAP_CLIENT_IP", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("invalid integer %q, using default %d", v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("invalid duration %q, using default %s", v, fallback)
		return fallback
	}
	return d
}
