package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "MATCHDESK_"

type envConfig struct {
	APIBaseURL          string        `env:"API_BASE_URL"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	DatabasePath        string        `env:"DATABASE_PATH"`
	CheckoutStateTTL    time.Duration `env:"CHECKOUT_STATE_TTL"`
	AppURL              string        `env:"APP_URL"`
	LogLevel            string        `env:"LOG_LEVEL"`
	LogFormat           string        `env:"LOG_FORMAT"`
	MetricsAddr         string        `env:"METRICS_ADDR"`
	Fallback            struct {
		Bucket    string `env:"BUCKET"`
		Key       string `env:"KEY"`
		Region    string `env:"REGION"`
		Endpoint  string `env:"ENDPOINT"`
		AccessKey string `env:"ACCESS_KEY"`
		SecretKey string `env:"SECRET_KEY"`
	} `envPrefix:"FALLBACK_S3_"`
}

// parseEnv overlays cfg with MATCHDESK_* variables. environ replaces the
// process environment when non-nil. Malformed values panic.
func parseEnv(cfg *Config, environ map[string]string) {
	var ec envConfig
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: envPrefix, Environment: environ}); err != nil {
		panic(err)
	}

	setString(&cfg.APIBaseURL, ec.APIBaseURL)
	setDurationValue(&cfg.RequestTimeout, ec.RequestTimeout)
	setDurationValue(&cfg.OnlineCheckInterval, ec.OnlineCheckInterval)
	setString(&cfg.DatabasePath, ec.DatabasePath)
	setDurationValue(&cfg.CheckoutStateTTL, ec.CheckoutStateTTL)
	setString(&cfg.AppURL, ec.AppURL)
	setString(&cfg.LogLevel, ec.LogLevel)
	setString(&cfg.LogFormat, ec.LogFormat)
	setString(&cfg.MetricsAddr, ec.MetricsAddr)
	setString(&cfg.Fallback.Bucket, ec.Fallback.Bucket)
	setString(&cfg.Fallback.Key, ec.Fallback.Key)
	setString(&cfg.Fallback.Region, ec.Fallback.Region)
	setString(&cfg.Fallback.Endpoint, ec.Fallback.Endpoint)
	setString(&cfg.Fallback.AccessKey, ec.Fallback.AccessKey)
	setString(&cfg.Fallback.SecretKey, ec.Fallback.SecretKey)
}

func setDurationValue(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
