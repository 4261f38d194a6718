package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/console/fallback"
)

// Config holds runtime settings for the console.
type Config struct {
	APIBaseURL          string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	DatabasePath        string
	CheckoutStateTTL    time.Duration

	// AppURL is where the payment provider sends the user back to.
	AppURL string

	LogLevel  string
	LogFormat string

	// MetricsAddr, when set, serves Prometheus metrics on that address.
	MetricsAddr string

	// ReturnURL, when set, is processed once at startup as if the browser
	// had just navigated to it.
	ReturnURL string

	Fallback fallback.S3Config
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080/api"
	c.RequestTimeout = 15 * time.Second
	c.OnlineCheckInterval = 30 * time.Second
	c.DatabasePath = "matchdesk.db"
	c.CheckoutStateTTL = time.Hour
	c.AppURL = "http://localhost:5173"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.Fallback.Region = "us-east-1"
}

// LoadConfig builds the Config from defaults, the config file, the
// environment and os.Args. Invalid input panics.
func LoadConfig() *Config {
	return load(os.Args[1:], nil)
}

func load(args []string, environ map[string]string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg, args)
	parseEnv(cfg, environ)
	parseFlags(cfg, args)
	return cfg
}
