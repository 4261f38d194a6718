package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dmitrijs2005/matchdesk/internal/flagx"
	"github.com/dmitrijs2005/matchdesk/internal/timex"
)

// fileConfig is the on-disk shape shared by JSON and TOML files.
type fileConfig struct {
	APIBaseURL          string         `json:"api_base_url" toml:"api_base_url"`
	RequestTimeout      timex.Duration `json:"request_timeout" toml:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" toml:"online_check_interval"`
	DatabasePath        string         `json:"database_path" toml:"database_path"`
	CheckoutStateTTL    timex.Duration `json:"checkout_state_ttl" toml:"checkout_state_ttl"`
	AppURL              string         `json:"app_url" toml:"app_url"`
	LogLevel            string         `json:"log_level" toml:"log_level"`
	LogFormat           string         `json:"log_format" toml:"log_format"`
	MetricsAddr         string         `json:"metrics_addr" toml:"metrics_addr"`
	Fallback            struct {
		Bucket    string `json:"bucket" toml:"bucket"`
		Key       string `json:"key" toml:"key"`
		Region    string `json:"region" toml:"region"`
		Endpoint  string `json:"endpoint" toml:"endpoint"`
		AccessKey string `json:"access_key" toml:"access_key"`
		SecretKey string `json:"secret_key" toml:"secret_key"`
	} `json:"fallback" toml:"fallback"`
}

// parseFile overlays cfg with the non-empty values of the file named by
// -c/-config. Read or decode errors panic.
func parseFile(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &fc); err != nil {
			panic(err)
		}
	} else if err := json.Unmarshal(data, &fc); err != nil {
		panic(err)
	}

	setString(&cfg.APIBaseURL, fc.APIBaseURL)
	setDuration(&cfg.RequestTimeout, fc.RequestTimeout)
	setDuration(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval)
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setDuration(&cfg.CheckoutStateTTL, fc.CheckoutStateTTL)
	setString(&cfg.AppURL, fc.AppURL)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.Fallback.Bucket, fc.Fallback.Bucket)
	setString(&cfg.Fallback.Key, fc.Fallback.Key)
	setString(&cfg.Fallback.Region, fc.Fallback.Region)
	setString(&cfg.Fallback.Endpoint, fc.Fallback.Endpoint)
	setString(&cfg.Fallback.AccessKey, fc.Fallback.AccessKey)
	setString(&cfg.Fallback.SecretKey, fc.Fallback.SecretKey)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
