// Package config loads runtime configuration for the MatchDesk console.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .toml are decoded as TOML, anything else as JSON.
//  3. Environment variables prefixed with MATCHDESK_.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the partner API, including /api
//	-t int      request timeout (seconds)
//	-i int      online status check interval (seconds)
//	-d string   path of the local sqlite database
//	-u string   return URL handed over by the browser after a checkout
//
// # File schema
//
// Durations accept strings like "15s" or integer nanoseconds (JSON only):
//
//	{
//	  "api_base_url": "https://api.matchdesk.example/api",
//	  "request_timeout": "15s",
//	  "online_check_interval": "30s",
//	  "database_path": "state/matchdesk.db",
//	  "checkout_state_ttl": "1h",
//	  "app_url": "https://console.matchdesk.example",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "fallback": {"bucket": "demo", "key": "dataset.json", "region": "eu-west-3"}
//	}
package config
