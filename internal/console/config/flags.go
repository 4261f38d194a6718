package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only -a, -t, -i, -d, -m and -u are considered; other arguments are left to
// their own parsers.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-i", "-d", "-m", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the partner API")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "address to serve Prometheus metrics on")
	fs.StringVar(&cfg.ReturnURL, "u", cfg.ReturnURL, "checkout return URL to process at startup")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Only explicit flags replace durations, so sub-second file values survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		case "i":
			cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
		}
	})
}
