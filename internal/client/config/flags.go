package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/flagx"
)

// parseFlags reads -a, -t and -s. Other arguments are filtered out with
// flagx.FilterArgs so the JSON flags do not trip the parser.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the eventhub API")
	fs.StringVar(&cfg.SessionFile, "s", cfg.SessionFile, "path of the local session database")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
