// Package config loads runtime configuration for the eventhub CLI.
//
// Sources, later ones win: built-in defaults, an optional JSON file given
// with -c / -config, then command-line flags:
//
//	-a string   base URL of the eventhub HTTP API
//	-t int      request timeout in seconds
//	-s string   path of the local session database
//
// JSON example:
//
//	{
//	  "server_url": "http://127.0.0.1:5000",
//	  "request_timeout": "10s",
//	  "session_file": "eventhub-session.db"
//	}
package config

import "time"

// Config holds runtime settings for the eventhub CLI.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	SessionFile    string
}

// LoadDefaults populates c with defaults for a local server.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000"
	c.RequestTimeout = 10 * time.Second
	c.SessionFile = "eventhub-session.db"
}

// LoadConfig applies defaults, then the JSON file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
