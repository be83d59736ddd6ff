package config

import "time"

// Config holds runtime settings for the Health Records CLI.
//
// Fields:
//   - ServerURL: base URL of the auth server JSON API.
//   - HealthEndpointAddr: host:port of the server gRPC health endpoint.
//     Empty disables the online status watcher.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - RequestTimeout: upper bound for a single API call, refresh included.
//   - DataDir: directory (relative to the working directory) holding the
//     local session database.
type Config struct {
	ServerURL           string
	HealthEndpointAddr  string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	DataDir             string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.DataDir = ".healthrecords"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
