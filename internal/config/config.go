package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// TailscaleConfig contains settings for exposing the bot's admin surface as
// a Tailscale / tsnet node.
type TailscaleConfig struct {
	// Enabled toggles whether the admin server should start a tsnet node and
	// listen on it instead of a plain TCP listener.
	Enabled bool `json:"enabled"`

	// Hostname is the device name that will appear in your tailnet for this
	// embedded tsnet node.
	Hostname string `json:"hostname"`

	// AuthKey is an optional Tailscale auth key used for unattended login.
	// If empty, tsnet falls back to TS_AUTHKEY / TS_AUTH_KEY env vars, then
	// prompts for interactive login on first start.
	AuthKey string `json:"authKey"`

	// Ephemeral controls whether this node is ephemeral in the tailnet.
	Ephemeral bool `json:"ephemeral"`

	// ControlURL optionally overrides the Tailscale control server URL
	// (advanced / testing only).
	ControlURL string `json:"controlURL"`

	// Dir overrides the directory where tsnet stores its persistent state.
	// Defaults to the user config directory under tsnet-<hostname>.
	Dir string `json:"dir"`

	// HTTPS enables automatic TLS via Tailscale-managed Let's Encrypt
	// certificates. Only effective when Enabled is true.
	HTTPS bool `json:"https"`

	// ServiceName is the logical name of the Tailscale service (for
	// Tailscale Services / Serve).
	ServiceName string `json:"serviceName"`
}

// ShareSeed declares a static IPC share to register at startup, read
// through a fixed value rather than a live reflector — useful for
// exposing build metadata or static plugin config over the share
// registry without writing Go for it.
type ShareSeed struct {
	Plugin string `json:"plugin"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

// Config is the top-level configuration for the bot daemon.
type Config struct {
	// Port the admin HTTP surface listens on when Tailscale is disabled, or
	// as a fallback port hint when it is enabled.
	Port int `json:"port"`

	Tailscale TailscaleConfig `json:"tailscale"`

	// DatabasePath is where the audit log SQLite database lives.
	DatabasePath string `json:"databasePath"`

	// Shares are static IPC shares seeded into the bot's ipc.Manager at
	// startup.
	Shares []ShareSeed `json:"shares"`
}

// Parse reads a JSON config file and returns the parsed Config. The file
// path is taken from the WIRESPRITE_CONFIG env var, defaulting to
// "wiresprite.json".
func Parse() (*Config, error) {
	path := os.Getenv("WIRESPRITE_CONFIG")
	if path == "" {
		path = "wiresprite.json"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{
		Port:         8090,
		DatabasePath: "wiresprite.db",
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
