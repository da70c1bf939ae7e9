package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Steam    Steam    `yaml:"steam"`
	Gateway  Gateway  `yaml:"gateway"`
	Cache    Cache    `yaml:"cache"`
	Crossref Crossref `yaml:"crossref"`
	Server   Server   `yaml:"server"`
}

type Steam struct {
	APIKeyEnv     string `yaml:"api_key_env"`
	StoreAPIURL   string `yaml:"store_api_url"`
	PlayerAPIURL  string `yaml:"player_api_url"`
	TrustedOrigin string `yaml:"trusted_origin"`
}

type Gateway struct {
	TimeoutSeconds  int `yaml:"timeout_seconds"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
}

type Cache struct {
	ReviewTTLMinutes int `yaml:"review_ttl_minutes"`
	PlayerTTLMinutes int `yaml:"player_ttl_minutes"`
}

type Crossref struct {
	MaxPagesPerReviewer    int `yaml:"max_pages_per_reviewer"`
	MaxConcurrentReviewers int `yaml:"max_concurrent_reviewers"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for steamlens.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "steamlens")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/steamlens/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'steamlens init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, _ := parse(nil)
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Steam: Steam{
			APIKeyEnv:     "STEAM_API_KEY",
			StoreAPIURL:   "https://store.steampowered.com",
			PlayerAPIURL:  "https://api.steampowered.com",
			TrustedOrigin: "https://steamcommunity.com",
		},
		Gateway: Gateway{
			TimeoutSeconds:  5,
			CacheTTLMinutes: 10,
		},
		Cache: Cache{
			ReviewTTLMinutes: 5,
			PlayerTTLMinutes: 30,
		},
		Crossref: Crossref{
			MaxPagesPerReviewer:    3,
			MaxConcurrentReviewers: 5,
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GatewayTimeout returns the per-fetch timeout as a duration.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

// GatewayCacheTTL returns the proxy cache TTL as a duration.
func (c *Config) GatewayCacheTTL() time.Duration {
	return time.Duration(c.Gateway.CacheTTLMinutes) * time.Minute
}

// ReviewCacheTTL returns the review-listing cache TTL as a duration.
func (c *Config) ReviewCacheTTL() time.Duration {
	return time.Duration(c.Cache.ReviewTTLMinutes) * time.Minute
}

// PlayerCacheTTL returns the player-profile cache TTL as a duration.
func (c *Config) PlayerCacheTTL() time.Duration {
	return time.Duration(c.Cache.PlayerTTLMinutes) * time.Minute
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
