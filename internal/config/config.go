// Package config holds the engine's static YAML configuration (venue
// credentials, server wiring), loaded with defaults applied for any
// field left unset. Dynamic, operator-editable trading parameters live
// in TradingConfig, persisted separately by Store (see store.go).
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application's static configuration.
type Config struct {
	Broker   BrokerConfig   `yaml:"broker"`
	Stream   StreamConfig   `yaml:"stream"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
}

// BrokerConfig holds the GMO Coin FX REST credentials.
type BrokerConfig struct {
	APIKey    string        `yaml:"apiKey"`
	APISecret string        `yaml:"apiSecret"`
	BaseURL   string        `yaml:"baseUrl"`
	Timeout   time.Duration `yaml:"timeout"`
}

// StreamConfig holds the ticker WebSocket wiring.
type StreamConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Symbols       []string      `yaml:"symbols"`
	PingInterval  time.Duration `yaml:"pingInterval"`
	ReconnectWait time.Duration `yaml:"reconnectWait"`
}

// DatabaseConfig points at the SQLite event store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// APIConfig represents API server configuration.
type APIConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// Load loads the static configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Broker.BaseURL == "" {
		cfg.Broker.BaseURL = "https://forex-api.coin.z.com"
	}
	if cfg.Broker.Timeout == 0 {
		cfg.Broker.Timeout = 10 * time.Second
	}

	if cfg.Stream.Endpoint == "" {
		cfg.Stream.Endpoint = "wss://forex-api.coin.z.com/ws/public/v1"
	}
	if len(cfg.Stream.Symbols) == 0 {
		cfg.Stream.Symbols = []string{"USD_JPY"}
	}
	if cfg.Stream.PingInterval == 0 {
		cfg.Stream.PingInterval = 20 * time.Second
	}
	if cfg.Stream.ReconnectWait == 0 {
		cfg.Stream.ReconnectWait = 5 * time.Second
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/aurafx.db"
	}

	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if len(cfg.API.CORSOrigins) == 0 {
		cfg.API.CORSOrigins = []string{"*"}
	}
}

// Save saves the static configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
