// Package config exposes strongly typed run configuration loaded from YAML, the environment and flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Network names understood by the chain client.
const (
	NetworkMainnet  = "mainnet"
	NetworkTestnet  = "testnet"
	NetworkDevnet   = "devnet"
	NetworkLocalnet = "localnet"
)

// DefaultAmountOctas is the per-recipient transfer amount (0.4 APT).
const DefaultAmountOctas uint64 = 40_000_000

// App captures process-wide runtime settings such as logging and metrics.
type App struct {
	Name        string `yaml:"name"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // console|json
	MetricsAddr string `yaml:"metrics_addr"`
}

// Network selects the Aptos network and optionally overrides its REST endpoint.
type Network struct {
	Name    string `yaml:"name"`
	NodeURL string `yaml:"node_url"`
}

// Distribution holds the knobs of a single reward run.
type Distribution struct {
	AddressesFile      string  `yaml:"addresses_file"`
	AmountOctas        uint64  `yaml:"amount_octas"`
	MaxInFlight        int     `yaml:"max_in_flight"`
	ConfirmRate        float64 `yaml:"confirm_rate"`
	ConfirmTimeoutSecs int     `yaml:"confirm_timeout_secs"`
	JournalPath        string  `yaml:"journal_path"`
	RequireFunds       bool    `yaml:"require_funds"`
	FailOnPartial      bool    `yaml:"fail_on_partial"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App          App          `yaml:"app"`
	Network      Network      `yaml:"network"`
	Distribution Distribution `yaml:"distribution"`

	baseDir string
}

// Default returns the settings used when no file overrides them.
func Default() *Config {
	return &Config{
		App: App{
			Name:      "apt-reward-script",
			LogLevel:  "info",
			LogFormat: "console",
		},
		Network: Network{Name: NetworkTestnet},
		Distribution: Distribution{
			AddressesFile:      "addresses.csv",
			AmountOctas:        DefaultAmountOctas,
			MaxInFlight:        8,
			ConfirmRate:        10,
			ConfirmTimeoutSecs: 60,
		},
	}
}

// Load reads a YAML file from disk on top of Default.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	// an empty file leaves the defaults in place
	if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		config.baseDir = abs
	}
	return config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides file values with APTOS_NETWORK, APTOS_NODE_URL,
// DISTRIBUTE_ADDRESSES and LOG_LEVEL when they are set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv("APTOS_NETWORK")); v != "" {
		c.Network.Name = v
	}
	if v := strings.TrimSpace(getenv("APTOS_NODE_URL")); v != "" {
		c.Network.NodeURL = v
	}
	if v := strings.TrimSpace(getenv("DISTRIBUTE_ADDRESSES")); v != "" {
		c.Distribution.AddressesFile = v
	}
	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		c.App.LogLevel = v
	}
}

// Validate reports the first setting that cannot drive a run.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Network.Name) {
	case NetworkMainnet, NetworkTestnet, NetworkDevnet, NetworkLocalnet:
	default:
		return &Error{Key: "network.name", Reason: fmt.Sprintf("unknown network %q", c.Network.Name)}
	}
	if c.Distribution.AmountOctas == 0 {
		return &Error{Key: "distribution.amount_octas", Reason: "must be greater than 0"}
	}
	if strings.TrimSpace(c.Distribution.AddressesFile) == "" {
		return &Error{Key: "distribution.addresses_file", Reason: "must not be empty"}
	}
	if c.Distribution.MaxInFlight < 0 {
		return &Error{Key: "distribution.max_in_flight", Reason: "must not be negative"}
	}
	if c.Distribution.ConfirmRate < 0 {
		return &Error{Key: "distribution.confirm_rate", Reason: "must not be negative"}
	}
	return nil
}

// AddressesPath resolves the address file against the config file directory,
// or the working directory when the config did not come from a file.
func (c *Config) AddressesPath() string {
	return c.resolve(c.Distribution.AddressesFile)
}

// JournalPath resolves the journal file the same way as AddressesPath. Empty means disabled.
func (c *Config) JournalPath() string {
	if c.Distribution.JournalPath == "" {
		return ""
	}
	return c.resolve(c.Distribution.JournalPath)
}

// ConfirmTimeout is the per-transaction confirmation poll timeout.
func (c *Config) ConfirmTimeout() time.Duration {
	if c.Distribution.ConfirmTimeoutSecs <= 0 {
		return 0
	}
	return time.Duration(c.Distribution.ConfirmTimeoutSecs) * time.Second
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	base := c.baseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return filepath.Clean(p)
		}
		base = wd
	}
	return filepath.Join(base, p)
}
