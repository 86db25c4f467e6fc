package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"escrowbook/core/types"
)

// Config is the daemon configuration, loaded from TOML.
type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	FeeCollector string `toml:"FeeCollector"`
	AuthToken    string `toml:"AuthToken"`
	LogFile      string `toml:"LogFile"`
	Environment  string `toml:"Environment"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := c.FeeCollectorAddress(); err != nil {
		return err
	}
	return nil
}

// FeeCollectorAddress decodes the configured fee collector into an address.
// An empty setting resolves to the zero address, which effectively burns
// order release fees.
func (c *Config) FeeCollectorAddress() (types.Address, error) {
	var addr types.Address
	trimmed := strings.TrimSpace(strings.TrimPrefix(c.FeeCollector, "0x"))
	if trimmed == "" {
		return addr, nil
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("config: invalid fee collector %q: %w", c.FeeCollector, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("config: fee collector must be %d bytes, got %d", len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:  "127.0.0.1:8645",
		DataDir:     "./data",
		Environment: "local",
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
