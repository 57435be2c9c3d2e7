package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".config/pairchat"
	DefaultConfigFile = "config.yaml"
	// EnvPrefix prefixes every environment override, e.g. PAIRCHAT_TRANSPORT_KIND
	EnvPrefix = "PAIRCHAT_"

	DefaultSocketPath     = "/tmp/pairchat.sock"
	DefaultTimeoutMs      = 5000
	DefaultChatTimeoutMs  = 120000
	DefaultWriteTimeoutMs = 10000
	DefaultMaxFrameBytes  = 8 << 20
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind:           "unix",
			SocketPath:     DefaultSocketPath,
			Framing:        "line",
			MaxFrameBytes:  DefaultMaxFrameBytes,
			WriteTimeoutMs: DefaultWriteTimeoutMs,
		},
		Requests: RequestsConfig{
			TimeoutMs:     DefaultTimeoutMs,
			ChatTimeoutMs: DefaultChatTimeoutMs,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from the specified path or default location.
// If path is empty, ~/.config/pairchat/config.{yaml,json,toml} is tried and
// a missing file yields the defaults. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = findDefault()
		if path == "" {
			cfg := Default()
			if err := cfg.ApplyEnv(); err != nil {
				return nil, err
			}
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid config: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	cfg, err := parse(data, format)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromBytes loads configuration from raw bytes.
// format should be "yaml", "json" or "toml". Environment is not consulted.
func LoadConfigFromBytes(data []byte, format string) (*Config, error) {
	cfg, err := parse(data, format)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parse decodes data over the defaults, so omitted fields keep them
func parse(data []byte, format string) (*Config, error) {
	cfg := Default()

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case "toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from PAIRCHAT_* environment variables
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Encode serializes the config in the given format
func (c *Config) Encode(format string) ([]byte, error) {
	switch format {
	case "yaml", "yml":
		return yaml.Marshal(c)
	case "json":
		return json.MarshalIndent(c, "", "  ")
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}
}

// WriteFile writes the config to path in the format implied by its extension.
// An existing file is left untouched unless overwrite is set.
func (c *Config) WriteFile(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	data, err := c.Encode(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
}

func findDefault() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.json", "config.toml"} {
		p := filepath.Join(home, DefaultConfigDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// RequestTimeout is the default correlation timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Requests.TimeoutMs) * time.Millisecond
}

// ChatTimeout bounds a single assistant reply
func (c *Config) ChatTimeout() time.Duration {
	return time.Duration(c.Requests.ChatTimeoutMs) * time.Millisecond
}

// ApplyTimeout returns zero when apply timeouts are disabled
func (c *Config) ApplyTimeout() time.Duration {
	return time.Duration(c.Apply.TimeoutMs) * time.Millisecond
}

// WriteTimeout bounds a single transport write
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Transport.WriteTimeoutMs) * time.Millisecond
}

// StatePath returns the configured state file or the default location
func (c *Config) StatePath(fallback string) string {
	if c.State.Path != "" {
		return expandHome(c.State.Path)
	}
	return fallback
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
