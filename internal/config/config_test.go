package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}
	if cfg.RequestTimeout() != 5*time.Second {
		t.Errorf("RequestTimeout() = %v, want 5s", cfg.RequestTimeout())
	}
	if cfg.ApplyTimeout() != 0 {
		t.Errorf("ApplyTimeout() = %v, want 0 (disabled)", cfg.ApplyTimeout())
	}
}

func TestLoadConfigFromBytes(t *testing.T) {
	tests := []struct {
		name   string
		format string
		data   string
	}{
		{"yaml", "yaml", `
transport:
  kind: websocket
  url: ws://127.0.0.1:7777/channel
requests:
  timeoutMs: 2500
apply:
  timeoutMs: 30000
`},
		{"json", "json", `{
  "transport": {"kind": "websocket", "url": "ws://127.0.0.1:7777/channel"},
  "requests": {"timeoutMs": 2500},
  "apply": {"timeoutMs": 30000}
}`},
		{"toml", "toml", `
[transport]
kind = "websocket"
url = "ws://127.0.0.1:7777/channel"

[requests]
timeoutMs = 2500

[apply]
timeoutMs = 30000
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfigFromBytes([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("LoadConfigFromBytes() error: %v", err)
			}
			if cfg.Transport.Kind != "websocket" {
				t.Errorf("Transport.Kind = %q, want websocket", cfg.Transport.Kind)
			}
			if cfg.Requests.TimeoutMs != 2500 {
				t.Errorf("Requests.TimeoutMs = %d, want 2500", cfg.Requests.TimeoutMs)
			}
			if cfg.Apply.TimeoutMs != 30000 {
				t.Errorf("Apply.TimeoutMs = %d, want 30000", cfg.Apply.TimeoutMs)
			}
			// omitted fields keep defaults
			if cfg.Requests.ChatTimeoutMs != DefaultChatTimeoutMs {
				t.Errorf("Requests.ChatTimeoutMs = %d, want default %d", cfg.Requests.ChatTimeoutMs, DefaultChatTimeoutMs)
			}
			if cfg.Transport.Framing != "line" {
				t.Errorf("Transport.Framing = %q, want default line", cfg.Transport.Framing)
			}
		})
	}
}

func TestLoadConfigFromBytes_UnsupportedFormat(t *testing.T) {
	if _, err := LoadConfigFromBytes([]byte("x"), "ini"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid default", func(c *Config) {}, ""},
		{"bad kind", func(c *Config) { c.Transport.Kind = "smoke-signal" }, "invalid kind"},
		{"bad framing", func(c *Config) { c.Transport.Framing = "xml" }, "invalid framing"},
		{"unix without socket", func(c *Config) { c.Transport.SocketPath = "" }, "socketPath is required"},
		{"websocket without url", func(c *Config) { c.Transport.Kind = "websocket" }, "url is required"},
		{"websocket http url", func(c *Config) {
			c.Transport.Kind = "websocket"
			c.Transport.URL = "http://localhost"
		}, "scheme must be ws"},
		{"stdio needs nothing", func(c *Config) {
			c.Transport.Kind = "stdio"
			c.Transport.SocketPath = ""
		}, ""},
		{"zero timeout", func(c *Config) { c.Requests.TimeoutMs = 0 }, "timeoutMs must be positive"},
		{"negative apply timeout", func(c *Config) { c.Apply.TimeoutMs = -1 }, "must not be negative"},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }, "invalid level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairchat.yaml")
	data := "transport:\n  kind: stdio\n  framing: length\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Transport.Kind != "stdio" || cfg.Transport.Framing != "length" {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadConfig_NoDefaultFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error: %v", err)
	}
	if cfg.Transport.SocketPath != DefaultSocketPath {
		t.Errorf("SocketPath = %q, want default", cfg.Transport.SocketPath)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"requests": {"timeoutMs": 1000}, "transport": {"socketPath": "/tmp/file.sock"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PAIRCHAT_REQUESTS_TIMEOUT_MS", "9000")
	t.Setenv("PAIRCHAT_TRANSPORT_SOCKET", "/tmp/env.sock")
	t.Setenv("PAIRCHAT_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Requests.TimeoutMs != 9000 {
		t.Errorf("Requests.TimeoutMs = %d, want 9000 from env", cfg.Requests.TimeoutMs)
	}
	if cfg.Transport.SocketPath != "/tmp/env.sock" {
		t.Errorf("Transport.SocketPath = %q, want /tmp/env.sock from env", cfg.Transport.SocketPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug from env", cfg.Logging.Level)
	}
}

func TestEnvInvalidValue(t *testing.T) {
	t.Setenv("PAIRCHAT_REQUESTS_TIMEOUT_MS", "soon")
	cfg := Default()
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("expected error for non-numeric timeout")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	for _, ext := range []string{"yaml", "json", "toml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config."+ext)
			cfg := Default()
			cfg.Apply.TimeoutMs = 42000
			cfg.Transport.Framing = "length"

			if err := cfg.WriteFile(path, false); err != nil {
				t.Fatalf("WriteFile() error: %v", err)
			}
			if err := cfg.WriteFile(path, false); err == nil {
				t.Error("WriteFile() over existing file expected error")
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			loaded, err := LoadConfigFromBytes(data, ext)
			if err != nil {
				t.Fatalf("LoadConfigFromBytes() error: %v", err)
			}
			if loaded.Apply.TimeoutMs != 42000 || loaded.Transport.Framing != "length" {
				t.Errorf("round trip lost values: %+v", loaded)
			}
		})
	}
}

func TestStatePath(t *testing.T) {
	cfg := Default()
	if got := cfg.StatePath("/fallback/state.json"); got != "/fallback/state.json" {
		t.Errorf("StatePath() = %q, want fallback", got)
	}
	cfg.State.Path = "/custom/state.json"
	if got := cfg.StatePath("/fallback/state.json"); got != "/custom/state.json" {
		t.Errorf("StatePath() = %q, want /custom/state.json", got)
	}
}
