package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

var (
	validKinds    = []string{"stdio", "unix", "websocket"}
	validFramings = []string{"line", "length"}
)

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if err := validateTransport(&c.Transport); err != nil {
		return fmt.Errorf("transport: %w", err)
	}

	if c.Requests.TimeoutMs <= 0 {
		return fmt.Errorf("requests: timeoutMs must be positive, got %d", c.Requests.TimeoutMs)
	}
	if c.Requests.ChatTimeoutMs <= 0 {
		return fmt.Errorf("requests: chatTimeoutMs must be positive, got %d", c.Requests.ChatTimeoutMs)
	}

	if c.Apply.TimeoutMs < 0 {
		return fmt.Errorf("apply: timeoutMs must not be negative, got %d", c.Apply.TimeoutMs)
	}

	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("logging: invalid level %q", c.Logging.Level)
		}
	}

	return nil
}

func validateTransport(t *TransportConfig) error {
	if !contains(validKinds, t.Kind) {
		return fmt.Errorf("invalid kind %q (valid: %s)", t.Kind, strings.Join(validKinds, ", "))
	}
	if t.Framing != "" && !contains(validFramings, t.Framing) {
		return fmt.Errorf("invalid framing %q (valid: %s)", t.Framing, strings.Join(validFramings, ", "))
	}
	if t.MaxFrameBytes < 0 {
		return fmt.Errorf("maxFrameBytes must not be negative")
	}
	if t.WriteTimeoutMs < 0 {
		return fmt.Errorf("writeTimeoutMs must not be negative")
	}

	switch t.Kind {
	case "unix":
		if t.SocketPath == "" {
			return fmt.Errorf("socketPath is required for unix transport")
		}
	case "websocket":
		if t.URL == "" {
			return fmt.Errorf("url is required for websocket transport")
		}
		u, err := url.Parse(t.URL)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("url scheme must be ws or wss, got %q", u.Scheme)
		}
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
