package config

// Config is the root configuration structure
type Config struct {
	Transport TransportConfig `yaml:"transport" json:"transport" toml:"transport" envPrefix:"TRANSPORT_"`
	Requests  RequestsConfig  `yaml:"requests" json:"requests" toml:"requests" envPrefix:"REQUESTS_"`
	Apply     ApplyConfig     `yaml:"apply" json:"apply" toml:"apply" envPrefix:"APPLY_"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging" toml:"logging" envPrefix:"LOG_"`
	State     StateConfig     `yaml:"state" json:"state" toml:"state" envPrefix:"STATE_"`
}

// TransportConfig selects how to reach the editor host
type TransportConfig struct {
	Kind           string `yaml:"kind" json:"kind" toml:"kind" env:"KIND"`                                         // stdio, unix, websocket
	SocketPath     string `yaml:"socketPath" json:"socketPath" toml:"socketPath" env:"SOCKET"`                     // unix only
	URL            string `yaml:"url" json:"url" toml:"url" env:"URL"`                                             // websocket only
	Framing        string `yaml:"framing" json:"framing" toml:"framing" env:"FRAMING"`                             // line, length
	MaxFrameBytes  int    `yaml:"maxFrameBytes" json:"maxFrameBytes" toml:"maxFrameBytes" env:"MAX_FRAME_BYTES"`
	WriteTimeoutMs int    `yaml:"writeTimeoutMs" json:"writeTimeoutMs" toml:"writeTimeoutMs" env:"WRITE_TIMEOUT_MS"`
}

// RequestsConfig controls request/response correlation
type RequestsConfig struct {
	TimeoutMs     int `yaml:"timeoutMs" json:"timeoutMs" toml:"timeoutMs" env:"TIMEOUT_MS"`
	ChatTimeoutMs int `yaml:"chatTimeoutMs" json:"chatTimeoutMs" toml:"chatTimeoutMs" env:"CHAT_TIMEOUT_MS"`
}

// ApplyConfig controls the apply/accept/reject lifecycle
type ApplyConfig struct {
	TimeoutMs int `yaml:"timeoutMs" json:"timeoutMs" toml:"timeoutMs" env:"TIMEOUT_MS"` // 0 waits forever
}

// LoggingConfig controls the log file
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" toml:"level" env:"LEVEL"`
	File  string `yaml:"file,omitempty" json:"file,omitempty" toml:"file,omitempty" env:"FILE"`
}

// StateConfig controls where selection and attachments are saved
type StateConfig struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty" toml:"path,omitempty" env:"PATH"`
}
