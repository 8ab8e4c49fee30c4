package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/skypro1111/audio-relay/internal/audio"
	"github.com/skypro1111/audio-relay/internal/encryption"
	"github.com/skypro1111/audio-relay/internal/transport"
)

// Config represents the complete relay configuration
type Config struct {
	Client     ClientConfig     `yaml:"client" json:"client"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Encryption EncryptionConfig `yaml:"encryption" json:"encryption"`
	HTTP       HTTPConfig       `yaml:"http" json:"http"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// ClientConfig contains capture side configuration
type ClientConfig struct {
	ServerAddress string  `yaml:"server_address" json:"server_address" env:"AUDIORELAY_SERVER_ADDRESS, overwrite"`
	InputDevice   string  `yaml:"input_device" json:"input_device" env:"AUDIORELAY_INPUT_DEVICE, overwrite"`
	DBThreshold   float64 `yaml:"db_threshold" json:"db_threshold" env:"AUDIORELAY_DB_THRESHOLD, overwrite"`
	QueueSize     int     `yaml:"queue_size" json:"queue_size" env:"AUDIORELAY_QUEUE_SIZE, overwrite"`
}

// ServerConfig contains playback side configuration
type ServerConfig struct {
	BindAddress      string `yaml:"bind_address" json:"bind_address" env:"AUDIORELAY_BIND_ADDRESS, overwrite"`
	OutputDevice     string `yaml:"output_device" json:"output_device" env:"AUDIORELAY_OUTPUT_DEVICE, overwrite"`
	SocketBufferSize int    `yaml:"socket_buffer_size" json:"socket_buffer_size" env:"AUDIORELAY_SOCKET_BUFFER_SIZE, overwrite"`
	LowWatermark     int    `yaml:"low_watermark" json:"low_watermark" env:"AUDIORELAY_LOW_WATERMARK, overwrite"`
	HighWatermark    int    `yaml:"high_watermark" json:"high_watermark" env:"AUDIORELAY_HIGH_WATERMARK, overwrite"`
}

// EncryptionConfig contains the shared key and cipher mode
type EncryptionConfig struct {
	// Key is 64 hexadecimal characters (32 bytes).
	Key  string `yaml:"key" json:"key" env:"AUDIORELAY_ENCRYPTION_KEY, overwrite"`
	Mode string `yaml:"mode" json:"mode" env:"AUDIORELAY_ENCRYPTION_MODE, overwrite"`
}

// HTTPConfig contains monitoring API configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" env:"AUDIORELAY_HTTP_ENABLED, overwrite"`
	Address string `yaml:"address" json:"address" env:"AUDIORELAY_HTTP_ADDRESS, overwrite"`
	Port    int    `yaml:"port" json:"port" env:"AUDIORELAY_HTTP_PORT, overwrite"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"AUDIORELAY_LOG_LEVEL, overwrite"`
	Format string `yaml:"format" json:"format" env:"AUDIORELAY_LOG_FORMAT, overwrite"`
	Output string `yaml:"output" json:"output" env:"AUDIORELAY_LOG_OUTPUT, overwrite"`
}

// DefaultSocketBufferSize is the requested kernel receive buffer (SO_RCVBUF)
// in bytes. A zero server.socket_buffer_size keeps the operating system default.
const DefaultSocketBufferSize = 1 << 20

// Default returns the configuration used for any field the file omits.
// The encryption key has no default.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			ServerAddress: "127.0.0.1:9000",
			InputDevice:   "default",
			DBThreshold:   -50,
			QueueSize:     transport.DefaultQueueSize,
		},
		Server: ServerConfig{
			BindAddress:      "0.0.0.0:9000",
			OutputDevice:     "default",
			SocketBufferSize: DefaultSocketBufferSize,
			LowWatermark:     audio.DefaultLowWatermark,
			HighWatermark:    audio.DefaultHighWatermark,
		},
		Encryption: EncryptionConfig{
			Mode: string(encryption.ModeCBC),
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file, overlays AUDIORELAY_* environment
// variables and validates the result.
func Load(path string) (*Config, error) {
	return LoadWithLookuper(path, envconfig.OsLookuper())
}

// LoadWithLookuper is Load with an explicit environment source.
func LoadWithLookuper(path string, lookuper envconfig.Lookuper) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadEnvFile loads KEY=value pairs from a .env file into the process
// environment without overriding variables that are already set. A missing
// file is not an error unless required is true.
func LoadEnvFile(path string, required bool) error {
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("client config: %w", err)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Encryption.Validate(); err != nil {
		return fmt.Errorf("encryption config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates client configuration
func (c *ClientConfig) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address cannot be empty")
	}

	if c.DBThreshold > 0 {
		return fmt.Errorf("db_threshold must be at most 0 dBFS, got %f", c.DBThreshold)
	}

	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", c.QueueSize)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.SocketBufferSize < 0 {
		return fmt.Errorf("socket_buffer_size cannot be negative, got %d", s.SocketBufferSize)
	}

	if s.LowWatermark < 1 {
		return fmt.Errorf("low_watermark must be positive, got %d", s.LowWatermark)
	}

	if s.HighWatermark <= s.LowWatermark {
		return fmt.Errorf("high_watermark (%d) must be greater than low_watermark (%d)",
			s.HighWatermark, s.LowWatermark)
	}

	return nil
}

// Validate validates encryption configuration
func (e *EncryptionConfig) Validate() error {
	if e.Key == "" {
		return fmt.Errorf("key cannot be empty (set it in the file or AUDIORELAY_ENCRYPTION_KEY)")
	}

	if _, err := encryption.DecodeKey(e.Key); err != nil {
		return fmt.Errorf("key: %w", err)
	}

	if _, err := encryption.ParseMode(e.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}

	return nil
}

// KeyBytes returns the decoded key. Call after Validate.
func (e *EncryptionConfig) KeyBytes() ([]byte, error) {
	return encryption.DecodeKey(e.Key)
}

// CipherMode returns the parsed cipher mode. Call after Validate.
func (e *EncryptionConfig) CipherMode() encryption.Mode {
	mode, err := encryption.ParseMode(e.Mode)
	if err != nil {
		return encryption.ModeCBC
	}
	return mode
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	if _, err := ParseLevel(l.Level); err != nil {
		return err
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Anything other than stdout or stderr is a file path.
	if l.Output != "" && strings.TrimSpace(l.Output) != l.Output {
		return fmt.Errorf("output has surrounding whitespace: %q", l.Output)
	}

	return nil
}

// ParseLevel converts a configured level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", level)
	}
}

// Redacted returns a copy safe to expose over the monitoring API.
func (c *Config) Redacted() Config {
	out := *c
	if out.Encryption.Key != "" {
		out.Encryption.Key = "[redacted]"
	}
	return out
}
