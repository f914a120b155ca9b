// Package config handles configuration management for rfidbridge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Relay modes.
const (
	ModeForward   = "forward"
	ModeBroadcast = "broadcast"
	ModeBoth      = "both"
)

// EnvPrefix is prepended to every environment override,
// e.g. RFIDBRIDGE_SERIAL_DEVICE.
const EnvPrefix = "RFIDBRIDGE"

// Config holds all configuration for the application.
type Config struct {
	Serial     SerialConfig     `mapstructure:"serial" yaml:"serial"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Relay      RelayConfig      `mapstructure:"relay" yaml:"relay"`
	Forward    ForwardConfig    `mapstructure:"forward" yaml:"forward"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Pairing    PairingConfig    `mapstructure:"pairing" yaml:"pairing"`
}

// SerialConfig holds the card reader connection settings.
type SerialConfig struct {
	Device            string `mapstructure:"device" yaml:"device"`
	BaudRate          int    `mapstructure:"baud_rate" yaml:"baud_rate"`
	PollIntervalMS    int    `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	ReconnectDelayMS  int    `mapstructure:"reconnect_delay_ms" yaml:"reconnect_delay_ms"`
	ReconnectJitterMS int    `mapstructure:"reconnect_jitter_ms" yaml:"reconnect_jitter_ms"`
	SettleMS          int    `mapstructure:"settle_ms" yaml:"settle_ms"`
	WatchDevice       bool   `mapstructure:"watch_device" yaml:"watch_device"`
}

// PollInterval returns the read poll interval.
func (c SerialConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// ReconnectDelay returns the wait between open attempts.
func (c SerialConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// ReconnectJitter returns the random extra added to each reconnect wait.
func (c SerialConfig) ReconnectJitter() time.Duration {
	return time.Duration(c.ReconnectJitterMS) * time.Millisecond
}

// Settle returns the pause after opening the port.
func (c SerialConfig) Settle() time.Duration {
	return time.Duration(c.SettleMS) * time.Millisecond
}

// ClassifierConfig holds the token shape bounds.
type ClassifierConfig struct {
	MinLength int `mapstructure:"min_length" yaml:"min_length"`
	MaxLength int `mapstructure:"max_length" yaml:"max_length"`
}

// RelayConfig selects where tokens go.
type RelayConfig struct {
	Mode              string `mapstructure:"mode" yaml:"mode"`
	DeliveryTimeoutMS int    `mapstructure:"delivery_timeout_ms" yaml:"delivery_timeout_ms"`
	MaxConcurrency    int    `mapstructure:"max_concurrency" yaml:"max_concurrency"`
}

// DeliveryTimeout returns the per-subscriber delivery bound.
func (c RelayConfig) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutMS) * time.Millisecond
}

// Forwards reports whether tokens are posted to the application.
func (c RelayConfig) Forwards() bool {
	return c.Mode == ModeForward || c.Mode == ModeBoth
}

// Broadcasts reports whether tokens are fanned out to WebSocket listeners.
func (c RelayConfig) Broadcasts() bool {
	return c.Mode == ModeBroadcast || c.Mode == ModeBoth
}

// ForwardConfig holds the access-control endpoint settings.
type ForwardConfig struct {
	URL       string `mapstructure:"url" yaml:"url"`
	TimeoutMS int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// Timeout returns the per-request bound.
func (c ForwardConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ServerConfig holds WebSocket listener configuration.
type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"` // Optional: JSON log file, rotated
}

// PairingConfig holds the connect banner settings.
type PairingConfig struct {
	ShowQRInTerminal bool `mapstructure:"show_qr_in_terminal" yaml:"show_qr_in_terminal"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default search paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.rfidbridge")
		v.AddConfigPath("/etc/rfidbridge")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - not an error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	postProcess(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Serial defaults
	v.SetDefault("serial.device", "/dev/ttyACM0")
	v.SetDefault("serial.baud_rate", 115200)
	v.SetDefault("serial.poll_interval_ms", 100)
	v.SetDefault("serial.reconnect_delay_ms", 5000)
	v.SetDefault("serial.reconnect_jitter_ms", 0)
	v.SetDefault("serial.settle_ms", 2000)
	v.SetDefault("serial.watch_device", true)

	// Classifier defaults
	v.SetDefault("classifier.min_length", 4)
	v.SetDefault("classifier.max_length", 30)

	// Relay defaults
	v.SetDefault("relay.mode", ModeForward)
	v.SetDefault("relay.delivery_timeout_ms", 5000)
	v.SetDefault("relay.max_concurrency", 0)

	// Forward defaults
	v.SetDefault("forward.url", "http://localhost:9002/api/scan")
	v.SetDefault("forward.timeout_ms", 5000)

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8765)
	v.SetDefault("server.allowed_origins", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")

	// Pairing defaults
	v.SetDefault("pairing.show_qr_in_terminal", false)
}

// postProcess normalizes user input before validation.
func postProcess(cfg *Config) {
	cfg.Relay.Mode = strings.ToLower(strings.TrimSpace(cfg.Relay.Mode))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Serial.Device = strings.TrimSpace(cfg.Serial.Device)
	cfg.Forward.URL = strings.TrimSpace(cfg.Forward.URL)

	// An env override arrives as one comma separated string.
	var origins []string
	for _, o := range cfg.Server.AllowedOrigins {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	cfg.Server.AllowedOrigins = origins
}

// GetConfigDir returns the user config directory for rfidbridge.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".rfidbridge"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
