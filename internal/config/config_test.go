package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Serial.BaudRate != 115200 {
		t.Errorf("default BaudRate = %d, want 115200", cfg.Serial.BaudRate)
	}
	if cfg.Serial.PollInterval() != 100*time.Millisecond {
		t.Errorf("default PollInterval = %v, want 100ms", cfg.Serial.PollInterval())
	}
	if cfg.Serial.ReconnectDelay() != 5*time.Second {
		t.Errorf("default ReconnectDelay = %v, want 5s", cfg.Serial.ReconnectDelay())
	}
	if cfg.Serial.Settle() != 2*time.Second {
		t.Errorf("default Settle = %v, want 2s", cfg.Serial.Settle())
	}
	if cfg.Classifier.MinLength != 4 || cfg.Classifier.MaxLength != 30 {
		t.Errorf("default classifier bounds = [%d,%d], want [4,30]", cfg.Classifier.MinLength, cfg.Classifier.MaxLength)
	}
	if cfg.Relay.Mode != ModeForward {
		t.Errorf("default Mode = %s, want %s", cfg.Relay.Mode, ModeForward)
	}
	if cfg.Relay.DeliveryTimeout() != 5*time.Second {
		t.Errorf("default DeliveryTimeout = %v, want 5s", cfg.Relay.DeliveryTimeout())
	}
	if cfg.Forward.URL != "http://localhost:9002/api/scan" {
		t.Errorf("default Forward.URL = %s", cfg.Forward.URL)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8765 {
		t.Errorf("default server = %s:%d, want 127.0.0.1:8765", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %s, want info", cfg.Logging.Level)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()

	configContent := `
serial:
  device: "/dev/ttyUSB1"
  baud_rate: 9600
  reconnect_delay_ms: 1000

relay:
  mode: "Broadcast"
  max_concurrency: 8

server:
  port: 9000
  host: "0.0.0.0"
  allowed_origins:
    - "http://localhost:9002"

logging:
  level: "DEBUG"
  format: "json"
`
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Serial.Device != "/dev/ttyUSB1" {
		t.Errorf("Device = %s, want /dev/ttyUSB1", cfg.Serial.Device)
	}
	if cfg.Serial.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", cfg.Serial.BaudRate)
	}
	if cfg.Serial.ReconnectDelay() != time.Second {
		t.Errorf("ReconnectDelay = %v, want 1s", cfg.Serial.ReconnectDelay())
	}
	if cfg.Relay.Mode != ModeBroadcast {
		t.Errorf("Mode = %s, want broadcast", cfg.Relay.Mode)
	}
	if !cfg.Relay.Broadcasts() || cfg.Relay.Forwards() {
		t.Error("broadcast mode should only broadcast")
	}
	if cfg.Relay.MaxConcurrency != 8 {
		t.Errorf("MaxConcurrency = %d, want 8", cfg.Relay.MaxConcurrency)
	}
	if cfg.Server.Port != 9000 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server = %s:%d, want 0.0.0.0:9000", cfg.Server.Host, cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:9002" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %s/%s, want debug/json", cfg.Logging.Level, cfg.Logging.Format)
	}

	// Unset keys keep their defaults
	if cfg.Forward.TimeoutMS != 5000 {
		t.Errorf("Forward.TimeoutMS = %d, want 5000", cfg.Forward.TimeoutMS)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RFIDBRIDGE_SERIAL_DEVICE", "/dev/ttyUSB7")
	t.Setenv("RFIDBRIDGE_RELAY_MODE", "both")
	t.Setenv("RFIDBRIDGE_SERVER_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Serial.Device != "/dev/ttyUSB7" {
		t.Errorf("Device = %s, want /dev/ttyUSB7", cfg.Serial.Device)
	}
	if !cfg.Relay.Forwards() || !cfg.Relay.Broadcasts() {
		t.Errorf("both mode should forward and broadcast, got %s", cfg.Relay.Mode)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v, want [http://a.test http://b.test]", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("serial: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("relay:\n  mode: carrier-pigeon\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected validation error for unknown relay mode")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
	if cfg.Serial.Device != "/dev/ttyACM0" {
		t.Errorf("Default device = %s, want /dev/ttyACM0", cfg.Serial.Device)
	}
}

func TestGetConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if dir != filepath.Join(home, ".rfidbridge") {
		t.Errorf("GetConfigDir() = %s", dir)
	}

	dir, err = EnsureConfigDir()
	if err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("EnsureConfigDir() did not create %s", dir)
	}
}
