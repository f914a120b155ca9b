package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/brianly1003/rfidbridge/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "empty device",
			mutate:  func(c *Config) { c.Serial.Device = "" },
			wantErr: "serial.device",
		},
		{
			name:    "unsupported baud",
			mutate:  func(c *Config) { c.Serial.BaudRate = 12345 },
			wantErr: "serial.baud_rate",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Serial.PollIntervalMS = 0 },
			wantErr: "serial.poll_interval_ms",
		},
		{
			name:    "negative reconnect delay",
			mutate:  func(c *Config) { c.Serial.ReconnectDelayMS = -1 },
			wantErr: "serial.reconnect_delay_ms",
		},
		{
			name:    "negative jitter",
			mutate:  func(c *Config) { c.Serial.ReconnectJitterMS = -5 },
			wantErr: "serial.reconnect_jitter_ms",
		},
		{
			name:    "negative settle",
			mutate:  func(c *Config) { c.Serial.SettleMS = -1 },
			wantErr: "serial.settle_ms",
		},
		{
			name:    "min length zero",
			mutate:  func(c *Config) { c.Classifier.MinLength = 0 },
			wantErr: "classifier.min_length",
		},
		{
			name:    "inverted bounds",
			mutate:  func(c *Config) { c.Classifier.MinLength, c.Classifier.MaxLength = 10, 5 },
			wantErr: "classifier.max_length",
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Relay.Mode = "multicast" },
			wantErr: "relay.mode",
		},
		{
			name:    "zero delivery timeout",
			mutate:  func(c *Config) { c.Relay.DeliveryTimeoutMS = 0 },
			wantErr: "relay.delivery_timeout_ms",
		},
		{
			name:    "negative concurrency",
			mutate:  func(c *Config) { c.Relay.MaxConcurrency = -1 },
			wantErr: "relay.max_concurrency",
		},
		{
			name:    "forward url without host",
			mutate:  func(c *Config) { c.Forward.URL = "http://" },
			wantErr: "must include a host",
		},
		{
			name:    "forward url bad scheme",
			mutate:  func(c *Config) { c.Forward.URL = "ftp://example.com/scan" },
			wantErr: "must use one of these schemes: http, https",
		},
		{
			name: "forward url ignored in broadcast mode",
			mutate: func(c *Config) {
				c.Relay.Mode = ModeBroadcast
				c.Forward.URL = ""
			},
		},
		{
			name: "server port ignored in forward mode",
			mutate: func(c *Config) {
				c.Server.Port = 0
			},
		},
		{
			name: "server port too high in broadcast mode",
			mutate: func(c *Config) {
				c.Relay.Mode = ModeBroadcast
				c.Server.Port = 70000
			},
			wantErr: "server.port",
		},
		{
			name: "empty host in both mode",
			mutate: func(c *Config) {
				c.Relay.Mode = ModeBoth
				c.Server.Host = ""
			},
			wantErr: "server.host",
		},
		{
			name: "wildcard origins",
			mutate: func(c *Config) {
				c.Relay.Mode = ModeBroadcast
				c.Server.AllowedOrigins = []string{"*", "*.example.com", "https://app.example.com"}
			},
		},
		{
			name: "bad origin",
			mutate: func(c *Config) {
				c.Relay.Mode = ModeBroadcast
				c.Server.AllowedOrigins = []string{"not a url"}
			},
			wantErr: "server.allowed_origins",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("Validate() error = nil, want containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}

			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("Validate() error type = %T, want *domain.ValidationError", err)
			}
		})
	}
}
