package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/brianly1003/rfidbridge/internal/adapters/serial"
	"github.com/brianly1003/rfidbridge/internal/domain"
)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateSerial(&cfg.Serial); err != nil {
		return err
	}
	if err := validateClassifier(&cfg.Classifier); err != nil {
		return err
	}
	if err := validateRelay(&cfg.Relay); err != nil {
		return err
	}

	// Only check the parts the selected mode uses.
	if cfg.Relay.Forwards() {
		if err := validateForward(&cfg.Forward); err != nil {
			return err
		}
	}
	if cfg.Relay.Broadcasts() {
		if err := validateServer(&cfg.Server); err != nil {
			return err
		}
	}

	return validateLogging(&cfg.Logging)
}

func validateSerial(cfg *SerialConfig) error {
	if cfg.Device == "" {
		return domain.NewValidationError("serial.device", "cannot be empty")
	}
	if !serial.IsSupportedBaudRate(cfg.BaudRate) {
		return domain.NewValidationError("serial.baud_rate",
			fmt.Sprintf("unsupported value %d (supported: %v)", cfg.BaudRate, serial.SupportedBaudRates()))
	}
	if cfg.PollIntervalMS < 1 || cfg.PollIntervalMS > 5000 {
		return domain.NewValidationError("serial.poll_interval_ms", "must be between 1 and 5000")
	}
	if cfg.ReconnectDelayMS < 0 {
		return domain.NewValidationError("serial.reconnect_delay_ms", "cannot be negative")
	}
	if cfg.ReconnectJitterMS < 0 {
		return domain.NewValidationError("serial.reconnect_jitter_ms", "cannot be negative")
	}
	if cfg.SettleMS < 0 {
		return domain.NewValidationError("serial.settle_ms", "cannot be negative")
	}
	return nil
}

func validateClassifier(cfg *ClassifierConfig) error {
	if cfg.MinLength < 1 {
		return domain.NewValidationError("classifier.min_length", "must be at least 1")
	}
	if cfg.MaxLength < cfg.MinLength {
		return domain.NewValidationError("classifier.max_length", "cannot be less than classifier.min_length")
	}
	return nil
}

func validateRelay(cfg *RelayConfig) error {
	switch cfg.Mode {
	case ModeForward, ModeBroadcast, ModeBoth:
	default:
		return domain.NewValidationError("relay.mode",
			fmt.Sprintf("must be one of %s, %s, %s; got %q", ModeForward, ModeBroadcast, ModeBoth, cfg.Mode))
	}
	if cfg.DeliveryTimeoutMS < 1 {
		return domain.NewValidationError("relay.delivery_timeout_ms", "must be at least 1")
	}
	if cfg.MaxConcurrency < 0 {
		return domain.NewValidationError("relay.max_concurrency", "cannot be negative")
	}
	return nil
}

func validateForward(cfg *ForwardConfig) error {
	if err := validateURL(cfg.URL, "forward.url", []string{"http", "https"}); err != nil {
		return err
	}
	if cfg.TimeoutMS < 1 {
		return domain.NewValidationError("forward.timeout_ms", "must be at least 1")
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return domain.NewValidationError("server.port", "must be between 1 and 65535")
	}
	if cfg.Host == "" {
		return domain.NewValidationError("server.host", "cannot be empty")
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" || strings.HasPrefix(origin, "*.") {
			continue
		}
		if err := validateURL(origin, "server.allowed_origins", []string{"http", "https"}); err != nil {
			return err
		}
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	switch cfg.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return domain.NewValidationError("logging.level", fmt.Sprintf("unknown level %q", cfg.Level))
	}
	switch cfg.Format {
	case "console", "json":
	default:
		return domain.NewValidationError("logging.format", "must be console or json")
	}
	return nil
}

// validateURL checks that a URL is well-formed and uses an allowed scheme.
func validateURL(rawURL, fieldName string, allowedSchemes []string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return domain.NewValidationError(fieldName, fmt.Sprintf("not a valid URL: %v", err))
	}

	if parsed.Host == "" {
		return domain.NewValidationError(fieldName, "must include a host")
	}

	for _, scheme := range allowedSchemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			return nil
		}
	}
	return domain.NewValidationError(fieldName,
		fmt.Sprintf("must use one of these schemes: %s", strings.Join(allowedSchemes, ", ")))
}
