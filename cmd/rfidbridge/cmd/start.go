package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brianly1003/rfidbridge/internal/app"
	"github.com/brianly1003/rfidbridge/internal/config"
)

var (
	device     string
	baudRate   int
	relayMode  string
	forwardURL string
	port       int
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start relaying card reads",
	Long: `Open the serial reader and relay every card read.

Modes:
  forward    POST {"cardUID": ...} to the access-control application (default)
  broadcast  push each card as a text frame to every WebSocket listener
  both       forward first, then broadcast

Example:
  rfidbridge start
  rfidbridge start --device /dev/ttyUSB0 --baud 9600
  rfidbridge start --mode broadcast --port 8765
  rfidbridge start --url http://localhost:9002/api/scan`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&device, "device", "", "serial device path (default: /dev/ttyACM0)")
	startCmd.Flags().IntVar(&baudRate, "baud", 0, "serial baud rate (default: 115200)")
	startCmd.Flags().StringVar(&relayMode, "mode", "", "relay mode: forward, broadcast or both")
	startCmd.Flags().StringVar(&forwardURL, "url", "", "access-control endpoint for forward mode")
	startCmd.Flags().IntVar(&port, "port", 0, "WebSocket port for broadcast mode (default: 8765)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyStartFlags(cfg)

	// Re-validate after overrides
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closeLog, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	application, err := app.New(cfg, version, app.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("rfidbridge stopped")
	return nil
}

// applyStartFlags overrides config values with flags the user set.
func applyStartFlags(cfg *config.Config) {
	if device != "" {
		cfg.Serial.Device = device
	}
	if baudRate != 0 {
		cfg.Serial.BaudRate = baudRate
	}
	if relayMode != "" {
		cfg.Relay.Mode = relayMode
	}
	if forwardURL != "" {
		cfg.Forward.URL = forwardURL
	}
	if port != 0 {
		cfg.Server.Port = port
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
