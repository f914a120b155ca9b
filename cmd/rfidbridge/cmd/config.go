package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brianly1003/rfidbridge/internal/config"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage rfidbridge configuration.

Without subcommands, shows the current effective configuration.

Examples:
  rfidbridge config              # Show current config
  rfidbridge config init         # Create config file with defaults
  rfidbridge config path         # Show config file location
  rfidbridge config get <key>    # Get a config value
  rfidbridge config set <key> <value>  # Set a config value`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return printConfig(cmd.OutOrStdout(), cfg)
	},
}

// configInitCmd creates a config file with defaults.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Create a config file with default settings.

By default, creates ~/.rfidbridge/config.yaml.
Use --local to create ./config.yaml in the current directory.`,
	RunE: runConfigInit,
}

// configPathCmd shows config file location.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file location",
	RunE:  runConfigPath,
}

// configGetCmd gets a config value.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by key.

Keys use dot notation to access nested values.

Examples:
  rfidbridge config get serial.device
  rfidbridge config get relay.mode`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a config value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in ~/.rfidbridge/config.yaml.

Creates the config file if it doesn't exist.

Examples:
  rfidbridge config set serial.device /dev/ttyUSB0
  rfidbridge config set relay.mode both
  rfidbridge config set serial.baud_rate 9600`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.rfidbridge/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string

	if configInitLocal {
		configPath = "config.yaml"
	} else {
		configDir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
	}

	if err := writeDefaultConfig(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config dir: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Config search paths (in order):")
	for i, loc := range configSearchPaths(cfgFile) {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, loc, exists)
	}

	fmt.Fprintf(out, "\nConfig directory: %s\n", configDir)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	configPath := cfgFile
	if configPath == "" {
		configDir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	if err := setConfigFileValue(configPath, key, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, configPath)
	return nil
}

// setConfigFileValue rewrites one key of the YAML file at path. The
// result must still validate.
func setConfigFileValue(path, key, value string) error {
	if _, err := getConfigValue(config.Default(), key); err != nil {
		return err
	}

	var data map[string]interface{}
	if content, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
	}
	if data == nil {
		data = make(map[string]interface{})
	}

	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if _, err := config.Load(tmp.Name()); err != nil {
		return fmt.Errorf("refusing to save %s=%s: %w", key, value, err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// configTree renders cfg as the nested map a YAML file would hold.
func configTree(cfg *config.Config) (map[string]interface{}, error) {
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(content, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func getConfigValue(cfg *config.Config, key string) (interface{}, error) {
	tree, err := configTree(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var current interface{} = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
		if current, ok = m[part]; !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
	}

	if _, ok := current.(map[string]interface{}); ok {
		return nil, fmt.Errorf("%s is a section, not a value", key)
	}
	return current, nil
}

func setNestedValue(data map[string]interface{}, key string, value string) error {
	parts := strings.Split(key, ".")

	current := data
	for i := 0; i < len(parts)-1; i++ {
		if _, ok := current[parts[i]]; !ok {
			current[parts[i]] = make(map[string]interface{})
		}
		nested, ok := current[parts[i]].(map[string]interface{})
		if !ok {
			return fmt.Errorf("cannot set nested value: %s is not a map", parts[i])
		}
		current = nested
	}

	current[parts[len(parts)-1]] = parseValue(key, value)
	return nil
}

func parseValue(key string, value string) interface{} {
	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}

	if key == "server.allowed_origins" {
		var origins []string
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return origins
	}

	if strings.HasSuffix(key, "_ms") || strings.HasSuffix(key, "_length") ||
		strings.HasSuffix(key, "port") || strings.HasSuffix(key, "baud_rate") ||
		strings.HasSuffix(key, "max_concurrency") {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}

	return value
}

func printConfig(w io.Writer, cfg *config.Config) error {
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	_, err = w.Write(content)
	return err
}

const configHeader = `# rfidbridge configuration
#
# Search order: ./config.yaml, ~/.rfidbridge/config.yaml, /etc/rfidbridge/config.yaml
# Every key can be overridden by environment, e.g. RFIDBRIDGE_SERIAL_DEVICE=/dev/ttyUSB0
#
# relay.mode: forward (POST each card), broadcast (WebSocket listeners) or both
# Durations are in milliseconds.

`

func writeDefaultConfig(path string) error {
	content, err := yaml.Marshal(config.Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(configHeader), content...), 0644)
}

func configSearchPaths(explicit string) []string {
	if strings.TrimSpace(explicit) != "" {
		return []string{explicit}
	}

	home := userHomeDir()
	return []string{
		filepath.Join(".", "config.yaml"),
		filepath.Join(home, ".rfidbridge", "config.yaml"),
		"/etc/rfidbridge/config.yaml",
	}
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
