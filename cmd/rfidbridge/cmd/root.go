// Package cmd contains the CLI commands for rfidbridge.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version info (set from main)
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"

	// Global flags
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rfidbridge",
	Short: "Relay RFID card reads from a serial reader",
	Long: `rfidbridge reads card UIDs from a serial RFID reader and relays them.

In forward mode every card is posted to an access-control application and
the decision is printed. In broadcast mode every card is pushed to all
connected WebSocket listeners. The reader may be unplugged and plugged
back in at any time; rfidbridge reconnects on its own.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information from the main package.
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.rfidbridge/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(portsCmd)
}

// versionCmd displays version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "rfidbridge %s\n", version)
		fmt.Fprintf(out, "  Build time: %s\n", buildTime)
		fmt.Fprintf(out, "  Git commit: %s\n", gitCommit)
	},
}
