package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brianly1003/rfidbridge/internal/adapters/serial"
)

// portsCmd lists serial devices a reader could be attached to.
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List candidate serial devices",
	Long: `List serial devices that look like a card reader could be attached.

Use one of them with: rfidbridge start --device <path>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		found, err := serial.ListPorts()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(found) == 0 {
			fmt.Fprintln(out, "No serial devices found. Is the reader plugged in?")
			return nil
		}

		fmt.Fprintln(out, "Serial devices:")
		for _, p := range found {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return nil
	},
}
