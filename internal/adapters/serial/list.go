package serial

import (
	"path/filepath"
	"slices"
)

// candidatePatterns are the device nodes USB serial adapters and
// Arduino-style boards usually show up as.
var candidatePatterns = []string{
	"/dev/ttyACM*",
	"/dev/ttyUSB*",
	"/dev/ttyAMA*",
	"/dev/ttyS*",
	"/dev/serial/by-id/*",
	"/dev/cu.usbmodem*",
	"/dev/cu.usbserial*",
	"/dev/tty.usbmodem*",
	"/dev/tty.usbserial*",
}

// ListPorts returns the serial device paths present on this machine, sorted.
func ListPorts() ([]string, error) {
	return listPorts(candidatePatterns)
}

func listPorts(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				result = append(result, m)
			}
		}
	}
	slices.Sort(result)
	return result, nil
}
