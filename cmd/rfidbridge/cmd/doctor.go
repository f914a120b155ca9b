package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brianly1003/rfidbridge/internal/adapters/serial"
	"github.com/brianly1003/rfidbridge/internal/config"
)

var (
	doctorJSON    bool
	doctorStrict  bool
	doctorTimeout int
)

type doctorStatus string

const (
	doctorStatusOK   doctorStatus = "ok"
	doctorStatusWarn doctorStatus = "warn"
	doctorStatusFail doctorStatus = "fail"
)

type doctorCheck struct {
	ID          string                 `json:"id"`
	Status      doctorStatus           `json:"status"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Remediation string                 `json:"remediation,omitempty"`
}

type doctorSummary struct {
	Total int `json:"total"`
	OK    int `json:"ok"`
	Warn  int `json:"warn"`
	Fail  int `json:"fail"`
}

type doctorReport struct {
	GeneratedAt  string        `json:"generated_at"`
	Overall      doctorStatus  `json:"overall_status"`
	Summary      doctorSummary `json:"summary"`
	Checks       []doctorCheck `json:"checks"`
	SearchConfig []string      `json:"config_search_paths,omitempty"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the reader, endpoint and config",
	Long: `Run read-only diagnostics and print actionable hints.

Checks that the configuration loads, the serial device is present and
accessible, and the forward endpoint or broadcast port is usable.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output machine-readable JSON")
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "return non-zero on warnings")
	doctorCmd.Flags().IntVar(&doctorTimeout, "timeout", 2, "network check timeout in seconds")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := collectDoctorReport()

	out := cmd.OutOrStdout()
	if doctorJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
	} else {
		printDoctorText(out, report)
	}

	if report.Summary.Fail > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", report.Summary.Fail)
	}
	if doctorStrict && report.Summary.Warn > 0 {
		return fmt.Errorf("doctor strict mode failed with %d warning(s)", report.Summary.Warn)
	}
	return nil
}

func collectDoctorReport() doctorReport {
	checks := make([]doctorCheck, 0, 8)

	cfg := config.Default()
	loaded, cfgCheck := checkConfigLoad(cfgFile)
	checks = append(checks, cfgCheck)
	if loaded != nil {
		cfg = loaded
	}

	checks = append(checks, checkSerialDevice(cfg.Serial.Device))
	timeout := time.Duration(doctorTimeout) * time.Second
	if cfg.Relay.Forwards() {
		checks = append(checks, checkForwardEndpoint(cfg.Forward.URL, timeout))
	}
	if cfg.Relay.Broadcasts() {
		checks = append(checks, checkBroadcastPort(cfg.Server.Host, cfg.Server.Port, timeout))
	}

	summary := summarizeDoctorChecks(checks)
	return doctorReport{
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Overall:      overallStatus(summary),
		Summary:      summary,
		Checks:       checks,
		SearchConfig: configSearchPaths(cfgFile),
	}
}

func checkConfigLoad(path string) (*config.Config, doctorCheck) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, doctorCheck{
			ID:          "config.load",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to load config: %v", err),
			Remediation: "Fix the config file, or run `rfidbridge config init --force` to regenerate defaults.",
		}
	}

	source := findFirstExistingPath(configSearchPaths(path))
	msg := "Configuration loaded using built-in defaults and environment overrides"
	if source != "" {
		msg = "Configuration loaded successfully"
	}
	return cfg, doctorCheck{
		ID:      "config.load",
		Status:  doctorStatusOK,
		Message: msg,
		Details: map[string]interface{}{"loaded_from": source},
	}
}

func checkSerialDevice(device string) doctorCheck {
	info, err := os.Stat(device)
	if err != nil {
		candidates, _ := serial.ListPorts()
		remediation := "Plug in the reader, or set serial.device to the right path."
		if len(candidates) > 0 {
			remediation = fmt.Sprintf("Try one of: %s", strings.Join(candidates, ", "))
		}
		return doctorCheck{
			ID:          "serial.device",
			Status:      doctorStatusWarn,
			Message:     fmt.Sprintf("Device not present: %v", err),
			Details:     map[string]interface{}{"device": device},
			Remediation: remediation,
		}
	}

	if info.Mode()&os.ModeCharDevice == 0 {
		return doctorCheck{
			ID:          "serial.device",
			Status:      doctorStatusFail,
			Message:     "Path exists but is not a character device",
			Details:     map[string]interface{}{"device": device},
			Remediation: "Point serial.device at the reader's tty, see `rfidbridge ports`.",
		}
	}

	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return doctorCheck{
			ID:          "serial.device",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Device is not accessible: %v", err),
			Details:     map[string]interface{}{"device": device},
			Remediation: "Add your user to the dialout group or fix the device permissions.",
		}
	}
	_ = f.Close()

	return doctorCheck{
		ID:      "serial.device",
		Status:  doctorStatusOK,
		Message: "Device is present and accessible",
		Details: map[string]interface{}{"device": device},
	}
}

// checkForwardEndpoint only dials the endpoint. A POST would be taken
// as a real card read.
func checkForwardEndpoint(rawURL string, timeout time.Duration) doctorCheck {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return doctorCheck{
			ID:          "forward.endpoint",
			Status:      doctorStatusFail,
			Message:     "Forward URL is not valid",
			Details:     map[string]interface{}{"url": rawURL},
			Remediation: "Set forward.url to an absolute http(s) URL.",
		}
	}

	addr := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		addr = net.JoinHostPort(u.Hostname(), port)
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return doctorCheck{
			ID:          "forward.endpoint",
			Status:      doctorStatusWarn,
			Message:     fmt.Sprintf("Access-control application is not reachable: %v", err),
			Details:     map[string]interface{}{"url": rawURL},
			Remediation: "Start the access-control application or fix forward.url. Cards read meanwhile are reported as errors.",
		}
	}
	_ = conn.Close()

	return doctorCheck{
		ID:      "forward.endpoint",
		Status:  doctorStatusOK,
		Message: "Access-control application is reachable",
		Details: map[string]interface{}{"url": rawURL},
	}
}

// checkBroadcastPort passes when the port is free, or when a running
// rfidbridge already answers /health on it.
func checkBroadcastPort(host string, port int, timeout time.Duration) doctorCheck {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	details := map[string]interface{}{"addr": addr}

	ln, err := net.Listen("tcp", addr)
	if err == nil {
		_ = ln.Close()
		return doctorCheck{
			ID:      "server.port",
			Status:  doctorStatusOK,
			Message: "Broadcast port is free",
			Details: details,
		}
	}

	client := &http.Client{Timeout: timeout}
	resp, herr := client.Get("http://" + addr + "/health")
	if herr == nil {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode == http.StatusOK {
			details["health"] = strings.TrimSpace(string(body))
			return doctorCheck{
				ID:      "server.port",
				Status:  doctorStatusWarn,
				Message: "rfidbridge is already running on this port",
				Details: details,
			}
		}
	}

	return doctorCheck{
		ID:          "server.port",
		Status:      doctorStatusFail,
		Message:     fmt.Sprintf("Broadcast port is in use: %v", err),
		Details:     details,
		Remediation: "Stop the other process or choose another port with --port.",
	}
}

func summarizeDoctorChecks(checks []doctorCheck) doctorSummary {
	summary := doctorSummary{Total: len(checks)}
	for _, check := range checks {
		switch check.Status {
		case doctorStatusOK:
			summary.OK++
		case doctorStatusWarn:
			summary.Warn++
		case doctorStatusFail:
			summary.Fail++
		}
	}
	return summary
}

func overallStatus(summary doctorSummary) doctorStatus {
	if summary.Fail > 0 {
		return doctorStatusFail
	}
	if summary.Warn > 0 {
		return doctorStatusWarn
	}
	return doctorStatusOK
}

func printDoctorText(w io.Writer, report doctorReport) {
	fmt.Fprintf(w, "overall: %s  (ok=%d warn=%d fail=%d total=%d)\n\n",
		strings.ToUpper(string(report.Overall)),
		report.Summary.OK,
		report.Summary.Warn,
		report.Summary.Fail,
		report.Summary.Total,
	)

	for _, check := range report.Checks {
		label := "[OK]"
		switch check.Status {
		case doctorStatusWarn:
			label = "[WARN]"
		case doctorStatusFail:
			label = "[FAIL]"
		}

		fmt.Fprintf(w, "%s %s: %s\n", label, check.ID, check.Message)
		if check.Remediation != "" && check.Status != doctorStatusOK {
			fmt.Fprintf(w, "  fix: %s\n", check.Remediation)
		}
	}
}

func findFirstExistingPath(paths []string) string {
	for _, candidate := range paths {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
