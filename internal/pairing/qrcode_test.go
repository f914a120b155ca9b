package pairing

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewQRGenerator(t *testing.T) {
	gen := NewQRGenerator("localhost", 8765, "/dev/ttyACM0")

	if gen.host != "localhost" {
		t.Errorf("expected host localhost, got %s", gen.host)
	}
	if gen.port != 8765 {
		t.Errorf("expected port 8765, got %d", gen.port)
	}
	if gen.device != "/dev/ttyACM0" {
		t.Errorf("expected device /dev/ttyACM0, got %s", gen.device)
	}
}

func TestQRGenerator_GetConnectInfo(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		wantWS string
	}{
		{"loopback", "127.0.0.1", "ws://127.0.0.1:8765/ws"},
		{"lan address", "192.168.1.100", "ws://192.168.1.100:8765/ws"},
		{"wildcard v4", "0.0.0.0", "ws://localhost:8765/ws"},
		{"wildcard v6", "::", "ws://localhost:8765/ws"},
		{"empty", "", "ws://localhost:8765/ws"},
		{"ipv6", "::1", "ws://[::1]:8765/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewQRGenerator(tt.host, 8765, "/dev/ttyUSB0").GetConnectInfo()
			if info.WebSocket != tt.wantWS {
				t.Errorf("WebSocket = %s, want %s", info.WebSocket, tt.wantWS)
			}
			if !strings.HasSuffix(info.Health, ":8765/health") {
				t.Errorf("Health = %s", info.Health)
			}
			if info.Device != "/dev/ttyUSB0" {
				t.Errorf("Device = %s", info.Device)
			}
		})
	}
}

func TestQRGenerator_GenerateJSON(t *testing.T) {
	gen := NewQRGenerator("127.0.0.1", 8765, "/dev/ttyACM0")

	data, err := gen.GenerateJSON()
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}

	var info ConnectInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if info.WebSocket != "ws://127.0.0.1:8765/ws" {
		t.Errorf("ws = %s", info.WebSocket)
	}
	if !strings.Contains(data, `"device":"/dev/ttyACM0"`) {
		t.Errorf("JSON missing device: %s", data)
	}
}

func TestQRGenerator_GenerateTerminal(t *testing.T) {
	gen := NewQRGenerator("127.0.0.1", 8765, "/dev/ttyACM0")

	qr, err := gen.GenerateTerminal()
	if err != nil {
		t.Fatalf("GenerateTerminal() error = %v", err)
	}
	if len(strings.Split(strings.TrimSpace(qr), "\n")) < 10 {
		t.Error("QR code looks too small")
	}
}

func TestQRGenerator_GeneratePNG(t *testing.T) {
	gen := NewQRGenerator("127.0.0.1", 8765, "/dev/ttyACM0")

	png, err := gen.GeneratePNG(128)
	if err != nil {
		t.Fatalf("GeneratePNG() error = %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestQRGenerator_PrintBanner(t *testing.T) {
	gen := NewQRGenerator("127.0.0.1", 8765, "/dev/ttyACM0")

	var plain bytes.Buffer
	gen.PrintBanner(&plain, false)
	if !strings.Contains(plain.String(), "ws://127.0.0.1:8765/ws") {
		t.Errorf("banner missing ws URL:\n%s", plain.String())
	}
	if !strings.Contains(plain.String(), "/dev/ttyACM0") {
		t.Errorf("banner missing device:\n%s", plain.String())
	}

	var withQR bytes.Buffer
	gen.PrintBanner(&withQR, true)
	if withQR.Len() <= plain.Len() {
		t.Error("QR banner should be longer than the plain banner")
	}
}
