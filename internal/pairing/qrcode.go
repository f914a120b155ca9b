// Package pairing prints the connect banner for WebSocket listeners,
// optionally with a QR code for phones and tablets.
package pairing

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

// ConnectInfo is what a dashboard needs to start listening for cards.
type ConnectInfo struct {
	WebSocket string `json:"ws"`
	Health    string `json:"health"`
	Device    string `json:"device"`
}

// QRGenerator renders connect information as JSON or QR codes.
type QRGenerator struct {
	host   string
	port   int
	device string
}

// NewQRGenerator creates a new QR code generator for the listener at
// host:port relaying cards from device.
func NewQRGenerator(host string, port int, device string) *QRGenerator {
	return &QRGenerator{
		host:   host,
		port:   port,
		device: device,
	}
}

// GetConnectInfo returns the listener URLs. A wildcard bind address is
// shown as localhost.
func (g *QRGenerator) GetConnectInfo() *ConnectInfo {
	host := g.host
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(g.port))

	return &ConnectInfo{
		WebSocket: "ws://" + addr + "/ws",
		Health:    "http://" + addr + "/health",
		Device:    g.device,
	}
}

// GenerateJSON returns the connect info as JSON.
func (g *QRGenerator) GenerateJSON() (string, error) {
	data, err := json.Marshal(g.GetConnectInfo())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GenerateTerminal generates a QR code of the WebSocket URL for terminal display.
func (g *QRGenerator) GenerateTerminal() (string, error) {
	qr, err := qrcode.New(g.GetConnectInfo().WebSocket, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return qr.ToSmallString(false), nil
}

// GeneratePNG generates a PNG image of the QR code.
func (g *QRGenerator) GeneratePNG(size int) ([]byte, error) {
	return qrcode.Encode(g.GetConnectInfo().WebSocket, qrcode.Medium, size)
}

// PrintBanner writes the listener URLs to w, followed by a QR code when
// withQR is set.
func (g *QRGenerator) PrintBanner(w io.Writer, withQR bool) {
	info := g.GetConnectInfo()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Card reader:  %s\n", info.Device)
	fmt.Fprintf(w, "  Listen for cards at %s\n", info.WebSocket)
	fmt.Fprintf(w, "  Health check: %s\n", info.Health)

	if !withQR {
		fmt.Fprintln(w)
		return
	}

	qrStr, err := g.GenerateTerminal()
	if err != nil {
		fmt.Fprintf(w, "  [Error generating QR code: %v]\n", err)
		return
	}

	fmt.Fprintln(w)
	for _, line := range strings.Split(qrStr, "\n") {
		if line != "" {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	fmt.Fprintln(w)
}
