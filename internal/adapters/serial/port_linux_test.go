//go:build linux

package serial

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brianly1003/rfidbridge/internal/classifier"
	"github.com/brianly1003/rfidbridge/internal/domain"
)

func openPTY(t *testing.T) (master *os.File, device string) {
	t.Helper()
	m, s, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(); _ = s.Close() })
	return m, s.Name()
}

func TestPort_ReadLine(t *testing.T) {
	master, device := openPTY(t)

	port, err := NewOpener(Config{Device: device, BaudRate: 115200}).Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = port.Close() })

	_, err = master.Write([]byte("A1B2C3\r\nDEBUG: init ok\n"))
	require.NoError(t, err)

	line, ok, err := port.ReadLine(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A1B2C3\r", string(line))

	line, ok, err = port.ReadLine(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "DEBUG: init ok", string(line))
}

func TestPort_ReadLineTimeout(t *testing.T) {
	_, device := openPTY(t)

	port, err := NewOpener(Config{Device: device}).Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = port.Close() })

	start := time.Now()
	line, ok, err := port.ReadLine(50 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, line)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPort_PartialLineBuffered(t *testing.T) {
	master, device := openPTY(t)

	port, err := NewOpener(Config{Device: device}).Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = port.Close() })

	_, err = master.Write([]byte("A1B2"))
	require.NoError(t, err)

	_, ok, err := port.ReadLine(100 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = master.Write([]byte("C3\n"))
	require.NoError(t, err)

	line, ok, err := port.ReadLine(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A1B2C3", string(line))
}

func TestPort_ClosedReturnsError(t *testing.T) {
	_, device := openPTY(t)

	port, err := NewOpener(Config{Device: device}).Open(context.Background())
	require.NoError(t, err)

	require.NoError(t, port.Close())
	require.NoError(t, port.Close())

	_, _, err = port.ReadLine(10 * time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrPortClosed)
}

func TestPort_UnsupportedBaud(t *testing.T) {
	_, device := openPTY(t)

	_, err := NewOpener(Config{Device: device, BaudRate: 1234}).Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported baud rate")
}

func TestPort_OverlongLineNeverSplits(t *testing.T) {
	master, device := openPTY(t)

	port, err := NewOpener(Config{Device: device}).Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = port.Close() })

	payload := strings.Repeat("A", 4100) + "\nCARD0001\n"
	go func() { _, _ = master.Write([]byte(payload)) }()

	var lines []string
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		line, ok, err := port.ReadLine(50 * time.Millisecond)
		require.NoError(t, err)
		if !ok {
			continue
		}
		lines = append(lines, string(line))
		if string(line) == "CARD0001" {
			break
		}
	}

	require.Len(t, lines, 2, "one overlong line then the card")
	_, verdict := classifier.Default().Classify(lines[0])
	assert.Equal(t, classifier.Chatter, verdict)
	assert.Equal(t, "CARD0001", lines[1])
}
