//go:build linux

package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"

	"github.com/brianly1003/rfidbridge/internal/domain"
	"github.com/brianly1003/rfidbridge/internal/sync"
)

var errHangup = errors.New("device hung up")

// termiosPort is a raw-mode serial port read through poll(2).
// ReadLine must be called from a single goroutine.
type termiosPort struct {
	fd     int
	device string
	buf    []byte
	lines  lineSplitter

	mu     sync.Mutex
	closed bool
}

func openPort(cfg Config) (*termiosPort, error) {
	baud, ok := baudToUnix(cfg.BaudRate)
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %d", cfg.BaudRate)
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud

	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	return &termiosPort{
		fd:     fd,
		device: cfg.Device,
		buf:    make([]byte, readBufferSize),
	}, nil
}

// ReadLine implements ports.Port.
func (p *termiosPort) ReadLine(timeout time.Duration) ([]byte, bool, error) {
	if line, ok := p.lines.next(); ok {
		return line, true, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		if p.isClosed() {
			return nil, false, domain.ErrPortClosed
		}

		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}

		fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(remaining.Milliseconds()))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return nil, false, nil
		}

		revents := fds[0].Revents
		if revents&unix.POLLIN == 0 && revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return nil, false, errHangup
		}

		m, err := unix.Read(p.fd, p.buf)
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("read: %w", err)
		}
		if m == 0 {
			return nil, false, io.EOF
		}

		p.lines.write(p.buf[:m])
		if line, ok := p.lines.next(); ok {
			return line, true, nil
		}
		if !time.Now().Before(deadline) {
			return nil, false, nil
		}
	}
}

func (p *termiosPort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close implements ports.Port.
func (p *termiosPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.fd)
}

func baudToUnix(baud int) (uint32, bool) {
	switch baud {
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	default:
		return 0, false
	}
}
