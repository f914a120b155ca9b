// Package websocket serves card tokens to browser dashboards and other
// listeners over WebSocket.
//
// Each connection becomes a Client with two goroutines:
//   - readPump drains and discards inbound frames and handles pongs
//   - writePump writes queued tokens and periodic pings
//
// A Client is wrapped as a ClientSubscriber and registered with the hub.
// Every token is written as one text frame containing only the token.
//
// Thread Safety:
//   - Send() is safe to call from any goroutine
//   - Close() is safe to call multiple times
package websocket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/rfidbridge/internal/domain"
	"github.com/brianly1003/rfidbridge/internal/sync"
)

// outbound is a frame waiting for the write pump. result receives the
// write outcome.
type outbound struct {
	data   []byte
	result chan error
}

// Client represents a WebSocket client connection.
//
// Lifecycle:
//  1. Create with NewClient()
//  2. Start read/write pumps with Start()
//  3. Send tokens with Send()
//  4. Close with Close() or wait for the peer to go away
type Client struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn
	send       chan outbound
	done       chan struct{}
	onClose    func(c *Client)

	mu     sync.Mutex
	closed bool
}

// NewClient creates a new WebSocket client. onClose runs once after the
// read pump exits.
func NewClient(conn *websocket.Conn, onClose func(c *Client)) *Client {
	return &Client{
		id:         uuid.New().String(),
		remoteAddr: conn.RemoteAddr().String(),
		conn:       conn,
		send:       make(chan outbound, sendBufferSize),
		done:       make(chan struct{}),
		onClose:    onClose,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *Client) RemoteAddr() string {
	return c.remoteAddr
}

// Start starts the client's read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Send writes one text frame and waits until the write pump has handed it
// to the connection, the client closes, or ctx is done.
func (c *Client) Send(ctx context.Context, data []byte) error {
	if c.IsClosed() {
		return domain.ErrSubscriberClosed
	}

	msg := outbound{data: data, result: make(chan error, 1)}
	select {
	case c.send <- msg:
	case <-c.done:
		return domain.ErrSubscriberClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-msg.result:
		return err
	case <-c.done:
		return domain.ErrSubscriberClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
}

// IsClosed reports whether Close has been called.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Done returns a channel that's closed when the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// readPump discards inbound frames and watches for the peer going away.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("subscriber_id", c.id).Msg("websocket read error")
			}
			return
		}
	}
}

// writePump writes queued frames and pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		// Send close frame with deadline to prevent blocking on laggy connections
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.TextMessage, msg.data)
			msg.result <- err
			if err != nil {
				log.Debug().Err(err).Str("subscriber_id", c.id).Msg("write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("subscriber_id", c.id).Msg("ping error")
				return
			}
		}
	}
}
