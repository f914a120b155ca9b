package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/rfidbridge/internal/domain/ports"
	"github.com/brianly1003/rfidbridge/internal/sync"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are ignored, so keep them small.
	maxMessageSize = 4 * 1024

	// Queued frames per client. Sends block once it is full.
	sendBufferSize = 16
)

// Options configures a Server.
type Options struct {
	Host           string
	Port           int
	AllowedOrigins []string
	Hub            ports.EventHub

	// MetricsHandler, when set, is served at /metrics.
	MetricsHandler http.Handler
}

// Server accepts WebSocket listeners and subscribes them to the hub.
type Server struct {
	addr     string
	hub      ports.EventHub
	upgrader websocket.Upgrader
	router   *mux.Router
	server   *http.Server

	mu       sync.RWMutex
	clients  map[string]*Client
	listener net.Listener
}

// NewServer creates a new WebSocket server.
func NewServer(opts Options) *Server {
	s := &Server{
		addr:    net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		hub:     opts.Hub,
		clients: make(map[string]*Client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     NewOriginChecker(opts.AllowedOrigins).CheckOrigin,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if opts.MetricsHandler != nil {
		router.Handle("/metrics", opts.MetricsHandler).Methods(http.MethodGet)
	}
	router.HandleFunc("/ws", s.handleWebSocket)
	router.HandleFunc("/", s.handleWebSocket)
	s.router = router

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// No ReadTimeout/WriteTimeout: they would cut long-lived
		// WebSocket connections. The pumps set their own deadlines.
	}

	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Msg("WebSocket server listening")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("WebSocket server error")
		}
	}()
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully stops the server and disconnects all clients.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("WebSocket server stopping")

	// Shutdown does not track hijacked connections.
	s.mu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("failed to upgrade connection")
		return
	}

	var sub *ClientSubscriber
	client := NewClient(conn, func(c *Client) {
		if s.hub != nil {
			s.hub.Unsubscribe(sub)
		}
		s.removeClient(c)
	})
	sub = NewClientSubscriber(client)

	s.mu.Lock()
	s.clients[client.ID()] = client
	s.mu.Unlock()

	log.Info().
		Str("subscriber_id", client.ID()).
		Str("remote_addr", client.RemoteAddr()).
		Msg("client connected")

	// Subscribe before the pumps run so a fast disconnect cannot leave a
	// dead subscriber registered.
	if s.hub != nil {
		s.hub.Subscribe(sub)
	}
	client.Start()
}

func (s *Server) removeClient(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.ID())
	s.mu.Unlock()
	log.Info().
		Str("subscriber_id", c.ID()).
		Str("remote_addr", c.RemoteAddr()).
		Msg("client disconnected")
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.hub != nil {
		resp.Subscribers = s.hub.SubscriberCount()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Debug().Err(err).Msg("failed to write health response")
	}
}
