package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"handshakewatch/internal/logger"
	"handshakewatch/internal/models"
)

const (
	streamClientBuffer = 64
	streamWriteTimeout = 5 * time.Second
)

// StreamRecord is the JSON message pushed to websocket clients.
type StreamRecord struct {
	Server         string    `json:"server"`
	LatencySeconds float64   `json:"latency_seconds"`
	ObservedAt     time.Time `json:"observed_at"`
}

// Stream broadcasts measurements to connected websocket clients.
// A client that cannot keep up loses messages instead of slowing the consumer.
type Stream struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewStream creates a broadcaster with no clients.
func NewStream() *Stream {
	return &Stream{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the client until it disconnects.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &streamClient{conn: conn, send: make(chan []byte, streamClientBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	logger.Debug("Stream client connected", "remote", conn.RemoteAddr().String())

	go s.readLoop(c)
	s.writeLoop(c)
}

// writeLoop owns all writes to the connection.
func (s *Stream) writeLoop(c *streamClient) {
	defer s.drop(c)

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readLoop discards client input and notices disconnects.
func (s *Stream) readLoop(c *streamClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			s.drop(c)
			return
		}
	}
}

func (s *Stream) drop(c *streamClient) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	c.conn.Close()
}

func (s *Stream) Write(m models.HandshakeMeasurement) error {
	observed := m.ObservedAt
	if observed.IsZero() {
		observed = time.Now()
	}
	msg, err := json.Marshal(StreamRecord{
		Server:         m.ServerAddress,
		LatencySeconds: m.LatencySeconds,
		ObservedAt:     observed,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (s *Stream) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client.
func (s *Stream) Close() {
	s.mu.Lock()
	clients := make([]*streamClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.drop(c)
	}
}

// Serve accepts websocket clients on addr at /stream until ctx is canceled.
func (s *Stream) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/stream", s)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting websocket stream server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("stream server failed: %w", err)
		}
		return nil
	}
}
