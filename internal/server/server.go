// Package server exposes the engine to a browser dashboard or a tutoring
// host: a websocket for commands and state, plus a few HTTP endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/tutoravatar/internal/app"
	"github.com/normanking/tutoravatar/internal/bus"
	"github.com/normanking/tutoravatar/internal/config"
	"github.com/normanking/tutoravatar/internal/viseme"
)

const (
	// WriteWait is the timeout for writing to a websocket.
	WriteWait = 10 * time.Second

	// PongWait is the timeout for pong responses.
	PongWait = 60 * time.Second

	// PingPeriod is how often to send ping frames.
	PingPeriod = (PongWait * 9) / 10

	// MaxMessageSize bounds one incoming command.
	MaxMessageSize = 16 * 1024
)

// Message is the envelope for everything sent to clients.
type Message struct {
	Type  string `json:"type"` // state, event, error
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// TimelineResponse is returned by /api/timeline.
type TimelineResponse struct {
	Text       string         `json:"text"`
	DurationMs int64          `json:"duration_ms"`
	Entries    []viseme.Entry `json:"entries"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Server serves /ws, /healthz, /metrics, /api/state, /api/command,
// /api/timeline and /api/logs.
type Server struct {
	cfg    config.ServerConfig
	app    *app.App
	logger zerolog.Logger

	upgrader websocket.Upgrader
	http     *http.Server

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
	sentAt  time.Time
}

// New creates a server for a and subscribes it to frames and bus events.
func New(a *app.App, cfg config.ServerConfig) *Server {
	if cfg.BroadcastHz <= 0 {
		cfg.BroadcastHz = 30
	}
	s := &Server{
		cfg:    cfg,
		app:    a,
		logger: a.Log.Component("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	a.Runtime.OnFrame(s.onFrame)
	a.Bus.SubscribeOrdered(s.onEvent)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", s.app.Metrics.Handler())
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/api/timeline", s.handleTimeline)
	mux.HandleFunc("/api/logs", s.handleLogs)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// Start listens on cfg.Addr until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{Addr: s.cfg.Addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("Server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		if err := s.http.Shutdown(shutdown); err != nil {
			s.logger.Warn().Err(err).Msg("Server shutdown")
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) onFrame(snap app.Snapshot) {
	now := time.Now()
	s.mu.Lock()
	if now.Sub(s.sentAt) < time.Second/time.Duration(s.cfg.BroadcastHz) {
		s.mu.Unlock()
		return
	}
	s.sentAt = now
	s.mu.Unlock()

	data, err := json.Marshal(Message{Type: "state", Data: snap})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to marshal state")
		return
	}
	s.mu.Lock()
	s.last = data
	s.mu.Unlock()
	s.broadcast(data)
}

func (s *Server) onEvent(e bus.Event) {
	data, err := json.Marshal(Message{Type: "event", Data: e})
	if err != nil {
		return
	}
	s.broadcast(data)
}

func (s *Server) broadcast(data []byte) {
	s.mu.RLock()
	var slow []*client
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range slow {
		s.logger.Warn().Msg("Dropping slow websocket client")
		s.remove(c)
	}
}

func (s *Server) add(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	last := s.last
	n := len(s.clients)
	s.mu.Unlock()

	s.app.Metrics.ClientConnected()
	s.logger.Info().Int("clients", n).Msg("Client connected")
	if last != nil {
		c.send <- last
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	n := len(s.clients)
	s.mu.Unlock()

	if ok {
		c.close()
		s.app.Metrics.ClientDisconnected()
		s.logger.Info().Int("clients", n).Msg("Client disconnected")
	}
}

func (s *Server) closeClients() {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()
	for _, c := range clients {
		s.remove(c)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	s.add(c)

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readPump(c *client) {
	defer s.remove(c)

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		var cmd app.Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("WebSocket read")
			}
			return
		}
		if err := cmd.Validate(); err != nil {
			s.reply(c, Message{Type: "error", Error: err.Error()})
			continue
		}
		s.app.Runtime.Post(cmd)
	}
}

func (s *Server) reply(c *client, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	s.mu.RLock()
	_, ok := s.clients[c]
	if ok {
		select {
		case c.send <- data:
		default:
		}
	}
	s.mu.RUnlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"avatar_ready":   s.app.Avatar.IsReady(),
		"speech":         s.app.Synth.Name(),
		"speech_enabled": s.app.Speech.Enabled(),
		"clients":        s.ClientCount(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Avatar.State())
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Message{Type: "error", Error: "POST required"})
		return
	}
	var cmd app.Command
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxMessageSize)).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, Message{Type: "error", Error: err.Error()})
		return
	}
	if err := cmd.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, Message{Type: "error", Error: err.Error()})
		return
	}
	s.app.Runtime.Post(cmd)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("text")
	wpm, _ := strconv.Atoi(q.Get("wpm"))

	d := s.app.Speech.EstimateDuration(text, wpm)
	if ms, err := strconv.ParseInt(q.Get("duration_ms"), 10, 64); err == nil && ms > 0 {
		// capped before scaling so huge values cannot overflow
		limit := s.app.Speech.MaxDuration()
		d = time.Duration(min(ms, limit.Milliseconds())) * time.Millisecond
	}

	writeJSON(w, http.StatusOK, TimelineResponse{
		Text:       viseme.Normalize(text),
		DurationMs: d.Milliseconds(),
		Entries:    viseme.TextToTimeline(text, float64(d.Milliseconds())),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	writeJSON(w, http.StatusOK, s.app.Log.History(limit))
}
