package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/matchscan/internal/orchestrator"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/matches"
	"github.com/GriffinCanCode/matchscan/internal/trace"
)

// Scanner is the part of a run the server reads from.
type Scanner interface {
	Records() []matches.Record
	Status() orchestrator.Status
	RecordEvents() <-chan matches.Record
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

type RecordMessage struct {
	Type   string         `json:"type"`
	Record matches.Record `json:"record"`
}

type SnapshotMessage struct {
	Type    string           `json:"type"`
	Records []matches.Record `json:"records"`
}

type StatusMessage struct {
	Type   string              `json:"type"`
	Status orchestrator.Status `json:"status"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	scanner Scanner
	mu      sync.RWMutex
	conns   map[*websocket.Conn]struct{}
}

// New creates a server and starts broadcasting new records to WebSocket
// clients.
func New(scanner Scanner) *Server {
	s := &Server{
		scanner: scanner,
		conns:   make(map[*websocket.Conn]struct{}),
	}
	go s.broadcastRecords()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/matches", s.handleMatches)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	rl := &rateLimiter{}
	for {
		var msg Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		switch msg.Type {
		case "snapshot":
			_ = wsjson.Write(ctx, conn, SnapshotMessage{Type: "snapshot", Records: s.records()})
		case "status":
			_ = wsjson.Write(ctx, conn, StatusMessage{Type: "status", Status: s.scanner.Status()})
		default:
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: "unknown message type " + msg.Type})
		}
	}
}

func (s *Server) broadcastRecords() {
	for rec := range s.scanner.RecordEvents() {
		msg := RecordMessage{Type: "record", Record: rec}

		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn) {
				ctx, cancel := context.WithTimeout(context.Background(), BroadcastWriteTimeout)
				defer cancel()
				_ = wsjson.Write(ctx, c, msg)
			}(conn)
		}
		s.mu.RUnlock()
	}
}

// records never returns nil so the JSON body is always an array.
func (s *Server) records() []matches.Record {
	recs := s.scanner.Records()
	if recs == nil {
		recs = []matches.Record{}
	}
	return recs
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, s.records())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, s.scanner.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.scanner.Status()
	writeJSON(r.Context(), w, map[string]string{
		"status":  "ok",
		"state":   st.Progress.State.String(),
		"breaker": st.Breaker,
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		trace.Logger(ctx).Error("encode response", "error", err)
	}
}
