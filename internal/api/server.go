// Package api exposes the watch over a small local HTTP surface: the
// flattened snapshot, the raw state document, and a WebSocket feed of
// operational events for a dashboard or debugging client.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumen-health/lumen-agent/internal/buildinfo"
	"github.com/lumen-health/lumen-agent/internal/events"
	"github.com/lumen-health/lumen-agent/internal/watch"
)

// Server is the local API server.
type Server struct {
	address     string
	port        int
	defaultUser string
	registry    *watch.Registry
	bus         *events.Bus
	logger      *slog.Logger
	server      *http.Server
	upgrader    websocket.Upgrader
}

// New creates an API server. defaultUser is used when a request names
// no user.
func New(address string, port int, defaultUser string, registry *watch.Registry, bus *events.Bus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:     address,
		port:        port,
		defaultUser: defaultUser,
		registry:    registry,
		bus:         bus,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local-only server; the bind address is the access control.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// routes builds the route table.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /v1/state", s.handleState)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	return mux
}

// Start runs the server until Shutdown or a listener error.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.withLogging(s.routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket feed stays open indefinitely
	}

	s.logger.Info("starting API server", "address", s.address, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler returns the route handler without starting a listener, for
// tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) user(r *http.Request) string {
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	return s.defaultUser
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Current())
}

// handleSnapshot advances telemetry and returns the flattened view the
// prompt layer consumes.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	manager := s.registry.Get(s.user(r))
	snapshot, err := manager.Snapshot()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleState returns the raw persisted health document. The copy is
// taken under the manager lock so a concurrent snapshot request cannot
// mutate the document mid-serialization.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	manager := s.registry.Get(s.user(r))
	writeJSON(w, http.StatusOK, manager.StateView())
}

// handleEvents upgrades to a WebSocket and streams bus events until
// the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	remote := r.RemoteAddr
	s.bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceAPI,
		Kind:      events.KindClientConnect,
		Data:      map[string]any{"remote": remote},
	})
	defer s.bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceAPI,
		Kind:      events.KindClientDisconnect,
		Data:      map[string]any{"remote": remote},
	})

	ch := s.bus.Subscribe(64)
	defer s.bus.Unsubscribe(ch)

	// Reader goroutine: we never expect client messages, but reading
	// is how close frames are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Debug("websocket write failed", "remote", remote, "error", err)
				}
				return
			}
		}
	}
}
