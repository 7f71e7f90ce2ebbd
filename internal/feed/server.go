package feed

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/pathwatch/internal/telemetry"
	"github.com/vango-dev/pathwatch/pkg/depmon"
	"github.com/vango-dev/pathwatch/pkg/observe"
)

// Config configures a Server.
type Config struct {
	// SendBuffer is the per-client message buffer. Default 256.
	SendBuffer int

	// WriteTimeout bounds a single WebSocket write. Default 10s.
	WriteTimeout time.Duration

	// Logger for connection lifecycle. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Metrics records client counts and drops. May be nil.
	Metrics *telemetry.Metrics

	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer

	// MonitorOptions are passed to every dependency-gated stream.
	MonitorOptions []depmon.Option

	// Middleware wraps every route, outermost first.
	Middleware []func(http.Handler) http.Handler
}

// Server serves one observed document.
type Server struct {
	config Config
	logger *slog.Logger

	// mu serializes every access to root.
	mu   sync.Mutex
	root *observe.Node

	clientsMu sync.Mutex
	clients   map[string]*client

	upgrader websocket.Upgrader
	router   chi.Router
}

// New creates a server for root.
func New(root *observe.Node, config Config) *Server {
	if config.SendBuffer <= 0 {
		config.SendBuffer = 256
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Server{
		config:  config,
		logger:  config.Logger,
		root:    root,
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.config.Middleware...)
	r.Get("/doc", s.handleDocument)
	r.Get("/doc/*", s.handleGet)
	r.Put("/doc/*", s.handlePut)
	r.Delete("/doc/*", s.handleDelete)
	r.Get("/events", s.handleEvents)
	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Update runs fn with exclusive access to the document.
func (s *Server) Update(fn func(root *observe.Node) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.root)
}

// Close disconnects every client.
func (s *Server) Close() {
	s.clientsMu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, err := json.Marshal(s.root)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	path := pathParam(r)

	s.mu.Lock()
	v, ok := s.root.GetPath(path...)
	var data []byte
	var err error
	if ok {
		data, err = json.Marshal(v)
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, observe.ErrNoPath)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	var value any
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err == nil {
		err = json.Unmarshal(body, &value)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	err = s.Update(func(root *observe.Node) error {
		return root.SetPath(pathParam(r), value)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.Update(func(root *observe.Node) error {
		return root.DeletePath(pathParam(r))
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathParam turns the wildcard "b/c" into Path{"b", "c"}.
func pathParam(r *http.Request) observe.Path {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return nil
	}
	return observe.Path(strings.Split(raw, "/"))
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, _ := json.Marshal(v)
	writeRaw(w, status, data)
}

// writeError maps observe errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case stderrors.Is(err, observe.ErrNoPath):
		status = http.StatusNotFound
	case stderrors.Is(err, observe.ErrIndexOutOfRange):
		status = http.StatusBadRequest
	case stderrors.Is(err, observe.ErrCycle):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
