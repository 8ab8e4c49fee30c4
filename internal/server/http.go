package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/skypro1111/audio-relay/internal/config"
	"github.com/skypro1111/audio-relay/internal/device"
	"github.com/skypro1111/audio-relay/internal/metrics"
	"github.com/skypro1111/audio-relay/internal/transport"
	"github.com/skypro1111/audio-relay/internal/vad"
)

const (
	serviceName    = "audio-relay"
	serviceVersion = "1.0.0"
)

// Components are the parts of a running endpoint the API reports on.
// Sender and Gate are set on a client, Receiver on a server.
type Components struct {
	Endpoint *transport.Endpoint
	Sender   *transport.Sender
	Receiver *transport.Receiver
	Gate     *vad.Gate
	Device   string
	Stream   device.StreamConfig
}

// HTTPServer provides HTTP API endpoints for monitoring
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	components Components
	metrics    *metrics.Metrics
	config     atomic.Pointer[config.Config]

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config,
	components Components, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		components: components,
		metrics:    m,
		startTime:  time.Now(),
	}
	h.config.Store(appConfig)

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port)),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", h.metrics.Handler())

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// Handler returns the routed handler.
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// UpdateConfig replaces the configuration reported by /config.
func (h *HTTPServer) UpdateConfig(cfg *config.Config) {
	h.config.Store(cfg)
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		h.metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (h *HTTPServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.server.Addr, err)
	}

	h.logger.Info("Starting HTTP API server", slog.String("address", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	h.logger.Info("Stopping HTTP API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return h.server.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]any{
			"name":    serviceName,
			"version": serviceVersion,
		},
	}

	if ep := h.components.Endpoint; ep != nil {
		health["endpoint"] = ep.Info()
		if ep.State() == transport.StateDisconnected {
			health["status"] = "starting"
		}
	}

	writeJSON(w, health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]any{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
	}

	if h.components.Device != "" {
		stats["device"] = map[string]any{
			"name":   h.components.Device,
			"stream": h.components.Stream,
		}
	}
	if h.components.Sender != nil {
		stats["sender"] = h.components.Sender.GetStatistics()
	}
	if h.components.Gate != nil {
		stats["gate"] = h.components.Gate.GetStats()
	}
	if h.components.Receiver != nil {
		stats["receiver"] = h.components.Receiver.GetStatistics()
	}

	writeJSON(w, stats)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := h.config.Load()
	if cfg == nil {
		http.Error(w, "Configuration unavailable", http.StatusServiceUnavailable)
		return
	}

	// The key is never exposed.
	writeJSON(w, cfg.Redacted())
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]any{
		"service": "Encrypted UDP Audio Relay",
		"version": serviceVersion,
		"endpoints": map[string]any{
			"GET /":        "API documentation",
			"GET /health":  "Endpoint health and state",
			"GET /stats":   "Send/receive path statistics",
			"GET /config":  "Active configuration (key redacted)",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, apiDoc)
}
