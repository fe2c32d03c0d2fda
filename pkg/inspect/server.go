package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/message"
	"github.com/vango-dev/groupwire/pkg/metrics"
	"github.com/vango-dev/groupwire/pkg/protocol"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTracerName = "groupwire/inspect"

	// DefaultReadLimit bounds request bodies and WebSocket messages.
	DefaultReadLimit = 1 << 20
)

// Server is the inspection HTTP service.
type Server struct {
	codec     *message.Codec
	logger    *slog.Logger
	tracer    trace.Tracer
	gatherer  prometheus.Gatherer
	readLimit int64
	upgrader  websocket.Upgrader
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracerName resolves the tracer from the global provider under name.
func WithTracerName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.tracer = otel.Tracer(name)
		}
	}
}

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithReadLimit bounds request bodies and WebSocket messages.
func WithReadLimit(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.readLimit = n
		}
	}
}

// WithCheckOrigin sets the WebSocket origin check. The default accepts
// same-origin requests only.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// New creates a server decoding with codec.
func New(codec *message.Codec, opts ...Option) *Server {
	s := &Server{
		codec:     codec,
		logger:    slog.Default().With("component", "inspect"),
		tracer:    otel.Tracer(defaultTracerName),
		readLimit: DefaultReadLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/decode", s.handleDecode)
		r.Post("/encode", s.handleEncode)
		r.Get("/ws", s.handleWebSocket)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspect server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("inspect server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for upgrades.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// errorResponse is the JSON body of a failed call.
type errorResponse struct {
	Error string `json:"error"`
	Class string `json:"class"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Class: metrics.Classify(err)})
}

// statusFor maps a codec failure to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrAllocationTooLarge),
		errors.Is(err, protocol.ErrCollectionTooLarge),
		errors.Is(err, protocol.ErrFrameTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.readLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", protocol.ErrAllocationTooLarge, tooLarge.Limit)
		}
		return nil, err
	}
	return body, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrBadRequest, key, err)
	}
	return b, nil
}

func queryAddress(r *http.Request, key string) (address.Address, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	a, err := address.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadRequest, key, err)
	}
	return a, nil
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	skip, err := queryBool(r, "skip_payload")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, err := queryAddress(r, "sender")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	desc, err := s.Decode(r.Context(), body, DecodeOptions{SkipPayload: skip, Sender: sender})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	var req EncodeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		err = fmt.Errorf("%w: %w", ErrBadRequest, err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	noAddrs, err := queryBool(r, "no_addrs")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ref, err := queryAddress(r, "ref")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, err := s.Encode(r.Context(), req, EncodeOptions{NoAddrs: noAddrs, Ref: ref})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
