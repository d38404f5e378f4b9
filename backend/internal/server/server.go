// Package server provides the HTTP server serving the API and the embedded
// portfolio frontend.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"folio/backend/frontend"
	"folio/backend/internal/config"
	"folio/backend/internal/mail"
	"folio/backend/internal/platform/ratelimiter"
	"folio/backend/internal/script"
	"folio/backend/internal/server/dto"
)

// Contact submissions per client IP: sustained rate, burst size, and how long
// an idle bucket survives before eviction.
const (
	contactRPS     = 0.2
	contactBurst   = 3
	contactIdleTTL = 10 * time.Minute
)

// Server is the HTTP server for the portfolio backend. All fields are set at
// construction and read-only afterwards; mutable state lives on the per
// connection script sessions.
type Server struct {
	ctx      context.Context // server-lifetime context; outlives individual HTTP requests
	cfg      *config.Config
	mailer   mail.Sender // nil when SMTP is not configured
	catalog  *script.Catalog
	limiter  *ratelimiter.MapLimiter
	metrics  *metrics
	upgrader websocket.Upgrader
}

// New creates a Server. It loads the demo catalog from cfg.ScriptsDir and
// wires the SMTP sender when the configuration enables it.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	catalog, err := script.Load(cfg.ScriptsDir)
	if err != nil {
		return nil, fmt.Errorf("load demo catalog: %w", err)
	}
	s := &Server{
		ctx:     ctx,
		cfg:     cfg,
		catalog: catalog,
		limiter: ratelimiter.New(contactRPS, contactBurst, contactIdleTTL),
		metrics: newMetrics(),
	}
	if cfg.MailEnabled() {
		s.mailer = mail.NewSMTPSender(cfg)
		slog.Info("contact relay enabled", "host", cfg.SMTPHost, "port", cfg.SMTPPort, "recipients", len(cfg.EmailTo))
	} else {
		slog.Warn("contact relay disabled, SMTP is not configured")
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}
	slog.Info("demo catalog loaded", "dir", cfg.ScriptsDir, "demos", len(catalog.List()))
	return s, nil
}

// Handler builds the complete handler chain. Separate from ListenAndServe so
// tests can mount it on an httptest.Server.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/scripts", handle(s.listScripts))
	mux.Handle("POST /api/v1/contact", s.rateLimited(handle(s.submitContact)))
	mux.HandleFunc("GET /api/v1/scripts/{id}/ws", s.handleScriptSocket)
	mux.HandleFunc("GET /healthz", handle(s.health))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.reg, promhttp.HandlerOpts{}))

	// Serve embedded frontend with SPA fallback and precompressed variants.
	dist, err := fs.Sub(frontend.Files, "dist")
	if err != nil {
		return nil, err
	}
	mux.HandleFunc("GET /", newStaticHandler(dist))

	// Middleware chain: logging → origin → decompress → compress → mux.
	// Logging sees compressed bytes (accurate wire-size reporting).
	var inner http.Handler = mux
	inner = compressMiddleware(inner)
	inner = decompressMiddleware(inner)
	inner = s.originMiddleware(inner)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		inner.ServeHTTP(rw, r)
		s.metrics.observeRequest(r.Method, rw.status)
		slog.InfoContext(r.Context(), "http",
			"m", r.Method,
			"p", r.URL.Path,
			"s", rw.status,
			"d", roundDuration(time.Since(start)),
			"b", rw.size,
		)
	}), nil
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled or
// the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		// Use Background because the parent ctx is already cancelled.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx) //nolint:contextcheck // parent ctx is already cancelled at shutdown time
		shutdownCancel()
	}()
	slog.Info("listening", "addr", addr)
	err = srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownDone
		return nil
	}
	return err
}

func (s *Server) listScripts(_ context.Context, _ *dto.EmptyReq) (*[]dto.ScriptJSON, error) {
	demos := s.catalog.List()
	out := make([]dto.ScriptJSON, len(demos))
	for i, d := range demos {
		out[i] = dto.ScriptJSON{ID: d.ID, Title: d.Title}
	}
	return &out, nil
}

func (s *Server) health(_ context.Context, _ *dto.EmptyReq) (*dto.StatusResp, error) {
	return &dto.StatusResp{Status: "ok"}, nil
}

// responseWriter wraps http.ResponseWriter to capture status code and response size.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Flush implements http.Flusher so streaming handlers can flush through the
// wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the WebSocket upgrade take over the underlying connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return hj.Hijack()
}

// Unwrap returns the underlying ResponseWriter so http.NewResponseController
// can discover interfaces like http.Flusher.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// roundDuration rounds d to 3 significant digits with minimum 1us precision.
func roundDuration(d time.Duration) time.Duration {
	for t := 100 * time.Second; t >= 100*time.Microsecond; t /= 10 {
		if d >= t {
			return d.Round(t / 100)
		}
	}
	return d.Round(time.Microsecond)
}
