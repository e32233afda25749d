// Package proxy implements the reverse-proxy core: the HTTP dispatcher,
// the non-streaming Forward Engine, and the Streaming Engine. It owns no
// package-level state — every dependency is injected into Server so the
// whole wire path is testable without a running process.
package proxy

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/weaverun/weaverun/internal/config"
	"github.com/weaverun/weaverun/internal/dashboard"
	"github.com/weaverun/weaverun/internal/logstore"
	"github.com/weaverun/weaverun/internal/matcher"
	"github.com/weaverun/weaverun/internal/metrics"
	"github.com/weaverun/weaverun/internal/sink"
)

// Timeouts from §5: 90s total, 10s connect.
const (
	upstreamTotalTimeout   = 90 * time.Second
	upstreamConnectTimeout = 10 * time.Second
)

// NewUpstreamClient builds the single shared HTTP client used for every
// forwarded request, with the timeouts mandated by §5.
func NewUpstreamClient() *http.Client {
	dialer := &net.Dialer{Timeout: upstreamConnectTimeout}
	return &http.Client{
		Timeout: upstreamTotalTimeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: upstreamConnectTimeout,
		},
	}
}

// Server bundles every dependency the wire path needs. Nothing here is a
// package-level global — see §9's "Process-wide state" design note.
type Server struct {
	cfg     *config.Config
	matcher *matcher.Matcher
	client  *http.Client
	store   *logstore.Store
	sink    *sink.Worker
	metrics *metrics.Registry
	router  chi.Router
}

// New builds a Server and wires its routes. client is typically
// NewUpstreamClient(); sinkWorker may be nil in debug mode, in which case
// captured calls are logged to the dashboard but never enqueued.
func New(cfg *config.Config, client *http.Client, store *logstore.Store, sinkWorker *sink.Worker, reg *metrics.Registry) *Server {
	s := &Server{
		cfg:     cfg,
		matcher: matcher.New(cfg),
		client:  client,
		store:   store,
		sink:    sinkWorker,
		metrics: reg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	dashboard.Mount(r, s.store, s.cfg, s.metrics)

	r.HandleFunc("/*", s.handleProxy)

	s.router = r
}

// ServeHTTP satisfies http.Handler so Server can be dropped straight into
// an http.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown drains the sink worker (see sink.Worker.Stop) within the
// lifetime of ctx.
func (s *Server) Shutdown(ctx context.Context) {
	if s.sink != nil {
		s.sink.Stop(ctx)
	}
}
