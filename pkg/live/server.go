// Package live serves a bound document to browsers.
//
// The document lives on one loop goroutine. Browsers load it over HTTP with
// a small client script that forwards clicks and input events over a
// websocket. Every change to the document is pushed back as a full render:
//
//	srv, err := live.New(live.Options{
//		Source: page.Source{Template: "index.html", Data: "data.yaml"},
//		Config: cfg,
//	})
//	err = srv.ListenAndServe(ctx)
package live

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/scopebind/internal/config"
	"github.com/vango-dev/scopebind/internal/page"
	"github.com/vango-dev/scopebind/pkg/bind"
	"github.com/vango-dev/scopebind/pkg/loop"
	"github.com/vango-dev/scopebind/pkg/metrics"
)

// DefaultSyncInterval is how often the server checks for document changes
// made outside a scheduler flush, such as chunked list rendering.
const DefaultSyncInterval = 100 * time.Millisecond

// Options configures a Server.
type Options struct {
	// Source names the template and data files.
	Source page.Source

	// Config supplies attribute names, render and loop settings and the
	// listen address. Defaults are used when nil.
	Config *config.Config

	// Logger receives server and engine logs.
	Logger *slog.Logger

	// Registry receives the engine and server metrics. A private registry
	// is created when nil.
	Registry *prometheus.Registry

	// Watch rebuilds the page when the template or data file changes.
	Watch bool

	// SyncInterval overrides DefaultSyncInterval.
	SyncInterval time.Duration
}

// Server owns a loop, the page bound on it and the connected clients.
type Server struct {
	opts     Options
	config   *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
	loop     *loop.Loop
	hub      *Hub
	router   chi.Router

	// Owned by the loop goroutine.
	page *page.Page
	sent uint64
}

// New creates a Server. Call Start or ListenAndServe to open the page.
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = DefaultSyncInterval
	}

	m := metrics.New(metrics.WithRegistry(registry))
	s := &Server{
		opts:     opts,
		config:   cfg,
		logger:   logger,
		registry: registry,
		metrics:  m,
		loop: loop.New(loop.Config{
			FrameInterval: cfg.FrameInterval(),
			FallbackDelay: cfg.FallbackDelay(),
			Logger:        logger,
		}),
		hub: NewHub(logger, m, cfg.Server.Origins),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handlePage)
	r.Get("/ws", s.handleSocket)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the client hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Loop returns the loop the page runs on.
func (s *Server) Loop() *loop.Loop {
	return s.loop
}

// Start runs the loop, opens the page and, if configured, watches its
// files. Everything stops when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.loop.Run(ctx)

	var openErr error
	if err := s.loop.Do(ctx, func() { openErr = s.open() }); err != nil {
		return err
	}
	if openErr != nil {
		return openErr
	}

	go s.poll(ctx)
	if s.opts.Watch {
		if err := s.watch(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ListenAndServe starts the server on the configured address and blocks
// until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.config.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("live server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	s.hub.Close()
	return srv.Shutdown(shutdownCtx)
}

// open builds the page on the loop goroutine and swaps it in. The previous
// page stays in place if the new one fails to open.
func (s *Server) open() error {
	p, err := page.Open(s.opts.Source,
		bind.WithHost(s.loop),
		bind.WithLogger(s.logger),
		bind.WithConfig(s.config),
		bind.WithMetrics(s.metrics))
	if err != nil {
		return err
	}
	if s.page != nil {
		s.page.Close()
	}
	s.page = p
	p.Engine.Scheduler().OnFlush(func(int) {
		if s.page == p {
			s.sync(false)
		}
	})
	s.sync(true)
	return nil
}

// sync broadcasts the document if it changed since the last broadcast.
func (s *Server) sync(force bool) {
	if s.page == nil {
		return
	}
	n := s.page.Doc.Mutations()
	if n == s.sent && !force {
		return
	}
	s.sent = n
	if s.hub.ClientCount() == 0 {
		return
	}
	s.hub.Broadcast(Message{Type: MessageRender, HTML: s.page.Doc.String()})
}

func (s *Server) poll(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.loop.Post(func() { s.sync(false) })
		}
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var body string
	err := s.loop.Do(r.Context(), func() {
		if s.page != nil {
			body = s.page.Doc.String()
		}
	})
	if err != nil || body == "" {
		http.Error(w, "page unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(InjectScript(body)))
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, func(msg Message) {
		s.loop.Post(func() { s.handle(msg) })
	})
}

// handle applies a client message to the page. It runs on the loop.
func (s *Server) handle(msg Message) {
	if s.page == nil {
		return
	}
	doc := s.page.Doc
	el := doc.ElementAt(msg.Path)
	if el == nil {
		s.logger.Debug("client message for unknown element", "type", msg.Type, "path", msg.Path)
		return
	}
	switch msg.Type {
	case MessageClick:
		doc.Click(el)
	case MessageInput:
		doc.Input(el, msg.Value)
	default:
		s.logger.Debug("unknown client message", "type", msg.Type)
		return
	}
	s.sync(false)
}
