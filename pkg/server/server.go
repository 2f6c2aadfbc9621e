// Package server exposes the diagram store, the xLights parsers and the
// import pipeline over HTTP.
//
// Routes:
//
//	GET  /api/health
//	POST /api/xlights/parse             {"filePath": "..."}
//	POST /api/xlights/parse-rgbeffects  {"filePath": "..."}
//	POST /api/xlights/watch             {"filePath": "..."}
//	GET  /api/xlights/controllers
//	GET  /api/xlights/stream            Server-Sent Events
//	POST /api/xlights/import            pipeline.Options + {"merge": bool}
//	GET  /api/diagram
//	POST /api/diagram
//	GET  /api/diagram/render?format=svg
//
// Failures are answered with {"error": message, "code": CODE}.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/xwire/pkg/buildinfo"
	"github.com/matzehuels/xwire/pkg/config"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/observability"
	"github.com/matzehuels/xwire/pkg/pipeline"
	"github.com/matzehuels/xwire/pkg/watch"
)

// Options wires a Server to its dependencies. Nil fields get defaults; the
// persister defaults to diagram-data.json in the working directory.
type Options struct {
	Runner    *pipeline.Runner
	Store     *diagram.Store
	Persister diagram.Persister
	Watcher   *watch.Watcher
	Logger    *log.Logger

	// Defaults fills fields an import request leaves empty.
	Defaults config.ImportConfig

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string
}

// Server is the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	store    *diagram.Store
	persist  diagram.Persister
	watcher  *watch.Watcher
	logger   *log.Logger
	defaults config.ImportConfig
	origins  []string
	build    buildinfo.Info
	router   chi.Router
}

// New builds a server and its routes.
func New(opts Options) *Server {
	s := &Server{
		runner:   opts.Runner,
		store:    opts.Store,
		persist:  opts.Persister,
		watcher:  opts.Watcher,
		logger:   opts.Logger,
		defaults: opts.Defaults,
		origins:  opts.AllowedOrigins,
		build:    buildinfo.Get(),
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	if s.store == nil {
		s.store = diagram.NewStore()
	}
	if s.persist == nil {
		s.persist = diagram.NewFileStore(diagram.DefaultFile)
	}
	if s.watcher == nil {
		s.watcher = watch.New(s.logger)
	}

	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Store returns the diagram store backing the API.
func (s *Server) Store() *diagram.Store { return s.store }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SetHeader("Server", s.build.UserAgent()))
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/xlights", func(r chi.Router) {
			r.Post("/parse", s.handleParseNetworks)
			r.Post("/parse-rgbeffects", s.handleParseRGBEffects)
			r.Post("/watch", s.handleWatch)
			r.Get("/controllers", s.handleControllers)
			r.Get("/stream", s.handleStream)
			r.Post("/import", s.handleImport)
		})

		r.Route("/diagram", func(r chi.Router) {
			r.Get("/", s.handleGetDiagram)
			r.Post("/", s.handleSaveDiagram)
			r.Get("/render", s.handleRender)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("xwire server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// ===== Middleware =====

// logRequests logs each request with its status and reports it to the HTTP
// hooks.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// cors answers preflight requests and sets the allow headers.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			h := w.Header()
			if len(s.origins) == 0 {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Request-Id")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.origins) == 0 {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
