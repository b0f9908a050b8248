// Package server exposes mimo collections over HTTP as a query playground
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/metrics"
	"github.com/agebrock/agebrock-mimo/pkg/mimo"
	"github.com/agebrock/agebrock-mimo/pkg/query"
	"github.com/agebrock/agebrock-mimo/pkg/schema"
	"github.com/agebrock/agebrock-mimo/pkg/server/handlers"
)

// Server represents the HTTP playground server
type Server struct {
	config    *Config
	db        *mimo.Database
	router    *chi.Mux
	httpSrv   *http.Server
	logger    *slog.Logger
	collector *metrics.Collector
	slowLog   *metrics.SlowQueryLog
	cursors   *query.CursorManager
	startTime time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new server instance. A nil logger discards records.
func New(config *Config, logger *slog.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if config.EnableTLS {
		for _, f := range []string{config.TLSCertFile, config.TLSKeyFile} {
			if _, err := os.Stat(f); err != nil {
				return nil, fmt.Errorf("TLS file not found: %s", f)
			}
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := core.DefaultOptions()
	opts.ScriptEnabled = config.ScriptEnabled
	opts.Logger = logger
	if config.EnableSchema {
		schema.Install(opts)
	}
	db, err := mimo.Open(&mimo.Config{
		Options:   opts,
		CacheSize: config.CacheSize,
		CacheTTL:  config.CacheTTL,
		Isolated:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	srv := &Server{
		config:    config,
		db:        db,
		router:    chi.NewRouter(),
		logger:    logger,
		slowLog:   metrics.NewSlowQueryLog(&metrics.SlowQueryLogConfig{Threshold: config.SlowQueryThreshold, MaxEntries: 1000, Enabled: true, Logger: logger}),
		cursors:   query.NewCursorManager(config.CursorTimeout),
		startTime: time.Now(),
		stop:      make(chan struct{}),
	}
	if config.EnableMetrics {
		srv.collector = metrics.NewCollector()
		if err := srv.registerGauges(); err != nil {
			return nil, err
		}
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	srv.httpSrv = &http.Server{
		Addr:         net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	return srv, nil
}

func (s *Server) registerGauges() error {
	stats := func(key string) func() float64 {
		return func() float64 {
			v, _ := s.db.Stats()[key].(int)
			return float64(v)
		}
	}
	if err := s.collector.RegisterGauge("collections", "Collections held in memory", stats("collections")); err != nil {
		return err
	}
	return s.collector.RegisterGauge("documents", "Documents held in memory", stats("documents"))
}

// setupMiddleware configures HTTP middleware stack
func (s *Server) setupMiddleware() {
	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	var logger *slog.Logger
	if s.config.EnableLogging {
		logger = s.logger
	}
	s.router.Use(observe(logger, s.collector))

	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
	if s.config.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(s.config.RateLimit), s.config.RateBurst)
		s.router.Use(rateLimit(limiter, s.collector))
	}
	s.router.Use(s.requestSizeLimitMiddleware)
	if s.config.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.config.RequestTimeout))
	}
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	h := handlers.New(s.db, s.cursors, s.collector, s.slowLog)

	s.router.Get("/_health", h.Health)
	s.router.Get("/_stats", h.GetDatabaseStats)
	s.router.Get("/_collections", h.ListCollections)
	s.router.Get("/_slow", h.SlowQueries)
	s.router.Delete("/_slow", h.ClearSlowQueries)
	s.router.Get("/_slow/export", h.ExportSlowQueries)
	s.router.Put("/_slow/threshold", h.SetSlowThreshold)
	if s.collector != nil {
		s.router.Handle("/_metrics", s.collector.Handler())
	}

	s.router.Post("/_cursors", h.CreateCursor)
	s.router.Get("/_cursors/{cursorId}/batch", h.FetchBatch)
	s.router.Delete("/_cursors/{cursorId}", h.CloseCursor)

	s.router.Route("/{collection}", func(r chi.Router) {
		r.Put("/", h.CreateCollection)
		r.Delete("/", h.DropCollection)
		r.Get("/_stats", h.GetCollectionStats)

		r.Post("/_doc", h.InsertDocuments)
		r.Get("/_doc/{id}", h.GetDocument)
		r.Put("/_doc/{id}", h.UpdateDocument)
		r.Delete("/_doc/{id}", h.DeleteDocument)

		r.Post("/_search", h.SearchDocuments)
		r.Get("/_count", h.CountDocuments)
		r.Post("/_count", h.CountDocumentsWithFilter)
		r.Post("/_aggregate", h.Aggregate)
		r.Post("/_update", h.UpdateDocuments)
		r.Post("/_delete", h.DeleteDocuments)

		r.Post("/_import", h.ImportDocuments)
		r.Get("/_export", h.ExportDocuments)
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Database returns the database the server serves
func (s *Server) Database() *mimo.Database {
	return s.db
}

// Collector returns the metrics collector, nil when metrics are disabled
func (s *Server) Collector() *metrics.Collector {
	return s.collector
}

// reapCursors drops idle cursors until the server stops
func (s *Server) reapCursors() {
	defer s.wg.Done()
	interval := s.config.CursorTimeout / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.cursors.CleanupTimedOut(); n > 0 {
				s.logger.Debug("idle cursors closed", "count", n)
			}
			if s.collector != nil {
				s.collector.SetActiveCursors(s.cursors.Active())
			}
		}
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down
func (s *Server) ListenAndServe(ctx context.Context) error {
	protocol := "http"
	if s.config.EnableTLS {
		protocol = "https"
	}
	s.logger.Info("server starting",
		"url", fmt.Sprintf("%s://%s", protocol, s.httpSrv.Addr),
		"metrics", s.collector != nil,
		"scripts", s.config.ScriptEnabled)

	s.wg.Add(1)
	go s.reapCursors()

	errChan := make(chan error, 1)
	go func() {
		var err error
		if s.config.EnableTLS {
			err = s.httpSrv.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err, ok := <-errChan:
		s.stopWorkers()
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Start serves until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.ListenAndServe(ctx)
}

func (s *Server) stopWorkers() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpSrv.Shutdown(ctx)
	s.stopWorkers()
	if err != nil {
		s.logger.Error("server shutdown error", "error", err)
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	WriteJSON(w, statusCode, map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": message,
		"code":    statusCode,
	})
}
