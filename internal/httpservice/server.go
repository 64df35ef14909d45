// Package httpservice serves the exposition text over HTTP for the external
// scraping collector.
package httpservice

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"instrumentor/internal/config"
	corelog "instrumentor/internal/core/log"
	"instrumentor/internal/metrics"
	"instrumentor/internal/store"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// Server renders a namespace's snapshots on /metrics.
type Server struct {
	config *config.HTTPConfig
	router *mux.Router
	server *http.Server
	reader *metrics.Reader
	store  store.Store
	log    corelog.Logger
}

// New creates the exposition server.
func New(cfg *config.HTTPConfig, reader *metrics.Reader, st store.Store, logger corelog.Logger) *Server {
	if logger == nil {
		logger = corelog.Default()
	}

	s := &Server{
		config: cfg,
		router: mux.NewRouter(),
		reader: reader,
		store:  st,
		log:    logger,
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
}

// Router exposes the router for tests and embedding.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.log.Infof("HTTPService: listening on %s", s.config.ListenAddr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("HTTPService: shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.reader.Read(r.Context())
	if err != nil {
		s.log.WithError(err).Error("HTTPService: namespace read failed")
		http.Error(w, "namespace read failed", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := metrics.WriteText(&buf, snapshots); err != nil {
		s.log.WithError(err).Error("HTTPService: rendering failed")
		http.Error(w, "rendering failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// A cheap store round trip proves the backing store is reachable.
	if _, err := s.store.GetAll(r.Context(), "healthz"); err != nil {
		http.Error(w, "store unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
