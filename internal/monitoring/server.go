package monitoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
)

// NewRouter exposes metrics, health and, when state is non-nil, the engine state
func NewRouter(health *HealthChecker, state http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", NewMetricsHandler()).Methods(http.MethodGet)
	router.Handle("/health", health).Methods(http.MethodGet)
	if state != nil {
		router.Handle("/state", state).Methods(http.MethodGet)
	}
	return router
}

// Server runs the monitoring endpoints next to the signal loop
type Server struct {
	srv *http.Server
	log *logger.Logger
}

func NewServer(addr string, handler http.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start serves in the background. Listen errors are logged and counted.
func (s *Server) Start() {
	go func() {
		s.log.Info("monitoring server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.LogError("monitoring server", err)
			RecordError("monitoring_server")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
