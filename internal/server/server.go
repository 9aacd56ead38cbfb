package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/offlinehacker/gobankid/bankid"
	"github.com/offlinehacker/gobankid/internal/config"
	"github.com/offlinehacker/gobankid/qrcode"
)

// Server exposes one shared bankid.Session over HTTP.
//
// Every handler takes mu for the whole exchange with the session, so a
// start-then-register or collect-then-reissue sequence is never interleaved
// with another request.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	router   *chi.Mux
	session  *bankid.Session
	registry *qrcode.Registry

	mu     sync.Mutex
	orders map[string]*trackedOrder
}

func NewServer(
	cfg *config.Config,
	session *bankid.Session,
	registry *qrcode.Registry,
	logger *slog.Logger,
) *Server {
	server := &Server{
		config:   cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		session:  session,
		registry: registry,
		orders:   make(map[string]*trackedOrder),
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogging)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Get("/init", s.handleInit)
	s.router.Get("/poll", s.handlePoll)
	s.router.Get("/payment", s.handlePayment)
	s.router.Post("/cancel", s.handleCancel)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}

// Start serves until ctx is cancelled and then shuts down gracefully. Expired
// QR handles are swept once per order lifetime while it runs.
func (s *Server) Start(ctx context.Context) error {
	serverAddr := s.config.Addr()

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("bankid_environment", s.config.BankIDEnvironment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	sweeper := time.NewTicker(s.config.OrderTTL)
	defer sweeper.Stop()

loop:
	for {
		select {
		case err := <-serverErrors:
			return err
		case <-sweeper.C:
			s.sweep()
		case <-ctx.Done():
			s.logger.Info("shutdown signal received")
			break loop
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

func (s *Server) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.registry.Sweep()
	for ref := range s.orders {
		if _, ok := s.registry.Lookup(ref); !ok {
			delete(s.orders, ref)
		}
	}

	if removed > 0 {
		s.logger.Debug("expired orders swept", slog.Int("count", removed))
	}
}
