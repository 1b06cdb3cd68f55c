// Package server assembles the airdrop API router and HTTP server.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/malbeclabs/airdrop/api/handlers"
	"github.com/malbeclabs/airdrop/api/metrics"
	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
)

type Server struct {
	log     *slog.Logger
	cfg     Config
	engine  *airdrop.Engine
	httpSrv *http.Server
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h, err := handlers.New(handlers.Config{
		Logger:       cfg.Logger,
		Engine:       cfg.Engine,
		AuthDisabled: cfg.AuthDisabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create handlers: %w", err)
	}

	s := &Server{
		log:    cfg.Logger,
		cfg:    cfg,
		engine: cfg.Engine,
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router(h),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	return s, nil
}

func (s *Server) router(h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{
				"Content-Type",
				handlers.HeaderWallet,
				handlers.HeaderSignature,
				handlers.HeaderTimestamp,
			},
			MaxAge: 300,
		}))
	}

	r.Get("/healthz", s.healthzHandler)
	r.Get("/readyz", s.readyzHandler)
	r.Get("/version", s.versionHandler)

	r.Route("/api", func(r chi.Router) {
		// Read endpoints
		r.Group(func(r chi.Router) {
			r.Use(handlers.StatusRateLimitMiddleware)
			r.Get("/status/phase1/{wallet}", h.GetPhase1Status)
			r.Get("/status/phase2/{wallet}", h.GetPhase2Status)
			r.Get("/stats", h.GetStats)
			r.Get("/tiers/{balance}", h.GetTierPreview)
			r.Get("/proofs/{wallet}", h.GetProof)
		})

		// Wallet-signed writes
		r.Group(func(r chi.Router) {
			r.Use(handlers.ClaimRateLimitMiddleware)
			r.Use(h.WalletAuth)
			r.Post("/proofs", h.PostProof)
			r.Post("/claims/phase1", h.PostClaimPhase1)
			r.Post("/claims/phase2", h.PostClaimPhase2)
		})

		// Privileged operations; role checks happen inside the engine so a
		// stolen non-role wallet signature still gets ErrUnauthorized.
		r.Group(func(r chi.Router) {
			r.Use(h.WalletAuth)
			r.Post("/proofs/{wallet}/verify", h.PostVerifyProof)
			r.Route("/admin", func(r chi.Router) {
				r.Post("/phases", h.PostSetPhase)
				r.Post("/pause", h.PostPause)
				r.Post("/unpause", h.PostUnpause)
				r.Post("/roles", h.PostRole)
				r.Post("/withdraw", h.PostWithdraw)
				r.Post("/upgrade", h.PostAuthorizeUpgrade)
			})
		})
	})

	return r
}

func (s *Server) Run(ctx context.Context) error {
	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("server: http server error", "error", err)
			serveErrCh <- fmt.Errorf("failed to listen and serve: %w", err)
		}
	}()

	s.log.Info("server: http listening", "address", s.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		s.log.Info("server: stopping", "reason", ctx.Err(), "address", s.cfg.ListenAddr)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		s.log.Info("server: http server shutdown complete")
		return nil
	case err := <-serveErrCh:
		s.log.Error("server: http server error causing shutdown", "error", err, "address", s.cfg.ListenAddr)
		return err
	}
}

// Handler exposes the assembled router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write healthz response", "error", err)
	}
}

func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	// Ready once the engine can reach the token ledger.
	if _, err := s.engine.Stats(r.Context()); err != nil {
		s.log.Debug("readyz: ledger not reachable", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte("ledger not reachable\n")); err != nil {
			s.log.Error("failed to write readyz response", "error", err)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write readyz response", "error", err)
	}
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(s.cfg.VersionInfo); err != nil {
		s.log.Error("failed to write version response", "error", err)
	}
}
