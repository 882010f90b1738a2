package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/edufilter/internal/api"
	"github.com/vietddude/edufilter/internal/classify"
	"github.com/vietddude/edufilter/internal/classify/prompt"
	"github.com/vietddude/edufilter/internal/classify/validate"
	"github.com/vietddude/edufilter/internal/core/config"
	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/health"
	"github.com/vietddude/edufilter/internal/infra/gemini"
	redisclient "github.com/vietddude/edufilter/internal/infra/redis"
	"github.com/vietddude/edufilter/internal/infra/storage"
	"github.com/vietddude/edufilter/internal/infra/storage/memory"
)

// Server is the classification server application.
type Server struct {
	httpServer  *http.Server
	redisClient *redisclient.Client
	log         *slog.Logger
}

// NewServer creates a new Server with all dependencies initialized.
func NewServer(ctx context.Context, cfg *config.AppConfig) (*Server, error) {
	log := slog.Default().With("component", "server")

	// 1. Model provider
	gen, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		CredentialsFile: cfg.Gemini.CredentialsFile,
		Model:           cfg.Gemini.Model,
		Endpoint:        cfg.Gemini.Endpoint,
		Timeout:         cfg.Gemini.Timeout,
		NoAuth:          cfg.Gemini.NoAuth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini client: %w", err)
	}

	// 2. Classifier
	validator := validate.New(domain.Label(cfg.Classifier.DefaultLabel))
	classifier := classify.NewClassifier(gen, prompt.NewBuilder(cfg.Classifier.SnippetBudget), validator, cfg.Gemini.Model)
	batch := classify.NewBatchClassifier(classifier, validator)

	// 3. Rate limiter, shared through redis when available
	var redisClient *redisclient.Client
	var limiter storage.RateLimiter
	var checks []health.Check
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		checks = append(checks, health.Check{Name: "redis", Probe: redisClient.Ping})
	}
	if rpm := cfg.RateLimit.RequestsPerMinute; rpm > 0 {
		if redisClient != nil {
			limiter = redisclient.NewRateLimiter(redisClient, rpm, time.Minute)
		} else {
			log.Warn("Rate limiting per process; configure redis to share limits across instances")
			limiter = memory.NewRateLimiter(rpm, time.Minute, nil)
		}
	}

	// 4. HTTP API
	router := api.NewRouter(api.Deps{
		Classifier:     batch,
		Limiter:        limiter,
		Monitor:        health.NewMonitor(checks...),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		redisClient: redisClient,
		log:         log,
	}, nil
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts listening in the background.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server failed", "error", err)
		}
	}()
	s.log.Info("Classification server listening", "addr", s.httpServer.Addr)
	return nil
}

// Stop stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Stopping server...")

	err := s.httpServer.Shutdown(ctx)

	// Close Redis
	if s.redisClient != nil {
		if cerr := s.redisClient.Close(); cerr != nil {
			s.log.Warn("Failed to close Redis", "error", cerr)
		}
	}
	return err
}
