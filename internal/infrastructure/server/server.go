package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apihttp "github.com/GriffinCanCode/AgentOS/reasoner/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/domain/reasoning"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/domain/validation"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm"
)

// LLMBreaker names the breaker guarding the generation backend
const LLMBreaker = "llm"

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	breakers *resilience.Registry
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// Option customizes server construction
type Option func(*options)

type options struct {
	generator llm.Generator
	logger    *logging.Logger
}

// WithGenerator replaces the configured generation backend, for tests
func WithGenerator(gen llm.Generator) Option {
	return func(o *options) { o.generator = gen }
}

// WithLogger replaces the logger built from configuration
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewServer wires every component from cfg
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing reasoner server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry()).WithRuntimeCollectors()
	tracer := tracing.New("reasoner", logger.Logger)

	breakers := resilience.NewRegistry(metrics.ObserveBreakers(cfg.Breaker.Settings()), logger.Component("resilience"))

	gen := o.generator
	if gen == nil {
		var err error
		gen, err = llm.NewFromConfig(cfg.LLM.ClientConfig(), logger.Logger)
		if err != nil {
			tracer.Close()
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
	}

	protected := llm.NewProtected(gen, breakers.Get(LLMBreaker), cfg.Retry.Policy(), logger.Logger).
		WithMetrics(metrics)
	if cfg.LLM.RequestsPerSecond > 0 {
		protected = protected.WithLimiter(rate.NewLimiter(rate.Limit(cfg.LLM.RequestsPerSecond), max(cfg.LLM.Burst, 1)))
	}

	reasoner := reasoning.NewReasoner(protected, cfg.Reasoning.Options(), logger.Logger).
		WithMetrics(metrics).
		WithTracer(tracer)
	validator := validation.NewValidator(protected, cfg.Validation.Options(), logger.Logger).
		WithMetrics(metrics).
		WithTracer(tracer)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Logger))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins...)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(reasoner, validator, breakers, logger.Logger)
	handlers.Register(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:    cfg.Server.Addr(),
			Handler: router,
		},
		breakers: breakers,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Breakers returns the breaker registry
func (s *Server) Breakers() *resilience.Registry {
	return s.breakers
}

// Run serves HTTP until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return <-errCh
}

// Close flushes spans and logs
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()
	return nil
}
