package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/stratisd/internal/api/bus"
	apihttp "github.com/GriffinCanCode/stratisd/internal/api/http"
	"github.com/GriffinCanCode/stratisd/internal/api/middleware"
	"github.com/GriffinCanCode/stratisd/internal/api/ws"
	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/domain/registry"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/config"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/logging"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/stratisd/internal/shared/id"
)

const shutdownTimeout = 10 * time.Second

// Server wires the registry to the bus and the status endpoint
type Server struct {
	config   *config.Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	bus      *bus.Bus
	registry *registry.Registry
	router   *gin.Engine
}

// NewServer creates a new server instance. With bus type "none" entities are
// exposed to an in-memory transport only.
func NewServer(cfg *config.Config, version string) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing stratisd",
		zap.String("version", version),
		zap.String("bus", cfg.Bus.Type),
		zap.String("base_path", cfg.Bus.BasePath),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("stratisd", logger.Logger)

	var (
		transport exposure.Transport
		b         *bus.Bus
	)
	if cfg.Bus.Type == "none" {
		logger.Warn("No message bus, objects are exposed in memory only")
		transport = exposure.NewMemoryTransport()
	} else {
		b, err = bus.Connect(cfg.Bus, logger.Named("bus").Logger)
		if err != nil {
			tracer.Close()
			return nil, err
		}
		transport = b
	}

	exp := exposure.New(cfg.Bus.BasePath, transport,
		exposure.WithLogger(logger.Named("exposure").Logger),
		exposure.WithMetrics(metrics),
	)
	reg := registry.New(id.NewAllocator(), exp,
		registry.WithLogger(logger.Named("registry").Logger),
		registry.WithMetrics(metrics),
	)

	if b != nil {
		svc := bus.NewService(reg, bus.Info{Version: version, Logger: logger},
			bus.WithLogger(logger.Named("dispatch").Logger),
			bus.WithMetrics(metrics),
			bus.WithTracer(tracer),
		)
		if err := b.Serve(svc); err != nil {
			_ = b.Close()
			tracer.Close()
			return nil, fmt.Errorf("failed to serve bus: %w", err)
		}
	}

	// Seed failures never stop the daemon
	if _, err := registry.NewSeeder(reg, cfg.Seed.Pattern, logger.Named("seed").Logger).Seed(); err != nil {
		logger.Warn("Seeding skipped", zap.Error(err))
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		bus:      b,
		registry: reg,
	}
	s.router = s.newRouter(version)

	logger.Info("Server initialized successfully", zap.Int("exposed", exp.Len()))
	return s, nil
}

func (s *Server) newRouter(version string) *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = s.config.RateLimit.RequestsPerSecond
		limits.Burst = s.config.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}
	router.Use(middleware.Gzip(gzip.DefaultCompression, "/metrics", "/events"))

	busName := s.config.Bus.Type
	if s.bus != nil {
		busName = s.config.Bus.Type + ":" + s.config.Bus.Name
	}
	apihttp.NewHandlers(s.registry, s.metrics, apihttp.Info{Version: version, Bus: busName}).Routes(router)

	events := ws.NewHandler(s.registry.Exposer(), s.metrics, s.logger.Named("events").Logger)
	router.GET("/events", events.HandleConnection)
	router.GET("/metrics", monitoring.Handler(s.metrics))

	return router
}

// Handler returns the status endpoint's router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the entity registry
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Run serves the status endpoint until ctx is done. With the endpoint
// disabled it only waits; the bus keeps serving either way.
func (s *Server) Run(ctx context.Context) error {
	if !s.config.Status.Enabled {
		s.logger.Info("Status endpoint disabled")
		<-ctx.Done()
		return nil
	}

	srv := &http.Server{
		Addr:              s.config.Status.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting status endpoint", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status endpoint: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down status endpoint: %w", err)
	}
	return nil
}

// Close releases the bus name and flushes logs
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var err error
	if s.bus != nil {
		if err = s.bus.Close(); err != nil {
			s.logger.Error("Failed to close bus connection", zap.Error(err))
			err = fmt.Errorf("failed to close bus connection: %w", err)
		} else {
			s.logger.Info("Closed bus connection")
		}
	}
	s.tracer.Close()

	_ = s.logger.Sync()
	return err
}
