package bus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/domain/registry"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/logging"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

const errorPrefix = paths.ServiceName + ".Error."

// Info is the daemon-wide state reported by the Manager object
type Info struct {
	Version string
	Logger  *logging.Logger
}

// Service builds the bus objects for registry entities and runs every
// method call through tracing and metrics.
type Service struct {
	reg     *registry.Registry
	exp     *exposure.Manager
	info    Info
	logger  *zap.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service's logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records bus_calls_total for every call
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithTracer runs every call under a span
func WithTracer(tracer *tracing.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// NewService creates the dispatch layer over reg
func NewService(reg *registry.Registry, info Info, opts ...Option) *Service {
	if info.Logger == nil {
		info.Logger = logging.NewNop()
	}
	s := &Service{
		reg:    reg,
		exp:    reg.Exposer(),
		info:   info,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Manager returns the singleton Manager object
func (s *Service) Manager() *ManagerObject {
	return &ManagerObject{svc: s}
}

// entityObject is the bus face of one registry entity
type entityObject interface {
	iface() string
	props() propertyHandler
}

// object builds the bus face of an exposed entity
func (s *Service) object(obj exposure.Exposable) (entityObject, error) {
	switch e := obj.(type) {
	case *registry.Pool:
		return &PoolObject{svc: s, pool: e}, nil
	case *registry.Volume:
		return &VolumeObject{svc: s, vol: e}, nil
	case *registry.Device:
		return &DeviceObject{svc: s, dev: e}, nil
	}
	return nil, fmt.Errorf("no bus object for %s %d (%T)", obj.Kind(), obj.ID(), obj)
}

// call runs fn as bus method method and returns the status pair for the
// reply
func (s *Service) call(method string, fn func(ctx context.Context) error) (uint16, string) {
	timer := monitoring.NewTimer(s.metrics, method)

	var err error
	if s.tracer != nil {
		_ = s.tracer.Run(context.Background(), method, func(ctx context.Context) (string, error) {
			err = fn(ctx)
			return status.CodeOf(err).String(), err
		})
	} else {
		err = fn(context.Background())
	}

	code := status.CodeOf(err)
	timer.Stop(code.String())
	if err != nil {
		s.logger.Debug("bus call failed",
			zap.String("method", method),
			zap.Stringer("code", code),
			zap.Error(err))
	}
	return uint16(code), status.Message(err)
}

// pathed is any exposed entity
type pathed interface {
	ObjectPath() (exposure.ObjectPath, bool)
}

// pathOrDefault returns the object's path, or "/" when it has none
func pathOrDefault(obj pathed) dbus.ObjectPath {
	if p, ok := obj.ObjectPath(); ok {
		return dbus.ObjectPath(p)
	}
	return paths.DefaultObjectPath
}

// ItemResult is the per-item reply of a bulk method, signature (oqs)
type ItemResult struct {
	Path    dbus.ObjectPath
	Code    uint16
	Message string
}

// CodeEntry describes one enum value, signature (qs)
type CodeEntry struct {
	Code        uint16
	Description string
}
