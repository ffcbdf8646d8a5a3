package exposure

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/stratisd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/stratisd/internal/shared/id"
	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

// Manager binds entities to bus object paths
type Manager struct {
	base      string
	transport Transport
	logger    *zap.Logger
	metrics   *monitoring.Metrics

	mu      sync.RWMutex
	objects map[ObjectPath]Exposable

	subsMu sync.RWMutex
	subs   map[id.SubscriberID]chan Event
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager's logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics enables the exposed_objects gauge
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// New creates a manager that exports objects under basePath
func New(basePath string, transport Transport, opts ...Option) *Manager {
	m := &Manager{
		base:      basePath,
		transport: transport,
		logger:    zap.NewNop(),
		objects:   make(map[ObjectPath]Exposable),
		subs:      make(map[id.SubscriberID]chan Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BasePath returns the path prefix for exported objects
func (m *Manager) BasePath() string {
	return m.base
}

// PathFor returns the path an object is, or would be, exported at
func (m *Manager) PathFor(obj Exposable) ObjectPath {
	return ObjectPath(paths.ObjectPath(m.base, obj.ID()))
}

// Expose exports obj at {base}/{id}. It fails with AlreadyExists when the
// object is exposed or being exposed and with BadParam once it has been
// retired.
func (m *Manager) Expose(obj Exposable) (ObjectPath, error) {
	s := obj.slot()

	s.mu.Lock()
	switch {
	case s.retired:
		s.mu.Unlock()
		return "", status.Errorf(status.BadParam, "%s %d was retired and cannot be exposed again", obj.Kind(), obj.ID())
	case s.path != "" || s.exposing:
		s.mu.Unlock()
		return "", status.Errorf(status.AlreadyExists, "%s %d is already exposed", obj.Kind(), obj.ID())
	}
	s.exposing = true
	s.mu.Unlock()

	path := m.PathFor(obj)
	exported := false
	defer func() {
		// also runs when the transport panics
		if !exported {
			s.mu.Lock()
			s.exposing = false
			s.mu.Unlock()
		}
	}()
	if err := m.transport.Export(path, obj); err != nil {
		m.logger.Warn("export failed",
			zap.String("path", string(path)),
			zap.Stringer("kind", obj.Kind()),
			zap.Error(err))
		return "", status.Wrap(status.Error, err, fmt.Sprintf("export %s", path))
	}

	s.mu.Lock()
	s.exposing = false
	s.path = path
	s.mu.Unlock()
	exported = true

	m.mu.Lock()
	m.objects[path] = obj
	m.mu.Unlock()

	m.metrics.IncExposed(obj.Kind().String())
	m.publish(EventAdded, path, obj)
	m.logger.Debug("object exposed", zap.String("path", string(path)), zap.Stringer("kind", obj.Kind()))
	return path, nil
}

// Unexpose withdraws obj from the bus. An object without a handle is left
// alone. The handle is cleared before the transport is told, so a transport
// error never leaves a dangling path.
func (m *Manager) Unexpose(obj Exposable) error {
	s := obj.slot()

	s.mu.Lock()
	path := s.path
	if path == "" {
		s.mu.Unlock()
		return nil
	}
	s.path = ""
	s.retired = true
	s.mu.Unlock()

	m.mu.Lock()
	delete(m.objects, path)
	m.mu.Unlock()

	m.metrics.DecExposed(obj.Kind().String())

	var firstErr error
	if err := m.transport.Unexport(path, obj); err != nil {
		firstErr = status.Wrap(status.Error, err, fmt.Sprintf("unexport %s", path))
	}
	if err := m.transport.EmitRemoved(path, obj.Kind()); err != nil && firstErr == nil {
		firstErr = status.Wrap(status.Error, err, fmt.Sprintf("announce removal of %s", path))
	}
	if firstErr != nil {
		m.logger.Warn("unexport incomplete", zap.String("path", string(path)), zap.Error(firstErr))
	}

	m.publish(EventRemoved, path, obj)
	m.logger.Debug("object unexposed", zap.String("path", string(path)), zap.Stringer("kind", obj.Kind()))
	return firstErr
}

// Changed tells the transport that a property of obj changed. Objects
// that are not exposed, and transports that do not announce changes, are
// skipped.
func (m *Manager) Changed(obj Exposable, property string, value any) {
	n, ok := m.transport.(PropertyNotifier)
	if !ok {
		return
	}
	path, exposed := obj.slot().ObjectPath()
	if !exposed {
		return
	}
	if err := n.PropertyChanged(path, obj.Kind(), property, value); err != nil {
		m.logger.Warn("property change not announced",
			zap.String("path", string(path)),
			zap.String("property", property),
			zap.Error(err))
	}
}

// Resolve maps an exported path back to its object
func (m *Manager) Resolve(path ObjectPath) (Exposable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[path]
	if !ok {
		return nil, status.Errorf(status.NotFound, "no object at %s", path)
	}
	return obj, nil
}

// Paths lists every exported path in sorted order
func (m *Manager) Paths() []ObjectPath {
	m.mu.RLock()
	out := make([]ObjectPath, 0, len(m.objects))
	for p := range m.objects {
		out = append(out, p)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of exported objects
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
