package bus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/config"
	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
)

const (
	introspectableInterface = "org.freedesktop.DBus.Introspectable"
	interfacesAdded         = paths.ObjectManagerInterface + ".InterfacesAdded"
	propertiesChanged       = paths.PropertiesInterface + ".PropertiesChanged"
)

// Conn is the part of *dbus.Conn the daemon uses
type Conn interface {
	Export(v interface{}, path dbus.ObjectPath, iface string) error
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	Close() error
}

// ErrNotServing is returned by Export before Serve has attached a service
var ErrNotServing = errors.New("bus: no service attached")

// exported is what Bus keeps per object path
type exported struct {
	iface string
	props propertyHandler
}

// Bus is the D-Bus transport. It implements exposure.Transport and
// exposure.PropertyNotifier.
type Bus struct {
	conn   Conn
	name   string
	base   dbus.ObjectPath
	logger *zap.Logger

	mu      sync.RWMutex
	svc     *Service
	objects map[dbus.ObjectPath]exported
}

// Connect dials the bus named by cfg.Type. The well-known name is requested
// by Serve.
func Connect(cfg config.BusConfig, logger *zap.Logger) (*Bus, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch cfg.Type {
	case "system":
		conn, err = dbus.ConnectSystemBus()
	case "session":
		conn, err = dbus.ConnectSessionBus()
	default:
		return nil, fmt.Errorf("unsupported bus type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s bus: %w", cfg.Type, err)
	}
	return New(conn, cfg.Name, cfg.BasePath, logger), nil
}

// New wraps an established connection
func New(conn Conn, name, basePath string, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		conn:    conn,
		name:    name,
		base:    dbus.ObjectPath(basePath),
		logger:  logger,
		objects: make(map[dbus.ObjectPath]exported),
	}
}

// Serve exports the Manager and ObjectManager objects, attaches svc for
// entity exports and claims the well-known name.
func (b *Bus) Serve(svc *Service) error {
	b.mu.Lock()
	b.svc = svc
	b.mu.Unlock()

	managerPath := b.base + "/Manager"
	mgr := svc.Manager()
	mgr.notify = func(name string, value any) {
		if err := b.emitChanged(managerPath, paths.ManagerInterface, name, value); err != nil {
			b.logger.Warn("property change not announced", zap.String("property", name), zap.Error(err))
		}
	}
	if err := b.exportObject(managerPath, mgr, mgr.iface(), mgr.props()); err != nil {
		return fmt.Errorf("failed to export manager: %w", err)
	}

	om := &objectManager{bus: b}
	if err := b.conn.Export(om, b.base, paths.ObjectManagerInterface); err != nil {
		return fmt.Errorf("failed to export object manager: %w", err)
	}

	reply, err := b.conn.RequestName(b.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request name %s: %w", b.name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken", b.name)
	}

	b.logger.Info("bus service ready",
		zap.String("name", b.name),
		zap.String("manager", string(managerPath)))
	return nil
}

// Export implements exposure.Transport
func (b *Bus) Export(path exposure.ObjectPath, obj exposure.Exposable) error {
	b.mu.RLock()
	svc := b.svc
	b.mu.RUnlock()
	if svc == nil {
		return ErrNotServing
	}

	eo, err := svc.object(obj)
	if err != nil {
		return err
	}
	p := dbus.ObjectPath(path)
	props := eo.props()
	if err := b.exportObject(p, eo, eo.iface(), props); err != nil {
		return err
	}

	added := map[string]map[string]dbus.Variant{eo.iface(): props.values()}
	if err := b.conn.Emit(b.base, interfacesAdded, p, added); err != nil {
		b.logger.Warn("InterfacesAdded not sent", zap.String("path", string(p)), zap.Error(err))
	}
	return nil
}

// exportObject exports methods, properties and introspection data at path.
// A partial export is undone.
func (b *Bus) exportObject(path dbus.ObjectPath, methods any, iface string, props propertyHandler) error {
	if !path.IsValid() {
		return fmt.Errorf("invalid object path %q", path)
	}

	b.mu.Lock()
	_, taken := b.objects[path]
	b.mu.Unlock()
	if taken {
		return fmt.Errorf("path %s already exported", path)
	}

	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			{
				Name:       iface,
				Methods:    introspect.Methods(methods),
				Properties: props.introspection(),
			},
			prop.IntrospectData,
		},
	}

	steps := []struct {
		v     any
		iface string
	}{
		{methods, iface},
		{props, paths.PropertiesInterface},
		{introspect.NewIntrospectable(node), introspectableInterface},
	}
	for i, s := range steps {
		if err := b.conn.Export(s.v, path, s.iface); err != nil {
			for _, done := range steps[:i] {
				_ = b.conn.Export(nil, path, done.iface)
			}
			return fmt.Errorf("export %s on %s: %w", s.iface, path, err)
		}
	}

	b.mu.Lock()
	b.objects[path] = exported{iface: iface, props: props}
	b.mu.Unlock()
	return nil
}

// Unexport implements exposure.Transport
func (b *Bus) Unexport(path exposure.ObjectPath, _ exposure.Exposable) error {
	p := dbus.ObjectPath(path)

	b.mu.Lock()
	obj, ok := b.objects[p]
	delete(b.objects, p)
	b.mu.Unlock()
	if !ok {
		return nil
	}

	var errs []error
	for _, iface := range []string{obj.iface, paths.PropertiesInterface, introspectableInterface} {
		if err := b.conn.Export(nil, p, iface); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EmitRemoved implements exposure.Transport
func (b *Bus) EmitRemoved(path exposure.ObjectPath, kind exposure.Kind) error {
	ifaces := []string{kind.Interface(), paths.PropertiesInterface}
	return b.conn.Emit(b.base, paths.InterfacesRemoved, dbus.ObjectPath(path), ifaces)
}

// PropertyChanged implements exposure.PropertyNotifier
func (b *Bus) PropertyChanged(path exposure.ObjectPath, kind exposure.Kind, property string, value any) error {
	return b.emitChanged(dbus.ObjectPath(path), kind.Interface(), property, value)
}

func (b *Bus) emitChanged(path dbus.ObjectPath, iface, property string, value any) error {
	changed := map[string]dbus.Variant{property: dbus.MakeVariant(value)}
	return b.conn.Emit(path, propertiesChanged, iface, changed, []string{})
}

// Close drops the connection
func (b *Bus) Close() error {
	return b.conn.Close()
}

// objectManager serves org.freedesktop.DBus.ObjectManager at the base path
type objectManager struct {
	bus *Bus
}

// GetManagedObjects returns every exported entity with its properties
func (o *objectManager) GetManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	o.bus.mu.RLock()
	defer o.bus.mu.RUnlock()

	out := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant, len(o.bus.objects))
	for path, obj := range o.bus.objects {
		out[path] = map[string]map[string]dbus.Variant{obj.iface: obj.props.values()}
	}
	return out, nil
}
