package bus

import (
	"context"

	"github.com/godbus/dbus/v5"

	"github.com/GriffinCanCode/stratisd/internal/domain/registry"
	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

// ManagerObject is exported at {base}/Manager
type ManagerObject struct {
	svc *Service

	// notify announces a property change made through Set
	notify func(name string, value any)
}

var managerProperties = propertyTable[*ManagerObject]{
	"Version": {get: func(m *ManagerObject) any { return m.svc.info.Version }},
	"LogLevel": {
		get: func(m *ManagerObject) any { return m.svc.info.Logger.Level() },
		set: func(m *ManagerObject, v any) error {
			if err := m.svc.info.Logger.SetLevel(v.(string)); err != nil {
				return status.Wrap(status.BadParam, err, "set LogLevel")
			}
			return nil
		},
	},
}

func (m *ManagerObject) iface() string { return paths.ManagerInterface }

func (m *ManagerObject) props() propertyHandler {
	p := newProperties(m, paths.ManagerInterface, managerProperties)
	p.changed = m.notify
	return p
}

// ListPools returns the names of the live pools
func (m *ManagerObject) ListPools() ([]string, *dbus.Error) {
	var names []string
	m.svc.call("Manager.ListPools", func(context.Context) error {
		names = m.svc.reg.PoolNames()
		return nil
	})
	return names, nil
}

// CreatePool creates a pool over the named block devices
func (m *ManagerObject) CreatePool(name string, devices []string, raid uint16) (dbus.ObjectPath, uint16, string, *dbus.Error) {
	path := dbus.ObjectPath(paths.DefaultObjectPath)
	code, msg := m.svc.call("Manager.CreatePool", func(context.Context) error {
		specs := make([]registry.DeviceSpec, len(devices))
		for i, d := range devices {
			specs[i] = registry.DeviceSpec{Name: d}
		}
		p, err := m.svc.reg.CreatePool(registry.PoolSpec{
			Name:    name,
			Devices: specs,
			Raid:    registry.RaidLevel(raid),
		})
		if err != nil {
			return err
		}
		path = pathOrDefault(p)
		return nil
	})
	return path, code, msg, nil
}

// DestroyPool destroys a pool and everything in it. The reply carries the
// path the pool had.
func (m *ManagerObject) DestroyPool(name string) (dbus.ObjectPath, uint16, string, *dbus.Error) {
	path := dbus.ObjectPath(paths.DefaultObjectPath)
	code, msg := m.svc.call("Manager.DestroyPool", func(context.Context) error {
		p, err := m.svc.reg.Pool(name)
		if err != nil {
			return err
		}
		former := pathOrDefault(p)
		if err := m.svc.reg.DestroyPool(name); err != nil {
			return err
		}
		path = former
		return nil
	})
	return path, code, msg, nil
}

// GetPoolObjectPath resolves a pool name
func (m *ManagerObject) GetPoolObjectPath(name string) (dbus.ObjectPath, uint16, string, *dbus.Error) {
	return m.lookup("Manager.GetPoolObjectPath", func() (pathed, error) {
		return m.svc.reg.Pool(name)
	})
}

// GetVolumeObjectPath resolves a volume within a pool
func (m *ManagerObject) GetVolumeObjectPath(pool, name string) (dbus.ObjectPath, uint16, string, *dbus.Error) {
	return m.lookup("Manager.GetVolumeObjectPath", func() (pathed, error) {
		return m.svc.reg.Volume(pool, name)
	})
}

// GetDevObjectPath resolves a device name across all pools
func (m *ManagerObject) GetDevObjectPath(name string) (dbus.ObjectPath, uint16, string, *dbus.Error) {
	return m.lookup("Manager.GetDevObjectPath", func() (pathed, error) {
		return m.svc.reg.FindDevice(name)
	})
}

// GetCacheObjectPath resolves a cache device name across all pools
func (m *ManagerObject) GetCacheObjectPath(name string) (dbus.ObjectPath, uint16, string, *dbus.Error) {
	return m.lookup("Manager.GetCacheObjectPath", func() (pathed, error) {
		return m.svc.reg.FindCacheDevice(name)
	})
}

// GetErrorCodes lists every status code with its description
func (m *ManagerObject) GetErrorCodes() ([]CodeEntry, *dbus.Error) {
	codes := status.Codes()
	out := make([]CodeEntry, len(codes))
	for i, c := range codes {
		out[i] = CodeEntry{Code: uint16(c), Description: c.Description()}
	}
	return out, nil
}

// GetRaidLevels lists every raid level with its description
func (m *ManagerObject) GetRaidLevels() ([]CodeEntry, *dbus.Error) {
	levels := registry.RaidLevels()
	out := make([]CodeEntry, len(levels))
	for i, l := range levels {
		out[i] = CodeEntry{Code: uint16(l), Description: l.Description()}
	}
	return out, nil
}

// GetDevTypes lists every device type with its description
func (m *ManagerObject) GetDevTypes() ([]CodeEntry, *dbus.Error) {
	types := registry.DeviceTypes()
	out := make([]CodeEntry, len(types))
	for i, t := range types {
		out[i] = CodeEntry{Code: uint16(t), Description: t.Description()}
	}
	return out, nil
}

func (m *ManagerObject) lookup(method string, find func() (pathed, error)) (dbus.ObjectPath, uint16, string, *dbus.Error) {
	path := dbus.ObjectPath(paths.DefaultObjectPath)
	code, msg := m.svc.call(method, func(context.Context) error {
		obj, err := find()
		if err != nil {
			return err
		}
		path = pathOrDefault(obj)
		return nil
	})
	return path, code, msg, nil
}
