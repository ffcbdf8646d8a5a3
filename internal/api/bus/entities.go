package bus

import (
	"context"

	"github.com/godbus/dbus/v5"

	"github.com/GriffinCanCode/stratisd/internal/domain/batch"
	"github.com/GriffinCanCode/stratisd/internal/domain/registry"
	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

// VolumeArg is one entry of CreateVolumes, signature (sss)
type VolumeArg struct {
	Name       string
	MountPoint string
	Quota      string
}

// ============================================================================
// Pool
// ============================================================================

// PoolObject is the bus face of a pool
type PoolObject struct {
	svc  *Service
	pool *registry.Pool
}

var poolProperties = propertyTable[*registry.Pool]{
	"Name":      {get: func(p *registry.Pool) any { return p.Name() }},
	"Id":        {get: func(p *registry.Pool) any { return p.ID() }},
	"Uuid":      {get: func(p *registry.Pool) any { return p.UUID().String() }},
	"RaidLevel": {get: func(p *registry.Pool) any { return uint16(p.Raid()) }},
	"Size": {
		get: func(p *registry.Pool) any { return p.Size() },
		set: func(p *registry.Pool, v any) error {
			p.SetSize(v.(uint64))
			return nil
		},
	},
}

func (o *PoolObject) iface() string { return paths.PoolInterface }

func (o *PoolObject) props() propertyHandler {
	return newProperties(o.pool, paths.PoolInterface, poolProperties)
}

// CreateVolumes creates each volume in turn
func (o *PoolObject) CreateVolumes(specs []VolumeArg) ([]ItemResult, uint16, string, *dbus.Error) {
	return o.bulk("Pool.CreateVolumes", func(name string) (*batch.Report, error) {
		in := make([]registry.VolumeSpec, len(specs))
		for i, s := range specs {
			in[i] = registry.VolumeSpec{Name: s.Name, MountPoint: s.MountPoint, Quota: s.Quota}
		}
		return o.svc.reg.CreateVolumes(name, in)
	})
}

// DestroyVolumes destroys each named volume in turn
func (o *PoolObject) DestroyVolumes(names []string) ([]ItemResult, uint16, string, *dbus.Error) {
	return o.bulk("Pool.DestroyVolumes", func(pool string) (*batch.Report, error) {
		return o.svc.reg.DestroyVolumes(pool, names)
	})
}

// AddDevs attaches each named regular device in turn
func (o *PoolObject) AddDevs(names []string) ([]ItemResult, uint16, string, *dbus.Error) {
	return o.bulk("Pool.AddDevs", func(pool string) (*batch.Report, error) {
		return o.svc.reg.AddDevices(pool, deviceSpecs(names))
	})
}

// AddCacheDevs attaches each named cache device in turn. It replies with a
// single path: the new device's when exactly one was added, "/" otherwise.
func (o *PoolObject) AddCacheDevs(names []string) (dbus.ObjectPath, uint16, string, *dbus.Error) {
	results, code, msg, _ := o.bulk("Pool.AddCacheDevs", func(pool string) (*batch.Report, error) {
		return o.svc.reg.AddCacheDevices(pool, deviceSpecs(names))
	})

	path := dbus.ObjectPath("/")
	added := 0
	for _, r := range results {
		if r.Code == uint16(status.OK) {
			path = r.Path
			added++
		}
	}
	if added != 1 {
		path = "/"
	}
	return path, code, msg, nil
}

// RemoveDevs detaches each named regular device and reports only the
// aggregate outcome
func (o *PoolObject) RemoveDevs(names []string) (uint16, string, *dbus.Error) {
	_, code, msg, _ := o.bulk("Pool.RemoveDevs", func(pool string) (*batch.Report, error) {
		return o.svc.reg.RemoveDevices(pool, names)
	})
	return code, msg, nil
}

// RemoveCacheDevs detaches each named cache device and reports only the
// aggregate outcome
func (o *PoolObject) RemoveCacheDevs(names []string) (uint16, string, *dbus.Error) {
	_, code, msg, _ := o.bulk("Pool.RemoveCacheDevs", func(pool string) (*batch.Report, error) {
		return o.svc.reg.RemoveCacheDevices(pool, names)
	})
	return code, msg, nil
}

// ListVolumes returns the pool's volume names
func (o *PoolObject) ListVolumes() ([]string, *dbus.Error) {
	return o.list("Pool.ListVolumes", o.pool.VolumeNames)
}

// ListDevs returns the pool's regular device names
func (o *PoolObject) ListDevs() ([]string, *dbus.Error) {
	return o.list("Pool.ListDevs", o.pool.DeviceNames)
}

// ListCacheDevs returns the pool's cache device names
func (o *PoolObject) ListCacheDevs() ([]string, *dbus.Error) {
	return o.list("Pool.ListCacheDevs", o.pool.CacheDeviceNames)
}

// Rename renames the pool; its path does not change
func (o *PoolObject) Rename(name string) (uint16, string, *dbus.Error) {
	code, msg := o.svc.call("Pool.Rename", func(context.Context) error {
		_, err := o.svc.reg.RenamePool(o.pool.Name(), name)
		return err
	})
	return code, msg, nil
}

func (o *PoolObject) list(method string, names func() []string) ([]string, *dbus.Error) {
	var out []string
	o.svc.call(method, func(context.Context) error {
		out = names()
		return nil
	})
	return out, nil
}

// bulk runs a registry bulk operation against the pool's current name and
// converts the report
func (o *PoolObject) bulk(method string, run func(pool string) (*batch.Report, error)) ([]ItemResult, uint16, string, *dbus.Error) {
	results := []ItemResult{}
	code, msg := o.svc.call(method, func(context.Context) error {
		rep, err := run(o.pool.Name())
		if err != nil {
			return err
		}
		results = itemResults(rep)
		return reportError(rep)
	})
	return results, code, msg, nil
}

// ============================================================================
// Volume
// ============================================================================

// VolumeObject is the bus face of a volume or snapshot
type VolumeObject struct {
	svc *Service
	vol *registry.Volume
}

var volumeProperties = propertyTable[*registry.Volume]{
	"Name": {get: func(v *registry.Volume) any { return v.Name() }},
	"Id":   {get: func(v *registry.Volume) any { return v.ID() }},
	"Origin": {get: func(v *registry.Volume) any {
		return v.OriginName()
	}},
	"MountPoint": {
		get: func(v *registry.Volume) any { return v.MountPoint() },
		set: func(v *registry.Volume, val any) error { return v.SetMountPoint(val.(string)) },
	},
	"Quota": {
		get: func(v *registry.Volume) any { return v.Quota() },
		set: func(v *registry.Volume, val any) error { return v.SetQuota(val.(string)) },
	},
}

func (o *VolumeObject) iface() string { return paths.VolumeInterface }

func (o *VolumeObject) props() propertyHandler {
	return newProperties(o.vol, paths.VolumeInterface, volumeProperties)
}

// Rename renames the volume within its pool; its path does not change
func (o *VolumeObject) Rename(name string) (uint16, string, *dbus.Error) {
	code, msg := o.svc.call("Volume.Rename", func(context.Context) error {
		_, err := o.svc.reg.RenameVolume(o.vol.Pool().Name(), o.vol.Name(), name)
		return err
	})
	return code, msg, nil
}

// CreateSnapshot copies the volume into a new one called name
func (o *VolumeObject) CreateSnapshot(name string) (dbus.ObjectPath, uint16, string, *dbus.Error) {
	path := dbus.ObjectPath(paths.DefaultObjectPath)
	code, msg := o.svc.call("Volume.CreateSnapshot", func(context.Context) error {
		snap, err := o.svc.reg.CreateSnapshot(o.vol.Pool().Name(), o.vol.Name(), name)
		if err != nil {
			return err
		}
		path = pathOrDefault(snap)
		return nil
	})
	return path, code, msg, nil
}

// ============================================================================
// Device
// ============================================================================

// DeviceObject is the bus face of a regular or cache device. It has
// properties only.
type DeviceObject struct {
	svc *Service
	dev *registry.Device
}

var deviceProperties = propertyTable[*registry.Device]{
	"Name": {get: func(d *registry.Device) any { return d.Name() }},
	"Id":   {get: func(d *registry.Device) any { return d.ID() }},
	"Type": {get: func(d *registry.Device) any { return uint16(d.Type()) }},
	"Size": {
		get: func(d *registry.Device) any { return d.Size() },
		set: func(d *registry.Device, v any) error {
			d.SetSize(v.(uint64))
			return nil
		},
	},
}

func (o *DeviceObject) iface() string { return o.dev.Kind().Interface() }

func (o *DeviceObject) props() propertyHandler {
	return newProperties(o.dev, o.iface(), deviceProperties)
}

// ============================================================================
// Helpers
// ============================================================================

func deviceSpecs(names []string) []registry.DeviceSpec {
	out := make([]registry.DeviceSpec, len(names))
	for i, n := range names {
		out[i] = registry.DeviceSpec{Name: n}
	}
	return out
}

func itemResults(rep *batch.Report) []ItemResult {
	out := make([]ItemResult, len(rep.Results))
	for i, r := range rep.Results {
		path := dbus.ObjectPath(r.Path)
		if path == "" {
			path = paths.DefaultObjectPath
		}
		out[i] = ItemResult{Path: path, Code: uint16(r.Code), Message: r.Message}
	}
	return out
}

// reportError carries a report's aggregate code back through call
func reportError(rep *batch.Report) error {
	if rep.Code == status.OK {
		return nil
	}
	return status.Errorf(rep.Code, "%s", rep.Message)
}
