package registry

import (
	"github.com/GriffinCanCode/stratisd/internal/domain/batch"
	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
)

// Bulk forms of the single-entity operations. Each returns one result per
// input item in input order; the error is non-nil only when the pool is
// missing or the batch was abandoned.

// CreateVolumes creates each volume in turn
func (r *Registry) CreateVolumes(pool string, specs []VolumeSpec) (*batch.Report, error) {
	if _, err := r.Pool(pool); err != nil {
		return nil, err
	}
	return batch.Execute(r.executor("create_volumes"), specs,
		func(s VolumeSpec) string { return s.Name },
		func(s VolumeSpec) (string, error) {
			v, err := r.CreateVolume(pool, s)
			if err != nil {
				return "", err
			}
			return pathOf(v), nil
		})
}

// DestroyVolumes destroys each named volume in turn. A result's path is the
// one the volume was exposed at.
func (r *Registry) DestroyVolumes(pool string, names []string) (*batch.Report, error) {
	if _, err := r.Pool(pool); err != nil {
		return nil, err
	}
	return batch.Execute(r.executor("destroy_volumes"), names, identity,
		func(name string) (string, error) {
			path, err := r.destroyVolume(pool, name)
			return string(path), err
		})
}

// AddDevices attaches each regular device in turn
func (r *Registry) AddDevices(pool string, specs []DeviceSpec) (*batch.Report, error) {
	return r.addDevices("add_devices", pool, specs, exposure.KindDevice)
}

// AddCacheDevices attaches each cache device in turn
func (r *Registry) AddCacheDevices(pool string, specs []DeviceSpec) (*batch.Report, error) {
	return r.addDevices("add_cache_devices", pool, specs, exposure.KindCache)
}

func (r *Registry) addDevices(op, pool string, specs []DeviceSpec, kind exposure.Kind) (*batch.Report, error) {
	if _, err := r.Pool(pool); err != nil {
		return nil, err
	}
	return batch.Execute(r.executor(op), specs,
		func(s DeviceSpec) string { return s.Name },
		func(s DeviceSpec) (string, error) {
			d, err := r.addDevice(pool, s, kind)
			if err != nil {
				return "", err
			}
			return pathOf(d), nil
		})
}

// RemoveDevices detaches each named regular device in turn
func (r *Registry) RemoveDevices(pool string, names []string) (*batch.Report, error) {
	return r.removeDevices("remove_devices", pool, names, exposure.KindDevice)
}

// RemoveCacheDevices detaches each named cache device in turn
func (r *Registry) RemoveCacheDevices(pool string, names []string) (*batch.Report, error) {
	return r.removeDevices("remove_cache_devices", pool, names, exposure.KindCache)
}

func (r *Registry) removeDevices(op, pool string, names []string, kind exposure.Kind) (*batch.Report, error) {
	if _, err := r.Pool(pool); err != nil {
		return nil, err
	}
	return batch.Execute(r.executor(op), names, identity,
		func(name string) (string, error) {
			path, err := r.removeDevice(pool, name, kind)
			return string(path), err
		})
}

func (r *Registry) executor(op string) *batch.Executor {
	return batch.NewExecutor(op, r.logger, r.metrics)
}

func pathOf(obj interface {
	ObjectPath() (exposure.ObjectPath, bool)
}) string {
	p, _ := obj.ObjectPath()
	return string(p)
}

func identity(s string) string { return s }
