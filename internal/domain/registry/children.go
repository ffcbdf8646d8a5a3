package registry

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
	"github.com/GriffinCanCode/stratisd/internal/shared/utils"
)

// child is a volume or device
type child interface {
	comparable
	exposure.Exposable
	live() bool
	retire()
	commit()
}

// reserveChild claims name in table and inserts the entity built by build.
// On success the caller owns one p.pending count and must release it after
// commit or rollback.
func reserveChild[C child](r *Registry, p *Pool, table map[string]C, name string, build func(id uint64) C) (C, error) {
	var zero C

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.beginChild() {
		return zero, status.Errorf(status.PoolNotFound, "pool %q not found", p.Name())
	}
	if _, taken := table[name]; taken {
		p.pending.Done()
		return zero, status.Errorf(status.AlreadyExists, "%q already exists in pool %q", name, p.Name())
	}
	cid, err := r.ids.Next()
	if err != nil {
		p.pending.Done()
		return zero, err
	}

	c := build(cid)
	table[name] = c
	return c, nil
}

// publishChild exposes a reserved child and commits it. On any failure,
// including a panic unwinding through the transport, the child is withdrawn
// and its row removed so the name can be used again.
func publishChild[C child](r *Registry, p *Pool, table map[string]C, name string, c C) error {
	defer p.pending.Done()

	committed := false
	defer func() {
		if committed {
			return
		}
		r.unexpose(c)
		p.mu.Lock()
		if table[name] == c {
			delete(table, name)
		}
		p.mu.Unlock()
	}()

	if _, err := r.exposer.Expose(c); err != nil {
		return err
	}
	c.commit()
	committed = true
	return nil
}

// withdrawChild retires a live child, unexposes it and removes its row. It
// returns the path the child was exposed at.
func withdrawChild[C child](r *Registry, p *Pool, table map[string]C, name string, miss func() error) (exposure.ObjectPath, error) {
	p.mu.Lock()
	if !p.beginChild() {
		p.mu.Unlock()
		return "", status.Errorf(status.PoolNotFound, "pool %q not found", p.Name())
	}
	c, ok := table[name]
	if !ok || !c.live() {
		p.pending.Done()
		p.mu.Unlock()
		return "", miss()
	}
	c.retire()
	p.mu.Unlock()
	defer p.pending.Done()

	path := r.exposer.PathFor(c)
	r.unexpose(c)

	p.mu.Lock()
	if table[name] == c {
		delete(table, name)
	}
	p.mu.Unlock()
	return path, nil
}

// ============================================================================
// Volumes
// ============================================================================

// CreateVolume adds a volume to a live pool
func (r *Registry) CreateVolume(pool string, spec VolumeSpec) (v *Volume, err error) {
	defer r.observe("create_volume", &err)

	if err := utils.ValidateName(spec.Name, "volume name"); err != nil {
		return nil, err
	}
	if err := utils.RequireValue(spec.MountPoint, "mount point"); err != nil {
		return nil, err
	}
	if err := utils.RequireValue(spec.Quota, "quota"); err != nil {
		return nil, err
	}

	p, err := r.Pool(pool)
	if err != nil {
		return nil, err
	}
	return r.addVolume(p, spec, nil)
}

// CreateSnapshot adds a volume copied from source. The snapshot inherits
// the source's quota and is mounted under /stratis/<pool>/<name>.
func (r *Registry) CreateSnapshot(pool, source, name string) (v *Volume, err error) {
	defer r.observe("create_snapshot", &err)

	if err := utils.ValidateName(name, "snapshot name"); err != nil {
		return nil, err
	}
	src, err := r.Volume(pool, source)
	if err != nil {
		return nil, err
	}

	p := src.Pool()
	spec := VolumeSpec{
		Name:       name,
		MountPoint: paths.SnapshotMountPoint(p.Name(), name),
		Quota:      src.Quota(),
	}
	return r.addVolume(p, spec, src)
}

func (r *Registry) addVolume(p *Pool, spec VolumeSpec, origin *Volume) (*Volume, error) {
	v, err := reserveChild(r, p, p.volumes, spec.Name, func(vid uint64) *Volume {
		return &Volume{
			id:         vid,
			pool:       p,
			origin:     origin,
			name:       spec.Name,
			mountPoint: spec.MountPoint,
			quota:      spec.Quota,
		}
	})
	if err != nil {
		return nil, err
	}
	if err := publishChild(r, p, p.volumes, spec.Name, v); err != nil {
		return nil, err
	}

	r.logger.Debug("volume created",
		zap.String("pool", p.Name()),
		zap.String("volume", spec.Name),
		zap.Uint64("id", v.id),
		zap.String("origin", v.OriginName()))
	return v, nil
}

// DestroyVolume removes a volume from its pool
func (r *Registry) DestroyVolume(pool, name string) error {
	_, err := r.destroyVolume(pool, name)
	return err
}

func (r *Registry) destroyVolume(pool, name string) (path exposure.ObjectPath, err error) {
	defer r.observe("destroy_volume", &err)

	p, err := r.Pool(pool)
	if err != nil {
		return "", err
	}
	return withdrawChild(r, p, p.volumes, name, func() error {
		return status.Errorf(status.VolumeNotFound, "volume %q not found in pool %q", name, pool)
	})
}

// RenameVolume renames a live volume within its pool. Renaming to the
// current name is a no-op reported as false.
func (r *Registry) RenameVolume(pool, from, to string) (changed bool, err error) {
	defer r.observe("rename_volume", &err)

	if err := utils.ValidateName(to, "volume name"); err != nil {
		return false, err
	}
	p, err := r.Pool(pool)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	v, ok := p.volumes[from]
	if !ok || !v.live() {
		p.mu.Unlock()
		return false, status.Errorf(status.VolumeNotFound, "volume %q not found in pool %q", from, pool)
	}
	if from == to {
		p.mu.Unlock()
		return false, nil
	}
	if _, taken := p.volumes[to]; taken {
		p.mu.Unlock()
		return false, status.Errorf(status.AlreadyExists, "volume %q already exists in pool %q", to, pool)
	}
	delete(p.volumes, from)
	p.volumes[to] = v
	v.setName(to)
	p.mu.Unlock()

	r.changed(v, "Name", to)
	return true, nil
}

// ============================================================================
// Devices
// ============================================================================

// AddDevice attaches a regular device to a live pool
func (r *Registry) AddDevice(pool string, spec DeviceSpec) (*Device, error) {
	return r.addDevice(pool, spec, exposure.KindDevice)
}

// AddCacheDevice attaches a cache device to a live pool
func (r *Registry) AddCacheDevice(pool string, spec DeviceSpec) (*Device, error) {
	return r.addDevice(pool, spec, exposure.KindCache)
}

func (r *Registry) addDevice(pool string, spec DeviceSpec, kind exposure.Kind) (d *Device, err error) {
	defer r.observe("add_"+kind.String(), &err)

	if err := utils.ValidateName(spec.Name, "device name"); err != nil {
		return nil, err
	}
	if !spec.Type.Valid() {
		return nil, status.Errorf(status.BadParam, "device %q has unknown type %d", spec.Name, uint16(spec.Type))
	}
	p, err := r.Pool(pool)
	if err != nil {
		return nil, err
	}

	table := p.table(kind)
	d, err = reserveChild(r, p, table, spec.Name, func(did uint64) *Device {
		return newDevice(p, did, kind, spec)
	})
	if err != nil {
		return nil, err
	}
	if err := publishChild(r, p, table, spec.Name, d); err != nil {
		return nil, err
	}
	return d, nil
}

// RemoveDevice detaches a regular device
func (r *Registry) RemoveDevice(pool, name string) error {
	_, err := r.removeDevice(pool, name, exposure.KindDevice)
	return err
}

// RemoveCacheDevice detaches a cache device
func (r *Registry) RemoveCacheDevice(pool, name string) error {
	_, err := r.removeDevice(pool, name, exposure.KindCache)
	return err
}

func (r *Registry) removeDevice(pool, name string, kind exposure.Kind) (path exposure.ObjectPath, err error) {
	defer r.observe("remove_"+kind.String(), &err)

	p, err := r.Pool(pool)
	if err != nil {
		return "", err
	}
	return withdrawChild(r, p, p.table(kind), name, func() error {
		return deviceMiss(kind, pool, name)
	})
}
