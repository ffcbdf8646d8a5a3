package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/stratisd/internal/shared/id"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
	"github.com/GriffinCanCode/stratisd/internal/shared/utils"
)

// Registry owns every pool and, through them, every volume and device.
//
// Lock order is registry → pool → entity. Calls into the exposure manager
// are made with no registry or pool lock held: a create reserves its row
// under lock, exposes it unlocked, then commits or rolls back.
type Registry struct {
	ids     *id.Allocator
	exposer *exposure.Manager
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu    sync.RWMutex
	pools map[string]*Pool
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the registry's logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics enables registry metrics
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// New creates an empty registry
func New(ids *id.Allocator, exposer *exposure.Manager, opts ...Option) *Registry {
	r := &Registry{
		ids:     ids,
		exposer: exposer,
		logger:  zap.NewNop(),
		pools:   make(map[string]*Pool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Exposer returns the exposure manager the registry publishes through
func (r *Registry) Exposer() *exposure.Manager {
	return r.exposer
}

// ============================================================================
// Pools
// ============================================================================

// CreatePool validates spec, reserves the pool and its devices, exposes
// them, then makes the pool visible. Nothing is left behind on failure.
func (r *Registry) CreatePool(spec PoolSpec) (p *Pool, err error) {
	defer r.observe("create_pool", &err)

	if err := utils.ValidateName(spec.Name, "pool name"); err != nil {
		return nil, err
	}
	if !spec.Raid.Valid() {
		return nil, status.Errorf(status.BadParam, "raid level %d out of range", uint16(spec.Raid))
	}
	names := make([]string, len(spec.Devices))
	for i, d := range spec.Devices {
		if !d.Type.Valid() {
			return nil, status.Errorf(status.BadParam, "device %q has unknown type %d", d.Name, uint16(d.Type))
		}
		names[i] = d.Name
	}
	if err := utils.ValidateNames(names, "device name"); err != nil {
		return nil, err
	}

	p, err = r.reservePool(spec)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			r.rollbackPool(p)
		}
	}()
	if err := r.exposePool(p); err != nil {
		return nil, err
	}

	for _, d := range p.devices {
		d.commit()
	}
	p.commit()
	committed = true

	r.metrics.SetRegistryPools(r.livePoolCount())
	r.logger.Info("pool created",
		zap.String("pool", spec.Name),
		zap.Uint64("id", p.id),
		zap.Int("devices", len(spec.Devices)),
		zap.Stringer("raid", spec.Raid))
	return p, nil
}

// reservePool allocates ids and inserts the pool, not yet visible, with
// copies of its device specs attached.
func (r *Registry) reservePool(spec PoolSpec) (*Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.pools[spec.Name]; taken {
		return nil, status.Errorf(status.DuplicateName, "pool %q already exists", spec.Name)
	}

	pid, err := r.ids.Next()
	if err != nil {
		return nil, err
	}
	p := newPool(r, pid, spec)

	var size uint64
	for _, ds := range spec.Devices {
		did, err := r.ids.Next()
		if err != nil {
			return nil, err
		}
		p.devices[ds.Name] = newDevice(p, did, exposure.KindDevice, ds)
		size += ds.Size
	}
	p.size = size

	r.pools[spec.Name] = p
	return p, nil
}

func (r *Registry) exposePool(p *Pool) error {
	if _, err := r.exposer.Expose(p); err != nil {
		return err
	}
	for _, d := range sortedByID(p.devices) {
		if _, err := r.exposer.Expose(d); err != nil {
			return err
		}
	}
	return nil
}

// rollbackPool withdraws a reserved pool: children first, then the pool,
// then its row.
func (r *Registry) rollbackPool(p *Pool) {
	for _, d := range sortedByID(p.devices) {
		r.unexpose(d)
	}
	r.unexpose(p)

	r.mu.Lock()
	if r.pools[p.name] == p {
		delete(r.pools, p.name)
	}
	r.mu.Unlock()
}

// DestroyPool tears down a live pool and every entity it owns
func (r *Registry) DestroyPool(name string) (err error) {
	defer r.observe("destroy_pool", &err)

	r.mu.Lock()
	p, ok := r.pools[name]
	if !ok || !p.live() {
		r.mu.Unlock()
		return status.Errorf(status.PoolNotFound, "pool %q not found", name)
	}
	p.mu.Lock()
	p.retire()
	p.mu.Unlock()
	r.mu.Unlock()

	// No new child can start now; let the in-flight ones settle
	p.pending.Wait()

	p.mu.Lock()
	vols := sortedByID(p.volumes)
	devs := sortedByID(p.devices)
	cache := sortedByID(p.cacheDevices)
	for _, v := range vols {
		v.retire()
	}
	for _, d := range append(devs, cache...) {
		d.retire()
	}
	p.mu.Unlock()

	for _, v := range vols {
		r.unexpose(v)
	}
	for _, d := range devs {
		r.unexpose(d)
	}
	for _, d := range cache {
		r.unexpose(d)
	}

	p.mu.Lock()
	clear(p.volumes)
	clear(p.devices)
	clear(p.cacheDevices)
	p.mu.Unlock()

	r.unexpose(p)

	r.mu.Lock()
	delete(r.pools, p.Name())
	r.mu.Unlock()

	r.metrics.SetRegistryPools(r.livePoolCount())
	r.logger.Info("pool destroyed",
		zap.String("pool", name),
		zap.Uint64("id", p.id),
		zap.Int("volumes", len(vols)),
		zap.Int("devices", len(devs)),
		zap.Int("cache_devices", len(cache)))
	return nil
}

// RenamePool renames a live pool. Renaming to the current name is a no-op
// reported as false.
func (r *Registry) RenamePool(from, to string) (changed bool, err error) {
	defer r.observe("rename_pool", &err)

	if err := utils.ValidateName(to, "pool name"); err != nil {
		return false, err
	}

	r.mu.Lock()
	p, ok := r.pools[from]
	if !ok || !p.live() {
		r.mu.Unlock()
		return false, status.Errorf(status.PoolNotFound, "pool %q not found", from)
	}
	if from == to {
		r.mu.Unlock()
		return false, nil
	}
	if _, taken := r.pools[to]; taken {
		r.mu.Unlock()
		return false, status.Errorf(status.AlreadyExists, "pool %q already exists", to)
	}
	delete(r.pools, from)
	r.pools[to] = p
	p.setName(to)
	r.mu.Unlock()

	r.changed(p, "Name", to)
	r.logger.Info("pool renamed", zap.String("from", from), zap.String("to", to))
	return true, nil
}

// Pool returns a live pool by name
func (r *Registry) Pool(name string) (*Pool, error) {
	r.mu.RLock()
	p, ok := r.pools[name]
	r.mu.RUnlock()

	if !ok || !p.live() {
		return nil, status.Errorf(status.PoolNotFound, "pool %q not found", name)
	}
	return p, nil
}

// Pools returns the live pools sorted by id
func (r *Registry) Pools() []*Pool {
	r.mu.RLock()
	out := make([]*Pool, 0, len(r.pools))
	for _, p := range r.pools {
		if p.live() {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// PoolNames returns the names of the live pools sorted by id
func (r *Registry) PoolNames() []string {
	pools := r.Pools()
	out := make([]string, len(pools))
	for i, p := range pools {
		out[i] = p.Name()
	}
	return out
}

func (r *Registry) livePoolCount() int {
	return len(r.Pools())
}

// ============================================================================
// Lookups
// ============================================================================

// Volume returns a live volume
func (r *Registry) Volume(pool, name string) (*Volume, error) {
	p, err := r.Pool(pool)
	if err != nil {
		return nil, err
	}
	p.mu.RLock()
	v, ok := p.volumes[name]
	p.mu.RUnlock()

	if !ok || !v.live() {
		return nil, status.Errorf(status.VolumeNotFound, "volume %q not found in pool %q", name, pool)
	}
	return v, nil
}

// Device returns a live regular device
func (r *Registry) Device(pool, name string) (*Device, error) {
	return r.lookupDevice(pool, name, exposure.KindDevice)
}

// CacheDevice returns a live cache device
func (r *Registry) CacheDevice(pool, name string) (*Device, error) {
	return r.lookupDevice(pool, name, exposure.KindCache)
}

func (r *Registry) lookupDevice(pool, name string, kind exposure.Kind) (*Device, error) {
	p, err := r.Pool(pool)
	if err != nil {
		return nil, err
	}
	p.mu.RLock()
	d, ok := p.table(kind)[name]
	p.mu.RUnlock()

	if !ok || !d.live() {
		return nil, deviceMiss(kind, pool, name)
	}
	return d, nil
}

// FindDevice returns the live device or cache device called name with the
// lowest id across all pools
func (r *Registry) FindDevice(name string) (*Device, error) {
	if d := r.findDevice(name, exposure.KindDevice, exposure.KindCache); d != nil {
		return d, nil
	}
	return nil, status.Errorf(status.DevNotFound, "device %q not found", name)
}

// FindCacheDevice returns the live cache device called name with the lowest
// id across all pools
func (r *Registry) FindCacheDevice(name string) (*Device, error) {
	if d := r.findDevice(name, exposure.KindCache); d != nil {
		return d, nil
	}
	return nil, status.Errorf(status.CacheNotFound, "cache device %q not found", name)
}

func (r *Registry) findDevice(name string, kinds ...exposure.Kind) *Device {
	var found *Device
	for _, p := range r.Pools() {
		p.mu.RLock()
		for _, kind := range kinds {
			if d, ok := p.table(kind)[name]; ok && d.live() && (found == nil || d.id < found.id) {
				found = d
			}
		}
		p.mu.RUnlock()
	}
	return found
}

// Stats counts the live entities
func (r *Registry) Stats() Stats {
	var s Stats
	for _, p := range r.Pools() {
		s.Pools++
		s.Volumes += len(p.Volumes())
		s.Devices += len(p.Devices())
		s.CacheDevices += len(p.CacheDevices())
	}
	return s
}

// ============================================================================
// Helpers
// ============================================================================

func (r *Registry) unexpose(obj exposure.Exposable) {
	if err := r.exposer.Unexpose(obj); err != nil {
		r.logger.Warn("unexpose failed",
			zap.Stringer("kind", obj.Kind()),
			zap.Uint64("id", obj.ID()),
			zap.Error(err))
	}
}

func (r *Registry) changed(obj exposure.Exposable, property string, value any) {
	r.exposer.Changed(obj, property, value)
}

func (r *Registry) observe(op string, errp *error) {
	r.metrics.RecordRegistryOp(op, status.CodeOf(*errp).String())
	if *errp != nil {
		r.logger.Debug("registry operation failed", zap.String("op", op), zap.Error(*errp))
	}
}

func deviceMiss(kind exposure.Kind, pool, name string) error {
	if kind == exposure.KindCache {
		return status.Errorf(status.CacheNotFound, "cache device %q not found in pool %q", name, pool)
	}
	return status.Errorf(status.DevNotFound, "device %q not found in pool %q", name, pool)
}

func sortedByID[C interface{ ID() uint64 }](table map[string]C) []C {
	out := make([]C, 0, len(table))
	for _, c := range table {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
