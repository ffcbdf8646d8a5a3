package registry

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
)

// Pool is a top-level storage aggregate. Identity fields are fixed at
// construction; the child tables are guarded by mu and the mutable scalars
// by attrMu.
type Pool struct {
	exposure.Slot
	lifecycle

	reg  *Registry
	id   uint64
	uuid uuid.UUID
	raid RaidLevel

	attrMu sync.RWMutex
	name   string
	size   uint64

	mu           sync.RWMutex
	volumes      map[string]*Volume
	devices      map[string]*Device
	cacheDevices map[string]*Device

	// in-flight child mutations; DestroyPool waits on it
	pending sync.WaitGroup
}

func newPool(reg *Registry, id uint64, spec PoolSpec) *Pool {
	return &Pool{
		reg:          reg,
		id:           id,
		uuid:         uuid.New(),
		raid:         spec.Raid,
		name:         spec.Name,
		volumes:      make(map[string]*Volume),
		devices:      make(map[string]*Device),
		cacheDevices: make(map[string]*Device),
	}
}

func (p *Pool) ID() uint64 { return p.id }

func (p *Pool) Kind() exposure.Kind { return exposure.KindPool }

func (p *Pool) UUID() uuid.UUID { return p.uuid }

func (p *Pool) Raid() RaidLevel { return p.raid }

// Name returns the pool's current name
func (p *Pool) Name() string {
	p.attrMu.RLock()
	defer p.attrMu.RUnlock()
	return p.name
}

func (p *Pool) setName(name string) {
	p.attrMu.Lock()
	p.name = name
	p.attrMu.Unlock()
}

// Size returns the pool's size in bytes
func (p *Pool) Size() uint64 {
	p.attrMu.RLock()
	defer p.attrMu.RUnlock()
	return p.size
}

// SetSize updates the pool's size
func (p *Pool) SetSize(size uint64) {
	p.attrMu.Lock()
	p.size = size
	p.attrMu.Unlock()
	p.reg.changed(p, "Size", size)
}

// Volumes returns the pool's live volumes sorted by id
func (p *Pool) Volumes() []*Volume {
	p.mu.RLock()
	out := make([]*Volume, 0, len(p.volumes))
	for _, v := range p.volumes {
		if v.live() {
			out = append(out, v)
		}
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Devices returns the pool's live regular devices sorted by id
func (p *Pool) Devices() []*Device {
	return liveDevices(&p.mu, p.devices)
}

// CacheDevices returns the pool's live cache devices sorted by id
func (p *Pool) CacheDevices() []*Device {
	return liveDevices(&p.mu, p.cacheDevices)
}

// VolumeNames returns the names of the pool's live volumes
func (p *Pool) VolumeNames() []string {
	vols := p.Volumes()
	out := make([]string, len(vols))
	for i, v := range vols {
		out[i] = v.Name()
	}
	return out
}

// DeviceNames returns the names of the pool's live regular devices
func (p *Pool) DeviceNames() []string {
	return deviceNames(p.Devices())
}

// CacheDeviceNames returns the names of the pool's live cache devices
func (p *Pool) CacheDeviceNames() []string {
	return deviceNames(p.CacheDevices())
}

// TotalDeviceSize sums the sizes of the live regular devices
func (p *Pool) TotalDeviceSize() uint64 {
	var total uint64
	for _, d := range p.Devices() {
		total += d.Size()
	}
	return total
}

// table returns the device table for kind
func (p *Pool) table(kind exposure.Kind) map[string]*Device {
	if kind == exposure.KindCache {
		return p.cacheDevices
	}
	return p.devices
}

// beginChild registers an in-flight child mutation. It fails once the pool
// has started retiring. Caller holds p.mu.
func (p *Pool) beginChild() bool {
	if !p.live() {
		return false
	}
	p.pending.Add(1)
	return true
}

func liveDevices(mu *sync.RWMutex, table map[string]*Device) []*Device {
	mu.RLock()
	out := make([]*Device, 0, len(table))
	for _, d := range table {
		if d.live() {
			out = append(out, d)
		}
	}
	mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func deviceNames(devs []*Device) []string {
	out := make([]string, len(devs))
	for i, d := range devs {
		out[i] = d.Name()
	}
	return out
}
