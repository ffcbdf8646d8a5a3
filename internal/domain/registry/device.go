package registry

import (
	"sync"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
)

// Device is a block device attached to a pool. Cache devices share the type
// and differ only in the table they live in and the interface they are
// exported under.
type Device struct {
	exposure.Slot
	lifecycle

	id      uint64
	pool    *Pool
	kind    exposure.Kind
	devType DeviceType

	mu   sync.RWMutex
	name string
	size uint64
}

func newDevice(p *Pool, id uint64, kind exposure.Kind, spec DeviceSpec) *Device {
	t := spec.Type
	if kind == exposure.KindCache {
		t = DevCache
	}
	return &Device{
		id:      id,
		pool:    p,
		kind:    kind,
		devType: t,
		name:    spec.Name,
		size:    spec.Size,
	}
}

func (d *Device) ID() uint64 { return d.id }

// Kind is KindDevice or KindCache
func (d *Device) Kind() exposure.Kind { return d.kind }

func (d *Device) Pool() *Pool { return d.pool }

func (d *Device) Type() DeviceType { return d.devType }

// IsCache reports whether the device sits in the cache table
func (d *Device) IsCache() bool { return d.kind == exposure.KindCache }

func (d *Device) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

func (d *Device) Size() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.size
}

// SetSize updates the device size
func (d *Device) SetSize(size uint64) {
	d.mu.Lock()
	d.size = size
	d.mu.Unlock()
	d.pool.reg.changed(d, "Size", size)
}
