package registry

import (
	"sync"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/shared/utils"
)

// Volume is a named, mountable unit within a pool
type Volume struct {
	exposure.Slot
	lifecycle

	id   uint64
	pool *Pool

	// origin is the source of a snapshot. It is not owned, and renaming or
	// destroying the source never touches it.
	origin *Volume

	mu         sync.RWMutex
	name       string
	mountPoint string
	quota      string
}

func (v *Volume) ID() uint64 { return v.id }

func (v *Volume) Kind() exposure.Kind { return exposure.KindVolume }

// Pool returns the owning pool
func (v *Volume) Pool() *Pool { return v.pool }

// Origin returns the volume this one was snapshotted from. It reports
// false for plain volumes and once the source has been destroyed.
func (v *Volume) Origin() (*Volume, bool) {
	if v.origin == nil || !v.origin.live() {
		return nil, false
	}
	return v.origin, true
}

// OriginName is the current name of the snapshot source, or "" when there
// is none
func (v *Volume) OriginName() string {
	if o, ok := v.Origin(); ok {
		return o.Name()
	}
	return ""
}

func (v *Volume) Name() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.name
}

func (v *Volume) setName(name string) {
	v.mu.Lock()
	v.name = name
	v.mu.Unlock()
}

func (v *Volume) MountPoint() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mountPoint
}

// SetMountPoint updates the mount point; empty is rejected with Null
func (v *Volume) SetMountPoint(mountPoint string) error {
	if err := utils.RequireValue(mountPoint, "mount point"); err != nil {
		return err
	}
	v.mu.Lock()
	v.mountPoint = mountPoint
	v.mu.Unlock()
	v.pool.reg.changed(v, "MountPoint", mountPoint)
	return nil
}

func (v *Volume) Quota() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.quota
}

// SetQuota updates the quota; empty is rejected with Null
func (v *Volume) SetQuota(quota string) error {
	if err := utils.RequireValue(quota, "quota"); err != nil {
		return err
	}
	v.mu.Lock()
	v.quota = quota
	v.mu.Unlock()
	v.pool.reg.changed(v, "Quota", quota)
	return nil
}
