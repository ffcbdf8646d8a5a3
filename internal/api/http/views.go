package http

import (
	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/domain/registry"
	"github.com/GriffinCanCode/stratisd/internal/shared/types"
)

// pathOf returns the exported path, or "" while the entity is not exposed
func pathOf(obj interface {
	ObjectPath() (exposure.ObjectPath, bool)
}) string {
	p, _ := obj.ObjectPath()
	return string(p)
}

func statsView(s registry.Stats) types.Stats {
	return types.Stats{
		Pools:        s.Pools,
		Volumes:      s.Volumes,
		Devices:      s.Devices,
		CacheDevices: s.CacheDevices,
	}
}

func poolView(p *registry.Pool) types.Pool {
	return types.Pool{
		ID:           p.ID(),
		Name:         p.Name(),
		UUID:         p.UUID().String(),
		Path:         pathOf(p),
		Raid:         p.Raid().String(),
		RaidLevel:    uint16(p.Raid()),
		Size:         p.Size(),
		Volumes:      len(p.Volumes()),
		Devices:      len(p.Devices()),
		CacheDevices: len(p.CacheDevices()),
	}
}

func volumeView(v *registry.Volume) types.Volume {
	return types.Volume{
		ID:         v.ID(),
		Name:       v.Name(),
		Path:       pathOf(v),
		Origin:     v.OriginName(),
		MountPoint: v.MountPoint(),
		Quota:      v.Quota(),
	}
}

func deviceViews(devs []*registry.Device) []types.Device {
	out := make([]types.Device, len(devs))
	for i, d := range devs {
		out[i] = types.Device{
			ID:    d.ID(),
			Name:  d.Name(),
			Path:  pathOf(d),
			Type:  d.Type().String(),
			Size:  d.Size(),
			Cache: d.IsCache(),
		}
	}
	return out
}
