package exposure

import "github.com/GriffinCanCode/stratisd/internal/shared/paths"

// Kind selects the bus interface an object is exported under
type Kind uint8

const (
	KindManager Kind = iota
	KindPool
	KindVolume
	KindDevice
	KindCache
)

var kindInterfaces = [...]string{
	KindManager: paths.ManagerInterface,
	KindPool:    paths.PoolInterface,
	KindVolume:  paths.VolumeInterface,
	KindDevice:  paths.DevInterface,
	KindCache:   paths.CacheInterface,
}

var kindNames = [...]string{
	KindManager: "manager",
	KindPool:    "pool",
	KindVolume:  "volume",
	KindDevice:  "device",
	KindCache:   "cache",
}

// Interface returns the bus interface name for the kind
func (k Kind) Interface() string {
	if int(k) < len(kindInterfaces) {
		return kindInterfaces[k]
	}
	return ""
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}
