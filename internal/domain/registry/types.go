package registry

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

// RaidLevel is the redundancy scheme requested for a pool
type RaidLevel uint16

const (
	RaidUnknown RaidLevel = iota
	RaidSingle
	Raid1
	Raid5
	Raid6
)

var raidDescriptions = [...]string{
	RaidUnknown: "Unknown",
	RaidSingle:  "Single",
	Raid1:       "Mirror between two disks. For 4 disks or more, they are RAID10",
	Raid5:       "Block-level striping with distributed parity",
	Raid6:       "Block-level striping with two distributed parities, aka, RAID-DP",
}

var raidNames = [...]string{
	RaidUnknown: "STRATIS_RAID_TYPE_UNKNOWN",
	RaidSingle:  "STRATIS_RAID_TYPE_SINGLE",
	Raid1:       "STRATIS_RAID_TYPE_RAID1",
	Raid5:       "STRATIS_RAID_TYPE_RAID5",
	Raid6:       "STRATIS_RAID_TYPE_RAID6",
}

// Valid reports whether r is a known level
func (r RaidLevel) Valid() bool { return int(r) < len(raidNames) }

func (r RaidLevel) String() string {
	if r.Valid() {
		return raidNames[r]
	}
	return fmt.Sprintf("STRATIS_RAID_TYPE_%d", uint16(r))
}

// Description returns the human-readable explanation of the level
func (r RaidLevel) Description() string {
	if r.Valid() {
		return raidDescriptions[r]
	}
	return "Unknown raid level"
}

// ParseRaidLevel accepts "single", "raid1", "raid5", "raid6", "unknown" or
// the empty string, case-insensitively
func ParseRaidLevel(s string) (RaidLevel, error) {
	switch strings.ToLower(s) {
	case "", "unknown":
		return RaidUnknown, nil
	case "single":
		return RaidSingle, nil
	case "raid1", "mirror":
		return Raid1, nil
	case "raid5":
		return Raid5, nil
	case "raid6":
		return Raid6, nil
	}
	return RaidUnknown, status.Errorf(status.BadParam, "unknown raid level %q", s)
}

// ParseDeviceType accepts "regular", "cache", "spare", "unknown" or the
// empty string (regular), case-insensitively
func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(s) {
	case "", "regular":
		return DevRegular, nil
	case "cache":
		return DevCache, nil
	case "spare":
		return DevSpare, nil
	case "unknown":
		return DevUnknown, nil
	}
	return DevUnknown, status.Errorf(status.BadParam, "unknown device type %q", s)
}

// RaidLevels returns every level in wire order
func RaidLevels() []RaidLevel {
	out := make([]RaidLevel, len(raidNames))
	for i := range raidNames {
		out[i] = RaidLevel(i)
	}
	return out
}

// DeviceType is the role of a block device within its pool
type DeviceType uint16

const (
	DevRegular DeviceType = iota
	DevCache
	DevSpare
	DevUnknown
)

var devTypeNames = [...]string{
	DevRegular: "STRATIS_DEV_TYPE_REGULAR",
	DevCache:   "STRATIS_DEV_TYPE_CACHE",
	DevSpare:   "STRATIS_DEV_TYPE_SPARE",
	DevUnknown: "STRATIS_DEV_TYPE_UNKNOWN",
}

var devTypeDescriptions = [...]string{
	DevRegular: "Regular data device",
	DevCache:   "Cache device",
	DevSpare:   "Hot spare",
	DevUnknown: "Unknown device type",
}

// Valid reports whether t is a known type
func (t DeviceType) Valid() bool { return int(t) < len(devTypeNames) }

func (t DeviceType) String() string {
	if t.Valid() {
		return devTypeNames[t]
	}
	return fmt.Sprintf("STRATIS_DEV_TYPE_%d", uint16(t))
}

// Description returns the human-readable explanation of the type
func (t DeviceType) Description() string {
	if t.Valid() {
		return devTypeDescriptions[t]
	}
	return "Unknown device type"
}

// DeviceTypes returns every type in wire order
func DeviceTypes() []DeviceType {
	out := make([]DeviceType, len(devTypeNames))
	for i := range devTypeNames {
		out[i] = DeviceType(i)
	}
	return out
}

// PoolSpec describes a pool to create
type PoolSpec struct {
	Name    string
	Devices []DeviceSpec
	Raid    RaidLevel
}

// VolumeSpec describes a volume to create
type VolumeSpec struct {
	Name       string
	MountPoint string
	Quota      string
}

// DeviceSpec describes a block device to attach
type DeviceSpec struct {
	Name string
	Type DeviceType
	Size uint64
}

// Stats counts live entities
type Stats struct {
	Pools        int `json:"pools"`
	Volumes      int `json:"volumes"`
	Devices      int `json:"devices"`
	CacheDevices int `json:"cache_devices"`
}

// ============================================================================
// Lifecycle
// ============================================================================

type state int32

const (
	// stateReserved: inserted and claiming its name, not yet visible
	stateReserved state = iota
	stateLive
	stateRetiring
)

// lifecycle is embedded by every entity
type lifecycle struct {
	st atomic.Int32
}

func (l *lifecycle) state() state { return state(l.st.Load()) }
func (l *lifecycle) setState(s state) { l.st.Store(int32(s)) }
func (l *lifecycle) live() bool { return l.state() == stateLive }
func (l *lifecycle) retiring() bool { return l.state() == stateRetiring }
func (l *lifecycle) commit() { l.setState(stateLive) }
func (l *lifecycle) retire() { l.setState(stateRetiring) }
