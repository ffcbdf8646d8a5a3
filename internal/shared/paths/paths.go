// Package paths holds the bus naming scheme shared by the daemon and its
// clients.
package paths

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Bus names
const (
	ServiceName = "org.storage.stratis1"
	BasePath    = "/org/storage/stratis1"
	ManagerPath = BasePath + "/Manager"

	// DefaultObjectPath is returned in place of a path when a call fails
	DefaultObjectPath = "/"
)

// Interface names
const (
	ManagerInterface = ServiceName + ".Manager"
	PoolInterface    = ServiceName + ".pool"
	VolumeInterface  = ServiceName + ".volume"
	DevInterface     = ServiceName + ".dev"
	CacheInterface   = ServiceName + ".cache"
)

// Standard freedesktop interfaces
const (
	PropertiesInterface    = "org.freedesktop.DBus.Properties"
	ObjectManagerInterface = "org.freedesktop.DBus.ObjectManager"
	InterfacesRemoved      = ObjectManagerInterface + ".InterfacesRemoved"
)

// SnapshotMountRoot is where snapshots are mounted when no mount point is given
const SnapshotMountRoot = "/stratis"

// ObjectPath builds the path for an entity id under base
func ObjectPath(base string, id uint64) string {
	return strings.TrimRight(base, "/") + "/" + strconv.FormatUint(id, 10)
}

// ParseObjectPath extracts the entity id from a path built by ObjectPath
func ParseObjectPath(base, p string) (uint64, error) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(p, prefix) {
		return 0, fmt.Errorf("path %q is not under %q", p, base)
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(p, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("path %q has no entity id: %w", p, err)
	}
	return n, nil
}

// SnapshotMountPoint is the default mount point for a snapshot
func SnapshotMountPoint(pool, name string) string {
	return path.Join(SnapshotMountRoot, pool, name)
}
