package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPathRoundTrip(t *testing.T) {
	p := ObjectPath(BasePath, 42)
	assert.Equal(t, "/org/storage/stratis1/42", p)

	n, err := ParseObjectPath(BasePath, p)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)

	assert.Equal(t, "/org/storage/stratis1/7", ObjectPath(BasePath+"/", 7))
}

func TestParseObjectPathRejectsForeign(t *testing.T) {
	_, err := ParseObjectPath(BasePath, ManagerPath)
	assert.Error(t, err)

	_, err = ParseObjectPath(BasePath, "/org/other/1")
	assert.Error(t, err)
}

func TestSnapshotMountPoint(t *testing.T) {
	assert.Equal(t, "/stratis/p1/snap", SnapshotMountPoint("p1", "snap"))
}

func TestInterfaceNames(t *testing.T) {
	assert.Equal(t, "org.storage.stratis1.Manager", ManagerInterface)
	assert.Equal(t, "org.storage.stratis1.cache", CacheInterface)
}
