package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

func TestCreateVolumesDuplicateInBatch(t *testing.T) {
	f := newFixture(t)
	f.pool(t, "p1")

	rep, err := f.reg.CreateVolumes("p1", []VolumeSpec{
		{Name: "v1", MountPoint: "/m", Quota: "1G"},
		{Name: "v1", MountPoint: "/m", Quota: "1G"},
	})
	require.NoError(t, err)
	require.Len(t, rep.Results, 2)

	assert.Equal(t, status.OK, rep.Results[0].Code)
	assert.NotEmpty(t, rep.Results[0].Path)
	assert.Equal(t, status.AlreadyExists, rep.Results[1].Code)
	assert.Empty(t, rep.Results[1].Path)
	assert.Equal(t, status.ListFailure, rep.Code)
	assert.Equal(t, 1, rep.SuccessCount())
	assert.Equal(t, 1, rep.FailureCount())

	p, _ := f.reg.Pool("p1")
	assert.Equal(t, []string{"v1"}, p.VolumeNames())
}

func TestCreateVolumesAllSucceed(t *testing.T) {
	f := newFixture(t)
	f.pool(t, "p1")

	rep, err := f.reg.CreateVolumes("p1", []VolumeSpec{
		{Name: "a", MountPoint: "/a", Quota: "1"},
		{Name: "b", MountPoint: "/b", Quota: "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, status.OK, rep.Code)
	assert.Equal(t, "Ok", rep.Message)
	assert.Equal(t, "a", rep.Results[0].Key)
	assert.Equal(t, "b", rep.Results[1].Key)
}

func TestBulkMissingPool(t *testing.T) {
	f := newFixture(t)

	rep, err := f.reg.CreateVolumes("nope", []VolumeSpec{{Name: "v", MountPoint: "/m", Quota: "q"}})
	assert.Nil(t, rep)
	assert.Equal(t, status.PoolNotFound, status.CodeOf(err))

	rep, err = f.reg.RemoveDevices("nope", []string{"sda"})
	assert.Nil(t, rep)
	assert.Equal(t, status.PoolNotFound, status.CodeOf(err))
}

func TestDestroyVolumesReportsFormerPaths(t *testing.T) {
	f := newFixture(t)
	f.pool(t, "p1")
	v := f.volume(t, "p1", "v1")
	path := string(pathOfT(t, v))

	rep, err := f.reg.DestroyVolumes("p1", []string{"v1", "ghost"})
	require.NoError(t, err)

	assert.Equal(t, path, rep.Results[0].Path)
	assert.True(t, rep.Results[0].OK())
	assert.Equal(t, status.VolumeNotFound, rep.Results[1].Code)
	assert.Equal(t, status.ListFailure, rep.Code)
}

func TestAddAndRemoveDevicesBulk(t *testing.T) {
	f := newFixture(t)
	p := f.pool(t, "p1", "sda")

	rep, err := f.reg.AddDevices("p1", []DeviceSpec{{Name: "sdb"}, {Name: "sda"}, {Name: ""}})
	require.NoError(t, err)
	assert.True(t, rep.Results[0].OK())
	assert.Equal(t, status.AlreadyExists, rep.Results[1].Code)
	assert.Equal(t, status.BadParam, rep.Results[2].Code)

	rep, err = f.reg.AddCacheDevices("p1", []DeviceSpec{{Name: "nvme0"}, {Name: "nvme1"}})
	require.NoError(t, err)
	assert.Equal(t, status.OK, rep.Code)
	assert.Equal(t, []string{"nvme0", "nvme1"}, p.CacheDeviceNames())

	sdb, err := f.reg.Device("p1", "sdb")
	require.NoError(t, err)
	sdbPath := string(pathOfT(t, sdb))

	rep, err = f.reg.RemoveDevices("p1", []string{"sdb", "sdb"})
	require.NoError(t, err)
	assert.Equal(t, sdbPath, rep.Results[0].Path)
	assert.Equal(t, status.DevNotFound, rep.Results[1].Code)

	rep, err = f.reg.RemoveCacheDevices("p1", []string{"nvme1"})
	require.NoError(t, err)
	assert.Equal(t, status.OK, rep.Code)

	assert.Equal(t, []string{"sda"}, p.DeviceNames())
	assert.Equal(t, []string{"nvme0"}, p.CacheDeviceNames())
}

func TestCreateVolumesTransportPanic(t *testing.T) {
	f := newFixture(t)
	f.pool(t, "p1", "sda")
	exported := f.tr.Len()

	f.tr.SetFailExport(func(_ exposure.ObjectPath, obj exposure.Exposable) error {
		if obj.Kind() == exposure.KindVolume {
			panic("bus connection lost")
		}
		return nil
	})

	rep, err := f.reg.CreateVolumes("p1", []VolumeSpec{{Name: "v1", MountPoint: "/m", Quota: "1G"}})
	assert.Nil(t, rep)
	assert.Equal(t, status.Error, status.CodeOf(err))

	// No half-created row is left behind
	p, _ := f.reg.Pool("p1")
	assert.Empty(t, p.VolumeNames())
	assert.Equal(t, exported, f.tr.Len())

	f.tr.SetFailExport(nil)
	rep, err = f.reg.CreateVolumes("p1", []VolumeSpec{{Name: "v1", MountPoint: "/m", Quota: "1G"}})
	require.NoError(t, err)
	assert.Equal(t, status.OK, rep.Code)
	assert.Equal(t, []string{"v1"}, p.VolumeNames())

	// The pool is still destroyable, so no pending child was leaked
	require.NoError(t, f.reg.DestroyVolume("p1", "v1"))
	require.NoError(t, f.reg.DestroyPool("p1"))
}

func TestAddCacheDevicesTransportPanic(t *testing.T) {
	f := newFixture(t)
	f.pool(t, "p1", "sda")

	f.tr.SetFailExport(func(_ exposure.ObjectPath, obj exposure.Exposable) error {
		if obj.Kind() == exposure.KindCache {
			panic("bus connection lost")
		}
		return nil
	})

	rep, err := f.reg.AddCacheDevices("p1", []DeviceSpec{{Name: "nvme0", Size: 1}})
	assert.Nil(t, rep)
	assert.Equal(t, status.Error, status.CodeOf(err))

	f.tr.SetFailExport(nil)
	rep, err = f.reg.AddCacheDevices("p1", []DeviceSpec{{Name: "nvme0", Size: 1}})
	require.NoError(t, err)
	assert.Equal(t, status.OK, rep.Code)
}
