package bus

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/domain/registry"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/logging"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/stratisd/internal/shared/id"
	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

type signal struct {
	path   dbus.ObjectPath
	name   string
	values []interface{}
}

// fakeConn records exports and signals in place of a bus connection
type fakeConn struct {
	mu        sync.Mutex
	exports   map[dbus.ObjectPath]map[string]interface{}
	signals   []signal
	requested string
	reply     dbus.RequestNameReply
	failIface string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		exports: make(map[dbus.ObjectPath]map[string]interface{}),
		reply:   dbus.RequestNameReplyPrimaryOwner,
	}
}

func (c *fakeConn) Export(v interface{}, path dbus.ObjectPath, iface string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v == nil {
		delete(c.exports[path], iface)
		if len(c.exports[path]) == 0 {
			delete(c.exports, path)
		}
		return nil
	}
	if iface == c.failIface {
		return errors.New("export refused")
	}
	if c.exports[path] == nil {
		c.exports[path] = make(map[string]interface{})
	}
	c.exports[path][iface] = v
	return nil
}

func (c *fakeConn) Emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = append(c.signals, signal{path: path, name: name, values: values})
	return nil
}

func (c *fakeConn) RequestName(name string, _ dbus.RequestNameFlags) (dbus.RequestNameReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requested = name
	return c.reply, nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) object(path dbus.ObjectPath, iface string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exports[path][iface]
}

func (c *fakeConn) signalsNamed(name string) []signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []signal
	for _, s := range c.signals {
		if s.name == name {
			out = append(out, s)
		}
	}
	return out
}

type harness struct {
	conn    *fakeConn
	bus     *Bus
	reg     *registry.Registry
	svc     *Service
	mgr     *ManagerObject
	log     *logging.Logger
	metrics *monitoring.Metrics
}

const managerPath = dbus.ObjectPath(paths.ManagerPath)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{conn: newFakeConn(), log: logging.NewNop(), metrics: monitoring.NewMetrics()}
	h.bus = New(h.conn, paths.ServiceName, paths.BasePath, nil)
	h.reg = registry.New(id.NewAllocator(), exposure.New(paths.BasePath, h.bus))
	h.svc = NewService(h.reg, Info{Version: "3.0.0", Logger: h.log}, WithMetrics(h.metrics))
	require.NoError(t, h.bus.Serve(h.svc))

	mgr, ok := h.conn.object(managerPath, paths.ManagerInterface).(*ManagerObject)
	require.True(t, ok, "manager should be exported")
	h.mgr = mgr
	return h
}

func (h *harness) pool(t *testing.T, name string, devs ...string) dbus.ObjectPath {
	t.Helper()
	path, code, msg, _ := h.mgr.CreatePool(name, devs, uint16(registry.RaidSingle))
	require.Equal(t, uint16(status.OK), code, msg)
	return path
}

func (h *harness) props(t *testing.T, path dbus.ObjectPath) propertyHandler {
	t.Helper()
	p, ok := h.conn.object(path, paths.PropertiesInterface).(propertyHandler)
	require.True(t, ok, "no properties at %s", path)
	return p
}

// ============================================================================
// Transport
// ============================================================================

func TestServeExportsManager(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, paths.ServiceName, h.conn.requested)
	assert.NotNil(t, h.conn.object(managerPath, paths.PropertiesInterface))
	assert.NotNil(t, h.conn.object(managerPath, introspectableInterface))
	assert.NotNil(t, h.conn.object(paths.BasePath, paths.ObjectManagerInterface))
}

func TestServeFailsWhenNameTaken(t *testing.T) {
	conn := newFakeConn()
	conn.reply = dbus.RequestNameReplyExists
	b := New(conn, paths.ServiceName, paths.BasePath, nil)
	reg := registry.New(id.NewAllocator(), exposure.New(paths.BasePath, b))

	err := b.Serve(NewService(reg, Info{}))
	assert.ErrorContains(t, err, "already taken")
}

func TestExportBeforeServe(t *testing.T) {
	b := New(newFakeConn(), paths.ServiceName, paths.BasePath, nil)
	reg := registry.New(id.NewAllocator(), exposure.New(paths.BasePath, b))

	_, err := reg.CreatePool(registry.PoolSpec{Name: "p1"})
	assert.ErrorIs(t, err, ErrNotServing)
	assert.Empty(t, reg.Pools())
}

func TestCreatePoolExportsEntities(t *testing.T) {
	h := newHarness(t)

	path := h.pool(t, "p1", "sda")
	assert.Equal(t, dbus.ObjectPath("/org/storage/stratis1/1"), path)

	assert.IsType(t, &PoolObject{}, h.conn.object(path, paths.PoolInterface))
	assert.IsType(t, &DeviceObject{}, h.conn.object("/org/storage/stratis1/2", paths.DevInterface))

	added := h.conn.signalsNamed(interfacesAdded)
	require.Len(t, added, 2)
	assert.Equal(t, dbus.ObjectPath(paths.BasePath), added[0].path)
	assert.Equal(t, path, added[0].values[0])
	ifaces := added[0].values[1].(map[string]map[string]dbus.Variant)
	assert.Equal(t, "p1", ifaces[paths.PoolInterface]["Name"].Value())
}

func TestExportFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.conn.failIface = introspectableInterface

	path, code, _, _ := h.mgr.CreatePool("p1", []string{"sda"}, 0)
	assert.Equal(t, dbus.ObjectPath("/"), path)
	assert.Equal(t, uint16(status.Error), code)

	assert.Nil(t, h.conn.object("/org/storage/stratis1/1", paths.PoolInterface))
	assert.Nil(t, h.conn.object("/org/storage/stratis1/1", paths.PropertiesInterface))
	assert.Empty(t, h.reg.Pools())
}

func TestDestroyPoolUnexportsAndAnnounces(t *testing.T) {
	h := newHarness(t)
	path := h.pool(t, "p1", "sda", "sdb")

	got, code, msg, _ := h.mgr.DestroyPool("p1")
	require.Equal(t, uint16(status.OK), code, msg)
	assert.Equal(t, path, got)

	for _, p := range []dbus.ObjectPath{path, "/org/storage/stratis1/2", "/org/storage/stratis1/3"} {
		assert.Nil(t, h.conn.object(p, paths.PropertiesInterface), "%s still exported", p)
	}

	removed := h.conn.signalsNamed(paths.InterfacesRemoved)
	require.Len(t, removed, 3)
	last := removed[2]
	assert.Equal(t, path, last.values[0])
	assert.Equal(t, []string{paths.PoolInterface, paths.PropertiesInterface}, last.values[1])

	got, code, _, _ = h.mgr.DestroyPool("p1")
	assert.Equal(t, dbus.ObjectPath("/"), got)
	assert.Equal(t, uint16(status.PoolNotFound), code)
}

func TestGetManagedObjects(t *testing.T) {
	h := newHarness(t)
	path := h.pool(t, "p1", "sda")

	om := h.conn.object(paths.BasePath, paths.ObjectManagerInterface).(*objectManager)
	objs, dErr := om.GetManagedObjects()
	require.Nil(t, dErr)

	// manager, pool, device
	assert.Len(t, objs, 3)
	assert.Equal(t, "p1", objs[path][paths.PoolInterface]["Name"].Value())
	assert.Equal(t, "3.0.0", objs[managerPath][paths.ManagerInterface]["Version"].Value())
}

func TestIntrospection(t *testing.T) {
	h := newHarness(t)
	path := h.pool(t, "p1")

	xml, dErr := h.conn.object(path, introspectableInterface).(introspect.Introspectable).Introspect()
	require.Nil(t, dErr)

	assert.Contains(t, xml, `<interface name="org.storage.stratis1.pool">`)
	assert.Contains(t, xml, `<method name="CreateVolumes">`)
	assert.Contains(t, xml, `<property name="Size" type="t" access="readwrite">`)
	assert.Contains(t, xml, `<property name="Name" type="s" access="read">`)
	assert.Contains(t, xml, `<interface name="org.freedesktop.DBus.Properties">`)
	assert.NotContains(t, xml, "bulk")
}

// ============================================================================
// Manager
// ============================================================================

func TestManagerLookups(t *testing.T) {
	h := newHarness(t)
	poolPath := h.pool(t, "p1", "sda")

	path, code, _, _ := h.mgr.GetPoolObjectPath("p1")
	assert.Equal(t, uint16(status.OK), code)
	assert.Equal(t, poolPath, path)

	path, code, msg, _ := h.mgr.GetPoolObjectPath("missing")
	assert.Equal(t, dbus.ObjectPath("/"), path)
	assert.Equal(t, uint16(status.PoolNotFound), code)
	assert.Contains(t, msg, "missing")

	path, code, _, _ = h.mgr.GetDevObjectPath("sda")
	assert.Equal(t, uint16(status.OK), code)
	assert.Equal(t, dbus.ObjectPath("/org/storage/stratis1/2"), path)

	_, code, _, _ = h.mgr.GetCacheObjectPath("sda")
	assert.Equal(t, uint16(status.CacheNotFound), code)

	_, code, _, _ = h.mgr.GetVolumeObjectPath("p1", "v1")
	assert.Equal(t, uint16(status.VolumeNotFound), code)

	names, _ := h.mgr.ListPools()
	assert.Equal(t, []string{"p1"}, names)
}

func TestManagerCreatePoolErrors(t *testing.T) {
	h := newHarness(t)
	h.pool(t, "p1")

	path, code, _, _ := h.mgr.CreatePool("p1", nil, 0)
	assert.Equal(t, dbus.ObjectPath("/"), path)
	assert.Equal(t, uint16(status.DuplicateName), code)

	_, code, _, _ = h.mgr.CreatePool("p2", nil, 99)
	assert.Equal(t, uint16(status.BadParam), code)

	_, code, _, _ = h.mgr.CreatePool("p3", []string{"sda", "sda"}, 0)
	assert.Equal(t, uint16(status.DuplicateName), code)
}

func TestManagerEnumerations(t *testing.T) {
	h := newHarness(t)

	codes, _ := h.mgr.GetErrorCodes()
	require.Len(t, codes, 15)
	assert.Equal(t, CodeEntry{Code: 0, Description: "Ok"}, codes[0])
	assert.Equal(t, uint16(status.Malloc), codes[14].Code)

	levels, _ := h.mgr.GetRaidLevels()
	assert.Len(t, levels, 5)

	types, _ := h.mgr.GetDevTypes()
	assert.Len(t, types, 4)
}

func TestManagerLogLevel(t *testing.T) {
	h := newHarness(t)
	props := h.props(t, managerPath)

	v, dErr := props.Get(paths.ManagerInterface, "LogLevel")
	require.Nil(t, dErr)
	assert.Equal(t, "info", v.Value())

	require.Nil(t, props.Set(paths.ManagerInterface, "LogLevel", dbus.MakeVariant("debug")))
	assert.Equal(t, "debug", h.log.Level())

	changed := h.conn.signalsNamed(propertiesChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, managerPath, changed[0].path)

	dErr = props.Set(paths.ManagerInterface, "LogLevel", dbus.MakeVariant("shout"))
	require.NotNil(t, dErr)
	assert.Equal(t, errorPrefix+"STRATIS_BAD_PARAM", dErr.Name)

	assert.Equal(t, prop.ErrReadOnly, props.Set(paths.ManagerInterface, "Version", dbus.MakeVariant("9")))
}

// ============================================================================
// Pool, volume, device
// ============================================================================

func TestPoolCreateVolumesDuplicate(t *testing.T) {
	h := newHarness(t)
	path := h.pool(t, "p1")
	pool := h.conn.object(path, paths.PoolInterface).(*PoolObject)

	results, code, msg, _ := pool.CreateVolumes([]VolumeArg{
		{Name: "v1", MountPoint: "/m", Quota: "1G"},
		{Name: "v1", MountPoint: "/m", Quota: "1G"},
	})

	require.Len(t, results, 2)
	assert.Equal(t, uint16(status.OK), results[0].Code)
	assert.True(t, strings.HasPrefix(string(results[0].Path), paths.BasePath+"/"))
	assert.Equal(t, dbus.ObjectPath("/"), results[1].Path)
	assert.Equal(t, uint16(status.AlreadyExists), results[1].Code)
	assert.Equal(t, uint16(status.ListFailure), code)
	assert.Equal(t, "1 of 2 items failed", msg)

	names, _ := pool.ListVolumes()
	assert.Equal(t, []string{"v1"}, names)
}

func TestPoolDeviceMethods(t *testing.T) {
	h := newHarness(t)
	path := h.pool(t, "p1", "sda")
	pool := h.conn.object(path, paths.PoolInterface).(*PoolObject)

	// Several devices added: aggregate pair and the default path
	cachePath, code, msg, _ := pool.AddCacheDevs([]string{"nvme0", "nvme1"})
	assert.Equal(t, uint16(status.OK), code)
	assert.Equal(t, "Ok", msg)
	assert.Equal(t, dbus.ObjectPath("/"), cachePath)

	// Exactly one added: its path comes back even when others failed
	cachePath, code, _, _ = pool.AddCacheDevs([]string{"nvme0", "nvme2"})
	assert.Equal(t, uint16(status.ListFailure), code)
	assert.IsType(t, &DeviceObject{}, h.conn.object(cachePath, paths.CacheInterface))
	cache, _ := pool.ListCacheDevs()
	assert.Equal(t, []string{"nvme0", "nvme1", "nvme2"}, cache)

	results, code, _, _ := pool.AddDevs([]string{"sdb"})
	assert.Equal(t, uint16(status.OK), code)
	require.Len(t, results, 1)
	assert.IsType(t, &DeviceObject{}, h.conn.object(results[0].Path, paths.DevInterface))

	code, _, _ = pool.RemoveCacheDevs([]string{"nvme1", "nvme2", "ghost"})
	assert.Equal(t, uint16(status.ListFailure), code)

	code, msg, _ = pool.RemoveDevs([]string{"sdb"})
	assert.Equal(t, uint16(status.OK), code)
	assert.Equal(t, "Ok", msg)

	devs, _ := pool.ListDevs()
	assert.Equal(t, []string{"sda"}, devs)
	cache, _ = pool.ListCacheDevs()
	assert.Equal(t, []string{"nvme0"}, cache)
}

func TestPoolMethodsAfterDestroy(t *testing.T) {
	h := newHarness(t)
	path := h.pool(t, "p1")
	pool := h.conn.object(path, paths.PoolInterface).(*PoolObject)

	_, code, _, _ := h.mgr.DestroyPool("p1")
	require.Equal(t, uint16(status.OK), code)

	results, code, _, _ := pool.CreateVolumes([]VolumeArg{{Name: "v", MountPoint: "/m", Quota: "q"}})
	assert.Empty(t, results)
	assert.Equal(t, uint16(status.PoolNotFound), code)
}

func TestPoolRenameKeepsPath(t *testing.T) {
	h := newHarness(t)
	path := h.pool(t, "p1")
	h.pool(t, "p2")
	pool := h.conn.object(path, paths.PoolInterface).(*PoolObject)

	code, _, _ := pool.Rename("p2")
	assert.Equal(t, uint16(status.AlreadyExists), code)

	code, _, _ = pool.Rename("tank")
	require.Equal(t, uint16(status.OK), code)

	got, _, _, _ := h.mgr.GetPoolObjectPath("tank")
	assert.Equal(t, path, got)

	v, _ := h.props(t, path).Get(paths.PoolInterface, "Name")
	assert.Equal(t, "tank", v.Value())

	changed := h.conn.signalsNamed(propertiesChanged)
	require.NotEmpty(t, changed)
	last := changed[len(changed)-1]
	assert.Equal(t, path, last.path)
	assert.Equal(t, paths.PoolInterface, last.values[0])
	assert.Equal(t, "tank", last.values[1].(map[string]dbus.Variant)["Name"].Value())
}

func TestPoolProperties(t *testing.T) {
	h := newHarness(t)
	path := h.pool(t, "p1")
	props := h.props(t, path)

	all, dErr := props.GetAll(paths.PoolInterface)
	require.Nil(t, dErr)
	assert.Equal(t, uint64(1), all["Id"].Value())
	assert.Equal(t, uint16(registry.RaidSingle), all["RaidLevel"].Value())
	assert.Len(t, all["Uuid"].Value().(string), 36)

	require.Nil(t, props.Set(paths.PoolInterface, "Size", dbus.MakeVariant(uint64(4096))))
	v, _ := props.Get(paths.PoolInterface, "Size")
	assert.Equal(t, uint64(4096), v.Value())

	assert.Equal(t, prop.ErrReadOnly, props.Set(paths.PoolInterface, "Name", dbus.MakeVariant("x")))
	assert.Equal(t, prop.ErrInvalidArg, props.Set(paths.PoolInterface, "Size", dbus.MakeVariant("big")))
	assert.Equal(t, prop.ErrPropNotFound, props.Set(paths.PoolInterface, "Color", dbus.MakeVariant("red")))
	_, dErr = props.Get(paths.VolumeInterface, "Name")
	assert.Equal(t, prop.ErrIfaceNotFound, dErr)
	_, dErr = props.GetAll("org.example.Nope")
	assert.Equal(t, prop.ErrIfaceNotFound, dErr)
}

func TestVolumeObject(t *testing.T) {
	h := newHarness(t)
	path := h.pool(t, "p1")
	pool := h.conn.object(path, paths.PoolInterface).(*PoolObject)
	results, _, _, _ := pool.CreateVolumes([]VolumeArg{{Name: "v1", MountPoint: "/m", Quota: "1G"}})
	volPath := results[0].Path
	vol := h.conn.object(volPath, paths.VolumeInterface).(*VolumeObject)
	props := h.props(t, volPath)

	dErr := props.Set(paths.VolumeInterface, "MountPoint", dbus.MakeVariant(""))
	require.NotNil(t, dErr)
	assert.Equal(t, errorPrefix+"STRATIS_NULL", dErr.Name)

	require.Nil(t, props.Set(paths.VolumeInterface, "Quota", dbus.MakeVariant("2G")))
	v, _ := props.Get(paths.VolumeInterface, "Quota")
	assert.Equal(t, "2G", v.Value())

	snapPath, code, _, _ := vol.CreateSnapshot("s1")
	require.Equal(t, uint16(status.OK), code)
	origin, _ := h.props(t, snapPath).Get(paths.VolumeInterface, "Origin")
	assert.Equal(t, "v1", origin.Value())
	mount, _ := h.props(t, snapPath).Get(paths.VolumeInterface, "MountPoint")
	assert.Equal(t, "/stratis/p1/s1", mount.Value())

	code, _, _ = vol.Rename("s1")
	assert.Equal(t, uint16(status.AlreadyExists), code)
	code, _, _ = vol.Rename("v2")
	assert.Equal(t, uint16(status.OK), code)

	got, _, _, _ := h.mgr.GetVolumeObjectPath("p1", "v2")
	assert.Equal(t, volPath, got)

	// A new volume taking the old name is not the snapshot's origin
	_, code, _, _ = pool.CreateVolumes([]VolumeArg{{Name: "v1", MountPoint: "/m", Quota: "1G"}})
	require.Equal(t, uint16(status.OK), code)
	origin, _ = h.props(t, snapPath).Get(paths.VolumeInterface, "Origin")
	assert.Equal(t, "v2", origin.Value())

	_, code, _, _ = pool.DestroyVolumes([]string{"v1", "v2", "s1"})
	assert.Equal(t, uint16(status.OK), code)
	assert.Nil(t, h.conn.object(volPath, paths.VolumeInterface))
}

func TestDeviceProperties(t *testing.T) {
	h := newHarness(t)
	h.pool(t, "p1", "sda")
	devPath := dbus.ObjectPath("/org/storage/stratis1/2")
	props := h.props(t, devPath)

	all, dErr := props.GetAll("")
	require.Nil(t, dErr)
	assert.Equal(t, "sda", all["Name"].Value())
	assert.Equal(t, uint16(registry.DevRegular), all["Type"].Value())

	require.Nil(t, props.Set(paths.DevInterface, "Size", dbus.MakeVariant(uint64(10))))
	assert.Equal(t, prop.ErrReadOnly, props.Set(paths.DevInterface, "Type", dbus.MakeVariant(uint16(1))))
}

func TestCallsAreMeasured(t *testing.T) {
	h := newHarness(t)
	h.pool(t, "p1")
	h.mgr.GetPoolObjectPath("missing")

	snap := h.metrics.Snapshot()
	assert.Equal(t, int64(2), snap.BusCalls)
	assert.Equal(t, int64(1), snap.BusFailures)
}
