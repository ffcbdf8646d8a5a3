package client

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

// Caller is the part of dbus.BusObject the client uses
type Caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// VolumeArg is one volume to create, signature (sss)
type VolumeArg struct {
	Name       string
	MountPoint string
	Quota      string
}

// ItemResult is the per-item reply of a bulk call, signature (oqs)
type ItemResult struct {
	Path    dbus.ObjectPath
	Code    uint16
	Message string
}

// Err returns the item's outcome as a coded error, nil on success
func (r ItemResult) Err() error {
	return replyError(r.Code, r.Message)
}

// BusClient calls the daemon's bus objects
type BusClient struct {
	conn    *dbus.Conn
	objects func(path dbus.ObjectPath) Caller
	base    string
}

// DialBus connects to the system or session bus and targets the daemon's
// well-known name
func DialBus(busType, name, basePath string) (*BusClient, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch busType {
	case "system":
		conn, err = dbus.ConnectSystemBus()
	case "session":
		conn, err = dbus.ConnectSessionBus()
	default:
		return nil, fmt.Errorf("unsupported bus type %q", busType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s bus: %w", busType, err)
	}

	c := NewBusClient(func(path dbus.ObjectPath) Caller {
		return conn.Object(name, path)
	}, basePath)
	c.conn = conn
	return c, nil
}

// NewBusClient builds a client over an object factory
func NewBusClient(objects func(path dbus.ObjectPath) Caller, basePath string) *BusClient {
	return &BusClient{objects: objects, base: basePath}
}

// Close drops the bus connection
func (c *BusClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *BusClient) manager() Caller {
	return c.objects(dbus.ObjectPath(c.base + "/Manager"))
}

// ListPools returns the names of every pool
func (c *BusClient) ListPools(ctx context.Context) ([]string, error) {
	return listCall(ctx, c.manager(), paths.ManagerInterface, "ListPools")
}

// CreatePool creates a pool and returns its path
func (c *BusClient) CreatePool(ctx context.Context, name string, devices []string, raid uint16) (dbus.ObjectPath, error) {
	if devices == nil {
		devices = []string{}
	}
	return pathCall(ctx, c.manager(), paths.ManagerInterface, "CreatePool", name, devices, raid)
}

// DestroyPool destroys a pool and returns the path it had
func (c *BusClient) DestroyPool(ctx context.Context, name string) (dbus.ObjectPath, error) {
	return pathCall(ctx, c.manager(), paths.ManagerInterface, "DestroyPool", name)
}

// PoolPath resolves a pool name
func (c *BusClient) PoolPath(ctx context.Context, name string) (dbus.ObjectPath, error) {
	return pathCall(ctx, c.manager(), paths.ManagerInterface, "GetPoolObjectPath", name)
}

// ListVolumes returns the volume names of a pool
func (c *BusClient) ListVolumes(ctx context.Context, pool string) ([]string, error) {
	obj, err := c.pool(ctx, pool)
	if err != nil {
		return nil, err
	}
	return listCall(ctx, obj, paths.PoolInterface, "ListVolumes")
}

// CreateVolumes creates volumes in a pool. The aggregate error is returned
// alongside the per-item results.
func (c *BusClient) CreateVolumes(ctx context.Context, pool string, vols []VolumeArg) ([]ItemResult, error) {
	obj, err := c.pool(ctx, pool)
	if err != nil {
		return nil, err
	}
	return bulkCall(ctx, obj, "CreateVolumes", vols)
}

// DestroyVolumes destroys volumes in a pool
func (c *BusClient) DestroyVolumes(ctx context.Context, pool string, names []string) ([]ItemResult, error) {
	obj, err := c.pool(ctx, pool)
	if err != nil {
		return nil, err
	}
	return bulkCall(ctx, obj, "DestroyVolumes", names)
}

func (c *BusClient) pool(ctx context.Context, name string) (Caller, error) {
	path, err := c.PoolPath(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.objects(path), nil
}

// call invokes iface.method and stores the leading reply values in out;
// the trailing (q, s) status pair becomes the returned error
func call(ctx context.Context, obj Caller, iface, method string, args []interface{}, out ...interface{}) error {
	var (
		code uint16
		msg  string
	)
	dst := append(out, &code, &msg)
	if err := obj.CallWithContext(ctx, iface+"."+method, 0, args...).Store(dst...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return replyError(code, msg)
}

// listCall invokes a list method; those reply with the names only
func listCall(ctx context.Context, obj Caller, iface, method string) ([]string, error) {
	var names []string
	if err := obj.CallWithContext(ctx, iface+"."+method, 0).Store(&names); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return names, nil
}

func pathCall(ctx context.Context, obj Caller, iface, method string, args ...interface{}) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	if err := call(ctx, obj, iface, method, args, &path); err != nil {
		return "", err
	}
	return path, nil
}

func bulkCall(ctx context.Context, obj Caller, method string, arg interface{}) ([]ItemResult, error) {
	var results []ItemResult
	err := call(ctx, obj, paths.PoolInterface, method, []interface{}{arg}, &results)
	return results, err
}

func replyError(code uint16, msg string) error {
	if status.Code(code) == status.OK {
		return nil
	}
	return status.Errorf(status.Code(code), "%s", msg)
}
