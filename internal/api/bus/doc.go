/*
Package bus exposes the registry on D-Bus.

Bus is the exposure transport: every pool, volume and device the registry
exposes is exported at {base}/{id} with three interfaces, its own
(org.storage.stratis1.pool, .volume, .dev or .cache),
org.freedesktop.DBus.Properties and org.freedesktop.DBus.Introspectable.
Removals are announced with ObjectManager.InterfacesRemoved on the base
path and property changes with Properties.PropertiesChanged.

Service turns bus calls into registry operations. Every method replies with
its value followed by a (uint16 status, string message) pair; a failed call
that would return a path returns "/". Bulk Add and Create methods reply
with one result per item, except AddCacheDevs, which replies with a single
path: the new device's when exactly one was added. Properties are served from explicit
per-type accessor tables and read live from the registry.

# Objects

	{base}/Manager   ListPools CreatePool DestroyPool GetPoolObjectPath
	                 GetVolumeObjectPath GetDevObjectPath GetCacheObjectPath
	                 GetErrorCodes GetRaidLevels GetDevTypes
	                 Version LogLevel(rw)
	pool             CreateVolumes DestroyVolumes ListVolumes ListDevs
	                 ListCacheDevs AddDevs AddCacheDevs RemoveDevs
	                 RemoveCacheDevs Rename
	                 Name Id Uuid RaidLevel Size(rw)
	volume           Rename CreateSnapshot
	                 Name Id Origin MountPoint(rw) Quota(rw)
	dev, cache       Name Id Type Size(rw)

# Usage

	b, err := bus.Connect(cfg.Bus, logger)
	exp := exposure.New(cfg.Bus.BasePath, b)
	reg := registry.New(id.NewAllocator(), exp)
	svc := bus.NewService(reg, bus.Info{Version: version, Logger: log})
	err = b.Serve(svc)
*/
package bus
