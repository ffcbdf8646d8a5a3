// Package registry is the in-memory model of pools, volumes, devices and
// cache devices.
//
// Every entity is created through the registry, which allocates its id,
// enforces name uniqueness in its scope and publishes it on the bus through
// an exposure.Manager. An entity is only visible to lookups and listings
// once it is fully formed and exposed.
//
// Components:
//   - Registry: pool table and single-entity operations
//   - bulk.go: per-item batch forms used by the bus methods
//   - Seeder: replays yaml, toml or json seed files at startup
//
// Lifecycle:
//
//	reserved ──expose ok──▶ live ──destroy──▶ retiring ──▶ removed
//	    └──expose failed──▶ removed
//
// Example Usage:
//
//	reg := registry.New(id.NewAllocator(), exposer, registry.WithLogger(log))
//	pool, err := reg.CreatePool(registry.PoolSpec{Name: "p1", Raid: registry.RaidSingle})
//	report, err := reg.CreateVolumes("p1", []registry.VolumeSpec{{Name: "v1", MountPoint: "/m1", Quota: "1G"}})
//	err = reg.DestroyPool("p1")
package registry
