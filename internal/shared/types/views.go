package types

import "time"

// Banner is the reply of GET /
type Banner struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Health is the reply of GET /health
type Health struct {
	Status   string  `json:"status"`
	Bus      string  `json:"bus"`
	Uptime   float64 `json:"uptime_seconds"`
	Exposed  int     `json:"exposed_objects"`
	Registry Stats   `json:"registry"`
	Metrics  Metrics `json:"metrics"`
}

// Stats counts live entities
type Stats struct {
	Pools        int `json:"pools"`
	Volumes      int `json:"volumes"`
	Devices      int `json:"devices"`
	CacheDevices int `json:"cache_devices"`
}

// Metrics is the JSON view of the daemon counters
type Metrics struct {
	TotalRequests  int64 `json:"total_requests"`
	TotalErrors    int64 `json:"total_errors"`
	BusCalls       int64 `json:"bus_calls"`
	BusFailures    int64 `json:"bus_failures"`
	ExposedObjects int64 `json:"exposed_objects"`
}

// Pool is the JSON view of a pool
type Pool struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	UUID         string `json:"uuid"`
	Path         string `json:"path"`
	Raid         string `json:"raid"`
	RaidLevel    uint16 `json:"raid_level"`
	Size         uint64 `json:"size"`
	Volumes      int    `json:"volumes"`
	Devices      int    `json:"devices"`
	CacheDevices int    `json:"cache_devices"`
}

// PoolList is the reply of GET /pools
type PoolList struct {
	Pools []Pool `json:"pools"`
	Stats Stats  `json:"stats"`
}

// Volume is the JSON view of a volume or snapshot
type Volume struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Origin     string `json:"origin,omitempty"`
	MountPoint string `json:"mount_point"`
	Quota      string `json:"quota"`
}

// Device is the JSON view of a regular or cache device
type Device struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Type  string `json:"type"`
	Size  uint64 `json:"size"`
	Cache bool   `json:"cache"`
}

// Code describes one status code
type Code struct {
	Code        uint16 `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Error is the body of every non-2xx reply
type Error struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Event is one message of the /events stream
type Event struct {
	Type      string    `json:"type"`
	Path      string    `json:"path,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	ID        uint64    `json:"id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
