package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/domain/registry"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
	"github.com/GriffinCanCode/stratisd/internal/shared/types"
)

// Info describes the running daemon
type Info struct {
	Version string
	Bus     string
}

// Handlers serves the read-only status endpoint
type Handlers struct {
	reg     *registry.Registry
	exp     *exposure.Manager
	metrics *monitoring.Metrics
	info    Info
	started time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(reg *registry.Registry, metrics *monitoring.Metrics, info Info) *Handlers {
	return &Handlers{
		reg:     reg,
		exp:     reg.Exposer(),
		metrics: metrics,
		info:    info,
		started: time.Now(),
	}
}

// Routes registers every registry route on r
func (h *Handlers) Routes(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/errors", h.ListErrorCodes)

	r.GET("/pools", h.ListPools)
	r.GET("/pools/:name", h.GetPool)
	r.GET("/pools/:name/volumes", h.ListVolumes)
	r.GET("/pools/:name/devices", h.ListDevices)
	r.GET("/pools/:name/cachedevs", h.ListCacheDevices)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, types.Banner{
		Status:  "online",
		Service: paths.ServiceName,
		Version: h.info.Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	snap := h.metrics.Snapshot()
	stats := h.reg.Stats()

	c.JSON(http.StatusOK, types.Health{
		Status:   "healthy",
		Bus:      h.info.Bus,
		Uptime:   time.Since(h.started).Seconds(),
		Exposed:  h.exp.Len(),
		Registry: statsView(stats),
		Metrics: types.Metrics{
			TotalRequests:  snap.TotalRequests,
			TotalErrors:    snap.TotalErrors,
			BusCalls:       snap.BusCalls,
			BusFailures:    snap.BusFailures,
			ExposedObjects: snap.ExposedObjects,
		},
	})
}

// ListPools lists every live pool
func (h *Handlers) ListPools(c *gin.Context) {
	pools := h.reg.Pools()
	out := make([]types.Pool, len(pools))
	for i, p := range pools {
		out[i] = poolView(p)
	}
	c.JSON(http.StatusOK, types.PoolList{Pools: out, Stats: statsView(h.reg.Stats())})
}

// GetPool describes one pool
func (h *Handlers) GetPool(c *gin.Context) {
	p, ok := h.pool(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, poolView(p))
}

// ListVolumes lists a pool's volumes and snapshots
func (h *Handlers) ListVolumes(c *gin.Context) {
	p, ok := h.pool(c)
	if !ok {
		return
	}
	vols := p.Volumes()
	out := make([]types.Volume, len(vols))
	for i, v := range vols {
		out[i] = volumeView(v)
	}
	c.JSON(http.StatusOK, gin.H{"volumes": out})
}

// ListDevices lists a pool's regular devices
func (h *Handlers) ListDevices(c *gin.Context) {
	p, ok := h.pool(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": deviceViews(p.Devices())})
}

// ListCacheDevices lists a pool's cache devices
func (h *Handlers) ListCacheDevices(c *gin.Context) {
	p, ok := h.pool(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"cache_devices": deviceViews(p.CacheDevices())})
}

// ListErrorCodes lists the status code table
func (h *Handlers) ListErrorCodes(c *gin.Context) {
	codes := status.Codes()
	out := make([]types.Code, len(codes))
	for i, code := range codes {
		out[i] = types.Code{Code: uint16(code), Name: code.String(), Description: code.Description()}
	}
	c.JSON(http.StatusOK, gin.H{"codes": out})
}

func (h *Handlers) pool(c *gin.Context) (*registry.Pool, bool) {
	p, err := h.reg.Pool(c.Param("name"))
	if err != nil {
		abort(c, err)
		return nil, false
	}
	return p, true
}

// abort replies with the error's status code mapped to HTTP
func abort(c *gin.Context, err error) {
	code := status.CodeOf(err)
	c.AbortWithStatusJSON(httpStatus(code), types.Error{
		Error: status.Message(err),
		Code:  code.String(),
	})
}

func httpStatus(code status.Code) int {
	switch code {
	case status.OK:
		return http.StatusOK
	case status.NotFound, status.PoolNotFound, status.VolumeNotFound, status.DevNotFound, status.CacheNotFound, status.NoPools:
		return http.StatusNotFound
	case status.Null, status.NullName, status.BadParam:
		return http.StatusBadRequest
	case status.AlreadyExists, status.DuplicateName:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
