package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/stratisd/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
	"github.com/GriffinCanCode/stratisd/internal/shared/types"
)

// StatusConfig tunes the status client
type StatusConfig struct {
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
	RateLimit rate.Limit
	Burst     int
	Breaker   resilience.Settings
	UserAgent string
}

// DefaultStatusConfig returns the configuration used by stratis-min
func DefaultStatusConfig() StatusConfig {
	return StatusConfig{
		Timeout:   10 * time.Second,
		Retries:   2,
		RetryWait: 200 * time.Millisecond,
		RateLimit: rate.Inf,
		Breaker: resilience.Settings{
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		},
		UserAgent: "stratis-min/1.0",
	}
}

// StatusClient reads the daemon's HTTP status endpoint
type StatusClient struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewStatusClient creates a client for the endpoint at baseURL
func NewStatusClient(baseURL string, cfg StatusConfig) *StatusClient {
	// Pooled transport with sane dial and idle timeouts; resty does the retrying
	transport := retryablehttp.NewClient().HTTPClient.Transport

	r := resty.New().
		SetTransport(transport).
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryWait*8).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent).
		SetJSONUnmarshaler(sonic.Unmarshal).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	settings := cfg.Breaker
	settings.IsSuccessful = answered
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &StatusClient{
		resty:   r,
		limiter: rate.NewLimiter(cfg.RateLimit, burst),
		breaker: resilience.New("status", settings),
	}
}

// answered reports whether err is a reply from a healthy daemon, such as
// a not-found answer
func answered(err error) bool {
	if err == nil {
		return true
	}
	var e *status.E
	return errors.As(err, &e) && e.Code != status.Error
}

// Breaker exposes the client's circuit breaker
func (c *StatusClient) Breaker() *resilience.Breaker {
	return c.breaker
}

// Banner fetches GET /
func (c *StatusClient) Banner(ctx context.Context) (types.Banner, error) {
	return get[types.Banner](ctx, c, "/", nil)
}

// Health fetches GET /health
func (c *StatusClient) Health(ctx context.Context) (types.Health, error) {
	return get[types.Health](ctx, c, "/health", nil)
}

// Pools fetches GET /pools
func (c *StatusClient) Pools(ctx context.Context) (types.PoolList, error) {
	return get[types.PoolList](ctx, c, "/pools", nil)
}

// Pool fetches GET /pools/:name
func (c *StatusClient) Pool(ctx context.Context, name string) (types.Pool, error) {
	return get[types.Pool](ctx, c, "/pools/{name}", map[string]string{"name": name})
}

// Volumes fetches GET /pools/:name/volumes
func (c *StatusClient) Volumes(ctx context.Context, pool string) ([]types.Volume, error) {
	out, err := get[struct {
		Volumes []types.Volume `json:"volumes"`
	}](ctx, c, "/pools/{name}/volumes", map[string]string{"name": pool})
	return out.Volumes, err
}

// Devices fetches GET /pools/:name/devices
func (c *StatusClient) Devices(ctx context.Context, pool string) ([]types.Device, error) {
	out, err := get[struct {
		Devices []types.Device `json:"devices"`
	}](ctx, c, "/pools/{name}/devices", map[string]string{"name": pool})
	return out.Devices, err
}

// CacheDevices fetches GET /pools/:name/cachedevs
func (c *StatusClient) CacheDevices(ctx context.Context, pool string) ([]types.Device, error) {
	out, err := get[struct {
		CacheDevices []types.Device `json:"cache_devices"`
	}](ctx, c, "/pools/{name}/cachedevs", map[string]string{"name": pool})
	return out.CacheDevices, err
}

// ErrorCodes fetches GET /errors
func (c *StatusClient) ErrorCodes(ctx context.Context) ([]types.Code, error) {
	out, err := get[struct {
		Codes []types.Code `json:"codes"`
	}](ctx, c, "/errors", nil)
	return out.Codes, err
}

func get[T any](ctx context.Context, c *StatusClient, path string, params map[string]string) (T, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("rate limit: %w", err)
	}

	return resilience.Do(c.breaker, func() (T, error) {
		var (
			out    T
			apiErr types.Error
		)
		headers := make(map[string]string)
		tracing.InjectTraceContext(ctx, headers)

		resp, err := c.resty.R().
			SetContext(ctx).
			SetHeaders(headers).
			SetPathParams(params).
			SetResult(&out).
			SetError(&apiErr).
			Get(path)
		if err != nil {
			return zero, fmt.Errorf("GET %s: %w", path, err)
		}
		if resp.IsError() {
			return zero, replyFromHTTP(resp.StatusCode(), apiErr)
		}
		return out, nil
	})
}

// replyFromHTTP turns an error body back into a coded error
func replyFromHTTP(httpStatus int, body types.Error) error {
	code, ok := status.ParseCode(body.Code)
	if !ok {
		code = status.Error
	}
	msg := body.Error
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", httpStatus)
	}
	return status.Errorf(code, "%s", msg)
}
