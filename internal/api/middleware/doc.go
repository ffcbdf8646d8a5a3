// Package middleware provides the HTTP middleware of the status endpoint.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing for read-only dashboards
//   - RateLimit: Per-IP token bucket rate limiting
//   - GlobalRateLimit: One bucket shared by every client
//   - Gzip: Response compression (klauspost/compress)
//
// Rate Limiting:
//   - Per-IP tracking; idle buckets are swept after IdleTTL
//   - Token bucket algorithm (golang.org/x/time/rate)
//   - Configurable RPS and burst capacity
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
//	router.Use(middleware.Gzip(gzip.DefaultCompression, "/metrics", "/events"))
package middleware
