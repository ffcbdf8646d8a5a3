// Package main is the entry point for stratisd.
//
// stratisd keeps an in-memory registry of storage pools, their volumes,
// block devices and cache devices, and publishes each entity as an object
// on D-Bus under org.storage.stratis1. A read-only HTTP status endpoint
// mirrors the registry for dashboards and scripts.
//
// Configuration:
//   - Environment variables (12-factor)
//   - An optional YAML file (-config)
//   - CLI flags (override both)
//
// Usage:
//
//	# System bus, status endpoint on 127.0.0.1:8700
//	./stratisd
//
//	# Session bus with demo pools, debug logs
//	./stratisd -bus session -seed 'seed/**/*.yaml' -dev
//
//	# No bus at all, status endpoint only
//	./stratisd -bus none -port 9000
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
