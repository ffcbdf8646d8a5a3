/*
Package monitoring provides Prometheus metrics for the daemon.

# Overview

Every collector is registered on a registry owned by the Metrics value
rather than the global default, so each daemon instance (and each test)
gets an isolated set.

# Metrics

  - HTTP request counters, latency and response size for the status endpoint
  - registry_operations_total{op,status}: registry mutations by result code
  - exposed_objects{kind}: objects currently exported on the bus
  - batch_items_total{op,status}: bulk operation items
  - bus_calls_total{method,status} and bus_call_duration_seconds
  - event stream connections and messages
  - uptime plus Go runtime and process collectors

# Usage

	metrics := monitoring.NewMetrics()

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", monitoring.Handler(metrics))

	timer := monitoring.NewTimer(metrics, "CreatePool")
	// ... dispatch ...
	timer.Stop(code.String())
*/
package monitoring
