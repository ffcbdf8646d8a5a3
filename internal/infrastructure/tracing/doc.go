/*
Package tracing provides lightweight in-process tracing for the daemon.

# Overview

Every bus method call and every status endpoint request runs under a span.
Spans carry ULID trace and span ids, are collected on a buffered channel and
written through zap when they finish.

# Usage

	tracer := tracing.New("stratisd", logger)
	defer tracer.Close()

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Wrapping an operation
	err := tracer.Run(ctx, "Manager.CreatePool", func(ctx context.Context) (string, error) {
		...
		return "STRATIS_OK", nil
	})

# Trace Format

HTTP requests propagate context with two headers:
  - X-Trace-ID: Unique identifier for the entire request flow
  - X-Span-ID: Identifier for the current operation
*/
package tracing
