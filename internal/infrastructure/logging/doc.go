// Package logging provides structured logging using uber/zap.
//
// Two output modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// The level is a zap.AtomicLevel shared by the logger and every child from
// Named, so the daemon's LogLevel property can change it at runtime.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("daemon starting", zap.String("bus", "system"))
//	_ = logger.SetLevel("debug")
package logging
