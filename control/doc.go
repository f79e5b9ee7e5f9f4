// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, configuration control, and debug
// introspection layer for the reactor engine.
//
// Provides concurrent-safe state handling primitives including:
//   - viper-backed config reads and atomic updates (config.go)
//   - Runtime observers for hot-reload (hotreload.go)
//   - prometheus metrics telemetry (metrics.go)
//   - State export, debug hooks, and probe registration (debug.go)
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
