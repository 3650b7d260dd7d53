// Package server wires the Connection Broker into an HTTP server: the
// WebSocket upgrade endpoint, static web client hosting, and the
// operational surface (health checks, Prometheus metrics, pprof,
// graceful shutdown) that sits in front of it.
//
// # Server Architecture
//
// Server is the main instance that coordinates:
//
//   - The WebSocket endpoint, upgrading via *transport.Upgrader and
//     handing each connection straight to *broker.Broker
//
//   - Request validation, rate limiting, and metrics collection
//
//   - Health/readiness/liveness checks and performance monitoring
//
//     cfg, _ := config.Load()
//     srv, _ := server.New(cfg)
//     srv.Serve(listener)
//
// # Operational Features
//
//   - Health checks at /health, /ready, /live endpoints
//   - Prometheus metrics at /metrics
//   - Request rate limiting with configurable thresholds
//   - Pprof profiling when enabled
//
// # Thread Safety
//
// All server operations are safe for concurrent use; per-connection state
// lives inside the broker, not in this package.
package server
