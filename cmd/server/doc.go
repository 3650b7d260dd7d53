// Package main implements the Rune Forge server server application.
//
// This is the main entry point for the Rune Forge server, a modern Go-based
// framework for creating turn-based RPG games inspired by the classic SSI
// Gold Box series. The server provides character management, combat
// systems, and world interactions to clients over a WebSocket connection
// (the /ws endpoint), and hosts the static web client.
//
// # Architecture
//
// The server application follows a clean separation of concerns:
//
//   - Configuration loading and validation (via pkg/config)
//   - Logging setup and initialization
//   - Server construction and HTTP/WebSocket serving (via pkg/server)
//   - Server lifecycle management with graceful shutdown
//   - Signal handling for SIGINT and SIGTERM
//
// # Startup Sequence
//
// 1. Load configuration from environment variables with secure defaults
// 2. Configure logging based on LOG_LEVEL setting
// 3. Build the server (principal decoder, character store, connection broker)
// 4. Listen on SERVER_PORT and serve HTTP and WebSocket traffic
// 5. Wait for a shutdown signal or a serve error, then shut down
//
// # Environment Variables
//
// The server supports the following environment variables:
//
//   - SERVER_PORT: HTTP server port (default: 8080)
//   - WEB_DIR: Static web file directory (default: ./web)
//   - SESSION_TIMEOUT: Session expiration time (default: 30m)
//   - LOG_LEVEL: Logging verbosity (debug, info, warn, error; default: info)
//   - ENABLE_DEV_MODE: Development mode flag (default: true)
//   - DATA_DIR: Persistence directory (default: ./data)
//   - SHUTDOWN_TIMEOUT: Graceful shutdown timeout (default: 30s)
//
// # Usage
//
// Run the server with default settings:
//
//	./server
//
// Run with custom port and debug logging:
//
//	SERVER_PORT=9000 LOG_LEVEL=debug ./server
//
// # Graceful Shutdown
//
// The server handles SIGINT (Ctrl+C) and SIGTERM signals gracefully:
//
// 1. Stop the connection broker and background monitors (Server.Shutdown)
// 2. Close the listener so no new connections are accepted
// 3. Exit
//
// Server.Shutdown runs under a context bounded by SHUTDOWN_TIMEOUT
// (default: 30s). No game state is saved as part of shutdown.
package main
