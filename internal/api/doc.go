// Package api implements the station's local HTTP API and WebSocket stream.
//
// This package provides:
//   - Health and status endpoints for installers and fleet monitoring
//   - A provisioning reset endpoint (the software equivalent of the button)
//   - Runtime and component metrics
//   - A WebSocket stream of completed sync cycles
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Architecture
//
// The API never touches sync loop state. It reads the station.StatusBoard the
// loop publishes to after every cycle, and raises the provisioning trigger,
// which the loop honours at its next tick.
//
// # Endpoints
//
//	GET  /api/v1/health
//	GET  /api/v1/status
//	GET  /api/v1/metrics
//	POST /api/v1/provisioning/reset   -> 202 Accepted
//	GET  /api/v1/ws                   -> cycle.completed events
//
// # Security
//
// The API is intended for the site LAN and carries no authentication.
// Bind it to a management interface with api.host.
package api
