// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Video generation requests
//   - Task status queries and cancellation
//   - The video catalogue
//   - Concept search
//   - Health checks
//   - Prometheus metrics
package http
