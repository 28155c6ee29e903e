// Package http provides the HTTP API of the hello world service.
//
// The HTTP server exposes endpoints for:
//   - The index greeting, built from a loopback call to /user
//   - The user name
//   - Health checks
//   - Prometheus metrics
//
// Every request runs through the same middleware chain: request ID,
// one server span, duration metrics, request logging and panic recovery.
package http
