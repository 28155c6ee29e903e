// Package loopback implements the outbound HTTP call one handler makes to
// another endpoint of the same process.
//
// Calls carry the caller's trace context and baggage through an
// otelhttp transport, so the downstream span joins the caller's trace.
package loopback
