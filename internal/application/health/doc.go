// Package health implements a background monitor that periodically probes
// the service's own name lookup path and reports the outcome.
//
// The monitor is read by the /health endpoint: the service reports itself
// unhealthy once a probe fails and healthy again after the next success.
package health
