// Package server implements the HTTP monitoring API of a relay endpoint:
// health with the endpoint state, send and receive statistics, the active
// configuration with the key redacted, and Prometheus metrics.
package server
