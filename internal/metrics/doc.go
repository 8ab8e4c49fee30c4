// Package metrics holds the Prometheus collectors for the relay's send path,
// receive path, jitter buffer, configuration reloads and HTTP monitor.
package metrics
