// Package metric provides the Prometheus metrics for statehttpd.
//
// Metrics include:
//
//   - HTTP requests by dispatch route and status
//   - Request latency histograms
//   - Active session gauge and authentication failures
//
// Metrics are exposed by the /metrics endpoint in Prometheus text format.
package metric
