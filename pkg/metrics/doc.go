/*
Package metrics exposes Prometheus metrics for deployment runs.

Collectors are package-level and registered once at init. The
coordinator records a counter per run keyed by environment and result,
a histogram of per-stage durations, per-stage failure counters, and
counters for verification verdicts and traffic switches by strategy.

Handler returns the standard promhttp handler for embedding in any
HTTP mux when the CLI is run with a metrics listener.
*/
package metrics
