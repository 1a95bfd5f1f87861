/*
Package api exposes the HTTP status surface of a deployment run.

Three endpoints are served:

	/health   liveness check, always 200 while the process runs
	/status   JSON routing state and per-environment pod readiness
	/metrics  Prometheus metrics

The server is optional; the CLI starts it only when a listen address is
given. It reads through the environment registry and cluster gateway,
so /status always reflects the live cluster rather than run-local
bookkeeping.
*/
package api
