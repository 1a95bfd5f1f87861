/*
Package coordinator drives a blue/green deployment run end to end.

A run is a sequential state machine over the cluster gateway:

	                 ┌──────────────────────────────────────────────┐
	                 │                 Coordinator                  │
	                 │                                              │
	  RunConfig ────▶│  Init ─▶ Namespace ─▶ Dependencies ─▶ App    │
	                 │                                      │       │
	                 │      Done ◀─ [Switch] ◀─ [Verify] ◀─ Service │
	                 └──────┬───────────┬──────────┬───────────┬────┘
	                        │           │          │           │
	                        ▼           ▼          ▼           ▼
	                     registry    switcher   verify      cluster

Verification and the traffic switch are optional stages, enabled per
run. A strict verification policy blocks a requested switch on a fail
verdict and ends the run as Failed at the verification stage; a
permissive policy reports the verdict and proceeds. When no switch is
requested, a fail verdict is attached to the result and the run still
reaches Done.

Failure handling is deliberately simple: the first error ends the run,
nothing is rolled back, and the failed stage is named in the result.
Every mutation is idempotent, so the recovery path is rerunning the
coordinator with the same parameters.

A run takes a named process-local lock for its namespace and stable
service, so concurrent runs against the same service serialize instead
of interleaving their switches.

Each stage is timed and counted in the metrics package, and key
transitions publish best-effort events through an optional notify
broker.
*/
package coordinator
