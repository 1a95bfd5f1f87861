/*
Package cluster is the thin gateway between Cutover and the Kubernetes
control plane.

The cluster package defines the Gateway interface - the only surface
through which any Cutover component touches the orchestration platform -
and its client-go implementation. Keeping the surface narrow makes every
caller testable against the fake clientset and removes the need to
shell out to kubectl: manifests are data decoded into typed objects,
not command-line fragments.

# Architecture

	┌─────────────────── CLUSTER GATEWAY ──────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐           │
	│  │            Gateway interface                │           │
	│  │  EnsureNamespace   idempotent create        │           │
	│  │  Apply             manifest file → objects  │           │
	│  │  GetPods           readiness by selector    │           │
	│  │  GetService        presence + live spec     │           │
	│  │  DeleteService     surfaces NotFound        │           │
	│  │  ExposeDeployment  service from deployment  │           │
	│  │  UpdateServiceSelector  in-place repoint    │           │
	│  │  SetDeploymentImage     typed set-image     │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │             KubeGateway                     │           │
	│  │  - typed clientset (client-go)              │           │
	│  │  - per-call timeout                         │           │
	│  │  - PlatformError wrapping, verbatim cause   │           │
	│  └────────────────────────────────────────────┘           │
	└───────────────────────────────────────────────────────────┘

# Error Semantics

Every control-plane failure is wrapped in a PlatformError naming the
operation and resource; the platform's own error stays reachable via
errors.Unwrap, so k8s error predicates (IsNotFound, IsAlreadyExists)
keep working through the wrapper. Nothing is retried and nothing is
swallowed here - the one tolerated condition, deleting a service that
is already gone, is the traffic switcher's decision, not the gateway's.

Apply is create-or-update per object. Re-applying a Service preserves
its live selector and cluster IP: routing only ever changes through an
explicit selector update, never as a side effect of a re-apply.
*/
package cluster
