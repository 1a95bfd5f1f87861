/*
Package types defines the core data model shared across Cutover packages.

The types package contains the Environment enum, the immutable run
configuration, routing and verification result types, and the
configuration error type. It has no dependencies on other Cutover
packages so that every component can consume it without import cycles.

# Core Types

Environment:
  - One of "blue" or "green"
  - Maps to the pod label selector "version=<environment>"
  - Other() returns the opposite variant for rollback tooling

DeploymentTarget:
  - Immutable description of what a single run deploys
  - Built once from run parameters, passed by value

RoutingState:
  - Which environment the stable service currently routes to
  - Derived live from the cluster, never cached as a source of truth

VerificationResult:
  - Ephemeral pass/fail verdict with a distinguishable reason
  - ReasonTimeout is reserved for the platform not answering in time;
    observed bad state keeps its own reason (no-pods, pods-not-ready,
    service-missing)

RunConfig:
  - The full parameter surface of one coordinator run
  - Validate() enforces parameter invariants before any cluster call
  - TagMismatch() surfaces the image-tag/environment decoupling as a
    warning instead of silently deploying a mismatched image

# Error Taxonomy

ConfigError is the only error type defined here. Platform errors are
defined in pkg/cluster next to the gateway that produces them, and
verification failures travel as verdicts, not errors.
*/
package types
