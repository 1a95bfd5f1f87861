/*
Package verify certifies a staged environment's health before traffic
cutover.

A verification passes when, within the caller's timeout:

  - at least one pod matches the environment selector (zero pods is an
    explicit fail, never a vacuous pass),
  - every matching pod reports ready, and
  - the stable service exists.

The verifier polls the cluster gateway until the checks pass or the
timeout elapses; a non-positive timeout degrades to a single
observation round. Failure reasons are distinguishable: no-pods,
pods-not-ready and service-missing describe an observed bad state,
while timeout is reserved for a platform that never answered inside
the window. A failing verdict is a report, not an error - whether it
blocks the subsequent traffic switch is the coordinator's policy
decision.
*/
package verify
