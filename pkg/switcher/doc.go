/*
Package switcher commits the blue/green cutover by repointing the
stable service at the target environment's deployment.

Two strategies are supported:

Selector patch (default):
  - One in-place update of the service selector
  - Applied atomically by the platform; clients never observe a
    missing stable service
  - Requires update permission on services

Recreate (legacy):
  - Delete the stable service (an already-absent service is treated as
    success - the only place a NotFound is tolerated), then expose the
    target deployment under the same stable name
  - Leaves a window between delete and create with no stable endpoint;
    use only where the deploy role cannot update services

Switching is idempotent: repointing at the environment that is already
live succeeds and leaves the routing state unchanged. A completed
switch is recorded in the environment registry.
*/
package switcher
