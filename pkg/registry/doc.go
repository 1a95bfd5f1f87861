/*
Package registry tracks which of the two environments is live.

The cluster is the source of truth: Current derives the routing state
from the stable service's actual selector on every call, so a rollout
driven with stale parameters cannot disagree with reality. The
in-memory record updated by RecordSwitch is a cache for reporting, not
an authority.
*/
package registry
