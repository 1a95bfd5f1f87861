/*
Package notify distributes deployment events to interested subscribers.

The broker is fire-and-forget: Publish never blocks the deployment run,
a full broker buffer drops the event, and a slow subscriber is skipped
rather than waited on. Notification failure must never fail a rollout.

Events cover the key transitions of a run: start, each deployment
stage, verification outcome, traffic switch, and final result. The
LogEvents helper is the built-in sink that mirrors events into the
structured log; external sinks (chat, mail) subscribe the same way.
*/
package notify
