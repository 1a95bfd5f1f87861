package registry

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/cutover/pkg/cluster"
	"github.com/cuemby/cutover/pkg/log"
	"github.com/cuemby/cutover/pkg/types"
)

// Registry tracks which environment is live. The cluster is the source
// of truth: Current always derives the answer from the stable service's
// actual selector, and the in-memory record is only a cache of the last
// observed or recorded binding. Run parameters never override what the
// cluster reports.
type Registry struct {
	gateway   cluster.Gateway
	namespace string
	service   string

	mu        sync.RWMutex
	recorded  types.RoutingState
	hasRecord bool

	logger zerolog.Logger
}

// New creates a registry for the stable service in the namespace.
func New(gateway cluster.Gateway, namespace, service string) *Registry {
	return &Registry{
		gateway:   gateway,
		namespace: namespace,
		service:   service,
		logger:    log.WithComponent("registry"),
	}
}

// Current queries the stable service and derives the routing state from
// its live selector. An absent service, or a selector without a valid
// version label, yields a state with no active environment.
func (r *Registry) Current(ctx context.Context) (types.RoutingState, error) {
	state := types.RoutingState{ServiceName: r.service}

	svc, found, err := r.gateway.GetService(ctx, r.namespace, r.service)
	if err != nil {
		return state, err
	}
	if found {
		env := types.Environment(svc.Spec.Selector[types.VersionLabel])
		if env.Valid() {
			state.ActiveEnvironment = env
		}
	}

	r.mu.Lock()
	r.recorded = state
	r.hasRecord = true
	r.mu.Unlock()

	return state, nil
}

// RecordSwitch caches a completed traffic switch. Pure bookkeeping, no
// cluster I/O.
func (r *Registry) RecordSwitch(env types.Environment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recorded = types.RoutingState{ServiceName: r.service, ActiveEnvironment: env}
	r.hasRecord = true
	r.logger.Debug().Str("environment", string(env)).Msg("switch recorded")
}

// LastRecorded returns the cached routing state, if any observation or
// switch has been recorded. Callers that need the truth use Current.
func (r *Registry) LastRecorded() (types.RoutingState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recorded, r.hasRecord
}
