package verify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/cutover/pkg/cluster"
	"github.com/cuemby/cutover/pkg/log"
	"github.com/cuemby/cutover/pkg/types"
)

// DefaultInterval is the pause between verification polls.
const DefaultInterval = 2 * time.Second

// Verifier certifies a staged environment's health before cutover: all
// pods matching the environment selector must be ready, at least one
// pod must exist, and the stable service must be present.
type Verifier struct {
	gateway   cluster.Gateway
	namespace string
	service   string
	interval  time.Duration
	logger    zerolog.Logger
}

// New creates a verifier for the stable service in the namespace.
func New(gateway cluster.Gateway, namespace, service string) *Verifier {
	return &Verifier{
		gateway:   gateway,
		namespace: namespace,
		service:   service,
		interval:  DefaultInterval,
		logger:    log.WithComponent("verify"),
	}
}

// WithInterval overrides the polling interval.
func (v *Verifier) WithInterval(d time.Duration) *Verifier {
	v.interval = d
	return v
}

// Verify polls until the environment passes or the timeout elapses.
// The returned verdict is fail in two distinguishable ways: an observed
// bad state keeps its own reason (no-pods, pods-not-ready,
// service-missing), while ReasonTimeout is reserved for the platform
// not answering within the timeout at all.
//
// A non-positive timeout performs exactly one observation round and
// returns its result without waiting; the call never blocks past the
// gateway's own per-call timeout.
func (v *Verifier) Verify(ctx context.Context, env types.Environment, timeout time.Duration) types.VerificationResult {
	start := time.Now()

	single := timeout <= 0
	if !single {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Until the first successful observation, a fail is a timeout:
	// the platform never answered inside the window. After an
	// observation, the deadline keeps the last observed reason so an
	// explicit health failure is not reported as a timeout.
	last := types.VerificationResult{
		Environment: env,
		Verdict:     types.VerdictFail,
		Reason:      types.ReasonTimeout,
	}

	for {
		result, err := v.check(ctx, env)
		if err != nil {
			if ctx.Err() != nil || single {
				break
			}
			v.logger.Warn().Err(err).Str("environment", string(env)).Msg("verification query failed, retrying")
		} else {
			last = result
			if result.Passed() || single {
				break
			}
			v.logger.Debug().
				Str("environment", string(env)).
				Str("reason", string(result.Reason)).
				Msg("environment not ready yet")
		}

		select {
		case <-ctx.Done():
			goto done
		case <-time.After(v.interval):
		}
	}

done:
	last.CheckedAt = start
	last.Duration = time.Since(start)

	v.logger.Info().
		Str("environment", string(env)).
		Str("verdict", string(last.Verdict)).
		Str("reason", string(last.Reason)).
		Dur("duration", last.Duration).
		Msg("verification complete")
	return last
}

// check performs one observation round: pod readiness by environment
// selector, then stable service presence.
func (v *Verifier) check(ctx context.Context, env types.Environment) (types.VerificationResult, error) {
	result := types.VerificationResult{Environment: env}

	pods, err := v.gateway.GetPods(ctx, v.namespace, env.Selector())
	if err != nil {
		return result, err
	}

	_, serviceFound, err := v.gateway.GetService(ctx, v.namespace, v.service)
	if err != nil {
		return result, err
	}
	result.ServiceReachable = serviceFound

	// Zero pods is an explicit fail, never a vacuous pass.
	switch {
	case len(pods) == 0:
		result.Reason = types.ReasonNoPods
	default:
		result.PodsReady = true
		for _, pod := range pods {
			if !pod.Ready {
				result.PodsReady = false
				result.Reason = types.ReasonPodsNotReady
				break
			}
		}
	}

	if result.Reason == types.ReasonNone && !serviceFound {
		result.Reason = types.ReasonServiceMissing
	}

	if result.PodsReady && result.ServiceReachable {
		result.Verdict = types.VerdictPass
	} else {
		result.Verdict = types.VerdictFail
	}

	return result, nil
}
