package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/cutover/pkg/cluster"
	"github.com/cuemby/cutover/pkg/lock"
	"github.com/cuemby/cutover/pkg/log"
	"github.com/cuemby/cutover/pkg/manifest"
	"github.com/cuemby/cutover/pkg/metrics"
	"github.com/cuemby/cutover/pkg/notify"
	"github.com/cuemby/cutover/pkg/registry"
	"github.com/cuemby/cutover/pkg/switcher"
	"github.com/cuemby/cutover/pkg/types"
	"github.com/cuemby/cutover/pkg/verify"
)

// Stage names a step of the deployment state machine.
type Stage string

const (
	StageInit          Stage = "init"
	StageNamespace     Stage = "namespace"
	StageDependencies  Stage = "dependencies"
	StageApp           Stage = "app"
	StageService       Stage = "service"
	StageVerification  Stage = "verification"
	StageTrafficSwitch Stage = "traffic-switch"
	StageDone          Stage = "done"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusSucceeded Status = "success"
	StatusFailed    Status = "failed"
)

// Result is the outcome of a single coordinator run.
type Result struct {
	RunID        string
	Status       Status
	FailedStage  Stage
	Verification *types.VerificationResult
	Routing      types.RoutingState
	Err          error
}

// Succeeded reports whether the run reached Done.
func (r Result) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Summary renders the operator-facing final status.
func (r Result) Summary() string {
	if r.Succeeded() {
		return "Success"
	}
	return fmt.Sprintf("Failed-at-%s", r.FailedStage)
}

// defaultLocks serializes runs against the same stable service within
// this process.
var defaultLocks = lock.NewRegistry()

// Coordinator drives one blue/green deployment run as a sequential
// state machine:
//
//	Init -> Namespace -> Dependencies -> App -> Service
//	     -> [Verification] -> [TrafficSwitch] -> Done
//
// Any unrecovered platform error moves the run to the terminal Failed
// state. Cluster mutations already made are not rolled back; a rerun is
// an operator action.
type Coordinator struct {
	cfg      types.RunConfig
	gateway  cluster.Gateway
	registry *registry.Registry
	verifier *verify.Verifier
	switcher *switcher.Switcher
	broker   *notify.Broker
	locks    *lock.Registry
}

// New creates a coordinator for one run configuration.
func New(gateway cluster.Gateway, cfg types.RunConfig) *Coordinator {
	reg := registry.New(gateway, cfg.Namespace, cfg.ServiceName)
	return &Coordinator{
		cfg:      cfg,
		gateway:  gateway,
		registry: reg,
		verifier: verify.New(gateway, cfg.Namespace, cfg.ServiceName),
		switcher: switcher.New(gateway, reg, switcher.Config{
			Namespace:   cfg.Namespace,
			AppName:     cfg.AppName,
			ServiceName: cfg.ServiceName,
			Port:        cfg.Port,
			TargetPort:  cfg.TargetPort,
			Strategy:    cfg.Strategy,
		}),
		locks: defaultLocks,
	}
}

// WithBroker attaches a notification broker. Without one, events are
// silently discarded.
func (c *Coordinator) WithBroker(b *notify.Broker) *Coordinator {
	c.broker = b
	return c
}

// WithLockRegistry overrides the run lock registry.
func (c *Coordinator) WithLockRegistry(r *lock.Registry) *Coordinator {
	c.locks = r
	return c
}

// Registry exposes the environment registry backing this run.
func (c *Coordinator) Registry() *registry.Registry {
	return c.registry
}

// Run executes the deployment. The context bounds the whole run; a
// cancellation is honored between stages, never in the middle of a
// mutating call.
func (c *Coordinator) Run(ctx context.Context) Result {
	result := Result{
		RunID:  uuid.New().String()[:8],
		Status: StatusFailed,
	}
	logger := log.WithRunID(result.RunID).With().Str("component", "coordinator").Logger()

	if err := c.cfg.Validate(); err != nil {
		return c.finish(logger, fail(result, StageInit, err))
	}
	if msg, mismatch := c.cfg.TagMismatch(); mismatch {
		logger.Warn().Msg(msg)
	}

	set, err := manifest.Resolve(c.cfg.AppName, c.cfg.Target())
	if err != nil {
		return c.finish(logger, fail(result, StageInit, err))
	}

	// Two runs racing on the same stable service would interleave
	// their switches; serialize them for the whole run.
	release := c.locks.Acquire(lock.Key(c.cfg.Namespace, c.cfg.ServiceName))
	defer release()

	logger.Info().
		Str("environment", string(c.cfg.Environment)).
		Str("namespace", c.cfg.Namespace).
		Bool("switch_traffic", c.cfg.SwitchTraffic).
		Msg("deployment run started")
	c.publish(result.RunID, notify.EventDeployStarted, "deployment run started")

	stages := []struct {
		stage Stage
		fn    func(context.Context) error
		event notify.EventType
	}{
		{StageNamespace, func(ctx context.Context) error { return c.ensureNamespace(ctx, set) }, ""},
		{StageDependencies, func(ctx context.Context) error { return c.applyDependencies(ctx, set) }, notify.EventDependenciesDeployed},
		{StageApp, func(ctx context.Context) error { return c.deployApp(ctx, set) }, notify.EventAppDeployed},
		{StageService, func(ctx context.Context) error { return c.gateway.Apply(ctx, set.Service, c.cfg.Namespace) }, notify.EventServiceDeployed},
	}
	for _, s := range stages {
		if err := c.runStage(ctx, s.stage, s.fn); err != nil {
			return c.finish(logger, fail(result, s.stage, err))
		}
		if s.event != "" {
			c.publish(result.RunID, s.event, fmt.Sprintf("stage %s complete", s.stage))
		}
	}

	if c.cfg.Verify {
		timer := metrics.NewTimer()
		verification := c.verifier.Verify(ctx, c.cfg.Environment, c.cfg.Timeout)
		timer.ObserveStage(string(StageVerification))
		result.Verification = &verification
		metrics.VerificationsTotal.WithLabelValues(string(verification.Verdict)).Inc()
		c.publish(result.RunID, notify.EventVerificationCompleted,
			fmt.Sprintf("verification %s (%s)", verification.Verdict, verification.Reason))

		// A fail verdict is a report, not an error. It only fails the
		// run when a strict policy blocks a requested switch.
		if !verification.Passed() && c.cfg.SwitchTraffic && c.policy() == types.PolicyStrict {
			err := fmt.Errorf("verification failed (%s), refusing to switch traffic under strict policy", verification.Reason)
			return c.finish(logger, fail(result, StageVerification, err))
		}
	}

	if c.cfg.SwitchTraffic {
		err := c.runStage(ctx, StageTrafficSwitch, func(ctx context.Context) error {
			return c.switcher.SwitchTo(ctx, c.cfg.Environment)
		})
		if err != nil {
			return c.finish(logger, fail(result, StageTrafficSwitch, err))
		}
		metrics.TrafficSwitchesTotal.WithLabelValues(string(c.cfg.Environment), string(c.strategy())).Inc()
		c.publish(result.RunID, notify.EventTrafficSwitched,
			fmt.Sprintf("traffic switched to %s", c.cfg.Environment))
	}

	if routing, err := c.registry.Current(ctx); err == nil {
		result.Routing = routing
	} else {
		logger.Warn().Err(err).Msg("could not read final routing state")
		result.Routing, _ = c.registry.LastRecorded()
	}

	result.Status = StatusSucceeded
	result.FailedStage = ""
	return c.finish(logger, result)
}

func (c *Coordinator) policy() types.VerificationPolicy {
	if c.cfg.Policy == "" {
		return types.PolicyStrict
	}
	return c.cfg.Policy
}

func (c *Coordinator) strategy() types.SwitchStrategy {
	if c.cfg.Strategy == "" {
		return types.StrategySelectorPatch
	}
	return c.cfg.Strategy
}

// runStage checks for cancellation, times the stage, and records a
// failure metric on error.
func (c *Coordinator) runStage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run aborted before stage %s: %w", stage, err)
	}

	timer := metrics.NewTimer()
	err := fn(ctx)
	timer.ObserveStage(string(stage))
	if err != nil {
		metrics.StageFailures.WithLabelValues(string(stage)).Inc()
	}
	return err
}

func (c *Coordinator) ensureNamespace(ctx context.Context, set manifest.Set) error {
	if set.Namespace != "" {
		return c.gateway.Apply(ctx, set.Namespace, c.cfg.Namespace)
	}
	_, err := c.gateway.EnsureNamespace(ctx, c.cfg.Namespace)
	return err
}

func (c *Coordinator) applyDependencies(ctx context.Context, set manifest.Set) error {
	for _, dep := range set.Dependencies {
		if err := c.gateway.Apply(ctx, dep, c.cfg.Namespace); err != nil {
			return err
		}
	}
	return nil
}

// deployApp applies the environment's workload manifest, then overrides
// the container image when the run carries one.
func (c *Coordinator) deployApp(ctx context.Context, set manifest.Set) error {
	if err := c.gateway.Apply(ctx, set.App, c.cfg.Namespace); err != nil {
		return err
	}

	if c.cfg.Image == "" {
		return nil
	}
	image := c.cfg.Image
	if c.cfg.ImageTag != "" {
		image = fmt.Sprintf("%s:%s", c.cfg.Image, c.cfg.ImageTag)
	}

	deploymentName, containerName, err := set.AppDeployment()
	if err != nil {
		return err
	}
	return c.gateway.SetDeploymentImage(ctx, c.cfg.Namespace, deploymentName, containerName, image)
}

func (c *Coordinator) publish(runID string, eventType notify.EventType, message string) {
	if c.broker == nil {
		return
	}
	c.broker.Publish(&notify.Event{
		Type:        eventType,
		RunID:       runID,
		Environment: c.cfg.Environment,
		Message:     message,
	})
}

// finish records the run result and emits the final notification.
func (c *Coordinator) finish(logger zerolog.Logger, result Result) Result {
	metrics.RunsTotal.WithLabelValues(string(c.cfg.Environment), string(result.Status)).Inc()
	c.publish(result.RunID, notify.EventRunCompleted, result.Summary())

	event := logger.Info()
	if !result.Succeeded() {
		event = logger.Error().Err(result.Err).Str("failed_stage", string(result.FailedStage))
	}
	event.Str("status", result.Summary()).Msg("deployment run finished")
	return result
}

func fail(result Result, stage Stage, err error) Result {
	result.Status = StatusFailed
	result.FailedStage = stage
	result.Err = err
	return result
}
