package switcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cuemby/cutover/pkg/cluster"
	"github.com/cuemby/cutover/pkg/log"
	"github.com/cuemby/cutover/pkg/registry"
	"github.com/cuemby/cutover/pkg/types"
)

// Config holds the fixed parameters of the stable service being
// switched.
type Config struct {
	Namespace   string
	AppName     string
	ServiceName string
	Port        int32
	TargetPort  int32
	ServiceType string
	Strategy    types.SwitchStrategy
}

// Switcher repoints the stable service from the live environment to the
// target one. The default selector-patch strategy updates the service
// selector in place, which the platform applies atomically. The legacy
// recreate strategy deletes and recreates the service and leaves a
// window with no stable endpoint between the two calls; it exists for
// clusters where the deploy role may create and delete services but not
// update them.
type Switcher struct {
	gateway  cluster.Gateway
	registry *registry.Registry
	cfg      Config
	logger   zerolog.Logger
}

// New creates a switcher. Zero config fields get defaults: port 80,
// target port 8080, ClusterIP, selector-patch strategy.
func New(gateway cluster.Gateway, reg *registry.Registry, cfg Config) *Switcher {
	if cfg.Port == 0 {
		cfg.Port = 80
	}
	if cfg.TargetPort == 0 {
		cfg.TargetPort = 8080
	}
	if cfg.ServiceType == "" {
		cfg.ServiceType = "ClusterIP"
	}
	if cfg.Strategy == "" {
		cfg.Strategy = types.StrategySelectorPatch
	}
	return &Switcher{
		gateway:  gateway,
		registry: reg,
		cfg:      cfg,
		logger:   log.WithComponent("switcher"),
	}
}

// SwitchTo commits the cutover to env. Idempotent: switching to the
// environment that is already live succeeds without error.
func (s *Switcher) SwitchTo(ctx context.Context, env types.Environment) error {
	if !env.Valid() {
		return &types.ConfigError{Field: "environment", Reason: fmt.Sprintf("unknown environment %q", env)}
	}

	var err error
	switch s.cfg.Strategy {
	case types.StrategyRecreate:
		err = s.recreate(ctx, env)
	default:
		err = s.patch(ctx, env)
	}
	if err != nil {
		return fmt.Errorf("failed to switch traffic to %s: %w", env, err)
	}

	s.registry.RecordSwitch(env)
	s.logger.Info().
		Str("environment", string(env)).
		Str("service", s.cfg.ServiceName).
		Str("strategy", string(s.cfg.Strategy)).
		Msg("traffic switched")
	return nil
}

// patch repoints the live service selector in one update. When no
// stable service exists yet, it is created against the target
// deployment instead.
func (s *Switcher) patch(ctx context.Context, env types.Environment) error {
	_, found, err := s.gateway.GetService(ctx, s.cfg.Namespace, s.cfg.ServiceName)
	if err != nil {
		return err
	}
	if !found {
		return s.expose(ctx, env)
	}
	return s.gateway.UpdateServiceSelector(ctx, s.cfg.Namespace, s.cfg.ServiceName, map[string]string{
		types.VersionLabel: string(env),
	})
}

// recreate deletes the stable service, tolerating an already-absent
// service, then recreates it against the target deployment.
func (s *Switcher) recreate(ctx context.Context, env types.Environment) error {
	if err := s.gateway.DeleteService(ctx, s.cfg.Namespace, s.cfg.ServiceName); err != nil {
		if !cluster.IsNotFound(err) {
			return err
		}
		// Deleting an absent service is success here, nowhere else.
	}
	return s.expose(ctx, env)
}

func (s *Switcher) expose(ctx context.Context, env types.Environment) error {
	deployment := fmt.Sprintf("%s-%s", s.cfg.AppName, env)
	return s.gateway.ExposeDeployment(ctx, s.cfg.Namespace, deployment, s.cfg.Port, s.cfg.TargetPort, s.cfg.ServiceName, s.cfg.ServiceType)
}
