package types

import (
	"fmt"
	"time"
)

// Environment identifies one of the two workload variants in a
// blue/green rollout. The variant's pods carry the label
// "version=<environment>".
type Environment string

const (
	EnvironmentBlue  Environment = "blue"
	EnvironmentGreen Environment = "green"
)

// VersionLabel is the label key that binds pods and service selectors
// to an environment.
const VersionLabel = "version"

// ParseEnvironment converts a string parameter into an Environment.
func ParseEnvironment(s string) (Environment, error) {
	env := Environment(s)
	if !env.Valid() {
		return "", &ConfigError{Field: "environment", Reason: fmt.Sprintf("must be %q or %q, got %q", EnvironmentBlue, EnvironmentGreen, s)}
	}
	return env, nil
}

// Valid reports whether the environment is one of the two known variants.
func (e Environment) Valid() bool {
	return e == EnvironmentBlue || e == EnvironmentGreen
}

// Other returns the opposite environment.
func (e Environment) Other() Environment {
	if e == EnvironmentBlue {
		return EnvironmentGreen
	}
	return EnvironmentBlue
}

// Selector returns the label selector matching the environment's pods.
func (e Environment) Selector() string {
	return fmt.Sprintf("%s=%s", VersionLabel, e)
}

// DeploymentTarget describes what a single run deploys. Immutable per
// run; constructed from run parameters.
type DeploymentTarget struct {
	Environment Environment
	ImageTag    string
	ManifestRef string
}

// RoutingState captures which environment the stable service currently
// routes to. An empty ActiveEnvironment means no stable service exists
// yet (first rollout).
type RoutingState struct {
	ServiceName       string
	ActiveEnvironment Environment
}

// HasActive reports whether any environment is receiving traffic.
func (r RoutingState) HasActive() bool {
	return r.ActiveEnvironment.Valid()
}

// PodStatus is the readiness view of a single pod as reported by the
// orchestration platform.
type PodStatus struct {
	Name     string
	Ready    bool
	Restarts int32
}

// Verdict is the outcome of a health verification.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// VerificationReason distinguishes why a verification failed. A timeout
// waiting on the platform is not conflated with an observed bad state.
type VerificationReason string

const (
	ReasonNone           VerificationReason = ""
	ReasonNoPods         VerificationReason = "no-pods"
	ReasonPodsNotReady   VerificationReason = "pods-not-ready"
	ReasonServiceMissing VerificationReason = "service-missing"
	ReasonTimeout        VerificationReason = "timeout"
)

// VerificationResult is produced per verification call and never
// persisted.
type VerificationResult struct {
	Environment      Environment
	PodsReady        bool
	ServiceReachable bool
	Verdict          Verdict
	Reason           VerificationReason
	CheckedAt        time.Time
	Duration         time.Duration
}

// Passed reports whether the verdict is a pass.
func (v VerificationResult) Passed() bool {
	return v.Verdict == VerdictPass
}

// VerificationPolicy controls whether a fail verdict blocks the traffic
// switch (strict) or is merely reported (permissive).
type VerificationPolicy string

const (
	PolicyStrict     VerificationPolicy = "strict"
	PolicyPermissive VerificationPolicy = "permissive"
)

// Valid reports whether the policy is a known value.
func (p VerificationPolicy) Valid() bool {
	return p == PolicyStrict || p == PolicyPermissive
}

// SwitchStrategy selects how the stable service is repointed.
type SwitchStrategy string

const (
	// StrategySelectorPatch updates the service selector in place.
	// Atomic at the platform level; the preferred default.
	StrategySelectorPatch SwitchStrategy = "selector-patch"

	// StrategyRecreate deletes the stable service and recreates it
	// against the target deployment. Leaves a window with no stable
	// service; kept for clusters where in-place updates are not
	// permitted.
	StrategyRecreate SwitchStrategy = "recreate"
)

// Valid reports whether the strategy is a known value.
func (s SwitchStrategy) Valid() bool {
	return s == StrategySelectorPatch || s == StrategyRecreate
}

// RunConfig is the full parameter set of a coordinator run. It is built
// once from flags or a config file and passed by value; no component
// reads ambient global state.
type RunConfig struct {
	Namespace     string             `yaml:"namespace"`
	AppName       string             `yaml:"appName"`
	ServiceName   string             `yaml:"serviceName"`
	ManifestDir   string             `yaml:"manifestDir"`
	Environment   Environment        `yaml:"environment"`
	ImageTag      string             `yaml:"imageTag"`
	Image         string             `yaml:"image"`
	Port          int32              `yaml:"port"`
	TargetPort    int32              `yaml:"targetPort"`
	SwitchTraffic bool               `yaml:"switchTraffic"`
	Verify        bool               `yaml:"verify"`
	Policy        VerificationPolicy `yaml:"verificationPolicy"`
	Strategy      SwitchStrategy     `yaml:"switchStrategy"`
	Timeout       time.Duration      `yaml:"timeout"`
}

// Target builds the immutable deployment target for this run.
func (c RunConfig) Target() DeploymentTarget {
	return DeploymentTarget{
		Environment: c.Environment,
		ImageTag:    c.ImageTag,
		ManifestRef: c.ManifestDir,
	}
}

// Validate checks the run parameters. All violations are ConfigErrors;
// the coordinator aborts before touching the cluster on any of them.
func (c RunConfig) Validate() error {
	if c.Namespace == "" {
		return &ConfigError{Field: "namespace", Reason: "must not be empty"}
	}
	if c.AppName == "" {
		return &ConfigError{Field: "appName", Reason: "must not be empty"}
	}
	if c.ServiceName == "" {
		return &ConfigError{Field: "serviceName", Reason: "must not be empty"}
	}
	if !c.Environment.Valid() {
		return &ConfigError{Field: "environment", Reason: fmt.Sprintf("must be %q or %q, got %q", EnvironmentBlue, EnvironmentGreen, c.Environment)}
	}
	if c.Policy != "" && !c.Policy.Valid() {
		return &ConfigError{Field: "verificationPolicy", Reason: fmt.Sprintf("must be %q or %q, got %q", PolicyStrict, PolicyPermissive, c.Policy)}
	}
	if c.Strategy != "" && !c.Strategy.Valid() {
		return &ConfigError{Field: "switchStrategy", Reason: fmt.Sprintf("must be %q or %q, got %q", StrategySelectorPatch, StrategyRecreate, c.Strategy)}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "timeout", Reason: "must not be negative"}
	}
	return nil
}

// TagMismatch reports whether the image tag targets a different
// environment than the one being deployed. The two parameters are
// independent axes, so a mismatch is legal, but it usually means the
// wrong image ends up in the targeted environment. Surfaced as a
// warning, never an error.
func (c RunConfig) TagMismatch() (string, bool) {
	tag := Environment(c.ImageTag)
	if !tag.Valid() || tag == c.Environment {
		return "", false
	}
	return fmt.Sprintf("image tag %q does not match deploy environment %q; the %s environment will run the %s image", c.ImageTag, c.Environment, c.Environment, c.ImageTag), true
}

// ConfigError reports a bad or missing run parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
