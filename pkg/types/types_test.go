package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Environment
		wantErr bool
	}{
		{name: "blue", input: "blue", want: EnvironmentBlue},
		{name: "green", input: "green", want: EnvironmentGreen},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown", input: "purple", wantErr: true},
		{name: "case sensitive", input: "Blue", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				var cfgErr *ConfigError
				assert.ErrorAs(t, err, &cfgErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, env)
		})
	}
}

func TestEnvironmentOther(t *testing.T) {
	assert.Equal(t, EnvironmentGreen, EnvironmentBlue.Other())
	assert.Equal(t, EnvironmentBlue, EnvironmentGreen.Other())
}

func TestEnvironmentSelector(t *testing.T) {
	assert.Equal(t, "version=blue", EnvironmentBlue.Selector())
	assert.Equal(t, "version=green", EnvironmentGreen.Selector())
}

func TestRoutingStateHasActive(t *testing.T) {
	assert.False(t, RoutingState{ServiceName: "bankapp"}.HasActive())
	assert.True(t, RoutingState{ServiceName: "bankapp", ActiveEnvironment: EnvironmentBlue}.HasActive())
}

func validConfig() RunConfig {
	return RunConfig{
		Namespace:   "webapps",
		AppName:     "bankapp",
		ServiceName: "bankapp",
		Environment: EnvironmentBlue,
		ImageTag:    "blue",
		Timeout:     2 * time.Minute,
	}
}

func TestRunConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
		field  string
	}{
		{name: "valid", mutate: func(c *RunConfig) {}},
		{name: "missing namespace", mutate: func(c *RunConfig) { c.Namespace = "" }, field: "namespace"},
		{name: "missing app name", mutate: func(c *RunConfig) { c.AppName = "" }, field: "appName"},
		{name: "missing service name", mutate: func(c *RunConfig) { c.ServiceName = "" }, field: "serviceName"},
		{name: "bad environment", mutate: func(c *RunConfig) { c.Environment = "purple" }, field: "environment"},
		{name: "bad policy", mutate: func(c *RunConfig) { c.Policy = "lenient" }, field: "verificationPolicy"},
		{name: "bad strategy", mutate: func(c *RunConfig) { c.Strategy = "dns-swap" }, field: "switchStrategy"},
		{name: "negative timeout", mutate: func(c *RunConfig) { c.Timeout = -time.Second }, field: "timeout"},
		{name: "empty policy allowed", mutate: func(c *RunConfig) { c.Policy = "" }},
		{name: "empty strategy allowed", mutate: func(c *RunConfig) { c.Strategy = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestRunConfigTagMismatch(t *testing.T) {
	cfg := validConfig()

	// Matching tag and environment: no warning.
	_, mismatch := cfg.TagMismatch()
	assert.False(t, mismatch)

	// Deploying blue with the green image tag looks like a mistake.
	cfg.ImageTag = "green"
	msg, mismatch := cfg.TagMismatch()
	assert.True(t, mismatch)
	assert.Contains(t, msg, "green")
	assert.Contains(t, msg, "blue")

	// Arbitrary release tags are not on the blue/green axis at all.
	cfg.ImageTag = "v1.4.2"
	_, mismatch = cfg.TagMismatch()
	assert.False(t, mismatch)
}

func TestRunConfigTarget(t *testing.T) {
	cfg := validConfig()
	cfg.ManifestDir = "manifests"
	target := cfg.Target()
	assert.Equal(t, EnvironmentBlue, target.Environment)
	assert.Equal(t, "blue", target.ImageTag)
	assert.Equal(t, "manifests", target.ManifestRef)
}
