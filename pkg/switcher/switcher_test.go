package switcher

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/cuemby/cutover/pkg/cluster"
	"github.com/cuemby/cutover/pkg/log"
	"github.com/cuemby/cutover/pkg/registry"
	"github.com/cuemby/cutover/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

func deployment(env string) *appsv1.Deployment {
	labels := map[string]string{"app": "bankapp", "version": env}
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "bankapp-" + env, Namespace: "webapps"},
		Spec: appsv1.DeploymentSpec{
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{Name: "bankapp", Image: "bankapp:" + env}},
				},
			},
		},
	}
}

func stableService(env string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "bankapp", Namespace: "webapps"},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{"app": "bankapp", "version": env},
			Ports:    []corev1.ServicePort{{Port: 80}},
		},
	}
}

func newSwitcher(strategy types.SwitchStrategy, objects ...runtime.Object) (*Switcher, *registry.Registry) {
	gw := cluster.NewKubeGateway(fake.NewClientset(objects...))
	reg := registry.New(gw, "webapps", "bankapp")
	sw := New(gw, reg, Config{
		Namespace:   "webapps",
		AppName:     "bankapp",
		ServiceName: "bankapp",
		Port:        80,
		TargetPort:  8080,
		Strategy:    strategy,
	})
	return sw, reg
}

func TestSwitchToRoundtrip(t *testing.T) {
	for _, env := range []types.Environment{types.EnvironmentBlue, types.EnvironmentGreen} {
		t.Run(string(env), func(t *testing.T) {
			sw, reg := newSwitcher(types.StrategySelectorPatch,
				deployment("blue"), deployment("green"), stableService(string(env.Other())))

			require.NoError(t, sw.SwitchTo(context.Background(), env))

			state, err := reg.Current(context.Background())
			require.NoError(t, err)
			assert.Equal(t, env, state.ActiveEnvironment)
		})
	}
}

func TestSwitchToIdempotent(t *testing.T) {
	sw, reg := newSwitcher(types.StrategySelectorPatch,
		deployment("blue"), deployment("green"), stableService("green"))
	ctx := context.Background()

	require.NoError(t, sw.SwitchTo(ctx, types.EnvironmentGreen))
	first, err := reg.Current(ctx)
	require.NoError(t, err)

	// Second switch to the same environment: same state, no error.
	require.NoError(t, sw.SwitchTo(ctx, types.EnvironmentGreen))
	second, err := reg.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSwitchToPatchPreservesOtherSelectorKeys(t *testing.T) {
	sw, _ := newSwitcher(types.StrategySelectorPatch,
		deployment("blue"), deployment("green"), stableService("blue"))
	ctx := context.Background()

	require.NoError(t, sw.SwitchTo(ctx, types.EnvironmentGreen))

	gw := sw.gateway
	svc, found, err := gw.GetService(ctx, "webapps", "bankapp")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "green", svc.Spec.Selector["version"])
	assert.Equal(t, "bankapp", svc.Spec.Selector["app"])
}

func TestSwitchToPatchCreatesServiceWhenAbsent(t *testing.T) {
	sw, reg := newSwitcher(types.StrategySelectorPatch, deployment("blue"), deployment("green"))
	ctx := context.Background()

	require.NoError(t, sw.SwitchTo(ctx, types.EnvironmentBlue))

	state, err := reg.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.EnvironmentBlue, state.ActiveEnvironment)
}

func TestSwitchToRecreate(t *testing.T) {
	sw, reg := newSwitcher(types.StrategyRecreate,
		deployment("blue"), deployment("green"), stableService("blue"))
	ctx := context.Background()

	require.NoError(t, sw.SwitchTo(ctx, types.EnvironmentGreen))

	state, err := reg.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.EnvironmentGreen, state.ActiveEnvironment)
}

func TestSwitchToRecreateToleratesAbsentService(t *testing.T) {
	sw, reg := newSwitcher(types.StrategyRecreate, deployment("blue"), deployment("green"))
	ctx := context.Background()

	// No service to delete: NotFound is success at this boundary.
	require.NoError(t, sw.SwitchTo(ctx, types.EnvironmentGreen))

	state, err := reg.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.EnvironmentGreen, state.ActiveEnvironment)
}

func TestSwitchToMissingDeployment(t *testing.T) {
	// Target environment was never deployed: the switch must fail and
	// leave no routing record.
	sw, reg := newSwitcher(types.StrategyRecreate, deployment("blue"), stableService("blue"))

	err := sw.SwitchTo(context.Background(), types.EnvironmentGreen)
	require.Error(t, err)

	_, ok := reg.LastRecorded()
	assert.False(t, ok)
}

func TestSwitchToInvalidEnvironment(t *testing.T) {
	sw, _ := newSwitcher(types.StrategySelectorPatch)

	err := sw.SwitchTo(context.Background(), types.Environment("canary"))
	var cfgErr *types.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
