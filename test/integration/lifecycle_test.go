package integration

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/cuemby/cutover/pkg/cluster"
	"github.com/cuemby/cutover/pkg/coordinator"
	"github.com/cuemby/cutover/pkg/log"
	"github.com/cuemby/cutover/pkg/registry"
	"github.com/cuemby/cutover/pkg/switcher"
	"github.com/cuemby/cutover/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

// manifestDir points at the manifests shipped with the repository, so
// the lifecycle below exercises the real deployment files.
func manifestDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "manifests"))
	require.NoError(t, err)
	if _, err := os.Stat(dir); err != nil {
		t.Skipf("manifests directory not available: %v", err)
	}
	return dir
}

func runConfig(dir string, env types.Environment) types.RunConfig {
	return types.RunConfig{
		Namespace:   "webapps",
		AppName:     "bankapp",
		ServiceName: "bankapp",
		ManifestDir: dir,
		Environment: env,
		Timeout:     200 * time.Millisecond,
	}
}

func createReadyPods(t *testing.T, client kubernetes.Interface, env types.Environment, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		pod := &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:      string(env) + "-pod-" + string(rune('a'+i)),
				Namespace: "webapps",
				Labels:    map[string]string{"app": "bankapp", "version": string(env)},
			},
			Status: corev1.PodStatus{
				Conditions: []corev1.PodCondition{
					{Type: corev1.PodReady, Status: corev1.ConditionTrue},
				},
			},
		}
		_, err := client.CoreV1().Pods("webapps").Create(context.Background(), pod, metav1.CreateOptions{})
		require.NoError(t, err)
	}
}

func activeEnvironment(t *testing.T, client kubernetes.Interface) string {
	t.Helper()
	svc, err := client.CoreV1().Services("webapps").Get(context.Background(), "bankapp", metav1.GetOptions{})
	require.NoError(t, err)
	return svc.Spec.Selector["version"]
}

// TestBlueGreenLifecycle walks the full rollout story: first rollout to
// blue, staging green next to it, the verified cutover to green, and a
// rollback switch to blue.
func TestBlueGreenLifecycle(t *testing.T) {
	dir := manifestDir(t)
	client := fake.NewClientset()
	gateway := cluster.NewKubeGateway(client)
	ctx := context.Background()

	// First rollout: deploy blue and take traffic immediately.
	createReadyPods(t, client, types.EnvironmentBlue, 2)
	cfg := runConfig(dir, types.EnvironmentBlue)
	cfg.Verify = true
	cfg.SwitchTraffic = true

	result := coordinator.New(gateway, cfg).Run(ctx)
	require.NoError(t, result.Err)
	require.True(t, result.Succeeded())
	assert.Equal(t, "blue", activeEnvironment(t, client))

	// Stage green next to the live blue. Traffic must not move.
	createReadyPods(t, client, types.EnvironmentGreen, 2)
	cfg = runConfig(dir, types.EnvironmentGreen)
	cfg.Verify = true

	result = coordinator.New(gateway, cfg).Run(ctx)
	require.NoError(t, result.Err)
	require.True(t, result.Succeeded())
	require.NotNil(t, result.Verification)
	assert.True(t, result.Verification.Passed())
	assert.Equal(t, "blue", activeEnvironment(t, client))

	// Both deployments now coexist.
	for _, name := range []string{"bankapp-blue", "bankapp-green", "mysql"} {
		_, err := client.AppsV1().Deployments("webapps").Get(ctx, name, metav1.GetOptions{})
		assert.NoError(t, err, "deployment %s should exist", name)
	}

	// Verified cutover to green.
	cfg = runConfig(dir, types.EnvironmentGreen)
	cfg.Verify = true
	cfg.SwitchTraffic = true

	result = coordinator.New(gateway, cfg).Run(ctx)
	require.NoError(t, result.Err)
	require.True(t, result.Succeeded())
	assert.Equal(t, "green", activeEnvironment(t, client))
	assert.Equal(t, types.EnvironmentGreen, result.Routing.ActiveEnvironment)

	// Rollback is just a switch; blue is still deployed and warm.
	reg := registry.New(gateway, "webapps", "bankapp")
	sw := switcher.New(gateway, reg, switcher.Config{
		Namespace:   "webapps",
		AppName:     "bankapp",
		ServiceName: "bankapp",
	})
	require.NoError(t, sw.SwitchTo(ctx, types.EnvironmentBlue))
	assert.Equal(t, "blue", activeEnvironment(t, client))
}

// TestStrictGateHoldsTrafficOnUnhealthyGreen deploys a broken green
// environment behind a live blue and confirms the strict verification
// policy keeps traffic where it is.
func TestStrictGateHoldsTrafficOnUnhealthyGreen(t *testing.T) {
	dir := manifestDir(t)
	client := fake.NewClientset()
	gateway := cluster.NewKubeGateway(client)
	ctx := context.Background()

	createReadyPods(t, client, types.EnvironmentBlue, 2)
	cfg := runConfig(dir, types.EnvironmentBlue)
	cfg.SwitchTraffic = true
	result := coordinator.New(gateway, cfg).Run(ctx)
	require.True(t, result.Succeeded())
	require.Equal(t, "blue", activeEnvironment(t, client))

	// Green has no pods at all; the strict gate must hold.
	cfg = runConfig(dir, types.EnvironmentGreen)
	cfg.Verify = true
	cfg.SwitchTraffic = true
	cfg.Policy = types.PolicyStrict

	result = coordinator.New(gateway, cfg).Run(ctx)
	assert.False(t, result.Succeeded())
	assert.Equal(t, coordinator.StageVerification, result.FailedStage)
	assert.Equal(t, "blue", activeEnvironment(t, client))
}
