package cluster

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/cuemby/cutover/pkg/types"
)

// Gateway is the narrow interface to the orchestration platform's
// control plane. All calls are synchronous and bounded by the caller's
// context; failures surface the platform's error verbatim inside a
// PlatformError. No call retries automatically - retry policy belongs
// to the caller.
type Gateway interface {
	// EnsureNamespace creates the namespace if it does not exist.
	// Returns true when the namespace was created, false when it
	// already existed. Idempotent.
	EnsureNamespace(ctx context.Context, name string) (bool, error)

	// Apply materializes every document in the manifest file into the
	// namespace, creating or updating as needed. Re-applying an
	// unchanged manifest is a no-op at the platform level.
	Apply(ctx context.Context, manifestPath, namespace string) error

	// GetPods returns the readiness view of all pods matching the
	// label selector.
	GetPods(ctx context.Context, namespace, labelSelector string) ([]types.PodStatus, error)

	// GetService fetches a service by name. The boolean reports
	// whether the service exists; absence is not an error.
	GetService(ctx context.Context, namespace, name string) (*corev1.Service, bool, error)

	// DeleteService removes a service. Deleting an absent service
	// returns a NotFound platform error; tolerating it is the
	// caller's decision.
	DeleteService(ctx context.Context, namespace, name string) error

	// ExposeDeployment creates a service named serviceName routing to
	// the deployment's pods, mirroring the deployment's selector.
	ExposeDeployment(ctx context.Context, namespace, deploymentName string, port, targetPort int32, serviceName, serviceType string) error

	// UpdateServiceSelector merges the given selector keys into the
	// service's selector in place. A single update call, atomic at
	// the platform level.
	UpdateServiceSelector(ctx context.Context, namespace, serviceName string, selector map[string]string) error

	// SetDeploymentImage updates the image of the named container in
	// a deployment, leaving the manifest on disk untouched.
	SetDeploymentImage(ctx context.Context, namespace, deploymentName, containerName, image string) error
}

// PlatformError wraps a control-plane failure with the operation and
// resource that produced it. The underlying platform error is preserved
// verbatim and reachable through Unwrap.
type PlatformError struct {
	Op       string
	Resource string
	Err      error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err (possibly wrapped) is the platform's
// resource-not-found error.
func IsNotFound(err error) bool {
	return k8serrors.IsNotFound(err)
}
