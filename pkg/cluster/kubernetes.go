package cluster

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/cuemby/cutover/pkg/log"
	"github.com/cuemby/cutover/pkg/types"
)

// DefaultCallTimeout bounds each individual control-plane call.
const DefaultCallTimeout = 30 * time.Second

// KubeGateway implements Gateway against a Kubernetes control plane
// using the typed clientset.
type KubeGateway struct {
	client      kubernetes.Interface
	callTimeout time.Duration
	logger      zerolog.Logger
}

// NewKubeGateway wraps an existing clientset. Tests pass the fake
// clientset here.
func NewKubeGateway(client kubernetes.Interface) *KubeGateway {
	return &KubeGateway{
		client:      client,
		callTimeout: DefaultCallTimeout,
		logger:      log.WithComponent("cluster"),
	}
}

// NewKubeGatewayFromConfig builds a gateway from the ambient cluster
// config: in-cluster config first, then the given kubeconfig path,
// then ~/.kube/config.
func NewKubeGatewayFromConfig(kubeconfig string) (*KubeGateway, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		if kubeconfig == "" {
			kubeconfig = filepath.Join(homedir.HomeDir(), ".kube", "config")
		}
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load cluster config: %w", err)
		}
	}

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster client: %w", err)
	}

	return NewKubeGateway(client), nil
}

// WithCallTimeout overrides the per-call timeout.
func (g *KubeGateway) WithCallTimeout(d time.Duration) *KubeGateway {
	g.callTimeout = d
	return g
}

func (g *KubeGateway) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.callTimeout)
}

// EnsureNamespace creates the namespace if absent. AlreadyExists is
// success, not an error.
func (g *KubeGateway) EnsureNamespace(ctx context.Context, name string) (bool, error) {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name},
	}
	_, err := g.client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil {
		if k8serrors.IsAlreadyExists(err) {
			g.logger.Debug().Str("namespace", name).Msg("namespace already exists")
			return false, nil
		}
		return false, &PlatformError{Op: "create", Resource: "namespace/" + name, Err: err}
	}

	g.logger.Info().Str("namespace", name).Msg("namespace created")
	return true, nil
}

// Apply reads a multi-document YAML manifest and creates or updates
// each object in the namespace.
func (g *KubeGateway) Apply(ctx context.Context, manifestPath, namespace string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	docs, err := splitDocuments(data)
	if err != nil {
		return fmt.Errorf("failed to read manifest %s: %w", manifestPath, err)
	}
	for _, doc := range docs {
		obj, err := decodeObject(doc)
		if err != nil {
			return fmt.Errorf("failed to decode manifest %s: %w", manifestPath, err)
		}
		if err := g.applyObject(ctx, obj, namespace); err != nil {
			return err
		}
	}

	return nil
}

// splitDocuments reads a YAML stream document by document, dropping
// empty documents. The line-oriented reader only treats a marker at the
// start of a line as a separator, so document content embedding YAML
// (a ConfigMap carrying a nested manifest, say) stays intact.
func splitDocuments(data []byte) ([][]byte, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))
	var docs [][]byte
	for {
		doc, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func decodeObject(doc []byte) (runtime.Object, error) {
	jsonData, err := sigsyaml.YAMLToJSON(doc)
	if err != nil {
		return nil, err
	}
	obj, _, err := scheme.Codecs.UniversalDeserializer().Decode(jsonData, nil, nil)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (g *KubeGateway) applyObject(ctx context.Context, obj runtime.Object, namespace string) error {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	switch o := obj.(type) {
	case *corev1.Namespace:
		_, err := g.EnsureNamespace(ctx, o.Name)
		return err
	case *appsv1.Deployment:
		return g.applyDeployment(ctx, o, namespace)
	case *corev1.Service:
		return g.applyService(ctx, o, namespace)
	case *corev1.ConfigMap:
		return g.applyConfigMap(ctx, o, namespace)
	case *corev1.Secret:
		return g.applySecret(ctx, o, namespace)
	default:
		return fmt.Errorf("unsupported manifest kind %T", obj)
	}
}

func (g *KubeGateway) applyDeployment(ctx context.Context, d *appsv1.Deployment, namespace string) error {
	deployments := g.client.AppsV1().Deployments(namespace)

	existing, err := deployments.Get(ctx, d.Name, metav1.GetOptions{})
	if err != nil {
		if !k8serrors.IsNotFound(err) {
			return &PlatformError{Op: "get", Resource: "deployment/" + d.Name, Err: err}
		}
		if _, err := deployments.Create(ctx, d, metav1.CreateOptions{}); err != nil {
			return &PlatformError{Op: "create", Resource: "deployment/" + d.Name, Err: err}
		}
		g.logger.Info().Str("deployment", d.Name).Str("namespace", namespace).Msg("deployment created")
		return nil
	}

	d.ResourceVersion = existing.ResourceVersion
	if _, err := deployments.Update(ctx, d, metav1.UpdateOptions{}); err != nil {
		return &PlatformError{Op: "update", Resource: "deployment/" + d.Name, Err: err}
	}
	g.logger.Info().Str("deployment", d.Name).Str("namespace", namespace).Msg("deployment updated")
	return nil
}

// applyService updates a service without repointing it: the live
// selector and cluster IP survive a re-apply so that routing state only
// changes through an explicit traffic switch.
func (g *KubeGateway) applyService(ctx context.Context, s *corev1.Service, namespace string) error {
	services := g.client.CoreV1().Services(namespace)

	existing, err := services.Get(ctx, s.Name, metav1.GetOptions{})
	if err != nil {
		if !k8serrors.IsNotFound(err) {
			return &PlatformError{Op: "get", Resource: "service/" + s.Name, Err: err}
		}
		if _, err := services.Create(ctx, s, metav1.CreateOptions{}); err != nil {
			return &PlatformError{Op: "create", Resource: "service/" + s.Name, Err: err}
		}
		g.logger.Info().Str("service", s.Name).Str("namespace", namespace).Msg("service created")
		return nil
	}

	s.ResourceVersion = existing.ResourceVersion
	s.Spec.ClusterIP = existing.Spec.ClusterIP
	if len(existing.Spec.Selector) > 0 {
		s.Spec.Selector = existing.Spec.Selector
	}
	if _, err := services.Update(ctx, s, metav1.UpdateOptions{}); err != nil {
		return &PlatformError{Op: "update", Resource: "service/" + s.Name, Err: err}
	}
	g.logger.Info().Str("service", s.Name).Str("namespace", namespace).Msg("service updated")
	return nil
}

func (g *KubeGateway) applyConfigMap(ctx context.Context, cm *corev1.ConfigMap, namespace string) error {
	configMaps := g.client.CoreV1().ConfigMaps(namespace)

	existing, err := configMaps.Get(ctx, cm.Name, metav1.GetOptions{})
	if err != nil {
		if !k8serrors.IsNotFound(err) {
			return &PlatformError{Op: "get", Resource: "configmap/" + cm.Name, Err: err}
		}
		if _, err := configMaps.Create(ctx, cm, metav1.CreateOptions{}); err != nil {
			return &PlatformError{Op: "create", Resource: "configmap/" + cm.Name, Err: err}
		}
		return nil
	}

	cm.ResourceVersion = existing.ResourceVersion
	if _, err := configMaps.Update(ctx, cm, metav1.UpdateOptions{}); err != nil {
		return &PlatformError{Op: "update", Resource: "configmap/" + cm.Name, Err: err}
	}
	return nil
}

func (g *KubeGateway) applySecret(ctx context.Context, s *corev1.Secret, namespace string) error {
	secrets := g.client.CoreV1().Secrets(namespace)

	existing, err := secrets.Get(ctx, s.Name, metav1.GetOptions{})
	if err != nil {
		if !k8serrors.IsNotFound(err) {
			return &PlatformError{Op: "get", Resource: "secret/" + s.Name, Err: err}
		}
		if _, err := secrets.Create(ctx, s, metav1.CreateOptions{}); err != nil {
			return &PlatformError{Op: "create", Resource: "secret/" + s.Name, Err: err}
		}
		return nil
	}

	s.ResourceVersion = existing.ResourceVersion
	if _, err := secrets.Update(ctx, s, metav1.UpdateOptions{}); err != nil {
		return &PlatformError{Op: "update", Resource: "secret/" + s.Name, Err: err}
	}
	return nil
}

// GetPods lists pods by label selector and maps each to its readiness
// view. A pod is ready when its PodReady condition is true.
func (g *KubeGateway) GetPods(ctx context.Context, namespace, labelSelector string) ([]types.PodStatus, error) {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	podList, err := g.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, &PlatformError{Op: "list", Resource: "pods", Err: err}
	}

	statuses := make([]types.PodStatus, 0, len(podList.Items))
	for _, pod := range podList.Items {
		status := types.PodStatus{Name: pod.Name}
		for _, cond := range pod.Status.Conditions {
			if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
				status.Ready = true
				break
			}
		}
		for _, cs := range pod.Status.ContainerStatuses {
			status.Restarts += cs.RestartCount
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// GetService fetches the service; absence is reported through the
// boolean, not as an error.
func (g *KubeGateway) GetService(ctx context.Context, namespace, name string) (*corev1.Service, bool, error) {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	svc, err := g.client.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if k8serrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, &PlatformError{Op: "get", Resource: "service/" + name, Err: err}
	}

	return svc, true, nil
}

// DeleteService deletes the service. A NotFound error is surfaced; the
// caller decides whether to tolerate it.
func (g *KubeGateway) DeleteService(ctx context.Context, namespace, name string) error {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	if err := g.client.CoreV1().Services(namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return &PlatformError{Op: "delete", Resource: "service/" + name, Err: err}
	}

	g.logger.Info().Str("service", name).Str("namespace", namespace).Msg("service deleted")
	return nil
}

// ExposeDeployment creates a service routing to the deployment's pods.
// The service selector mirrors the deployment's match labels.
func (g *KubeGateway) ExposeDeployment(ctx context.Context, namespace, deploymentName string, port, targetPort int32, serviceName, serviceType string) error {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	deployment, err := g.client.AppsV1().Deployments(namespace).Get(ctx, deploymentName, metav1.GetOptions{})
	if err != nil {
		return &PlatformError{Op: "get", Resource: "deployment/" + deploymentName, Err: err}
	}

	selector := deployment.Spec.Selector.MatchLabels
	if len(selector) == 0 {
		return fmt.Errorf("deployment %s/%s has no selector labels to expose", namespace, deploymentName)
	}

	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      serviceName,
			Namespace: namespace,
			Labels:    map[string]string{"app": deploymentName},
		},
		Spec: corev1.ServiceSpec{
			Selector: selector,
			Type:     corev1.ServiceType(serviceType),
			Ports: []corev1.ServicePort{
				{
					Port:       port,
					TargetPort: intstr.FromInt32(targetPort),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}

	if _, err := g.client.CoreV1().Services(namespace).Create(ctx, svc, metav1.CreateOptions{}); err != nil {
		return &PlatformError{Op: "create", Resource: "service/" + serviceName, Err: err}
	}

	g.logger.Info().
		Str("service", serviceName).
		Str("deployment", deploymentName).
		Str("namespace", namespace).
		Msg("deployment exposed")
	return nil
}

// UpdateServiceSelector merges selector keys into the live service in a
// single update call.
func (g *KubeGateway) UpdateServiceSelector(ctx context.Context, namespace, serviceName string, selector map[string]string) error {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	services := g.client.CoreV1().Services(namespace)
	svc, err := services.Get(ctx, serviceName, metav1.GetOptions{})
	if err != nil {
		return &PlatformError{Op: "get", Resource: "service/" + serviceName, Err: err}
	}

	if svc.Spec.Selector == nil {
		svc.Spec.Selector = make(map[string]string)
	}
	for k, v := range selector {
		svc.Spec.Selector[k] = v
	}

	if _, err := services.Update(ctx, svc, metav1.UpdateOptions{}); err != nil {
		return &PlatformError{Op: "update", Resource: "service/" + serviceName, Err: err}
	}

	g.logger.Info().
		Str("service", serviceName).
		Str("namespace", namespace).
		Interface("selector", selector).
		Msg("service selector updated")
	return nil
}

// SetDeploymentImage updates the named container's image on a live
// deployment, the typed equivalent of kubectl set image.
func (g *KubeGateway) SetDeploymentImage(ctx context.Context, namespace, deploymentName, containerName, image string) error {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	deployments := g.client.AppsV1().Deployments(namespace)
	deployment, err := deployments.Get(ctx, deploymentName, metav1.GetOptions{})
	if err != nil {
		return &PlatformError{Op: "get", Resource: "deployment/" + deploymentName, Err: err}
	}

	updated := false
	for i := range deployment.Spec.Template.Spec.Containers {
		if deployment.Spec.Template.Spec.Containers[i].Name == containerName {
			deployment.Spec.Template.Spec.Containers[i].Image = image
			updated = true
			break
		}
	}
	if !updated {
		return fmt.Errorf("container %q not found in deployment %s/%s", containerName, namespace, deploymentName)
	}

	if _, err := deployments.Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return &PlatformError{Op: "update", Resource: "deployment/" + deploymentName, Err: err}
	}

	g.logger.Info().
		Str("deployment", deploymentName).
		Str("image", image).
		Str("namespace", namespace).
		Msg("deployment image updated")
	return nil
}
