package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/kubernetes/scheme"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/cuemby/cutover/pkg/types"
)

// Set is the resolved manifest files for one deployment run, in apply
// order. Manifests are data handed to the cluster gateway; nothing in
// them is ever spliced into a command line.
type Set struct {
	// Namespace is the optional namespace manifest ("namespace.yaml").
	Namespace string

	// Dependencies are applied before the app workload (database and
	// other supporting manifests), sorted by file name.
	Dependencies []string

	// App is the environment-specific workload manifest
	// ("<app>-blue.yaml" or "<app>-green.yaml").
	App string

	// Service is the stable service manifest ("<app>-service.yaml").
	Service string
}

// Resolve locates the manifest set for the given app and deployment
// target. The target's ManifestRef is the directory to search and its
// Environment picks the workload variant. The app and service manifests
// are required; namespace.yaml is optional; every other .yaml file in
// the directory is treated as a dependency manifest.
func Resolve(app string, target types.DeploymentTarget) (Set, error) {
	env := target.Environment
	if !env.Valid() {
		return Set{}, &types.ConfigError{Field: "environment", Reason: fmt.Sprintf("unknown environment %q", env)}
	}

	dir := target.ManifestRef
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Set{}, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	appFile := fmt.Sprintf("%s-%s.yaml", app, env)
	serviceFile := fmt.Sprintf("%s-service.yaml", app)
	otherAppFile := fmt.Sprintf("%s-%s.yaml", app, env.Other())

	set := Set{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		path := filepath.Join(dir, name)
		switch name {
		case appFile:
			set.App = path
		case serviceFile:
			set.Service = path
		case "namespace.yaml":
			set.Namespace = path
		case otherAppFile:
			// The idle environment's manifest is not part of this run.
		default:
			set.Dependencies = append(set.Dependencies, path)
		}
	}
	sort.Strings(set.Dependencies)

	if set.App == "" {
		return Set{}, &types.ConfigError{Field: "manifestDir", Reason: fmt.Sprintf("missing workload manifest %s", appFile)}
	}
	if set.Service == "" {
		return Set{}, &types.ConfigError{Field: "manifestDir", Reason: fmt.Sprintf("missing service manifest %s", serviceFile)}
	}

	return set, nil
}

// AppDeployment decodes the workload manifest and returns the
// deployment name and the container whose image the run overrides. The
// first container is the app container by convention.
func (s Set) AppDeployment() (deploymentName, containerName string, err error) {
	data, err := os.ReadFile(s.App)
	if err != nil {
		return "", "", fmt.Errorf("failed to read workload manifest: %w", err)
	}

	reader := utilyaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))
	for {
		doc, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to read workload manifest: %w", err)
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}
		jsonData, err := sigsyaml.YAMLToJSON(doc)
		if err != nil {
			return "", "", fmt.Errorf("failed to parse workload manifest: %w", err)
		}
		obj, _, err := scheme.Codecs.UniversalDeserializer().Decode(jsonData, nil, nil)
		if err != nil {
			return "", "", fmt.Errorf("failed to decode workload manifest: %w", err)
		}
		deployment, ok := obj.(*appsv1.Deployment)
		if !ok {
			continue
		}
		if len(deployment.Spec.Template.Spec.Containers) == 0 {
			return "", "", fmt.Errorf("deployment %s has no containers", deployment.Name)
		}
		return deployment.Name, deployment.Spec.Template.Spec.Containers[0].Name, nil
	}

	return "", "", fmt.Errorf("no Deployment found in %s", s.App)
}
