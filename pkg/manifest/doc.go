/*
Package manifest resolves the static YAML manifest set for a deployment
run.

Manifests follow a naming convention inside the manifest directory:

	namespace.yaml         optional namespace definition
	<app>-blue.yaml        blue workload variant
	<app>-green.yaml       green workload variant
	<app>-service.yaml     stable service
	*.yaml                 anything else is a dependency (database etc.)

Resolve picks the variant matching the run's target environment and
returns the files in apply order: namespace, dependencies, workload,
service. The idle environment's manifest is ignored. AppDeployment
decodes the workload manifest into a typed Deployment so the image tag
override targets a named container instead of rewriting YAML text.
*/
package manifest
