package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/cutover/pkg/api"
	"github.com/cuemby/cutover/pkg/coordinator"
	"github.com/cuemby/cutover/pkg/log"
	"github.com/cuemby/cutover/pkg/notify"
	"github.com/cuemby/cutover/pkg/registry"
	"github.com/cuemby/cutover/pkg/types"
)

var deployCmd = &cobra.Command{
	Use:   "deploy [blue|green]",
	Short: "Deploy an environment, optionally verify it and switch traffic",
	Long: `Deploy the application into the named environment.

The run applies the namespace, dependency, workload, and service
manifests in order. The stable service keeps routing to whichever
environment is live; add --switch to cut traffic over after the deploy.

Examples:
  # Stage the green environment without touching traffic
  cutover deploy green --tag green

  # Deploy green, verify health, then switch traffic to it
  cutover deploy green --tag green --verify --switch`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringP("config", "c", "", "YAML run configuration file (flags override it)")
	deployCmd.Flags().String("manifests", "manifests", "Directory containing the deployment manifests")
	deployCmd.Flags().String("image", "", "Container image to deploy (overrides the manifest image)")
	deployCmd.Flags().String("tag", "", "Image tag to deploy")
	deployCmd.Flags().Bool("switch", false, "Switch traffic to the environment after deploying")
	deployCmd.Flags().Bool("verify", false, "Verify environment health after deploying")
	deployCmd.Flags().String("policy", "strict", "Verification policy: strict blocks the switch on failure, permissive proceeds")
	deployCmd.Flags().String("strategy", "selector-patch", "Traffic switch strategy (selector-patch or recreate)")
	deployCmd.Flags().Duration("timeout", 60*time.Second, "Verification timeout")
	deployCmd.Flags().Int32("port", 80, "Stable service port")
	deployCmd.Flags().Int32("target-port", 8080, "Container port the service routes to")
	deployCmd.Flags().String("metrics-addr", "", "Address to serve Prometheus metrics on for the run (e.g. :9090)")

	rootCmd.AddCommand(deployCmd)
}

// fileConfig is the YAML shape of a run configuration file. Durations
// are strings ("60s") rather than nanosecond integers.
type fileConfig struct {
	Namespace     string `yaml:"namespace"`
	AppName       string `yaml:"appName"`
	ServiceName   string `yaml:"serviceName"`
	ManifestDir   string `yaml:"manifestDir"`
	Image         string `yaml:"image"`
	ImageTag      string `yaml:"imageTag"`
	Port          int32  `yaml:"port"`
	TargetPort    int32  `yaml:"targetPort"`
	SwitchTraffic bool   `yaml:"switchTraffic"`
	Verify        bool   `yaml:"verify"`
	Policy        string `yaml:"verificationPolicy"`
	Strategy      string `yaml:"switchStrategy"`
	Timeout       string `yaml:"timeout"`
}

func loadFileConfig(path string, cfg *types.RunConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %v", err)
	}

	if fc.Namespace != "" {
		cfg.Namespace = fc.Namespace
	}
	if fc.AppName != "" {
		cfg.AppName = fc.AppName
	}
	if fc.ServiceName != "" {
		cfg.ServiceName = fc.ServiceName
	}
	if fc.ManifestDir != "" {
		cfg.ManifestDir = fc.ManifestDir
	}
	if fc.Image != "" {
		cfg.Image = fc.Image
	}
	if fc.ImageTag != "" {
		cfg.ImageTag = fc.ImageTag
	}
	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if fc.TargetPort != 0 {
		cfg.TargetPort = fc.TargetPort
	}
	cfg.SwitchTraffic = cfg.SwitchTraffic || fc.SwitchTraffic
	cfg.Verify = cfg.Verify || fc.Verify
	if fc.Policy != "" {
		cfg.Policy = types.VerificationPolicy(fc.Policy)
	}
	if fc.Strategy != "" {
		cfg.Strategy = types.SwitchStrategy(fc.Strategy)
	}
	if fc.Timeout != "" {
		timeout, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout in config file: %v", err)
		}
		cfg.Timeout = timeout
	}
	return nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	env, err := types.ParseEnvironment(args[0])
	if err != nil {
		return err
	}

	cfg := types.RunConfig{Environment: env}
	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		if err := loadFileConfig(configFile, &cfg); err != nil {
			return err
		}
	}

	// Flags override the config file.
	if cfg.Namespace == "" || cmd.Flags().Changed("namespace") {
		cfg.Namespace, _ = cmd.Flags().GetString("namespace")
	}
	if cfg.AppName == "" || cmd.Flags().Changed("app") {
		cfg.AppName, _ = cmd.Flags().GetString("app")
	}
	if cfg.ServiceName == "" || cmd.Flags().Changed("service") {
		cfg.ServiceName, _ = cmd.Flags().GetString("service")
	}
	if cfg.ManifestDir == "" || cmd.Flags().Changed("manifests") {
		cfg.ManifestDir, _ = cmd.Flags().GetString("manifests")
	}
	if cfg.Image == "" || cmd.Flags().Changed("image") {
		cfg.Image, _ = cmd.Flags().GetString("image")
	}
	if cfg.ImageTag == "" || cmd.Flags().Changed("tag") {
		cfg.ImageTag, _ = cmd.Flags().GetString("tag")
	}
	if cfg.Port == 0 || cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt32("port")
	}
	if cfg.TargetPort == 0 || cmd.Flags().Changed("target-port") {
		cfg.TargetPort, _ = cmd.Flags().GetInt32("target-port")
	}
	if cfg.Policy == "" || cmd.Flags().Changed("policy") {
		policy, _ := cmd.Flags().GetString("policy")
		cfg.Policy = types.VerificationPolicy(policy)
	}
	if cfg.Strategy == "" || cmd.Flags().Changed("strategy") {
		strategy, _ := cmd.Flags().GetString("strategy")
		cfg.Strategy = types.SwitchStrategy(strategy)
	}
	if cfg.Timeout == 0 || cmd.Flags().Changed("timeout") {
		cfg.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	if doSwitch, _ := cmd.Flags().GetBool("switch"); doSwitch {
		cfg.SwitchTraffic = true
	}
	if doVerify, _ := cmd.Flags().GetBool("verify"); doVerify {
		cfg.Verify = true
	}

	gateway, err := newGateway(cmd)
	if err != nil {
		return err
	}

	if metricsAddr, _ := cmd.Flags().GetString("metrics-addr"); metricsAddr != "" {
		reg := registry.New(gateway, cfg.Namespace, cfg.ServiceName)
		server := api.NewServer(gateway, reg, cfg.Namespace)
		go func() {
			if err := server.Start(metricsAddr); err != nil {
				log.Errorf("status server stopped", err)
			}
		}()
		fmt.Printf("✓ Status and metrics listening on %s\n", metricsAddr)
	}

	broker := notify.NewBroker()
	broker.Start()
	defer broker.Stop()
	go notify.LogEvents(broker.Subscribe(), log.WithComponent("events"))

	fmt.Printf("Deploying %s to environment '%s'\n", cfg.AppName, env)
	fmt.Printf("  Namespace: %s\n", cfg.Namespace)
	fmt.Printf("  Manifests: %s\n", cfg.ManifestDir)
	if cfg.Image != "" {
		image := cfg.Image
		if cfg.ImageTag != "" {
			image = fmt.Sprintf("%s:%s", cfg.Image, cfg.ImageTag)
		}
		fmt.Printf("  Image: %s\n", image)
	}
	fmt.Println()

	result := coordinator.New(gateway, cfg).WithBroker(broker).Run(cmd.Context())

	if result.Verification != nil {
		if result.Verification.Passed() {
			fmt.Printf("✓ Verification passed in %s\n", result.Verification.Duration.Round(time.Millisecond))
		} else {
			fmt.Printf("✗ Verification failed: %s\n", result.Verification.Reason)
		}
	}

	if !result.Succeeded() {
		return fmt.Errorf("deployment %s: %v", result.Summary(), result.Err)
	}

	fmt.Printf("✓ Deployment complete (run %s)\n", result.RunID)
	if result.Routing.HasActive() {
		fmt.Printf("✓ Stable service '%s' routes to %s\n", result.Routing.ServiceName, result.Routing.ActiveEnvironment)
	} else {
		fmt.Printf("  Stable service '%s' has no active environment yet\n", cfg.ServiceName)
	}
	return nil
}
