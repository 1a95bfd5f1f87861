package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/cutover/pkg/cluster"
	"github.com/cuemby/cutover/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cutover",
	Short: "Cutover - Blue/green deployment coordinator for Kubernetes",
	Long: `Cutover coordinates blue/green deployments against a Kubernetes
cluster: it deploys a workload into the idle environment, verifies its
health, and atomically repoints the stable service when told to.

Both environments run side by side; traffic only moves on an explicit
switch.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
	},
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Cutover version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON instead of console output")
	rootCmd.PersistentFlags().String("kubeconfig", "", "Path to kubeconfig (defaults to in-cluster config, then ~/.kube/config)")
	rootCmd.PersistentFlags().String("namespace", "webapps", "Target namespace")
	rootCmd.PersistentFlags().String("app", "bankapp", "Application name (deployments are <app>-blue and <app>-green)")
	rootCmd.PersistentFlags().String("service", "bankapp", "Stable service name")
}

// newGateway builds the cluster gateway from the persistent flags.
func newGateway(cmd *cobra.Command) (*cluster.KubeGateway, error) {
	kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
	gateway, err := cluster.NewKubeGatewayFromConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %v", err)
	}
	return gateway, nil
}
