package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/cutover/pkg/registry"
	"github.com/cuemby/cutover/pkg/switcher"
	"github.com/cuemby/cutover/pkg/types"
)

var switchCmd = &cobra.Command{
	Use:   "switch [blue|green]",
	Short: "Switch the stable service's traffic to an environment",
	Long: `Repoint the stable service at the named environment.

The default selector-patch strategy updates the service selector in
place, so the cutover is atomic. Switching to the environment that is
already live is a no-op and succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: runSwitch,
}

func init() {
	switchCmd.Flags().String("strategy", "selector-patch", "Traffic switch strategy (selector-patch or recreate)")
	switchCmd.Flags().Int32("port", 80, "Stable service port, used when the service must be created")
	switchCmd.Flags().Int32("target-port", 8080, "Container port the service routes to")

	rootCmd.AddCommand(switchCmd)
}

func runSwitch(cmd *cobra.Command, args []string) error {
	env, err := types.ParseEnvironment(args[0])
	if err != nil {
		return err
	}

	namespace, _ := cmd.Flags().GetString("namespace")
	app, _ := cmd.Flags().GetString("app")
	service, _ := cmd.Flags().GetString("service")
	strategy, _ := cmd.Flags().GetString("strategy")
	port, _ := cmd.Flags().GetInt32("port")
	targetPort, _ := cmd.Flags().GetInt32("target-port")

	gateway, err := newGateway(cmd)
	if err != nil {
		return err
	}

	reg := registry.New(gateway, namespace, service)
	current, err := reg.Current(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read routing state: %v", err)
	}
	if current.HasActive() {
		fmt.Printf("Current routing: %s -> %s\n", service, current.ActiveEnvironment)
	} else {
		fmt.Printf("Current routing: %s -> (none)\n", service)
	}

	sw := switcher.New(gateway, reg, switcher.Config{
		Namespace:   namespace,
		AppName:     app,
		ServiceName: service,
		Port:        port,
		TargetPort:  targetPort,
		Strategy:    types.SwitchStrategy(strategy),
	})
	if err := sw.SwitchTo(cmd.Context(), env); err != nil {
		return err
	}

	fmt.Printf("✓ Traffic switched: %s -> %s\n", service, env)
	return nil
}
