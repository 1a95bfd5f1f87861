package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/cutover/pkg/registry"
	"github.com/cuemby/cutover/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which environment is live and the pods in each",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	namespace, _ := cmd.Flags().GetString("namespace")
	service, _ := cmd.Flags().GetString("service")

	gateway, err := newGateway(cmd)
	if err != nil {
		return err
	}

	reg := registry.New(gateway, namespace, service)
	routing, err := reg.Current(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read routing state: %v", err)
	}

	if routing.HasActive() {
		fmt.Printf("Stable service '%s' routes to: %s\n", service, routing.ActiveEnvironment)
	} else {
		fmt.Printf("Stable service '%s' has no active environment\n", service)
	}
	fmt.Println()

	for _, env := range []types.Environment{types.EnvironmentBlue, types.EnvironmentGreen} {
		pods, err := gateway.GetPods(cmd.Context(), namespace, env.Selector())
		if err != nil {
			return fmt.Errorf("failed to list %s pods: %v", env, err)
		}

		marker := " "
		if routing.ActiveEnvironment == env {
			marker = "*"
		}
		fmt.Printf("%s %s (%d pods)\n", marker, env, len(pods))
		for _, pod := range pods {
			state := "not ready"
			if pod.Ready {
				state = "ready"
			}
			fmt.Printf("    %-40s %-10s restarts=%d\n", pod.Name, state, pod.Restarts)
		}
	}

	return nil
}
