package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/cutover/pkg/types"
	"github.com/cuemby/cutover/pkg/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [blue|green]",
	Short: "Verify an environment's health",
	Long: `Poll the named environment until every pod carrying its version
label is ready and the stable service exists, or the timeout elapses.

The exit code reflects the verdict, so the command can gate a pipeline
step before a traffic switch.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Duration("timeout", 60*time.Second, "Verification timeout")
	verifyCmd.Flags().Duration("interval", verify.DefaultInterval, "Polling interval between checks")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	env, err := types.ParseEnvironment(args[0])
	if err != nil {
		return err
	}

	namespace, _ := cmd.Flags().GetString("namespace")
	service, _ := cmd.Flags().GetString("service")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	interval, _ := cmd.Flags().GetDuration("interval")

	gateway, err := newGateway(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("Verifying environment '%s' (timeout %s)\n", env, timeout)

	verifier := verify.New(gateway, namespace, service).WithInterval(interval)
	result := verifier.Verify(cmd.Context(), env, timeout)

	if !result.Passed() {
		return fmt.Errorf("verification failed after %s: %s", result.Duration.Round(time.Millisecond), result.Reason)
	}

	fmt.Printf("✓ Environment '%s' is healthy (%s)\n", env, result.Duration.Round(time.Millisecond))
	return nil
}
