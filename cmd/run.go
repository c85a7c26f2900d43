package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/runner"
)

var (
	runMode  string
	runCount int
	runForce bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Manage discovery runs",
}

var runStartCmd = &cobra.Command{
	Use:   "start <leadset-id>",
	Short: "Start a discovery run for a leadset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Runner.StartRun(cmd.Context(), args[0], model.RunMode(runMode), runCount, runForce)
		if err != nil {
			var conflict *runner.ConflictError
			if errors.As(err, &conflict) {
				fmt.Fprintf(os.Stderr, "active session %s already exists (run %s, %d items); use --force, --mode extend, or --mode replace\n",
					conflict.SessionID, conflict.RunID, conflict.ItemCount)
			}
			return err
		}

		if _, err := env.Feed.Rebuild(cmd.Context()); err != nil {
			return err
		}
		return printJSON(run)
	},
}

var runCancelCmd = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Cancel a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Runner.Cancel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if _, err := env.Feed.Rebuild(cmd.Context()); err != nil {
			return err
		}
		return printJSON(run)
	},
}

var runStatusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Refresh a run's counters from the provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Runner.Refresh(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if _, err := env.Feed.Rebuild(cmd.Context()); err != nil {
			return err
		}
		return printJSON(run)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runStartCmd.Flags().StringVar(&runMode, "mode", "new", "run mode: new, extend, or replace")
	runStartCmd.Flags().IntVar(&runCount, "count", 25, "number of entities to discover")
	runStartCmd.Flags().BoolVar(&runForce, "force", false, "start even if a session is already active")

	runCmd.AddCommand(runStartCmd, runCancelCmd, runStatusCmd)
	rootCmd.AddCommand(runCmd)
}
