package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/reset"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every engine document (factory reset)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			cmd.PrintErrln("refusing to wipe without --yes")
			return nil
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		r := reset.New(env.Store,
			reset.WithBatchSize(cfg.Reset.BatchSize),
			reset.WithSettleDelay(time.Duration(cfg.Reset.SettleDelayMS)*time.Millisecond),
			reset.WithMaxPasses(cfg.Reset.MaxPasses),
		)
		res, err := r.Run(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the wipe")
	rootCmd.AddCommand(resetCmd)
}
