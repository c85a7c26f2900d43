package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync <run-id>",
	Short: "Pull discovered items for a run from the provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := store.GetAs[model.Run](cmd.Context(), env.Store, store.RunKey(args[0]))
		if err != nil {
			return eris.Wrapf(err, "load run %s", args[0])
		}

		res, err := env.Syncer.Sync(cmd.Context(), run.ProviderSessionID, run.ID, run.LeadsetID)
		if err != nil {
			return err
		}
		if _, err := env.Feed.Rebuild(cmd.Context()); err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
