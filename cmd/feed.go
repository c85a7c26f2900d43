package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

var feedRebuild bool

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the feed snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if feedRebuild {
			snapshot, err := env.Feed.Rebuild(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(snapshot)
		}

		snapshot, err := store.GetAs[model.FeedSnapshot](cmd.Context(), env.Store, store.FeedKey)
		if eris.Is(err, store.ErrNotFound) {
			snapshot, err = env.Feed.Rebuild(cmd.Context())
		}
		if err != nil {
			return err
		}
		return printJSON(snapshot)
	},
}

func init() {
	feedCmd.Flags().BoolVar(&feedRebuild, "rebuild", false, "force a rebuild before printing")
	rootCmd.AddCommand(feedCmd)
}
