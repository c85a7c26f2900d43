package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

var enrichFields []string

var enrichCmd = &cobra.Command{
	Use:   "enrich <leadset-id>",
	Short: "Request enrichment fields for a leadset's items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.Orchestrator.RequestEnrichment(cmd.Context(), args[0], enrichFields)
		if err != nil {
			return err
		}
		if _, err := env.Feed.Rebuild(cmd.Context()); err != nil {
			return err
		}
		return printJSON(job)
	},
}

var enrichResolveCmd = &cobra.Command{
	Use:   "resolve <job-id>",
	Short: "Reconcile an enrichment job's results onto local items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.Orchestrator.ResolveJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if _, err := env.Feed.Rebuild(cmd.Context()); err != nil {
			return err
		}
		return printJSON(job)
	},
}

var enrichJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List enrichment jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		docs, err := env.Store.Scan(cmd.Context(), store.JobPrefix, 0)
		if err != nil {
			return err
		}
		jobs, err := store.DecodeAll[model.EnrichmentJob](docs)
		if err != nil {
			return err
		}
		return printJSON(jobs)
	},
}

func init() {
	enrichCmd.Flags().StringSliceVar(&enrichFields, "fields", nil, "field keys to request (default: leadset allowlist or global defaults)")
	enrichCmd.AddCommand(enrichResolveCmd, enrichJobsCmd)
	rootCmd.AddCommand(enrichCmd)
}
