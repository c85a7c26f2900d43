package main

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

// seedFile is the YAML shape for leadset seeding.
type seedFile struct {
	Leadsets []struct {
		ID            string   `yaml:"id"`
		Name          string   `yaml:"name"`
		Description   string   `yaml:"description"`
		Archetype     string   `yaml:"archetype"`
		Region        string   `yaml:"region"`
		SizeBand      string   `yaml:"size_band"`
		Tags          []string `yaml:"tags"`
		IntentSignals []string `yaml:"intent_signals"`
		AllowedFields []string `yaml:"allowed_fields"`
	} `yaml:"leadsets"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Seed leadsets from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read seed file %s", args[0])
		}
		var sf seedFile
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return eris.Wrap(err, "parse seed file")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		created, skipped := 0, 0
		for _, s := range sf.Leadsets {
			id := s.ID
			if id == "" {
				id = uuid.New().String()
			}
			for _, f := range s.AllowedFields {
				if !env.Registry.Known(f) {
					return eris.Errorf("seed: leadset %s allows unknown field %q", s.Name, f)
				}
			}
			ls := model.Leadset{
				ID:   id,
				Name: s.Name,
				Criteria: model.Criteria{
					Description:   s.Description,
					Archetype:     s.Archetype,
					Region:        s.Region,
					SizeBand:      s.SizeBand,
					Tags:          s.Tags,
					IntentSignals: s.IntentSignals,
				},
				Status:        model.LeadsetStatusIdle,
				AllowedFields: s.AllowedFields,
				CreatedAt:     time.Now().UTC(),
				UpdatedAt:     time.Now().UTC(),
			}
			err := env.Store.Create(cmd.Context(), store.LeadsetKey(id), ls)
			if eris.Is(err, store.ErrExists) {
				skipped++
				continue
			}
			if err != nil {
				return eris.Wrapf(err, "seed leadset %s", s.Name)
			}
			created++
		}

		if _, err := env.Feed.Rebuild(cmd.Context()); err != nil {
			return err
		}
		zap.L().Info("seed complete", zap.Int("created", created), zap.Int("skipped", skipped))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
