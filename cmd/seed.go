package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alexanderksmi/doffin-hunter/internal/fixture"
	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load profiles and tenders from a YAML fixture",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		set, err := fixture.Load(seedFile)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, "seed")
		if err != nil {
			return err
		}
		defer logClose("store", st.Close)

		return seedStore(ctx, st, set)
	},
}

func seedStore(ctx context.Context, st store.Store, set *fixture.Set) error {
	if err := st.SaveProfiles(ctx, set.Profiles); err != nil {
		return eris.Wrap(err, "seed profiles")
	}
	if err := st.SaveTenders(ctx, set.Tenders); err != nil {
		return eris.Wrap(err, "seed tenders")
	}
	zap.L().Info("fixture loaded",
		zap.String("file", seedFile),
		zap.Int("profiles", len(set.Profiles)),
		zap.Int("tenders", len(set.Tenders)),
		zap.Strings("org_ids", set.Organizations()),
	)
	return nil
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "path to the fixture YAML file")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}
