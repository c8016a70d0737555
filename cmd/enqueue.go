package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alexanderksmi/doffin-hunter/internal/queue"
)

var (
	enqueueOrg      string
	enqueueProfiles []string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Enqueue a re-evaluation job",
	Long:  "Creates a pending job that re-evaluates the given profiles for an organization after their criteria changed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "enqueue")
		if err != nil {
			return err
		}
		defer logClose("store", st.Close)

		job, err := queue.Enqueue(ctx, st, enqueueOrg, enqueueProfiles, cfg.Queue.MaxRetries)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, job)
	},
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueOrg, "org", "", "organization id")
	enqueueCmd.Flags().StringSliceVar(&enqueueProfiles, "profiles", nil, "affected profile ids (comma-separated)")
	_ = enqueueCmd.MarkFlagRequired("org")
	_ = enqueueCmd.MarkFlagRequired("profiles")
	rootCmd.AddCommand(enqueueCmd)
}
