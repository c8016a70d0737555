package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alexanderksmi/doffin-hunter/internal/evaluate"
)

var (
	evaluateMode string
	evaluateOrg  string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run a batch evaluation",
	Long: `Scores tenders against every organization's own profile and partner profiles
and upserts the results. Incremental mode only scores tenders the organization
has no evaluation for; full mode rescores everything. Nothing is pruned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mode, err := evaluate.ParseMode(evaluateMode)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, "evaluate")
		if err != nil {
			return err
		}
		defer logClose("store", st.Close)

		runner := newRunner(st)

		if evaluateOrg != "" {
			res, err := runner.RunBatch(ctx, evaluateOrg, mode)
			if err != nil {
				return eris.Wrap(err, "evaluate")
			}
			return printJSON(os.Stdout, res)
		}

		res, err := runner.RunAll(ctx, mode)
		if err != nil {
			return eris.Wrap(err, "evaluate")
		}
		if len(res.Failed) > 0 {
			zap.L().Warn("some organizations failed", zap.Strings("org_ids", res.Failed))
		}
		return printJSON(os.Stdout, res)
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateMode, "mode", "incremental", "evaluation mode: incremental or full")
	evaluateCmd.Flags().StringVar(&evaluateOrg, "org", "", "evaluate a single organization (default: all)")
	rootCmd.AddCommand(evaluateCmd)
}
