package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alexanderksmi/doffin-hunter/internal/queue"
)

var (
	workerBudget    time.Duration
	workerDrainOnly bool
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Drain the evaluation job queue",
	Long: `Claims and processes evaluation jobs until the time budget is spent. Meant to
be triggered periodically by a scheduler; each invocation is independent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if workerBudget > 0 {
			cfg.Queue.Budget = workerBudget
		}

		st, err := openStore(ctx, "worker")
		if err != nil {
			return err
		}
		defer logClose("store", st.Close)

		pub, closePub, err := initPublisher(st)
		if err != nil {
			return err
		}
		defer closePub()

		qcfg := queueConfig(cfg.Queue)
		qcfg.ExitWhenIdle = workerDrainOnly

		summary, err := queue.NewWorker(st, pub, qcfg).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "worker")
		}

		zap.L().Info("worker finished",
			zap.Int("claimed", summary.Claimed),
			zap.Int("completed", summary.Completed),
			zap.Int("retried", summary.Retried),
			zap.Int("dead_lettered", summary.DeadLettered),
			zap.Int("lease_lost", summary.LeaseLost),
		)
		return printJSON(os.Stdout, summary)
	},
}

func init() {
	workerCmd.Flags().DurationVar(&workerBudget, "budget", 0, "time budget for this invocation (default from config)")
	workerCmd.Flags().BoolVar(&workerDrainOnly, "exit-when-idle", false, "return as soon as the queue is empty")
	rootCmd.AddCommand(workerCmd)
}
