package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alexanderksmi/doffin-hunter/internal/monitoring"
)

var (
	monitorSend  bool
	monitorWatch bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check queue health and raise alerts",
	Long: `Collects job counts, reports dead-lettered jobs and queue backlog, and
optionally posts alerts to the configured webhook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, "monitor")
		if err != nil {
			return err
		}
		defer logClose("store", st.Close)

		collector := monitoring.NewCollector(st)
		alerter := monitoring.NewAlerter(cfg.Monitoring)

		if monitorWatch {
			monitoring.NewChecker(collector, alerter, cfg.Monitoring).Run(ctx)
			return nil
		}

		snap, err := collector.Collect(ctx)
		if err != nil {
			return err
		}
		alerts := alerter.Evaluate(snap)
		if monitorSend {
			alerter.SendAlerts(ctx, alerts)
		}

		return printJSON(os.Stdout, struct {
			Snapshot *monitoring.Snapshot `json:"snapshot"`
			Alerts   []monitoring.Alert   `json:"alerts"`
		}{snap, alerts})
	},
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorSend, "send", false, "post triggered alerts to monitoring.webhook_url")
	monitorCmd.Flags().BoolVar(&monitorWatch, "watch", false, "keep checking every monitoring.check_interval and send alerts")
	rootCmd.AddCommand(monitorCmd)
}
