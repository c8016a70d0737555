package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and administer evaluation jobs",
}

// -- jobs list --

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evaluation jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")
		org, _ := cmd.Flags().GetString("org")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.JobFilter{
			Status:         model.JobStatus(status),
			OrganizationID: org,
			Limit:          limit,
		}
		if filter.Status != "" && !filter.Status.Valid() {
			return eris.Errorf("unknown status %q (pending, running, completed, dead_letter)", status)
		}

		st, err := openStore(ctx, "jobs")
		if err != nil {
			return err
		}
		defer logClose("store", st.Close)

		jobs, err := st.ListJobs(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "jobs list")
		}

		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		formatJobsList(os.Stdout, jobs)
		return nil
	},
}

// -- jobs show --

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show full details of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "jobs")
		if err != nil {
			return err
		}
		defer logClose("store", st.Close)

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show")
		}
		return printJSON(os.Stdout, job)
	},
}

// -- jobs requeue --

var jobsRequeueCmd = &cobra.Command{
	Use:   "requeue <job-id>",
	Short: "Move a dead-lettered job back to pending",
	Long:  "Resets the retry count of a dead-lettered job and makes it immediately claimable.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "jobs")
		if err != nil {
			return err
		}
		defer logClose("store", st.Close)

		if err := st.RequeueJob(ctx, args[0], time.Now().UTC()); err != nil {
			return eris.Wrap(err, "jobs requeue")
		}
		fmt.Fprintf(os.Stderr, "Job %s requeued.\n", args[0])
		return nil
	},
}

// -- jobs stats --

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job counts per status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "jobs")
		if err != nil {
			return err
		}
		defer logClose("store", st.Close)

		stats, err := st.QueueStats(ctx)
		if err != nil {
			return eris.Wrap(err, "jobs stats")
		}
		formatQueueStats(os.Stdout, stats, time.Now().UTC())
		return nil
	},
}

func init() {
	jobsListCmd.Flags().String("status", "", "filter by status (pending, running, completed, dead_letter)")
	jobsListCmd.Flags().String("org", "", "filter by organization id")
	jobsListCmd.Flags().Int("limit", 50, "max number of jobs to display")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsRequeueCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}

// formatJobsList writes a tabular list of jobs to w.
func formatJobsList(out io.Writer, jobs []model.Job) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tORG\tSTATUS\tRETRIES\tPROFILES\tERROR\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t---\t------\t-------\t--------\t-----\t-------")

	for _, j := range jobs {
		errCode := j.ErrorCode
		if errCode == "" {
			errCode = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			truncateID(j.ID),
			j.OrganizationID,
			j.Status,
			j.RetryCount,
			j.MaxRetries,
			len(j.AffectedProfileIDs),
			errCode,
			j.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatQueueStats writes job counts to w.
func formatQueueStats(out io.Writer, s store.QueueStats, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Pending:\t%d\n", s.Pending)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	_, _ = fmt.Fprintf(w, "Completed:\t%d\n", s.Completed)
	_, _ = fmt.Fprintf(w, "Dead letter:\t%d\n", s.DeadLetter)
	if s.OldestPending != nil {
		_, _ = fmt.Fprintf(w, "Oldest pending:\t%s\n", now.Sub(*s.OldestPending).Round(time.Second))
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
