package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hamed0406/slotwatch/internal/domain"
	"github.com/hamed0406/slotwatch/internal/scheduler"
)

type options struct {
	api     string
	key     string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	_ = godotenv.Load()

	opts := &options{}
	root := &cobra.Command{
		Use:          "slotctl",
		Short:        "Query and drive a running slotwatch instance",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.api, "api", envOr("API_BASE", "http://localhost:8080"), "slotwatch API base URL")
	root.PersistentFlags().StringVar(&opts.key, "key", os.Getenv("SLOTCTL_API_KEY"), "API key (public for reads, admin for check)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "request timeout")

	root.AddCommand(
		newStatusCmd(opts),
		newSnapshotCmd(opts),
		newAlertsCmd(opts),
		newCheckCmd(opts),
	)
	return root
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last cycle and whether a baseline is held",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st statusResponse
			if err := newClient(opts).get(cmd.Context(), "/api/status", &st); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newSnapshotCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the held baseline table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var snap domain.Snapshot
			if err := newClient(opts).get(cmd.Context(), "/api/snapshot", &snap); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "LOCATION\tTOTAL DATES\tEARLIEST\n")
			for _, r := range snap.Records {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Location, r.TotalDates, orDash(r.EarliestDate))
			}
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "\ntaken at %s\n", snap.TakenAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newAlertsCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List recent alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var alerts []domain.AlertRecord
			if err := newClient(opts).get(cmd.Context(), fmt.Sprintf("/api/alerts?limit=%d", limit), &alerts); err != nil {
				return err
			}
			if len(alerts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No alerts yet.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "SENT\tDELIVERED\tLOCATIONS\tSUMMARY\n")
			for _, a := range alerts {
				fmt.Fprintf(w, "%s\t%t\t%d\t%s\n",
					a.SentAt.Format(time.RFC3339), a.Delivered, a.Locations,
					strings.ReplaceAll(a.Body, "\n", "; "))
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of alerts to show")
	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one monitor cycle now (admin key)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rep scheduler.CycleReport
			if err := newClient(opts).post(cmd.Context(), "/api/check", &rep); err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
}

type statusResponse struct {
	Initialized bool                   `json:"initialized"`
	Cycles      int64                  `json:"cycles"`
	Locations   int                    `json:"locations"`
	Last        *scheduler.CycleReport `json:"last"`
}

func printStatus(w io.Writer, st statusResponse) {
	fmt.Fprintf(w, "baseline:  %t (%d locations)\n", st.Initialized, st.Locations)
	fmt.Fprintf(w, "cycles:    %d\n", st.Cycles)
	if st.Last != nil {
		printReport(w, *st.Last)
	}
}

func printReport(w io.Writer, rep scheduler.CycleReport) {
	fmt.Fprintf(w, "outcome:   %s\n", rep.Outcome)
	fmt.Fprintf(w, "finished:  %s (%s)\n", rep.FinishedAt.Format(time.RFC3339), rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "records:   %d\n", rep.Records)
	if rep.Error != "" {
		fmt.Fprintf(w, "error:     %s\n", rep.Error)
	}
	if rep.Alert != "" {
		fmt.Fprintf(w, "alert:\n%s\n", rep.Alert)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
