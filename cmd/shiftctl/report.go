package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

func newReportCmd(a *app) *cobra.Command {
	var mode, ref, job, format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show hours and earnings per day or month",
		Long: `Modes:
  recent   7 days ending at --ref
  week     Monday..Sunday containing --ref
  biweek   14 days ending at --ref
  month    every day of --ref's month
  history  6 months ending at --ref's month`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := payroll.ParseBucketMode(mode)
			if err != nil {
				return err
			}
			refDate, err := optionalDate(ref)
			if err != nil {
				return err
			}

			svc, closeFn, err := a.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn()

			state := svc.State()
			var jobID payroll.JobID
			if job != "" {
				j, err := resolveJob(state, job)
				if err != nil {
					return err
				}
				jobID = j.ID
			}

			buckets, err := svc.Buckets(m, refDate, jobID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "csv":
				fmt.Fprintln(out, "key,label,hours,earnings")
				for _, b := range buckets {
					fmt.Fprintf(out, "%s,%s,%s,%s\n", b.Key, b.Label, b.Hours.String(), b.Earnings.StringFixed(2))
				}
			case "json":
				return writeBucketsJSON(out, buckets)
			default:
				printBuckets(out, m, buckets, state.Settings.Currency)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(payroll.BucketRecent), "recent, week, biweek, month, history")
	cmd.Flags().StringVar(&ref, "ref", "", "Reference date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&job, "job", "", "Job id or name (default: all jobs)")
	cmd.Flags().StringVar(&format, "format", "md", "Output format: md, csv, json")
	return cmd
}

func printBuckets(out io.Writer, mode payroll.BucketMode, buckets []payroll.Bucket, currency string) {
	if len(buckets) == 0 {
		return
	}
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s  %s .. %s", mode, buckets[0].Start, buckets[len(buckets)-1].End)))

	widths := []int{12, 6, 10, 14}
	fmt.Fprintln(out, headerStyle.Render(row(widths, "KEY", "LABEL", "HOURS", "EARNINGS")))

	total := payroll.Totals{Hours: decimal.Zero, Earnings: decimal.Zero}
	for _, b := range buckets {
		line := row(widths, b.Key, b.Label, hours(b.Hours), money(currency, b.Earnings))
		switch {
		case b.IsWeekend:
			line = weekendStyle.Render(line)
		case b.Hours.IsZero():
			line = mutedStyle.Render(line)
		}
		fmt.Fprintln(out, line)
		total = total.Add(payroll.Totals{Hours: b.Hours, Earnings: b.Earnings})
	}
	fmt.Fprintln(out, headerStyle.Render(row(widths, "Total", "", hours(total.Hours), money(currency, total.Earnings))))
}

func writeBucketsJSON(out io.Writer, buckets []payroll.Bucket) error {
	type jsonBucket struct {
		Key       string          `json:"key"`
		Label     string          `json:"label"`
		Hours     decimal.Decimal `json:"hours"`
		Earnings  decimal.Decimal `json:"earnings"`
		IsWeekend bool            `json:"is_weekend"`
	}
	rows := make([]jsonBucket, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, jsonBucket{b.Key, b.Label, b.Hours, b.Earnings, b.IsWeekend})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func newPeriodCmd(a *app) *cobra.Command {
	var ref, job string

	cmd := &cobra.Command{
		Use:   "period",
		Short: "Compare the current pay period and last 14 days with the ones before",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			refDate, err := optionalDate(ref)
			if err != nil {
				return err
			}

			svc, closeFn, err := a.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn()

			state := svc.State()
			var jobID payroll.JobID
			if job != "" {
				j, err := resolveJob(state, job)
				if err != nil {
					return err
				}
				jobID = j.ID
			}

			summary := svc.PayPeriod(jobID, refDate)
			cur := state.Settings.Currency
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, boxStyle.Render(comparisonCard("Pay period ("+string(summary.Frequency)+")", summary.PayPeriod, cur)))
			fmt.Fprintln(out, boxStyle.Render(comparisonCard("Last 14 days", summary.Lookback, cur)))
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Reference date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&job, "job", "", "Job id or name (default: all jobs)")
	return cmd
}

func comparisonCard(title string, c payroll.PeriodComparison, currency string) string {
	change := c.EarningsChange.StringFixed(2) + "%"
	if c.EarningsChange.IsNegative() {
		change = warnStyle.Render(change)
	} else {
		change = okStyle.Render("+" + change)
	}
	return fmt.Sprintf("%s\n%s  %s  %s\n%s  %s  %s\nchange   %s",
		titleStyle.Render(title),
		c.Current, hours(c.CurrentTotals.Hours), money(currency, c.CurrentTotals.Earnings),
		mutedStyle.Render(c.Previous.String()), hours(c.PreviousTotals.Hours), money(currency, c.PreviousTotals.Earnings),
		change,
	)
}

// optionalDate parses a flag value; empty means "let the service use today".
func optionalDate(s string) (generic.Date, error) {
	if s == "" {
		return generic.Date{}, nil
	}
	return generic.ParseDate(s)
}
