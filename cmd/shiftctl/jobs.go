package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

func newJobsCmd(a *app) *cobra.Command {
	var (
		add                       string
		rate, weekendRate, target float64
		nextRate, nextWeekendRate float64
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs, or add one with --add",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			if add != "" {
				job, err := svc.AddJob(cmd.Context(), payroll.Job{
					Name:                  add,
					HourlyRate:            decimal.NewFromFloat(rate),
					WeekendHourlyRate:     decimal.NewFromFloat(weekendRate),
					TargetHours:           decimal.NewFromFloat(target),
					NextHourlyRate:        decimal.NewFromFloat(nextRate),
					NextWeekendHourlyRate: decimal.NewFromFloat(nextWeekendRate),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Added job %s (%s)\n", job.Name, job.ID)
				return nil
			}

			state := svc.State()
			cur := state.Settings.Currency
			widths := []int{38, 16, 14, 14, 10}
			fmt.Fprintln(out, headerStyle.Render(row(widths, "ID", "NAME", "WEEKDAY", "WEEKEND", "TARGET")))
			for _, j := range state.Jobs {
				fmt.Fprintln(out, row(widths,
					string(j.ID), j.Name,
					money(cur, j.HourlyRate), money(cur, j.WeekendHourlyRate),
					hours(j.TargetHours),
				))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&add, "add", "", "Add a job with this name")
	cmd.Flags().Float64Var(&rate, "rate", 60, "Weekday hourly rate")
	cmd.Flags().Float64Var(&weekendRate, "weekend-rate", 70, "Weekend hourly rate")
	cmd.Flags().Float64Var(&target, "target", 100, "Promotion target hours")
	cmd.Flags().Float64Var(&nextRate, "next-rate", 70, "Weekday rate after promotion")
	cmd.Flags().Float64Var(&nextWeekendRate, "next-weekend-rate", 80, "Weekend rate after promotion")
	return cmd
}

func newLogCmd(a *app) *cobra.Command {
	var (
		job, date, start, end, notes, template string
		duration                               float64
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log a shift by start/end times, duration, or template",
		Example: `  shiftctl log --start 09:00 --end 17:30
  shiftctl log --job Bar --date 2024-03-09 --hours 5 --notes "Cover"
  shiftctl log --template <id> --date 2024-03-09`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn()

			day := svc.Today()
			if date != "" {
				if day, err = generic.ParseDate(date); err != nil {
					return err
				}
			}

			var log payroll.WorkLog
			if template != "" {
				log, err = svc.AddLogFromTemplate(cmd.Context(), payroll.TemplateID(template), day)
			} else {
				var j payroll.Job
				if j, err = resolveJob(svc.State(), job); err != nil {
					return err
				}
				log, err = svc.AddLog(cmd.Context(), payroll.LogInput{
					JobID:     j.ID,
					Date:      day,
					StartTime: start,
					EndTime:   end,
					Duration:  decimal.NewFromFloat(duration),
					Notes:     notes,
				})
			}
			if err != nil {
				return err
			}

			state := svc.State()
			value := payroll.ValueOf(log, state.JobsByID())
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s on %s (%s)\n",
				hours(log.Duration), log.Date, money(state.Settings.Currency, value))
			return nil
		},
	}

	cmd.Flags().StringVar(&job, "job", "", "Job id or name (default: the only job)")
	cmd.Flags().StringVar(&date, "date", "", "Shift date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&start, "start", "", "Start time HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "End time HH:MM (before start means overnight)")
	cmd.Flags().Float64Var(&duration, "hours", 0, "Duration in hours when no times are given")
	cmd.Flags().StringVar(&notes, "notes", "", "Free text")
	cmd.Flags().StringVar(&template, "template", "", "Shift template id")
	return cmd
}
