package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/payroll-engine/payroll"
)

func newProgressCmd(a *app) *cobra.Command {
	var (
		job     string
		promote bool
	)

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show hours toward each job's promotion target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn()

			state := svc.State()
			jobs := state.Jobs
			if job != "" || promote {
				j, err := resolveJob(state, job)
				if err != nil {
					return err
				}
				jobs = []payroll.Job{j}
			}

			out := cmd.OutOrStdout()
			cur := state.Settings.Currency
			for _, j := range jobs {
				p, err := svc.Progress(j.ID)
				if err != nil {
					return err
				}
				status := mutedStyle.Render(fmt.Sprintf("%s to go", hours(p.RemainingHours)))
				if p.Eligible {
					status = okStyle.Render("eligible for " + money(cur, j.NextHourlyRate) + "/h")
				}
				fmt.Fprintf(out, "%s\n%s %s%%  %s / %s  %s\n",
					titleStyle.Render(j.Name),
					progressBar(p.Percent, 30), p.Percent.StringFixed(0),
					hours(p.TotalHours), hours(p.TargetHours), status,
				)
			}

			if promote {
				promoted, err := svc.Promote(cmd.Context(), jobs[0].ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Promoted %s: %s weekday, %s weekend\n",
					promoted.Name, money(cur, promoted.HourlyRate), money(cur, promoted.WeekendHourlyRate))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&job, "job", "", "Job id or name (default: all jobs)")
	cmd.Flags().BoolVar(&promote, "promote", false, "Apply the next rate tier if eligible")
	return cmd
}
