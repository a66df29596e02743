package main

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
)

func newReconcileCmd(a *app) *cobra.Command {
	var (
		job, end                         string
		window                           int
		weekday, weekend, allowance, tax float64
		apply                            bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare a payslip with the logged hours",
		Long: `Compares payslip hours with the hours logged for one job in the
--window days ending at --end. Differences above 0.1h are listed; --apply
stores one compensating log per mismatched hour type, dated --end.`,
		Example: `  shiftctl reconcile --weekday 72 --weekend 16 --tax 20
  shiftctl reconcile --job Cafe --end 2024-03-31 --window 30 --weekday 120 --apply`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn()

			state := svc.State()
			j, err := resolveJob(state, job)
			if err != nil {
				return err
			}
			endDate := svc.Today()
			if end != "" {
				if endDate, err = optionalDate(end); err != nil {
					return err
				}
			}

			req := service.ReconcileRequest{
				JobID:  j.ID,
				Window: payroll.Window{EndDate: endDate, Length: window},
				Slip: payroll.PayslipInput{
					WeekdayHours: decimal.NewFromFloat(weekday),
					WeekendHours: decimal.NewFromFloat(weekend),
					Allowance:    decimal.NewFromFloat(allowance),
				},
			}
			if cmd.Flags().Changed("tax") {
				rate := decimal.NewFromFloat(tax)
				req.Slip.TaxRate = &rate
			}

			r, err := svc.Reconcile(req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printReconciliation(out, j, r, state.Settings.Currency)

			if !apply {
				return nil
			}
			applied, err := svc.ApplyReconciliation(cmd.Context(), req)
			if err != nil {
				return err
			}
			if len(applied.Created) == 0 {
				fmt.Fprintln(out, okStyle.Render("Nothing to apply"))
				return nil
			}
			for _, l := range applied.Created {
				fmt.Fprintf(out, "Logged %s on %s: %s\n", hours(l.Duration), l.Date, l.Notes)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&job, "job", "", "Job id or name (default: the only job)")
	cmd.Flags().StringVar(&end, "end", "", "Last day of the payslip window (default: today)")
	cmd.Flags().IntVar(&window, "window", payroll.WindowBiweekly, "Window length in days: 14 or 30")
	cmd.Flags().Float64Var(&weekday, "weekday", 0, "Payslip weekday hours")
	cmd.Flags().Float64Var(&weekend, "weekend", 0, "Payslip weekend hours")
	cmd.Flags().Float64Var(&allowance, "allowance", 0, "Payslip allowance added to gross")
	cmd.Flags().Float64Var(&tax, "tax", 0, "Flat tax percent (default: settings)")
	cmd.Flags().BoolVar(&apply, "apply", false, "Store compensating logs for mismatches")
	return cmd
}

func printReconciliation(out io.Writer, job payroll.Job, r payroll.Reconciliation, currency string) {
	widths := []int{10, 14, 14, 14}
	diff := func(d decimal.Decimal, render func(decimal.Decimal) string) string {
		s := render(d)
		if d.IsPositive() {
			s = "+" + s
		}
		return s
	}
	mark := func(line string, d decimal.Decimal) string {
		if payroll.WithinTolerance(d) {
			return okStyle.Render(line)
		}
		return warnStyle.Render(line)
	}
	cash := func(d decimal.Decimal) string { return money(currency, d) }

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s  tax %s%%", job.Name, r.TaxRate.StringFixed(2))))
	fmt.Fprintln(out, headerStyle.Render(row(widths, "", "APP", "PAYSLIP", "DIFF")))
	fmt.Fprintln(out, mark(row(widths, "weekday", hours(r.AppWeekdayHours), hours(r.SlipWeekdayHours), diff(r.DiffWeekdayHours, hours)), r.DiffWeekdayHours))
	fmt.Fprintln(out, mark(row(widths, "weekend", hours(r.AppWeekendHours), hours(r.SlipWeekendHours), diff(r.DiffWeekendHours, hours)), r.DiffWeekendHours))
	fmt.Fprintln(out, row(widths, "gross", cash(r.AppGross), cash(r.SlipGross), diff(r.DiffGrossPay, cash)))
	fmt.Fprintln(out, row(widths, "net", cash(r.AppNet), cash(r.SlipNet), ""))

	if r.Reconciled() {
		fmt.Fprintln(out, okStyle.Render("Reconciled"))
		return
	}
	for _, rem := range r.Remediations() {
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("%s: %s %s", rem.Kind, diff(rem.Hours, hours), rem.HourType)))
	}
}
