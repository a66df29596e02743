package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
)

func newExportCmd(a *app) *cobra.Command {
	var format, job, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export logged shifts (csv, json) or the full state (state)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			var jobID payroll.JobID
			if job != "" {
				j, err := resolveJob(svc.State(), job)
				if err != nil {
					return err
				}
				jobID = j.ID
			}

			switch format {
			case "csv":
				return service.WriteCSV(out, svc.ExportRows(jobID))
			case "json":
				return service.WriteJSON(out, svc.ExportRows(jobID))
			case "state":
				blob, err := svc.ExportState()
				if err != nil {
					return err
				}
				_, err = out.Write(append(blob, '\n'))
				return err
			default:
				return fmt.Errorf("unknown format %q (use csv, json or state)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv, json, state")
	cmd.Flags().StringVar(&job, "job", "", "Job id or name (default: all jobs)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to file instead of stdout")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all data with a state file (any schema version)",
		Long: `Replaces jobs, logs, templates and settings with the content of a
state file. The current data is backed up first. Legacy single-job files
are upgraded on the way in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			svc, closeFn, err := a.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn()

			state, err := svc.Import(cmd.Context(), blob)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d jobs, %d logs, %d templates\n",
				len(state.Jobs), len(state.Logs), len(state.Templates))
			return nil
		},
	}
}

// newMigrateCmd upgrades a state file offline; it never touches the database.
func newMigrateCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "migrate <file>",
		Short: "Upgrade a state file to the current schema without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			from, err := factory.Inspect(blob)
			if err != nil {
				return err
			}
			state, err := factory.Load(blob)
			if err != nil {
				return err
			}
			upgraded, err := factory.Encode(state)
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if _, err := out.Write(append(upgraded, '\n')); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "schema v%d -> v%d, %d jobs, %d logs\n",
				from, factory.CurrentSchema, len(state.Jobs), len(state.Logs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to file instead of stdout")
	return cmd
}

func newBackupCmd(a *app) *cobra.Command {
	var list int

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Take a backup, or list recent ones with --list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			if list > 0 {
				backups, err := svc.Backups(cmd.Context(), list)
				if err != nil {
					return err
				}
				widths := []int{38, 22, 10, 8}
				fmt.Fprintln(out, headerStyle.Render(row(widths, "ID", "TAKEN AT", "REASON", "BYTES")))
				for _, b := range backups {
					fmt.Fprintln(out, row(widths, b.ID, b.TakenAt.Format("2006-01-02 15:04:05"), string(b.Reason), fmt.Sprint(len(b.Blob))))
				}
				return nil
			}

			b, err := svc.Backup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Backup %s taken at %s\n", b.ID, b.TakenAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().IntVar(&list, "list", 0, "List the N most recent backups")
	return cmd
}
