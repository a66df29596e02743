package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/logging"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
	"github.com/warp/payroll-engine/store/sqlite"
)

// app carries the persistent flags shared by every subcommand.
type app struct {
	dbPath     string
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "shiftctl",
		Short: "Log shifts, check progress and reconcile payslips",
		Long: `shiftctl works on the same SQLite database as the payroll server.
Run it while the server is stopped, or point it at a copy.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (default: storage.path from config)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config path (default: $CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(newJobsCmd(a))
	root.AddCommand(newLogCmd(a))
	root.AddCommand(newReportCmd(a))
	root.AddCommand(newPeriodCmd(a))
	root.AddCommand(newProgressCmd(a))
	root.AddCommand(newReconcileCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newBackupCmd(a))
	return root
}

// Execute is the entry point called from main.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// open loads config, opens the store and the service. The returned func closes the store.
func (a *app) open(ctx context.Context, stderr io.Writer) (*service.Service, func(), error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, err
	}
	path := a.dbPath
	if path == "" {
		path = cfg.Path
	}

	log := logging.Discard()
	if a.verbose {
		log = logging.NewWithWriter(logging.EnvLocal, stderr)
	}

	store, err := sqlite.New(path)
	if err != nil {
		return nil, nil, err
	}
	svc, err := service.New(ctx, store,
		service.WithLogger(log),
		service.WithBackups(store),
	)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return svc, func() { store.Close() }, nil
}

// resolveJob finds a job by id or case-insensitive name. With no
// selector it picks the only job, and fails when there are several.
func resolveJob(state payroll.AppState, selector string) (payroll.Job, error) {
	if selector == "" {
		if len(state.Jobs) == 1 {
			return state.Jobs[0], nil
		}
		return payroll.Job{}, fmt.Errorf("%d jobs configured, pass --job", len(state.Jobs))
	}
	for _, j := range state.Jobs {
		if string(j.ID) == selector || strings.EqualFold(j.Name, selector) {
			return j, nil
		}
	}
	return payroll.Job{}, fmt.Errorf("%w: %s", service.ErrJobNotFound, selector)
}
