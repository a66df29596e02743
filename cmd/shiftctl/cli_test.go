package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	return filepath.Join(t.TempDir(), "payroll.db")
}

func TestLogReportAndReconcile(t *testing.T) {
	db := tempDB(t)

	// GIVEN: A fresh database with the synthesized Main Job (60/70)
	out, err := run(t, db, "jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "Main Job")

	// WHEN: Logging a Saturday and a Tuesday
	out, err = run(t, db, "log", "--date", "2024-03-09", "--hours", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged 5.00h on 2024-03-09 (USD 350.00)")

	out, err = run(t, db, "log", "--date", "2024-03-12", "--start", "22:00", "--end", "02:00", "--notes", "Close")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged 4.00h on 2024-03-12 (USD 240.00)")

	// THEN: The week report covers Monday..Sunday around the Tuesday only
	out, err = run(t, db, "report", "--mode", "week", "--ref", "2024-03-12", "--format", "csv")
	require.NoError(t, err)
	assert.NotContains(t, out, "2024-03-09")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "2024-03-12,Tue,4,240.00", lines[2])

	// AND: A payslip with 3 more weekday hours can be reconciled
	out, err = run(t, db, "reconcile", "--end", "2024-03-14", "--weekday", "7", "--weekend", "5", "--apply")
	require.NoError(t, err)
	assert.Contains(t, out, "backfill")
	assert.Contains(t, out, "Logged 3.00h on 2024-03-14")

	out, err = run(t, db, "reconcile", "--end", "2024-03-14", "--weekday", "7", "--weekend", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Reconciled")

	out, err = run(t, db, "export", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Payslip backfill: +3.00h weekday (Main Job)")
}

func TestReportRejectsUnknownMode(t *testing.T) {
	_, err := run(t, tempDB(t), "report", "--mode", "yearly")
	assert.Error(t, err)
}

func TestLogRequiresJobWhenSeveral(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, db, "jobs", "--add", "Bar")
	require.NoError(t, err)

	_, err = run(t, db, "log", "--date", "2024-03-09", "--hours", "2")
	assert.ErrorContains(t, err, "pass --job")

	out, err := run(t, db, "log", "--job", "bar", "--date", "2024-03-09", "--hours", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "USD 140.00")
}

func TestProgressAndPromote(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, db, "jobs", "--add", "Cafe", "--target", "4")
	require.NoError(t, err)

	_, err = run(t, db, "progress", "--job", "Cafe", "--promote")
	assert.Error(t, err, "0 of 4 hours is not eligible")

	_, err = run(t, db, "log", "--job", "Cafe", "--date", "2024-03-12", "--hours", "4")
	require.NoError(t, err)

	out, err := run(t, db, "progress", "--job", "Cafe", "--promote")
	require.NoError(t, err)
	assert.Contains(t, out, "Promoted Cafe: USD 70.00 weekday, USD 80.00 weekend")
}

func TestMigrateLegacyFile(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{"logs":[{"id":"a","date":"2024-01-06","duration":2}],"settings":{"hourlyRate":40}}`), 0o600))
	target := filepath.Join(dir, "upgraded.json")

	out, err := run(t, filepath.Join(dir, "unused.db"), "migrate", legacy, "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "schema v1 -> v2")

	upgraded, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(upgraded), `"name":"Main Job"`)
	assert.Contains(t, string(upgraded), `"hourlyRate":40`)
}

func TestImportAndBackupList(t *testing.T) {
	db := tempDB(t)
	file := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"logs":[],"settings":{"currency":"EUR"}}`), 0o600))

	out, err := run(t, db, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 jobs, 0 logs, 0 templates")

	_, err = run(t, db, "backup")
	require.NoError(t, err)

	out, err = run(t, db, "backup", "--list", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "import")
	assert.Contains(t, out, "manual")
}

func TestResolveJob(t *testing.T) {
	one := payroll.AppState{Jobs: []payroll.Job{{ID: "j1", Name: "Cafe"}}}
	two := payroll.AppState{Jobs: []payroll.Job{{ID: "j1", Name: "Cafe"}, {ID: "j2", Name: "Bar"}}}

	tests := []struct {
		name     string
		state    payroll.AppState
		selector string
		want     payroll.JobID
		wantErr  bool
	}{
		{"only job", one, "", "j1", false},
		{"by id", two, "j2", "j2", false},
		{"by name any case", two, "cAFE", "j1", false},
		{"ambiguous", two, "", "", true},
		{"unknown", two, "Pub", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveJob(tt.state, tt.selector)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestRowAndProgressBar(t *testing.T) {
	assert.Equal(t, "a     bb", row([]int{4, 4}, "a", "bb"))

	bar := progressBar(decimal.NewFromInt(50), 10)
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Equal(t, 5, strings.Count(bar, "░"))

	over := progressBar(decimal.NewFromInt(150), 10)
	assert.Equal(t, 10, strings.Count(over, "█"))
}
