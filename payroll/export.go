package payroll

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ExportRow is the flat, per-log projection handed to file writers.
type ExportRow struct {
	Date      string          `json:"date"`
	JobName   string          `json:"jobName"`
	StartTime string          `json:"startTime"`
	EndTime   string          `json:"endTime"`
	Duration  decimal.Decimal `json:"duration"`
	Rate      decimal.Decimal `json:"rate"`
	Earnings  decimal.Decimal `json:"earnings"`
	Notes     string          `json:"notes"` // Embedded quotes doubled
}

// ToExportRows projects logs in their stored order. A log whose job is gone
// exports with an empty job name and zero rate.
func ToExportRows(logs []WorkLog, jobs map[JobID]Job) []ExportRow {
	rows := make([]ExportRow, 0, len(logs))
	for _, l := range logs {
		row := ExportRow{
			Date:      l.Date.String(),
			StartTime: l.StartTime,
			EndTime:   l.EndTime,
			Duration:  l.Duration,
			Rate:      decimal.Zero,
			Earnings:  ValueOf(l, jobs),
			Notes:     strings.ReplaceAll(l.Notes, `"`, `""`),
		}
		if job, ok := jobs[l.JobID]; ok {
			row.JobName = job.Name
			row.Rate = ResolveRate(job, l.Date).Regular
		}
		rows = append(rows, row)
	}
	return rows
}
