package service

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/warp/payroll-engine/payroll"
)

// csvHeader is the first line of every CSV export.
const csvHeader = "date,job,start_time,end_time,duration,rate,earnings,notes"

// WriteCSV frames export rows as CSV. Notes arrive with quotes already
// doubled by payroll.ToExportRows, so the notes column is always wrapped
// in quotes and never escaped again.
func WriteCSV(w io.Writer, rows []payroll.ExportRow) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(csvHeader + "\n"); err != nil {
		return err
	}
	for _, r := range rows {
		fields := []string{
			r.Date,
			csvEscape(r.JobName),
			r.StartTime,
			r.EndTime,
			r.Duration.String(),
			r.Rate.StringFixed(2),
			r.Earnings.StringFixed(2),
			`"` + r.Notes + `"`,
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteJSON writes export rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []payroll.ExportRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
