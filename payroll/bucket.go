package payroll

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// BUCKETS - Chart-ready time slots
// =============================================================================

// BucketMode selects the shape of a bucket sequence.
type BucketMode string

const (
	BucketRecent  BucketMode = "recent"  // 7 days ending at ref
	BucketWeek    BucketMode = "week"    // Monday..Sunday containing ref
	BucketBiweek  BucketMode = "biweek"  // 14 days ending at ref
	BucketMonth   BucketMode = "month"   // Calendar month of ref, one bucket per day
	BucketHistory BucketMode = "history" // 6 calendar months ending at ref's month
)

// HistoryMonths is the number of monthly buckets in history mode.
const HistoryMonths = 6

// ParseBucketMode validates a mode string.
func ParseBucketMode(s string) (BucketMode, error) {
	switch m := BucketMode(s); m {
	case BucketRecent, BucketWeek, BucketBiweek, BucketMonth, BucketHistory:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBucketMode, s)
	}
}

// Bucket is one labeled slot. Key is YYYY-MM-DD for day buckets, YYYY-MM for month buckets.
type Bucket struct {
	Label     string
	Key       string
	Start     generic.Date
	End       generic.Date
	Hours     decimal.Decimal
	Earnings  decimal.Decimal
	IsWeekend bool
}

// Bucketize produces an ordered, gap-free bucket sequence. Buckets without
// matching logs are present with zero hours. ref is never defaulted here.
func Bucketize(logs []WorkLog, jobs map[JobID]Job, mode BucketMode, ref generic.Date, filter Filter) ([]Bucket, error) {
	var (
		days  []generic.Date
		label func(generic.Date) string
	)

	switch mode {
	case BucketRecent:
		days = generic.TrailingDays(ref, 7).Days()
		label = weekdayLabel
	case BucketWeek:
		days = generic.WeekOf(ref).Days()
		label = weekdayLabel
	case BucketBiweek:
		days = generic.TrailingDays(ref, generic.BiweeklyLength).Days()
		label = func(d generic.Date) string { return d.Time.Format("01/02") }
	case BucketMonth:
		days = generic.MonthOf(ref).Days()
		label = func(d generic.Date) string { return strconv.Itoa(d.Day()) }
	case BucketHistory:
		return monthBuckets(logs, jobs, ref, filter), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBucketMode, mode)
	}

	byDay := indexByDay(logs, jobs, filter)
	buckets := make([]Bucket, 0, len(days))
	for _, d := range days {
		t := byDay[d]
		buckets = append(buckets, Bucket{
			Label:     label(d),
			Key:       d.String(),
			Start:     d,
			End:       d,
			Hours:     t.Hours,
			Earnings:  t.Earnings,
			IsWeekend: d.IsWeekend(),
		})
	}
	return buckets, nil
}

func monthBuckets(logs []WorkLog, jobs map[JobID]Job, ref generic.Date, filter Filter) []Bucket {
	first := ref.StartOfMonth().AddMonths(-(HistoryMonths - 1))
	buckets := make([]Bucket, 0, HistoryMonths)
	for i := 0; i < HistoryMonths; i++ {
		month := generic.MonthOf(first.AddMonths(i))
		t := Aggregate(logs, jobs, AllOf(filter, InPeriod(month)))
		buckets = append(buckets, Bucket{
			Label:    month.Start.Time.Format("Jan"),
			Key:      month.Start.MonthKey(),
			Start:    month.Start,
			End:      month.End,
			Hours:    t.Hours,
			Earnings: t.Earnings,
		})
	}
	return buckets
}

// indexByDay folds the logs once so per-day buckets are a map lookup.
func indexByDay(logs []WorkLog, jobs map[JobID]Job, filter Filter) map[generic.Date]Totals {
	byDay := make(map[generic.Date]Totals)
	for _, l := range logs {
		if !filter.match(l) {
			continue
		}
		byDay[l.Date] = byDay[l.Date].Add(Totals{Hours: l.Duration, Earnings: ValueOf(l, jobs)})
	}
	return byDay
}

func weekdayLabel(d generic.Date) string {
	return d.Time.Format("Mon")
}
