package report

import (
	"sort"
	"time"

	"github.com/tezos-reporter/internal/types"
)

// dateLayout is the calendar-day key format for daily buckets
const dateLayout = "2006-01-02"

// BuildDailySummary buckets classified transactions by UTC calendar day and
// returns the ordered daily rows plus the chart series (per-day earned and
// cumulative earned). Rows cover only days with at least one transaction
// unless zeroFill is set, in which case every day of the window gets a row.
// An input without transactions always yields empty sequences.
func BuildDailySummary(transactions []types.ClassifiedTransaction, window types.ReportWindow, zeroFill bool) ([]types.DailySummaryRow, []types.SeriesPoint) {
	if len(transactions) == 0 {
		return nil, nil
	}

	buckets := make(map[string]*types.Metrics)
	for i := range transactions {
		day := transactions[i].Timestamp.UTC().Format(dateLayout)
		metrics, ok := buckets[day]
		if !ok {
			m := types.ZeroMetrics()
			metrics = &m
			buckets[day] = metrics
		}
		metrics.Add(&transactions[i])
	}

	var days []string
	if zeroFill {
		days = windowDays(window)
	} else {
		for day := range buckets {
			days = append(days, day)
		}
		sort.Strings(days)
	}

	rows := make([]types.DailySummaryRow, 0, len(days))
	series := make([]types.SeriesPoint, 0, len(days))
	cumulative := types.ZeroMetrics()

	for _, day := range days {
		metrics := types.ZeroMetrics()
		if bucket, ok := buckets[day]; ok {
			metrics = *bucket
		}
		cumulative.Merge(metrics)

		rows = append(rows, types.DailySummaryRow{Date: day, Metrics: metrics})
		series = append(series, types.SeriesPoint{
			Date:             day,
			Earned:           metrics.Earned,
			CumulativeEarned: cumulative.Earned,
		})
	}

	return rows, series
}

// windowDays lists every UTC calendar day the half-open window touches.
// A window ending exactly at midnight does not include that day.
func windowDays(window types.ReportWindow) []string {
	first := window.Start.UTC().Truncate(24 * time.Hour)
	last := window.End.UTC().Add(-time.Nanosecond).Truncate(24 * time.Hour)

	var days []string
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		days = append(days, day.Format(dateLayout))
	}
	return days
}
