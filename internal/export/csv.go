// Package export renders report aggregates as the two canonical CSV tables.
// Rendering is pure formatting: it never recomputes metrics, so displayed and
// exported totals are always numerically identical.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/tezos-reporter/internal/types"
)

// Render produces the CSV bytes for one export table
func Render(kind types.ExportKind, report *types.Report) ([]byte, error) {
	switch kind {
	case types.ExportTransactions:
		return Transactions(report)
	case types.ExportDailySummary:
		return DailySummary(report)
	default:
		return nil, fmt.Errorf("unknown export kind %q", kind)
	}
}

// Transactions renders one row per classified transaction, ordered by
// timestamp ascending (the engine already guarantees the order).
func Transactions(report *types.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"hash", "timestamp", "direction", "amount", "counterparty"}); err != nil {
		return nil, err
	}
	for i := range report.Transactions {
		tx := &report.Transactions[i]
		record := []string{
			tx.Hash,
			tx.Timestamp.UTC().Format(time.RFC3339),
			string(tx.Direction),
			tx.Amount.StringFixed(types.AmountDisplayDigits),
			tx.Counterparty,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// DailySummary renders one row per daily summary row plus a trailing total
// row carrying the report's overall metrics.
func DailySummary(report *types.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"date", "trades", "volume", "earned"}); err != nil {
		return nil, err
	}
	for _, row := range report.Daily {
		record := []string{
			row.Date,
			strconv.FormatInt(row.Metrics.Trades, 10),
			row.Metrics.Volume.StringFixed(types.AmountDisplayDigits),
			row.Metrics.Earned.StringFixed(types.AmountDisplayDigits),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	total := []string{
		"total",
		strconv.FormatInt(report.Overall.Trades, 10),
		report.Overall.Volume.StringFixed(types.AmountDisplayDigits),
		report.Overall.Earned.StringFixed(types.AmountDisplayDigits),
	}
	if err := w.Write(total); err != nil {
		return nil, err
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
