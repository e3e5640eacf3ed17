// Package main provides a one-shot CLI that computes an activity report and
// writes the two CSV tables to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tezos-reporter/internal/config"
	"github.com/tezos-reporter/internal/indexer"
	"github.com/tezos-reporter/internal/logging"
	"github.com/tezos-reporter/internal/report"
	"github.com/tezos-reporter/internal/types"
)

func main() {
	addresses := flag.String("addresses", "", "comma separated address tokens (aliases or literal addresses)")
	start := flag.String("start", "", "window start (RFC3339, inclusive)")
	end := flag.String("end", "", "window end (RFC3339, exclusive)")
	outDir := flag.String("out", ".", "output directory for the CSV files")
	flag.Parse()

	if *addresses == "" || *start == "" || *end == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.FormatText,
	)
	logger := logging.GetGlobalLogger()

	window, err := parseWindow(*start, *end)
	if err != nil {
		log.Fatalf("Invalid window: %v", err)
	}
	tokens := strings.Split(*addresses, ",")

	engine := report.NewEngine(indexer.NewClient(&cfg.Indexer), nil, &cfg.Report)

	ctx := context.Background()
	result, err := engine.Generate(ctx, tokens, window)
	if err != nil {
		logger.WithError(err).Fatal("Report generation failed")
	}

	logger.WithFields(map[string]interface{}{
		"trades": result.Overall.Trades,
		"volume": result.Overall.Volume.StringFixed(types.AmountDisplayDigits),
		"earned": result.Overall.Earned.StringFixed(types.AmountDisplayDigits),
	}).Info("Report computed")

	if !result.HasData {
		logger.Info("No transactions in the requested window, nothing to write")
		return
	}

	for _, kind := range []types.ExportKind{types.ExportTransactions, types.ExportDailySummary} {
		data, filename, err := engine.Export(ctx, kind, tokens, window)
		if err != nil {
			logger.WithError(err).Fatal("Export failed")
		}
		path := filepath.Join(*outDir, filename)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			logger.WithError(err).Fatal("Failed to write CSV file")
		}
		fmt.Printf("Wrote %s\n", path)
	}
}

func parseWindow(start, end string) (types.ReportWindow, error) {
	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return types.ReportWindow{}, fmt.Errorf("start: %w", err)
	}
	endTime, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return types.ReportWindow{}, fmt.Errorf("end: %w", err)
	}
	window := types.ReportWindow{Start: startTime.UTC(), End: endTime.UTC()}
	if !window.Valid() {
		return types.ReportWindow{}, fmt.Errorf("start must be before end")
	}
	return window, nil
}
