package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tezos-reporter/internal/config"
	"github.com/tezos-reporter/internal/errors"
	"github.com/tezos-reporter/internal/export"
	"github.com/tezos-reporter/internal/logging"
	"github.com/tezos-reporter/internal/resolver"
	"github.com/tezos-reporter/internal/types"
)

// Fetcher retrieves the raw transaction sequence for one address
type Fetcher interface {
	FetchTransactions(ctx context.Context, address string, window types.ReportWindow) ([]types.RawTransaction, error)
}

// RawCache stores fetched raw transaction sets so a CSV download reuses the
// exact data behind the rendered report. Implementations are short-TTL only.
type RawCache interface {
	Key(addresses []types.Address, window types.ReportWindow) string
	Put(ctx context.Context, key string, sets map[string][]types.RawTransaction) error
	Get(ctx context.Context, key string) (map[string][]types.RawTransaction, bool, error)
}

// Engine is the transaction aggregation and reporting engine: it turns a set
// of address tokens and a window into metrics, daily rows, a chart series and
// the two export tables.
type Engine struct {
	fetcher  Fetcher
	cache    RawCache // nil when caching is disabled
	feeRate  decimal.Decimal
	zeroFill bool
}

// NewEngine creates a report engine. cache may be nil.
func NewEngine(fetcher Fetcher, cache RawCache, cfg *config.ReportConfig) *Engine {
	return &Engine{
		fetcher:  fetcher,
		cache:    cache,
		feeRate:  cfg.FeeRate,
		zeroFill: cfg.ZeroFillDays,
	}
}

// Generate computes a full report for the selected tokens and window.
// Every call performs a fresh fetch; nothing is reused across report
// requests beyond the export cache written here.
func (e *Engine) Generate(ctx context.Context, tokens []string, window types.ReportWindow) (*types.Report, error) {
	addresses, err := resolver.Resolve(tokens)
	if err != nil {
		return nil, err
	}
	if !window.Valid() {
		return nil, errors.NewInvalidWindowError("start must be before end")
	}

	sets, err := e.fetchAll(ctx, addresses, window)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		key := e.cache.Key(addresses, window)
		if err := e.cache.Put(ctx, key, sets); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Failed to cache raw transaction sets")
		}
	}

	return e.build(addresses, window, sets), nil
}

// Export renders one of the two canonical tables for download. The raw data
// comes from the export cache when the matching report was generated
// recently; otherwise it is fetched fresh.
func (e *Engine) Export(ctx context.Context, kind types.ExportKind, tokens []string, window types.ReportWindow) ([]byte, string, error) {
	if kind != types.ExportTransactions && kind != types.ExportDailySummary {
		return nil, "", errors.NewInvalidParameterError("type", fmt.Sprintf("unknown export type %q", kind))
	}

	addresses, err := resolver.Resolve(tokens)
	if err != nil {
		return nil, "", err
	}
	if !window.Valid() {
		return nil, "", errors.NewInvalidWindowError("start must be before end")
	}

	var sets map[string][]types.RawTransaction
	if e.cache != nil {
		key := e.cache.Key(addresses, window)
		cached, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Export cache lookup failed")
		} else if ok {
			sets = cached
		}
	}
	if sets == nil {
		sets, err = e.fetchAll(ctx, addresses, window)
		if err != nil {
			return nil, "", err
		}
	}

	rendered, err := export.Render(kind, e.build(addresses, window, sets))
	if err != nil {
		return nil, "", err
	}

	return rendered, exportFilename(kind, addresses, window), nil
}

// fetchAll runs one fetch per address concurrently, joining all and
// propagating the first failure; remaining fetches are cancelled. Results
// are keyed by address so aggregation order never depends on completion
// order.
func (e *Engine) fetchAll(ctx context.Context, addresses []types.Address, window types.ReportWindow) (map[string][]types.RawTransaction, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([][]types.RawTransaction, len(addresses))

	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			txs, err := e.fetcher.FetchTransactions(ctx, addr.Value, window)
			if err != nil {
				return err
			}
			results[i] = txs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sets := make(map[string][]types.RawTransaction, len(addresses))
	for i, addr := range addresses {
		sets[addr.Value] = results[i]
	}
	return sets, nil
}

// build runs the synchronous transform stages over fetched raw sets
func (e *Engine) build(addresses []types.Address, window types.ReportWindow, sets map[string][]types.RawTransaction) *types.Report {
	classified := make(map[string][]types.ClassifiedTransaction, len(addresses))
	var all []types.ClassifiedTransaction

	for _, addr := range addresses {
		for i := range sets[addr.Value] {
			views := Classify(&sets[addr.Value][i], addr)
			classified[addr.Value] = append(classified[addr.Value], views...)
			all = append(all, views...)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := &all[i], &all[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Hash != b.Hash {
			return a.Hash < b.Hash
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Direction < b.Direction
	})

	agg := Aggregate(addresses, classified, e.feeRate)
	daily, series := BuildDailySummary(all, window, e.zeroFill)

	return &types.Report{
		Addresses:    addresses,
		Window:       window,
		Overall:      agg.Overall,
		PerAddress:   agg.PerAddress,
		Daily:        daily,
		Series:       series,
		Transactions: all,
		HasData:      len(all) > 0,
	}
}

// exportFilename mirrors the original tool's download naming
func exportFilename(kind types.ExportKind, addresses []types.Address, window types.ReportWindow) string {
	label := addresses[0].Value
	if addresses[0].Alias != "" {
		label = addresses[0].Alias
	}
	if len(addresses) > 1 {
		label = fmt.Sprintf("%s_and_%d_more", label, len(addresses)-1)
	}
	return fmt.Sprintf("%s_%s_%s_to_%s.csv",
		label, kind,
		window.Start.UTC().Format(dateLayout),
		window.End.UTC().Format(dateLayout))
}
