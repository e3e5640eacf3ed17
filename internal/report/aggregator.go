package report

import (
	"github.com/shopspring/decimal"

	"github.com/tezos-reporter/internal/types"
)

// Aggregation holds per-address metrics plus their component-wise sum
type Aggregation struct {
	PerAddress map[string]*types.Metrics
	Overall    types.Metrics
}

// Aggregate folds classified transactions into per-address and overall
// metrics. The overall figure is the pairwise sum of the per-address values,
// not a re-aggregation over deduplicated transactions: a transfer classified
// for two reported addresses contributes to both sides and to both components
// of the sum. Existing reports depend on this additive behavior.
//
// Fee-owner addresses get the derived estimated volume (earned / feeRate),
// which never feeds back into volume or trades.
func Aggregate(addresses []types.Address, classified map[string][]types.ClassifiedTransaction, feeRate decimal.Decimal) Aggregation {
	agg := Aggregation{
		PerAddress: make(map[string]*types.Metrics, len(addresses)),
		Overall:    types.ZeroMetrics(),
	}

	for _, addr := range addresses {
		metrics := types.ZeroMetrics()
		for i := range classified[addr.Value] {
			metrics.Add(&classified[addr.Value][i])
		}

		agg.Overall.Merge(metrics)

		if addr.Role == types.RoleFeeOwner {
			estimated := metrics.Earned.Div(feeRate)
			metrics.EstimatedVolume = &estimated
		}

		m := metrics
		agg.PerAddress[addr.Value] = &m
	}

	return agg
}
