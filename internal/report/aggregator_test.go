package report

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tezos-reporter/internal/types"
)

func classifiedTx(direction types.TransactionDirection, amount int64) types.ClassifiedTransaction {
	return types.ClassifiedTransaction{
		Direction: direction,
		Amount:    decimal.NewFromInt(amount),
	}
}

func TestAggregateSingleAddress(t *testing.T) {
	addr := types.Address{Value: addrA}
	classified := map[string][]types.ClassifiedTransaction{
		addrA: {
			classifiedTx(types.DirectionIn, 10),
			classifiedTx(types.DirectionIn, 5),
			classifiedTx(types.DirectionOut, 3),
		},
	}

	agg := Aggregate([]types.Address{addr}, classified, decimal.NewFromFloat(0.03))

	metrics := agg.PerAddress[addrA]
	require.NotNil(t, metrics)
	assert.Equal(t, int64(3), metrics.Trades)
	assert.True(t, metrics.Volume.Equal(decimal.NewFromInt(18)))
	assert.True(t, metrics.Earned.Equal(decimal.NewFromInt(15)))
	assert.Nil(t, metrics.EstimatedVolume)

	assert.Equal(t, metrics.Trades, agg.Overall.Trades)
	assert.True(t, agg.Overall.Volume.Equal(metrics.Volume))
	assert.True(t, agg.Overall.Earned.Equal(metrics.Earned))
}

func TestAggregateFeeOwnerEstimatedVolume(t *testing.T) {
	owner := types.Address{Value: addrB, Role: types.RoleFeeOwner}
	classified := map[string][]types.ClassifiedTransaction{
		addrB: {classifiedTx(types.DirectionIn, 3)},
	}

	agg := Aggregate([]types.Address{owner}, classified, decimal.NewFromFloat(0.03))

	metrics := agg.PerAddress[addrB]
	require.NotNil(t, metrics)
	require.NotNil(t, metrics.EstimatedVolume)
	// 3 XTZ earned at a 3% commission implies 100 XTZ traded through
	assert.True(t, metrics.EstimatedVolume.Equal(decimal.NewFromInt(100)),
		"estimated volume = %s", metrics.EstimatedVolume)

	// The derived figure never leaks into volume or the overall sum
	assert.True(t, metrics.Volume.Equal(decimal.NewFromInt(3)))
	assert.True(t, agg.Overall.Volume.Equal(decimal.NewFromInt(3)))
}

func TestAggregateOverallIsAdditive(t *testing.T) {
	// The same transfer classified for both reported parties counts on
	// both sides and twice in the overall sum
	addresses := []types.Address{{Value: addrA}, {Value: addrB}}
	classified := map[string][]types.ClassifiedTransaction{
		addrA: {classifiedTx(types.DirectionOut, 7)},
		addrB: {classifiedTx(types.DirectionIn, 7)},
	}

	agg := Aggregate(addresses, classified, decimal.NewFromFloat(0.03))

	assert.Equal(t, int64(2), agg.Overall.Trades)
	assert.True(t, agg.Overall.Volume.Equal(decimal.NewFromInt(14)))
	assert.True(t, agg.Overall.Earned.Equal(decimal.NewFromInt(7)))
}

func TestAggregateEmptyInput(t *testing.T) {
	addr := types.Address{Value: addrA}
	agg := Aggregate([]types.Address{addr}, map[string][]types.ClassifiedTransaction{}, decimal.NewFromFloat(0.03))

	metrics := agg.PerAddress[addrA]
	require.NotNil(t, metrics)
	assert.Equal(t, int64(0), metrics.Trades)
	assert.True(t, metrics.Volume.IsZero())
	assert.True(t, metrics.Earned.IsZero())
	assert.Equal(t, int64(0), agg.Overall.Trades)
}

// genClassified generates a random classified transaction sequence with
// positive amounts in mutez range
func genClassified() gopter.Gen {
	return gen.SliceOf(gopter.CombineGens(
		gen.Bool(),
		gen.Int64Range(1, 1_000_000_000),
	).Map(func(values []interface{}) types.ClassifiedTransaction {
		direction := types.DirectionOut
		if values[0].(bool) {
			direction = types.DirectionIn
		}
		return types.ClassifiedTransaction{
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Direction: direction,
			Amount:    decimal.New(values[1].(int64), -6),
		}
	}))
}

func TestAggregateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	feeRate := decimal.NewFromFloat(0.03)

	properties.Property("trades equals sequence length and earned never exceeds volume", prop.ForAll(
		func(txs []types.ClassifiedTransaction) bool {
			addr := types.Address{Value: addrA}
			agg := Aggregate([]types.Address{addr}, map[string][]types.ClassifiedTransaction{addrA: txs}, feeRate)
			metrics := agg.PerAddress[addrA]
			return metrics.Trades == int64(len(txs)) &&
				metrics.Earned.LessThanOrEqual(metrics.Volume)
		},
		genClassified(),
	))

	properties.Property("overall is the component-wise sum of per-address metrics", prop.ForAll(
		func(txsA, txsB []types.ClassifiedTransaction) bool {
			addresses := []types.Address{{Value: addrA}, {Value: addrB}}
			agg := Aggregate(addresses, map[string][]types.ClassifiedTransaction{
				addrA: txsA,
				addrB: txsB,
			}, feeRate)
			a, b := agg.PerAddress[addrA], agg.PerAddress[addrB]
			return agg.Overall.Trades == a.Trades+b.Trades &&
				agg.Overall.Volume.Equal(a.Volume.Add(b.Volume)) &&
				agg.Overall.Earned.Equal(a.Earned.Add(b.Earned))
		},
		genClassified(),
		genClassified(),
	))

	properties.TestingRun(t)
}
