package report

import (
	"fmt"

	"github.com/tezos-reporter/internal/types"
)

// Classify produces the classified views of one raw transaction relative to a
// subject address: one incoming view when the subject is the target, one
// outgoing view when it is the sender, and both for a self-transfer. The
// amount is the raw mutez amount converted to XTZ, nothing else.
//
// The fetcher only ever hands over transactions the subject is a party to;
// anything else is a broken invariant, not a recoverable condition.
func Classify(tx *types.RawTransaction, subject types.Address) []types.ClassifiedTransaction {
	if tx.Sender != subject.Value && tx.Target != subject.Value {
		panic(fmt.Sprintf("classifier invariant violated: %s is not a party to transaction %s", subject.Value, tx.Hash))
	}

	amount := tx.AmountTez()
	views := make([]types.ClassifiedTransaction, 0, 2)

	if tx.Target == subject.Value {
		views = append(views, types.ClassifiedTransaction{
			Hash:         tx.Hash,
			Timestamp:    tx.Timestamp,
			Subject:      subject.Value,
			Counterparty: tx.Sender,
			Direction:    types.DirectionIn,
			Amount:       amount,
		})
	}
	if tx.Sender == subject.Value {
		views = append(views, types.ClassifiedTransaction{
			Hash:         tx.Hash,
			Timestamp:    tx.Timestamp,
			Subject:      subject.Value,
			Counterparty: tx.Target,
			Direction:    types.DirectionOut,
			Amount:       amount,
		})
	}

	return views
}
