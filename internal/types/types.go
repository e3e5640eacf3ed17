// Package types provides common type definitions for the Tezos activity reporter.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddressRole tags what a reported address represents
type AddressRole string

const (
	// RoleGeneric represents an ordinary reported address
	RoleGeneric AddressRole = "generic"
	// RoleFeeOwner represents the address whose incoming amounts are a marketplace
	// commission cut; its earned total derives an estimated total volume
	RoleFeeOwner AddressRole = "fee-owner"
)

// TransactionDirection represents whether a transfer is incoming or outgoing
// relative to a subject address
type TransactionDirection string

const (
	// DirectionIn represents an incoming transfer (address is the target)
	DirectionIn TransactionDirection = "in"
	// DirectionOut represents an outgoing transfer (address is the sender)
	DirectionOut TransactionDirection = "out"
)

// AmountDisplayDigits is the number of fractional digits used when
// presenting XTZ amounts
const AmountDisplayDigits = 6

// Address is a resolved chain address with its role tag. The address string is
// an immutable chain identifier; the role is derived once at resolution time.
type Address struct {
	Value string      `json:"address"`
	Role  AddressRole `json:"role"`
	Alias string      `json:"alias,omitempty"` // display alias, empty for custom addresses
}

// RawTransaction is one applied transfer operation as returned by the indexer
type RawTransaction struct {
	ID        int64     `json:"id"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"` // UTC instant
	Sender    string    `json:"sender"`
	Target    string    `json:"target"`
	Amount    int64     `json:"amount"` // mutez, non-negative
}

// AmountTez converts the raw mutez amount to XTZ
func (t *RawTransaction) AmountTez() decimal.Decimal {
	return decimal.New(t.Amount, -6)
}

// ClassifiedTransaction is a raw transaction annotated with direction and
// amount relative to one subject address. A self-transfer yields two views.
type ClassifiedTransaction struct {
	Hash         string               `json:"hash"`
	Timestamp    time.Time            `json:"timestamp"`
	Subject      string               `json:"subject"`
	Counterparty string               `json:"counterparty"`
	Direction    TransactionDirection `json:"direction"`
	Amount       decimal.Decimal      `json:"amount"` // XTZ
}

// Metrics aggregates a set of classified transactions.
// Invariants: earned <= volume; trades equals the number of contributing records.
type Metrics struct {
	Trades int64           `json:"trades"`
	Volume decimal.Decimal `json:"volume"` // incoming + outgoing
	Earned decimal.Decimal `json:"earned"` // incoming only

	// EstimatedVolume = Earned / feeRate, set only for fee-owner addresses.
	// Presentational: never feeds back into Volume or Trades.
	EstimatedVolume *decimal.Decimal `json:"estimatedVolume,omitempty"`
}

// ZeroMetrics returns an empty Metrics with explicit zero decimals so JSON and
// CSV output is stable regardless of how the value was produced.
func ZeroMetrics() Metrics {
	return Metrics{Volume: decimal.Zero, Earned: decimal.Zero}
}

// Add accumulates one classified transaction into the metrics
func (m *Metrics) Add(tx *ClassifiedTransaction) {
	m.Trades++
	m.Volume = m.Volume.Add(tx.Amount)
	if tx.Direction == DirectionIn {
		m.Earned = m.Earned.Add(tx.Amount)
	}
}

// Merge adds another Metrics component-wise. Derived figures are not merged.
func (m *Metrics) Merge(other Metrics) {
	m.Trades += other.Trades
	m.Volume = m.Volume.Add(other.Volume)
	m.Earned = m.Earned.Add(other.Earned)
}

// DailySummaryRow is one calendar day (UTC) with that day's metrics
type DailySummaryRow struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Metrics Metrics `json:"metrics"`
}

// SeriesPoint is one chart point of the daily earned series
type SeriesPoint struct {
	Date             string          `json:"date"`
	Earned           decimal.Decimal `json:"earned"`
	CumulativeEarned decimal.Decimal `json:"cumulativeEarned"`
}

// ReportWindow is a half-open time range [Start, End): a transaction at
// exactly End is excluded, one at exactly Start is included.
type ReportWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the window is well-formed
func (w ReportWindow) Valid() bool {
	return w.Start.Before(w.End)
}

// Contains reports whether the instant falls inside the half-open window
func (w ReportWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ExportKind selects one of the two canonical export tables
type ExportKind string

const (
	// ExportTransactions is the per-transaction table
	ExportTransactions ExportKind = "transactions"
	// ExportDailySummary is the per-day table with a trailing total row
	ExportDailySummary ExportKind = "daily_summary"
)

// Report is the full result of one report request
type Report struct {
	Addresses    []Address               `json:"addresses"`
	Window       ReportWindow            `json:"window"`
	Overall      Metrics                 `json:"overall"`
	PerAddress   map[string]*Metrics     `json:"perAddress"`
	Daily        []DailySummaryRow       `json:"daily"`
	Series       []SeriesPoint           `json:"series"`
	Transactions []ClassifiedTransaction `json:"transactions"`
	HasData      bool                    `json:"hasData"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
