package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentSource labels where a NAV adjustment came from. The set doubles
// as the attribution breakdown on reconciliation exceptions.
type AdjustmentSource string

const (
	SourcePremium    AdjustmentSource = "premium"    // option premium net of nothing
	SourceCommission AdjustmentSource = "commission" // commissions and per-trade fees
	SourceCashFlow   AdjustmentSource = "cash_flow"  // deposits, withdrawals, fees, interest
	SourceCoverPL    AdjustmentSource = "cover_pl"   // realized P&L from covering an assignment
)

// NAVAdjustment is one signed base-currency movement of the day's NAV,
// tied to the classified events that produced it.
type NAVAdjustment struct {
	At     time.Time        `json:"at"`
	Amount decimal.Decimal  `json:"amount"` // signed, base currency
	Source AdjustmentSource `json:"source"`
	TxnIDs []string         `json:"txn_ids"`
	Note   string           `json:"note,omitempty"`
}

// DiscrepancyClass classifies the reconciliation outcome for a day.
type DiscrepancyClass string

const (
	DiscrepancyZero      DiscrepancyClass = "zero"
	DiscrepancyException DiscrepancyClass = "exception"
)

// DailyLedger is one trading day's NAV trajectory: the prior day's official
// close, every adjustment replayed from that day's events, and the
// resulting calculated close next to the broker's reported close.
//
// Invariant: OpeningNAV + sum(Adjustments) == CalculatedClose exactly. The
// row is regenerated in full whenever the day's raw records change; it is
// never edited in place.
type DailyLedger struct {
	TradingDay      time.Time // date-only, trading timezone
	OpeningNAV      decimal.Decimal
	Adjustments     []NAVAdjustment
	CalculatedClose decimal.Decimal
	OfficialClose   decimal.Decimal
	Discrepancy     decimal.Decimal
	Class           DiscrepancyClass
	Notes           string
	ComputedAt      time.Time
}

// AdjustmentTotal returns the sum of the adjustment sequence.
func (l DailyLedger) AdjustmentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range l.Adjustments {
		total = total.Add(a.Amount)
	}
	return total
}

// SourceTotals aggregates adjustments by source, for attribution.
func (l DailyLedger) SourceTotals() map[AdjustmentSource]decimal.Decimal {
	out := make(map[AdjustmentSource]decimal.Decimal)
	for _, a := range l.Adjustments {
		out[a.Source] = out[a.Source].Add(a.Amount)
	}
	return out
}

// ReconciliationRecord is the derived expected-vs-official view of a
// DailyLedger. It is computed, never edited.
type ReconciliationRecord struct {
	TradingDay    time.Time
	ExpectedClose decimal.Decimal
	OfficialClose decimal.Decimal
	Discrepancy   decimal.Decimal
	Class         DiscrepancyClass
	Sources       map[AdjustmentSource]decimal.Decimal
	Notes         string
}
