// Package reconcile compares a day's calculated NAV against the broker's
// officially reported close.
//
// A discrepancy is data, not a fault: mark-to-market drift on still-open
// exposure routinely lands here. The engine records and classifies the
// gap; it never writes a balancing adjustment into the ledger to force the
// numbers to agree.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bearhedge/navledger/internal/domain/models"
)

// Engine classifies reconciliation discrepancies against a fixed
// base-currency tolerance.
type Engine struct {
	tolerance decimal.Decimal
}

// New creates an Engine. tolerance is the currency-rounding bound below
// which a discrepancy classifies as zero.
func New(tolerance decimal.Decimal) *Engine {
	return &Engine{tolerance: tolerance}
}

// Reconcile derives the reconciliation record for a computed ledger with
// the day's official close filled in.
//
//	expected = opening + sum(adjustments)
//	discrepancy = official close − expected
//
// |discrepancy| ≤ tolerance classifies as zero; anything larger is an
// exception carrying the day's per-source adjustment totals so an
// operator can attribute it by hand.
func (e *Engine) Reconcile(ledger models.DailyLedger) models.ReconciliationRecord {
	expected := ledger.OpeningNAV.Add(ledger.AdjustmentTotal())
	discrepancy := ledger.OfficialClose.Sub(expected)

	rec := models.ReconciliationRecord{
		TradingDay:    ledger.TradingDay,
		ExpectedClose: expected,
		OfficialClose: ledger.OfficialClose,
		Discrepancy:   discrepancy,
		Sources:       ledger.SourceTotals(),
	}

	if discrepancy.Abs().LessThanOrEqual(e.tolerance) {
		rec.Class = models.DiscrepancyZero
		return rec
	}

	rec.Class = models.DiscrepancyException
	rec.Notes = attributionNotes(discrepancy, rec.Sources)
	return rec
}

// Apply stamps the reconciliation outcome back onto the ledger row.
func (e *Engine) Apply(ledger models.DailyLedger) models.DailyLedger {
	rec := e.Reconcile(ledger)
	ledger.Discrepancy = rec.Discrepancy
	ledger.Class = rec.Class
	ledger.Notes = rec.Notes
	return ledger
}

// attributionNotes summarizes the day's adjustment sources next to the
// unexplained gap. Open-position mark-to-market is the usual cause and is
// deliberately left as residual rather than synthesized into the ledger.
func attributionNotes(discrepancy decimal.Decimal, sources map[models.AdjustmentSource]decimal.Decimal) string {
	parts := make([]string, 0, len(sources)+1)
	parts = append(parts, fmt.Sprintf("unexplained %s", discrepancy.StringFixed(2)))
	for _, src := range []models.AdjustmentSource{
		models.SourcePremium,
		models.SourceCommission,
		models.SourceCashFlow,
		models.SourceCoverPL,
	} {
		if amt, ok := sources[src]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", src, amt.StringFixed(2)))
		}
	}
	parts = append(parts, "likely open-position mark-to-market")
	return strings.Join(parts, "; ")
}
