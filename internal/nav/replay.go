// Package nav replays a trading day's sequenced events into a DailyLedger.
//
// Replay is a pure fold: inputs are the day's events, the prior day's
// officially reported closing NAV, and the open-position snapshot at the
// day's start. It reads nothing else, in particular never another day's
// calculated NAV, which is what bounds error propagation to a single day
// and makes recomputation of independent days safe to parallelize.
package nav

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bearhedge/navledger/internal/domain/models"
	"github.com/bearhedge/navledger/internal/sequence"
)

// Result is the outcome of replaying one trading day.
type Result struct {
	Ledger models.DailyLedger
	// Positions is the full position state after the day: carried open
	// positions plus any opened or closed during the day.
	Positions []models.Position
}

// Replay walks the day's events in sequence order against the opening NAV.
//
// Transition contract:
//   - cash event: NAV += signed amount at the recorded conversion rate.
//   - option trade: NAV += premium/proceeds − commission.
//   - stock trade: an asset swap, cash for shares of equal value, so only
//     the commission moves NAV. A trade that exactly offsets an open
//     assignment position instead realizes the deferred P&L
//     ((exit − entry) × signed quantity × multiplier − commission) and
//     closes it. A trade that offsets a position only partially fails the
//     day; lot splitting is not modeled, and booking a guess would poison
//     the close.
//   - assignment: no NAV impact (asset-for-asset swap); opens a Position.
//   - expiration / exercise-expiry: no NAV impact; closes the option's
//     bookkeeping.
//   - terminal: nothing is force-closed. The calculated close is simply
//     the running total; mark-to-market on still-open exposure shows up in
//     the reconciliation discrepancy, not here.
func Replay(day sequence.Day, opening decimal.Decimal, openPositions []models.Position) (Result, error) {
	positions := make([]models.Position, len(openPositions))
	copy(positions, openPositions)

	ledger := models.DailyLedger{
		TradingDay: day.TradingDay,
		OpeningNAV: opening,
	}

	for _, ev := range day.All() {
		adjs, updated, err := transition(ev, positions)
		if err != nil {
			return Result{}, err
		}
		positions = updated
		ledger.Adjustments = append(ledger.Adjustments, adjs...)
	}

	ledger.CalculatedClose = ledger.OpeningNAV.Add(ledger.AdjustmentTotal())

	// The balance invariant holds by construction; recheck it anyway so a
	// future transition bug can never persist an unbalanced row.
	if !ledger.OpeningNAV.Add(ledger.AdjustmentTotal()).Equal(ledger.CalculatedClose) {
		return Result{}, fmt.Errorf("day %s: adjustments do not sum to calculated close",
			day.TradingDay.Format("2006-01-02"))
	}

	return Result{Ledger: ledger, Positions: positions}, nil
}

func transition(ev sequence.SequencedEvent, positions []models.Position) ([]models.NAVAdjustment, []models.Position, error) {
	r := ev.Raw

	switch ev.Kind {
	case models.EventCash:
		return []models.NAVAdjustment{{
			At:     r.NativeTime,
			Amount: r.AmountInBase(),
			Source: models.SourceCashFlow,
			TxnIDs: []string{r.TxnID},
			Note:   string(ev.CashKind),
		}}, positions, nil

	case models.EventTrade:
		if r.Instrument.IsOption() {
			return premiumAdjustments(r), positions, nil
		}
		if idx := coveringIndex(positions, r); idx >= 0 {
			return coverPosition(positions, idx, r)
		}
		if idx := partialOffsetIndex(positions, r); idx >= 0 {
			p := positions[idx]
			return nil, nil, fmt.Errorf("txn %s: %s trade for %s shares partially offsets open position %s (%s shares)",
				r.TxnID, r.Instrument.Symbol, r.Quantity, p.OpeningTxnID, p.Quantity)
		}
		return stockTradeAdjustments(r), positions, nil

	case models.EventAssignment:
		pos := models.Position{
			ID:           uuid.NewString(),
			Symbol:       r.Instrument.Symbol,
			Quantity:     r.Quantity,
			EntryPrice:   r.Price,
			EntryTime:    r.NativeTime,
			Multiplier:   multiplierOf(r),
			OpeningTxnID: r.TxnID,
			Status:       models.PositionOpen,
		}
		// Asset-for-asset swap: the option liability becomes equity
		// exposure of equal notional. No adjustment is recorded.
		return nil, append(positions, pos), nil

	case models.EventExpiration, models.EventExerciseExpiry:
		// Premium was recognized when the position was opened; the lapse
		// itself moves nothing.
		return nil, positions, nil

	default:
		return nil, nil, fmt.Errorf("txn %s: unexpected event kind %q in replay", r.TxnID, ev.Kind)
	}
}

// premiumAdjustments books an option trade: premium and commission as
// separate adjustments so reconciliation can attribute them independently.
func premiumAdjustments(r models.RawRecord) []models.NAVAdjustment {
	adjs := []models.NAVAdjustment{{
		At:     r.NativeTime,
		Amount: r.AmountInBase(),
		Source: models.SourcePremium,
		TxnIDs: []string{r.TxnID},
	}}
	if !r.Commission.IsZero() {
		adjs = append(adjs, models.NAVAdjustment{
			At:     r.NativeTime,
			Amount: r.CommissionInBase(),
			Source: models.SourceCommission,
			TxnIDs: []string{r.TxnID},
		})
	}
	return adjs
}

// stockTradeAdjustments books a stock trade that touches no open position.
// The notional leg swaps cash for shares of equal value and cancels out;
// only the commission reaches NAV.
func stockTradeAdjustments(r models.RawRecord) []models.NAVAdjustment {
	if r.Commission.IsZero() {
		return nil
	}
	return []models.NAVAdjustment{{
		At:     r.NativeTime,
		Amount: r.CommissionInBase(),
		Source: models.SourceCommission,
		TxnIDs: []string{r.TxnID},
	}}
}

// coveringIndex finds the open position this stock trade exactly offsets,
// if any.
func coveringIndex(positions []models.Position, r models.RawRecord) int {
	for i, p := range positions {
		if p.Covers(r.Instrument.Symbol, r.Quantity) {
			return i
		}
	}
	return -1
}

// partialOffsetIndex finds an open position the trade offsets in direction
// but not in magnitude.
func partialOffsetIndex(positions []models.Position, r models.RawRecord) int {
	for i, p := range positions {
		if p.Status != models.PositionOpen || p.Symbol != r.Instrument.Symbol {
			continue
		}
		if p.Quantity.Sign()*r.Quantity.Sign() == -1 && !p.Quantity.Add(r.Quantity).IsZero() {
			return i
		}
	}
	return -1
}

// coverPosition realizes the deferred assignment P&L:
// (exit − entry) × signed position quantity × multiplier − commission.
// RealizedPL is set exactly once, here.
func coverPosition(positions []models.Position, idx int, r models.RawRecord) ([]models.NAVAdjustment, []models.Position, error) {
	p := positions[idx]

	gross := r.Price.Sub(p.EntryPrice).
		Mul(p.Quantity).
		Mul(decimal.NewFromInt(p.Multiplier)).
		Mul(r.FXRateToBase)
	commission := r.CommissionInBase()

	p.ExitPrice = r.Price
	p.ExitTime = r.NativeTime
	p.ClosingTxnID = r.TxnID
	p.RealizedPL = gross.Add(commission)
	p.Status = models.PositionClosed

	updated := make([]models.Position, len(positions))
	copy(updated, positions)
	updated[idx] = p

	adjs := []models.NAVAdjustment{{
		At:     r.NativeTime,
		Amount: gross,
		Source: models.SourceCoverPL,
		TxnIDs: []string{p.OpeningTxnID, r.TxnID},
		Note:   fmt.Sprintf("cover %s assignment", p.Symbol),
	}}
	if !commission.IsZero() {
		adjs = append(adjs, models.NAVAdjustment{
			At:     r.NativeTime,
			Amount: commission,
			Source: models.SourceCommission,
			TxnIDs: []string{r.TxnID},
		})
	}
	return adjs, updated, nil
}

func multiplierOf(r models.RawRecord) int64 {
	if r.Instrument.Multiplier > 0 {
		return r.Instrument.Multiplier
	}
	return 1
}

// OpenPositionsAsOf filters a position set down to those still open.
func OpenPositionsAsOf(positions []models.Position) []models.Position {
	var out []models.Position
	for _, p := range positions {
		if p.Status == models.PositionOpen {
			out = append(out, p)
		}
	}
	return out
}
