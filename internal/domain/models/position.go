package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is the lifecycle state of a Position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// Position is a unit of equity exposure created by an option assignment and
// closed by an offsetting stock trade.
//
// RealizedPL is set exactly once, when the position is covered, and is
// immutable afterwards. The account under reconciliation holds at most one
// open position per symbol at a time, but nothing here assumes that.
type Position struct {
	ID           string
	Symbol       string
	Quantity     decimal.Decimal // signed; negative = short
	EntryPrice   decimal.Decimal
	EntryTime    time.Time
	Multiplier   int64
	OpeningTxnID string // the assignment record that created it
	ExitPrice    decimal.Decimal
	ExitTime     time.Time
	ClosingTxnID string
	RealizedPL   decimal.Decimal // base currency, set on close
	Status       PositionStatus
}

// Covers reports whether a stock trade with the given symbol and signed
// quantity offsets this open position.
func (p Position) Covers(symbol string, quantity decimal.Decimal) bool {
	if p.Status != PositionOpen || p.Symbol != symbol {
		return false
	}
	// An offsetting trade has the opposite sign and matching magnitude.
	return p.Quantity.Add(quantity).IsZero()
}
