package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OfficialNAV carries the broker's officially reported per-day figures as
// delivered in the extract. These are ground truth: every day's replay
// starts from the prior day's official close, never from a calculated one,
// so calculation errors cannot accumulate across days.
type OfficialNAV struct {
	TradingDay time.Time // date-only, trading timezone
	Opening    decimal.Decimal
	Closing    decimal.Decimal
	FXRate     decimal.Decimal // reporting conversion rate in effect
	Currency   string
}
