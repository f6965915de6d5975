package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind identifies the raw broker record types delivered in an extract.
type RecordKind string

const (
	KindTrade           RecordKind = "trade"
	KindBookTrade       RecordKind = "book_trade"
	KindCashTransaction RecordKind = "cash_transaction"
	KindExerciseExpiry  RecordKind = "exercise_expiry"
)

// OptionRight is the side of an option contract.
type OptionRight string

const (
	RightPut  OptionRight = "P"
	RightCall OptionRight = "C"
)

// Instrument describes what a raw record was booked against.
//
// For equities only Symbol is set. For option contracts the option fields
// are populated and Symbol carries the broker's compact contract descriptor
// (e.g. "TSLA 250718P00300000").
type Instrument struct {
	Symbol     string
	Underlying string
	Strike     decimal.Decimal
	Right      OptionRight
	Expiry     time.Time // date-only, zero for equities
	Multiplier int64     // contract multiplier; 1 for equities
}

// IsOption reports whether the instrument is an option contract.
func (i Instrument) IsOption() bool {
	return i.Underlying != "" && i.Right != ""
}

// RawRecord is an immutable fact as delivered by the broker export.
//
// TxnID is the broker-assigned transaction identifier and the idempotency
// key for ingestion: a re-fetch may deliver the same TxnID again (no-op) or
// the same TxnID with corrected figures (overwrite).
//
// NativeTime is in the broker's trading timezone (America/New_York); all
// day-boundary decisions are made against it, never against the reporting
// timezone.
type RawRecord struct {
	TxnID        string
	Kind         RecordKind
	Instrument   Instrument
	Quantity     decimal.Decimal // signed; negative = sell/short
	Price        decimal.Decimal
	Amount       decimal.Decimal // signed proceeds / cash amount in Currency
	Commission   decimal.Decimal // signed, usually negative
	Currency     string
	FXRateToBase decimal.Decimal // Currency -> base currency at record time
	NativeTime   time.Time
	Description  string // broker free text, used for cash typing
	CashType     string // broker cash transaction type, raw
}

// AmountInBase converts the record's signed amount to the base currency at
// the record's recorded rate.
func (r RawRecord) AmountInBase() decimal.Decimal {
	return r.Amount.Mul(r.FXRateToBase)
}

// CommissionInBase converts the record's commission to the base currency.
func (r RawRecord) CommissionInBase() decimal.Decimal {
	return r.Commission.Mul(r.FXRateToBase)
}
