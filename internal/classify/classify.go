// Package classify resolves raw broker records into typed domain events.
//
// Classification is a pure, deterministic function of the record itself,
// never of amounts, timestamps, or ordering, and happens exactly once per
// record. The resolved kind is persisted next to the raw record so nothing
// downstream re-derives it.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bearhedge/navledger/internal/domain/models"
)

// ErrUnresolved marks a record whose instrument descriptor could not be
// resolved to either a known equity symbol or a parseable option contract.
// Such records are surfaced as data-quality exceptions, never dropped and
// never defaulted to a kind.
var ErrUnresolved = errors.New("unresolved instrument descriptor")

// Error carries the offending record with the classification failure.
type Error struct {
	TxnID  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("classify txn %s: %s", e.TxnID, e.Reason)
}

func (e *Error) Unwrap() error { return ErrUnresolved }

// Classify turns a RawRecord into a ClassifiedEvent.
//
// book_trade records are the ambiguous case: the broker books both option
// assignments and expirations under the same record kind, distinguishable
// only by the instrument delivered. An instrument that is the underlying
// equity means shares were put to (or called away from) the account, so
// the record is an assignment. An instrument that is an option contract
// means the contract itself lapsed, an expiration. Anything else fails
// loudly.
func Classify(r models.RawRecord) (models.ClassifiedEvent, error) {
	switch r.Kind {
	case models.KindTrade:
		return models.ClassifiedEvent{Raw: r, Kind: models.EventTrade}, nil

	case models.KindBookTrade:
		switch {
		case r.Instrument.IsOption():
			return models.ClassifiedEvent{Raw: r, Kind: models.EventExpiration}, nil
		case isEquitySymbol(r.Instrument.Symbol):
			return models.ClassifiedEvent{Raw: r, Kind: models.EventAssignment}, nil
		default:
			return models.ClassifiedEvent{}, &Error{
				TxnID:  r.TxnID,
				Reason: fmt.Sprintf("book_trade instrument %q is neither equity nor option contract", r.Instrument.Symbol),
			}
		}

	case models.KindCashTransaction:
		kind, err := cashKind(r)
		if err != nil {
			return models.ClassifiedEvent{}, err
		}
		return models.ClassifiedEvent{Raw: r, Kind: models.EventCash, CashKind: kind}, nil

	case models.KindExerciseExpiry:
		return models.ClassifiedEvent{Raw: r, Kind: models.EventExerciseExpiry}, nil

	default:
		return models.ClassifiedEvent{}, &Error{
			TxnID:  r.TxnID,
			Reason: fmt.Sprintf("unknown record kind %q", r.Kind),
		}
	}
}

// cashKind resolves the broker's cash transaction type into a NAV-relevant
// flavor. Unknown types are classification errors, not silently ignored.
func cashKind(r models.RawRecord) (models.CashKind, error) {
	ct := strings.ToLower(strings.TrimSpace(r.CashType))
	switch {
	case ct == "deposits/withdrawals":
		// Broker lumps both under one type; the sign disambiguates.
		if r.Amount.IsNegative() {
			return models.CashWithdrawal, nil
		}
		return models.CashDeposit, nil
	case strings.Contains(ct, "deposit"):
		return models.CashDeposit, nil
	case strings.Contains(ct, "withdraw"):
		return models.CashWithdrawal, nil
	case strings.Contains(ct, "interest"):
		return models.CashInterest, nil
	case strings.Contains(ct, "fee"), strings.Contains(ct, "commission adj"):
		return models.CashFee, nil
	default:
		return "", &Error{
			TxnID:  r.TxnID,
			Reason: fmt.Sprintf("unknown cash transaction type %q", r.CashType),
		}
	}
}

// isEquitySymbol reports whether a descriptor looks like a plain listed
// equity symbol: 1-6 upper-case letters, optionally with a class suffix
// (e.g. "BRK.B").
func isEquitySymbol(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	base, suffix, hasDot := strings.Cut(s, ".")
	if !isUpperAlpha(base) || len(base) > 6 {
		return false
	}
	if hasDot && (!isUpperAlpha(suffix) || len(suffix) > 2) {
		return false
	}
	return true
}

func isUpperAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
