package models

// EventKind is the resolved semantic kind of a classified event.
type EventKind string

const (
	EventTrade          EventKind = "trade"
	EventCash           EventKind = "cash"
	EventAssignment     EventKind = "assignment"
	EventExpiration     EventKind = "expiration"
	EventExerciseExpiry EventKind = "exercise_expiry"
)

// CashKind refines cash events into their NAV-relevant flavors.
type CashKind string

const (
	CashDeposit    CashKind = "deposit"
	CashWithdrawal CashKind = "withdrawal"
	CashFee        CashKind = "fee"
	CashInterest   CashKind = "interest"
)

// ClassifiedEvent is a RawRecord enriched with its resolved semantic kind.
//
// Classification happens exactly once, at ingestion; downstream components
// match on Kind and never re-derive it from the raw record. In particular
// every book_trade record has been resolved to either EventAssignment or
// EventExpiration before it reaches the sequencer.
type ClassifiedEvent struct {
	Raw      RawRecord
	Kind     EventKind
	CashKind CashKind // set only when Kind == EventCash
}
