// Package sequence orders a trading day's classified events and partitions
// them into session phases.
//
// Ordering is strictly (native timestamp, transaction id) so that repeated
// runs over the same records always produce the same sequence. If any event
// cannot be placed inside its day's session window the whole day is
// rejected: chronological integrity is a hard invariant, and silently
// misplacing an event would corrupt the NAV trajectory.
package sequence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bearhedge/navledger/internal/domain/models"
	"github.com/bearhedge/navledger/internal/tradingday"
)

// ErrOutOfBounds marks a day whose batch contains an event outside the
// (prior close, close] window. The day's recomputation is blocked; other
// days are unaffected.
var ErrOutOfBounds = errors.New("event outside trading day bounds")

// SequencedEvent is a classified event with its resolved phase and a
// reporting-timezone display timestamp. The native timestamp stays
// authoritative for ordering and day attribution.
type SequencedEvent struct {
	models.ClassifiedEvent
	Phase       tradingday.Phase
	DisplayTime time.Time
}

// TradeBlock groups intraday trades whose native timestamps fall within a
// small fixed window into one narrative unit with a net premium and
// commission effect. Members are retained for audit.
type TradeBlock struct {
	Start         time.Time
	End           time.Time
	NetAmount     string // net signed base-currency premium, formatted
	NetCommission string
	TxnIDs        []string
}

// Day is one trading day's fully ordered, phase-partitioned event set.
type Day struct {
	TradingDay time.Time
	PreMarket  []SequencedEvent
	Intraday   []SequencedEvent
	AtClose    []SequencedEvent
	Blocks     []TradeBlock
}

// All returns the day's events in replay order: pre-market, then intraday,
// then at-close.
func (d Day) All() []SequencedEvent {
	out := make([]SequencedEvent, 0, len(d.PreMarket)+len(d.Intraday)+len(d.AtClose))
	out = append(out, d.PreMarket...)
	out = append(out, d.Intraday...)
	out = append(out, d.AtClose...)
	return out
}

// Sequencer builds ordered days from classified events.
type Sequencer struct {
	cal         *tradingday.Calendar
	blockWindow time.Duration
}

// New creates a Sequencer. blockWindow is the tight-window grouping span
// for intraday trades (a few minutes).
func New(cal *tradingday.Calendar, blockWindow time.Duration) *Sequencer {
	return &Sequencer{cal: cal, blockWindow: blockWindow}
}

// Build orders and partitions the given events for one trading day.
//
// Every event must belong to the day (as decided in the trading timezone)
// and fall inside its session window; otherwise the whole batch is
// rejected with ErrOutOfBounds.
func (s *Sequencer) Build(day time.Time, events []models.ClassifiedEvent) (Day, error) {
	sorted := make([]models.ClassifiedEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].Raw, sorted[j].Raw
		if !a.NativeTime.Equal(b.NativeTime) {
			return a.NativeTime.Before(b.NativeTime)
		}
		return a.TxnID < b.TxnID
	})

	out := Day{TradingDay: day}
	for _, ev := range sorted {
		if got := s.cal.DayOf(ev.Raw.NativeTime); !sameDay(got, day) {
			return Day{}, fmt.Errorf("%w: txn %s at %s belongs to %s, not %s",
				ErrOutOfBounds, ev.Raw.TxnID, ev.Raw.NativeTime,
				got.Format("2006-01-02"), day.Format("2006-01-02"))
		}
		phase, err := s.cal.PhaseOf(ev.Raw.NativeTime, day)
		if err != nil {
			return Day{}, fmt.Errorf("%w: txn %s: %v", ErrOutOfBounds, ev.Raw.TxnID, err)
		}

		se := SequencedEvent{
			ClassifiedEvent: ev,
			Phase:           phase,
			DisplayTime:     s.cal.Display(ev.Raw.NativeTime),
		}
		switch phase {
		case tradingday.PhasePreMarket:
			out.PreMarket = append(out.PreMarket, se)
		case tradingday.PhaseAtClose:
			out.AtClose = append(out.AtClose, se)
		default:
			out.Intraday = append(out.Intraday, se)
		}
	}

	out.Blocks = s.groupBlocks(out.Intraday)
	return out, nil
}

// groupBlocks collapses consecutive intraday trades within the block
// window into narrative blocks. Non-trade events never join a block.
func (s *Sequencer) groupBlocks(intraday []SequencedEvent) []TradeBlock {
	var blocks []TradeBlock
	var cur []SequencedEvent

	flush := func() {
		if len(cur) == 0 {
			return
		}
		b := TradeBlock{Start: cur[0].Raw.NativeTime, End: cur[len(cur)-1].Raw.NativeTime}
		net := cur[0].Raw.AmountInBase()
		com := cur[0].Raw.CommissionInBase()
		b.TxnIDs = append(b.TxnIDs, cur[0].Raw.TxnID)
		for _, ev := range cur[1:] {
			net = net.Add(ev.Raw.AmountInBase())
			com = com.Add(ev.Raw.CommissionInBase())
			b.TxnIDs = append(b.TxnIDs, ev.Raw.TxnID)
		}
		b.NetAmount = net.String()
		b.NetCommission = com.String()
		blocks = append(blocks, b)
		cur = nil
	}

	for _, ev := range intraday {
		if ev.Kind != models.EventTrade {
			continue
		}
		if len(cur) > 0 && ev.Raw.NativeTime.Sub(cur[0].Raw.NativeTime) > s.blockWindow {
			flush()
		}
		cur = append(cur, ev)
	}
	flush()
	return blocks
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
