// Package tradingday maps broker-native timestamps onto trading days and
// session phases.
//
// Day boundaries are always evaluated in the broker's trading timezone
// (US eastern); the observer's reporting timezone is used for display only.
// Keeping this mapping in one tested place is what prevents an event from
// being attributed to the wrong trading day.
package tradingday

import (
	"fmt"
	"time"
)

// Session times in the trading timezone.
const (
	OpenHour    = 9
	OpenMinute  = 30
	CloseHour   = 16
	CloseMinute = 0
)

// Phase is the part of the trading day an event falls into, relative to
// the prior close -> current close window.
type Phase string

const (
	PhasePreMarket Phase = "pre_market" // after prior close, before current open
	PhaseIntraday  Phase = "intraday"   // open to close
	PhaseAtClose   Phase = "at_close"   // synthesized close marks
)

// Calendar resolves timestamps against a pair of timezones.
type Calendar struct {
	native    *time.Location
	reporting *time.Location
}

// NewCalendar loads the two timezones by name.
func NewCalendar(nativeTZ, reportingTZ string) (*Calendar, error) {
	native, err := time.LoadLocation(nativeTZ)
	if err != nil {
		return nil, fmt.Errorf("load native timezone %q: %w", nativeTZ, err)
	}
	reporting, err := time.LoadLocation(reportingTZ)
	if err != nil {
		return nil, fmt.Errorf("load reporting timezone %q: %w", reportingTZ, err)
	}
	return &Calendar{native: native, reporting: reporting}, nil
}

// Native returns the trading-timezone location.
func (c *Calendar) Native() *time.Location { return c.native }

// Reporting returns the display-timezone location.
func (c *Calendar) Reporting() *time.Location { return c.reporting }

// DayOf returns the trading day a native timestamp belongs to.
//
// The trading day D spans the half-open window (close of D-1, close of D]
// in the trading timezone: anything after 16:00 belongs to the next
// trading day, weekends and holidays roll forward to the next session.
func (c *Calendar) DayOf(ts time.Time) time.Time {
	local := ts.In(c.native)
	day := dateOnly(local)
	if afterClose(local) {
		day = day.AddDate(0, 0, 1)
	}
	for !IsTradingDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// PhaseOf places a native timestamp within its trading day.
//
// An error is returned when the timestamp does not fall inside the day's
// (prior close, close] window; the caller treats that as a chronological
// integrity violation for the whole day.
func (c *Calendar) PhaseOf(ts time.Time, day time.Time) (Phase, error) {
	local := ts.In(c.native)
	open := c.SessionOpen(day)
	close := c.SessionClose(day)
	prevClose := c.SessionClose(PrevTradingDay(day))

	switch {
	case !local.After(prevClose):
		return "", fmt.Errorf("timestamp %s is on or before prior close %s", local, prevClose)
	case local.After(close):
		return "", fmt.Errorf("timestamp %s is after close %s", local, close)
	case local.Before(open):
		return PhasePreMarket, nil
	case local.Equal(close):
		return PhaseAtClose, nil
	default:
		return PhaseIntraday, nil
	}
}

// SessionOpen returns 09:30 native time on the given trading day.
func (c *Calendar) SessionOpen(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), OpenHour, OpenMinute, 0, 0, c.native)
}

// SessionClose returns 16:00 native time on the given trading day.
func (c *Calendar) SessionClose(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), CloseHour, CloseMinute, 0, 0, c.native)
}

// Window returns the half-open event window (prior close, close] for a
// trading day, in native time.
func (c *Calendar) Window(day time.Time) (from, to time.Time) {
	return c.SessionClose(PrevTradingDay(day)), c.SessionClose(day)
}

// Display converts a native timestamp to the reporting timezone. Ordering
// and day attribution always use the native timestamp; this is for
// presentation only.
func (c *Calendar) Display(ts time.Time) time.Time {
	return ts.In(c.reporting)
}

// PrevTradingDay returns the trading day immediately before d.
func PrevTradingDay(d time.Time) time.Time {
	d = d.AddDate(0, 0, -1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// NextTradingDay returns the trading day immediately after d.
func NextTradingDay(d time.Time) time.Time {
	d = d.AddDate(0, 0, 1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// TradingDaysBetween returns every trading day in [from, to], inclusive.
func TradingDaysBetween(from, to time.Time) []time.Time {
	from = dateOnly(from)
	to = dateOnly(to)
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			out = append(out, d)
		}
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func afterClose(local time.Time) bool {
	h, m := local.Hour(), local.Minute()
	if h > CloseHour {
		return true
	}
	return h == CloseHour && (m > CloseMinute || local.Second() > 0 || local.Nanosecond() > 0)
}
