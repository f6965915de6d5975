package tradingday

import "time"

// IsTradingDay reports whether the US equity market is open on a date.
// It excludes Saturdays, Sundays, and NYSE full-day holidays.
func IsTradingDay(d time.Time) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !isMarketHoliday(d)
}

// isMarketHoliday covers the NYSE full-closure calendar: fixed holidays
// with weekend observation shifting, floating weekday holidays, and Good
// Friday.
func isMarketHoliday(d time.Time) bool {
	y := d.Year()

	// Fixed-date holidays, observed on the nearest weekday.
	fixed := []time.Time{
		time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),   // New Year's Day
		time.Date(y, time.June, 19, 0, 0, 0, 0, time.UTC),     // Juneteenth
		time.Date(y, time.July, 4, 0, 0, 0, 0, time.UTC),      // Independence Day
		time.Date(y, time.December, 25, 0, 0, 0, 0, time.UTC), // Christmas
	}
	for _, h := range fixed {
		if sameDate(observed(h), d) {
			return true
		}
	}

	// Floating holidays tied to a weekday-of-month.
	floating := []time.Time{
		nthWeekday(y, time.January, time.Monday, 3),    // MLK Day
		nthWeekday(y, time.February, time.Monday, 3),   // Presidents' Day
		lastWeekday(y, time.May, time.Monday),          // Memorial Day
		nthWeekday(y, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(y, time.November, time.Thursday, 4), // Thanksgiving
	}
	for _, h := range floating {
		if sameDate(h, d) {
			return true
		}
	}

	// Good Friday (2 days before Easter Sunday).
	goodFriday := easterSunday(y).AddDate(0, 0, -2)
	return sameDate(goodFriday, d)
}

// observed shifts a fixed holiday landing on a weekend to the adjacent
// weekday: Saturday -> Friday, Sunday -> Monday.
func observed(h time.Time) time.Time {
	switch h.Weekday() {
	case time.Saturday:
		return h.AddDate(0, 0, -1)
	case time.Sunday:
		return h.AddDate(0, 0, 1)
	default:
		return h
	}
}

// nthWeekday returns the nth given weekday of a month.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 7*(n-1))
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// easterSunday returns the date of Easter Sunday for a given year
// (Meeus/Jones/Butcher algorithm).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
