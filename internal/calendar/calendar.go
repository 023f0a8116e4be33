// Package calendar decides whether the trading session is open at a given
// instant. The rule is purely weekday + time-of-day in the exchange's local
// timezone; exchange holidays are not modeled.
package calendar

import (
	"fmt"
	"time"
)

// Default session: Borsa Istanbul continuous trading, 09:55–18:15 local.
const (
	DefaultTimezone = "Europe/Istanbul"
	DefaultOpen     = 955
	DefaultClose    = 1815
)

// Calendar holds the session window for one exchange. Open and close are
// local clock times encoded as HHMM integers; both bounds are inclusive.
type Calendar struct {
	loc       *time.Location
	openHHMM  int
	closeHHMM int
}

// New creates a Calendar for the given timezone and HHMM session bounds.
func New(timezone string, openHHMM, closeHHMM int) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", timezone, err)
	}
	if openHHMM < 0 || openHHMM > 2359 || closeHHMM < 0 || closeHHMM > 2359 {
		return nil, fmt.Errorf("session bounds must be HHMM integers, got %d-%d", openHHMM, closeHHMM)
	}
	if openHHMM >= closeHHMM {
		return nil, fmt.Errorf("session open %d must precede close %d", openHHMM, closeHHMM)
	}
	return &Calendar{loc: loc, openHHMM: openHHMM, closeHHMM: closeHHMM}, nil
}

// Default returns the Borsa Istanbul calendar.
func Default() *Calendar {
	c, err := New(DefaultTimezone, DefaultOpen, DefaultClose)
	if err != nil {
		panic(err) // static inputs, cannot fail
	}
	return c
}

// IsOpen reports whether the session is open at t. The instant is converted
// to the exchange timezone; Saturdays and Sundays are closed, and the HHMM
// window is inclusive on both ends.
func (c *Calendar) IsOpen(t time.Time) bool {
	lt := t.In(c.loc)
	if wd := lt.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	hhmm := lt.Hour()*100 + lt.Minute()
	return hhmm >= c.openHHMM && hhmm <= c.closeHHMM
}

// NextOpen returns the next instant at or after t when the session is open.
// Returns t itself if the session is already open.
func (c *Calendar) NextOpen(t time.Time) time.Time {
	if c.IsOpen(t) {
		return t
	}
	lt := t.In(c.loc)
	openAt := time.Date(lt.Year(), lt.Month(), lt.Day(), c.openHHMM/100, c.openHHMM%100, 0, 0, c.loc)
	if !lt.Before(openAt) {
		openAt = openAt.AddDate(0, 0, 1)
	}
	for wd := openAt.Weekday(); wd == time.Saturday || wd == time.Sunday; wd = openAt.Weekday() {
		openAt = openAt.AddDate(0, 0, 1)
	}
	return openAt
}
