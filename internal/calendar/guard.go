// Package calendar decides whether a poll cycle should run at all.
package calendar

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yucheng-lin/twscan/internal/screen"
)

// Guard gates poll cycles on the trading calendar: holiday exclusions,
// non-trading weekdays and the session window. The decision itself is pure
// and evaluated once per cycle before any fetch work begins.
type Guard struct {
	mu         sync.RWMutex
	holidays   map[string]bool
	closedDays map[time.Weekday]bool
	openMin    int
	closeMin   int
	loc        *time.Location
}

var weekdayNames = map[string]time.Weekday{
	"SUN": time.Sunday,
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
}

// NewGuard builds a guard from the strategy calendar
func NewGuard(cal screen.Calendar, loc *time.Location) (*Guard, error) {
	g := &Guard{
		holidays:   make(map[string]bool),
		closedDays: make(map[time.Weekday]bool),
		openMin:    0,
		closeMin:   24*60 - 1,
		loc:        loc,
	}

	for _, h := range cal.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		g.holidays[h] = true
	}

	for _, name := range cal.ClosedWeekdays {
		wd, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("invalid weekday %q", name)
		}
		g.closedDays[wd] = true
	}

	if cal.Open != "" {
		m, err := parseClock(cal.Open)
		if err != nil {
			return nil, err
		}
		g.openMin = m
	}
	if cal.Close != "" {
		m, err := parseClock(cal.Close)
		if err != nil {
			return nil, err
		}
		g.closeMin = m
	}

	if g.closeMin < g.openMin {
		return nil, fmt.Errorf("trading window closes (%s) before it opens (%s)", cal.Close, cal.Open)
	}

	return g, nil
}

// ShouldRun reports whether a cycle may start now, with the reason when not.
// Window bounds are inclusive.
func (g *Guard) ShouldRun(now time.Time) (bool, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	local := now.In(g.loc)

	if g.holidays[local.Format("2006-01-02")] {
		return false, "holiday"
	}

	if g.closedDays[local.Weekday()] {
		return false, "non-trading weekday"
	}

	minute := local.Hour()*60 + local.Minute()
	if minute < g.openMin || minute > g.closeMin {
		return false, "outside trading window"
	}

	return true, ""
}

// SetHolidays replaces the holiday exclusion set, e.g. after a calendar
// refresh, atomically with respect to running cycles
func (g *Guard) SetHolidays(dates []string) error {
	next := make(map[string]bool, len(dates))
	for _, d := range dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("invalid holiday %q: %w", d, err)
		}
		next[d] = true
	}

	g.mu.Lock()
	g.holidays = next
	g.mu.Unlock()
	return nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
