package calendar

import (
	"testing"
	"time"

	"github.com/yucheng-lin/twscan/internal/screen"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := NewGuard(screen.Calendar{
		Holidays:       []string{"2026-01-01", "2026-02-17"},
		ClosedWeekdays: []string{"SAT", "SUN"},
		Open:           "09:00",
		Close:          "13:30",
	}, time.UTC)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return g
}

func TestShouldRun(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name   string
		now    time.Time
		run    bool
		reason string
	}{
		{"weekday in session", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), true, ""},
		{"open bound inclusive", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), true, ""},
		{"close bound inclusive", time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC), true, ""},
		{"before open", time.Date(2026, 3, 2, 8, 59, 0, 0, time.UTC), false, "outside trading window"},
		{"after close", time.Date(2026, 3, 2, 13, 31, 0, 0, time.UTC), false, "outside trading window"},
		{"saturday", time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC), false, "non-trading weekday"},
		{"holiday", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), false, "holiday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, reason := g.ShouldRun(tt.now)
			if run != tt.run || reason != tt.reason {
				t.Errorf("ShouldRun = (%v, %q), want (%v, %q)", run, reason, tt.run, tt.reason)
			}
		})
	}
}

func TestShouldRunTimezone(t *testing.T) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	g, err := NewGuard(screen.Calendar{
		Open:  "09:00",
		Close: "13:30",
	}, taipei)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	// 02:00 UTC is 10:00 in Taipei, inside the window
	run, reason := g.ShouldRun(time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC))
	if !run {
		t.Errorf("02:00 UTC should run in Taipei session, got %q", reason)
	}

	// 10:00 UTC is 18:00 in Taipei
	run, _ = g.ShouldRun(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	if run {
		t.Error("18:00 Taipei must be outside the window")
	}
}

func TestNewGuardRejectsBadInput(t *testing.T) {
	if _, err := NewGuard(screen.Calendar{Holidays: []string{"bad"}}, time.UTC); err == nil {
		t.Error("invalid holiday accepted")
	}
	if _, err := NewGuard(screen.Calendar{ClosedWeekdays: []string{"FUNDAY"}}, time.UTC); err == nil {
		t.Error("invalid weekday accepted")
	}
	if _, err := NewGuard(screen.Calendar{Open: "13:30", Close: "09:00"}, time.UTC); err == nil {
		t.Error("inverted window accepted")
	}
}

func TestSetHolidays(t *testing.T) {
	g := newTestGuard(t)

	if err := g.SetHolidays([]string{"2026-03-02"}); err != nil {
		t.Fatalf("SetHolidays: %v", err)
	}

	run, reason := g.ShouldRun(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	if run || reason != "holiday" {
		t.Errorf("refreshed holiday ignored: (%v, %q)", run, reason)
	}

	// The old set is fully replaced
	run, _ = g.ShouldRun(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	if !run {
		t.Error("replaced holiday still excluded")
	}

	if err := g.SetHolidays([]string{"oops"}); err == nil {
		t.Error("invalid refresh accepted")
	}
}
