package detect

import (
	"testing"
	"time"

	"github.com/lumen-health/lumen-agent/internal/health"
)

var testSchedule = Schedule{
	Breakfast: ClockTime{Hour: 7, Minute: 30},
	Lunch:     ClockTime{Hour: 12, Minute: 30},
	Dinner:    ClockTime{Hour: 19, Minute: 0},
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func find(events []Event, typ EventType) (Event, bool) {
	for _, ev := range events {
		if ev.Type == typ {
			return ev, true
		}
	}
	return Event{}, false
}

func TestMealReminderWindow(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before scheduled time", at(7, 29), false},
		{"at scheduled time", at(7, 30), true},
		{"inside window", at(7, 55), true},
		{"window closed", at(8, 0), false},
	}
	for _, tt := range tests {
		d := New(testSchedule, nil)
		st := health.NewState("sam")
		ev, got := find(d.Check(st, tt.now), EventMealReminder)
		if got != tt.want {
			t.Errorf("%s: reminder fired = %v, want %v", tt.name, got, tt.want)
		}
		if got && ev.Meal != health.MealBreakfast {
			t.Errorf("%s: meal = %s, want breakfast", tt.name, ev.Meal)
		}
	}
}

func TestMealReminderFiresOncePerDay(t *testing.T) {
	d := New(testSchedule, nil)
	st := health.NewState("sam")

	if _, ok := find(d.Check(st, at(7, 35)), EventMealReminder); !ok {
		t.Fatal("first poll: no reminder")
	}
	for minute := 36; minute < 60; minute++ {
		if _, ok := find(d.Check(st, at(7, minute)), EventMealReminder); ok {
			t.Fatalf("poll at 07:%02d re-fired the reminder", minute)
		}
	}
}

func TestMealReminderResetsNextDay(t *testing.T) {
	d := New(testSchedule, nil)
	st := health.NewState("sam")

	if _, ok := find(d.Check(st, at(7, 35)), EventMealReminder); !ok {
		t.Fatal("day one: no reminder")
	}
	nextDay := at(7, 35).Add(24 * time.Hour)
	if _, ok := find(d.Check(st, nextDay), EventMealReminder); !ok {
		t.Error("day two: reminder did not fire again")
	}
}

func TestMealReminderSkipsRecordedSlot(t *testing.T) {
	d := New(testSchedule, nil)
	st := health.NewState("sam")
	st.Meals.Breakfast = &health.Meal{Time: at(7, 0), Foods: []string{"eggs"}}

	if _, ok := find(d.Check(st, at(7, 35)), EventMealReminder); ok {
		t.Error("reminder fired for an already-recorded meal")
	}
}

func TestMarkReminded(t *testing.T) {
	d := New(testSchedule, nil)
	st := health.NewState("sam")

	d.MarkReminded(health.MealBreakfast, at(7, 0))
	if _, ok := find(d.Check(st, at(7, 35)), EventMealReminder); ok {
		t.Error("reminder fired after MarkReminded")
	}
}

func TestSedentaryWarning(t *testing.T) {
	d := New(testSchedule, nil)
	st := health.NewState("sam")
	st.Activity.SedentaryMinutes = 75

	ev, ok := find(d.Check(st, at(10, 0)), EventSedentaryWarning)
	if !ok {
		t.Fatal("no sedentary warning at 75 minutes")
	}
	if ev.Minutes != 75 {
		t.Errorf("minutes = %d, want 75", ev.Minutes)
	}
}

func TestSedentaryWarningThreshold(t *testing.T) {
	d := New(testSchedule, nil)
	st := health.NewState("sam")
	st.Activity.SedentaryMinutes = 60 // not strictly above

	if _, ok := find(d.Check(st, at(10, 0)), EventSedentaryWarning); ok {
		t.Error("warning fired at exactly 60 minutes")
	}
}

func TestSedentaryWarningCooldown(t *testing.T) {
	d := New(testSchedule, nil)
	st := health.NewState("sam")
	st.Activity.SedentaryMinutes = 90

	if _, ok := find(d.Check(st, at(10, 0)), EventSedentaryWarning); !ok {
		t.Fatal("first warning missing")
	}
	if _, ok := find(d.Check(st, at(10, 30)), EventSedentaryWarning); ok {
		t.Error("warning re-fired inside the 60-minute cooldown")
	}
	if _, ok := find(d.Check(st, at(11, 0)), EventSedentaryWarning); !ok {
		t.Error("warning missing after the cooldown elapsed")
	}
}

func TestGlucoseWarningEdgeTriggered(t *testing.T) {
	d := New(testSchedule, nil)
	st := health.NewState("sam")

	// Below the ceiling: nothing.
	st.Glucose.Current = 130
	if _, ok := find(d.Check(st, at(10, 0)), EventGlucoseWarning); ok {
		t.Fatal("warning fired at 130")
	}

	// Upward crossing: exactly one warning, carrying level and trend.
	st.Glucose.Current = 145
	st.Glucose.Trend = health.GlucoseRising
	ev, ok := find(d.Check(st, at(10, 5)), EventGlucoseWarning)
	if !ok {
		t.Fatal("no warning on crossing to 145")
	}
	if ev.Level != 145 || ev.Trend != health.GlucoseRising {
		t.Errorf("warning = level %d trend %s, want 145 rising", ev.Level, ev.Trend)
	}

	// Still above: suppressed.
	if _, ok := find(d.Check(st, at(10, 10)), EventGlucoseWarning); ok {
		t.Error("warning re-fired while sustained above the ceiling")
	}

	// Drop below re-arms; the next crossing fires again.
	st.Glucose.Current = 120
	d.Check(st, at(10, 15))
	st.Glucose.Current = 150
	if _, ok := find(d.Check(st, at(10, 20)), EventGlucoseWarning); !ok {
		t.Error("warning missing after re-arm and second crossing")
	}
}

func TestMultipleEventsInOnePoll(t *testing.T) {
	d := New(testSchedule, nil)
	st := health.NewState("sam")
	st.Activity.SedentaryMinutes = 80
	st.Glucose.Current = 160

	events := d.Check(st, at(12, 40))
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3 (lunch reminder, sedentary, glucose)", len(events))
	}
}
