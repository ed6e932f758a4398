// Package detect scans the current health state for discrete events:
// meal reminders, sedentary warnings, and glucose warnings. The
// detector owns all re-fire suppression so callers can poll as often
// as they like — reminders fire once per meal per day, sedentary
// warnings are rate-limited, and glucose warnings are edge-triggered
// on the upward threshold crossing.
package detect

import (
	"log/slog"
	"time"

	"github.com/lumen-health/lumen-agent/internal/health"
)

// Rule thresholds.
const (
	// sedentaryWarnMinutes is the accumulated sedentary time that
	// triggers a warning.
	sedentaryWarnMinutes = 60
	// sedentaryWarnCooldown is the minimum wall-time gap between
	// consecutive sedentary warnings.
	sedentaryWarnCooldown = 60 * time.Minute
	// glucoseWarnLevel is the glucose ceiling in mg/dL.
	glucoseWarnLevel = 140
	// mealReminderWindow is how long after the scheduled meal time a
	// reminder can still fire.
	mealReminderWindow = 30 * time.Minute
)

// EventType identifies a detected event.
type EventType string

const (
	EventMealReminder     EventType = "meal_reminder"
	EventSedentaryWarning EventType = "sedentary_warning"
	EventGlucoseWarning   EventType = "glucose_warning"
)

// Event is one detected occurrence. Only the fields relevant to its
// type are populated.
type Event struct {
	Type EventType `json:"type"`

	// Meal reminder.
	Meal health.MealType `json:"meal,omitempty"`

	// Sedentary warning.
	Minutes int `json:"minutes,omitempty"`

	// Glucose warning.
	Level int                 `json:"level,omitempty"`
	Trend health.GlucoseTrend `json:"trend,omitempty"`
}

// ClockTime is a time of day without a date.
type ClockTime struct {
	Hour   int
	Minute int
}

// onDay anchors the clock time to t's calendar day and location.
func (c ClockTime) onDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

// Schedule holds the scheduled times for the three meal slots.
type Schedule struct {
	Breakfast ClockTime
	Lunch     ClockTime
	Dinner    ClockTime
}

func (s Schedule) at(meal health.MealType) (ClockTime, bool) {
	switch meal {
	case health.MealBreakfast:
		return s.Breakfast, true
	case health.MealLunch:
		return s.Lunch, true
	case health.MealDinner:
		return s.Dinner, true
	}
	return ClockTime{}, false
}

// mealOrder fixes the scan order for deterministic event output.
var mealOrder = []health.MealType{health.MealBreakfast, health.MealLunch, health.MealDinner}

// Detector scans a health state against the rule thresholds. It is
// stateful: suppression marks live here, not in the caller.
type Detector struct {
	schedule Schedule
	logger   *slog.Logger

	day               string // yyyy-mm-dd of the reminder marks
	reminded          map[health.MealType]bool
	lastSedentaryWarn time.Time
	glucoseAbove      bool
}

// New creates a detector for the given meal schedule.
func New(schedule Schedule, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		schedule: schedule,
		logger:   logger,
		reminded: make(map[health.MealType]bool),
	}
}

// Check returns the events that fired since the previous call. Each
// event is reported at most once per its suppression rule.
func (d *Detector) Check(st *health.State, now time.Time) []Event {
	d.rollDay(now)

	var events []Event

	// Meal reminders: fire within [0, 30) minutes after the scheduled
	// time for any still-unrecorded slot, once per meal per day.
	for _, meal := range mealOrder {
		if d.reminded[meal] || st.Meals.Slot(meal) != nil {
			continue
		}
		clock, ok := d.schedule.at(meal)
		if !ok {
			continue
		}
		elapsed := now.Sub(clock.onDay(now))
		if elapsed >= 0 && elapsed < mealReminderWindow {
			events = append(events, Event{Type: EventMealReminder, Meal: meal})
			d.reminded[meal] = true
			d.logger.Debug("meal reminder fired", "meal", meal)
		}
	}

	// Sedentary warning: threshold plus wall-time cooldown.
	if st.Activity.SedentaryMinutes > sedentaryWarnMinutes {
		if d.lastSedentaryWarn.IsZero() || now.Sub(d.lastSedentaryWarn) >= sedentaryWarnCooldown {
			events = append(events, Event{
				Type:    EventSedentaryWarning,
				Minutes: st.Activity.SedentaryMinutes,
			})
			d.lastSedentaryWarn = now
			d.logger.Debug("sedentary warning fired", "minutes", st.Activity.SedentaryMinutes)
		}
	}

	// Glucose warning: edge-triggered on the upward crossing. Dropping
	// back under the ceiling re-arms it.
	above := st.Glucose.Current > glucoseWarnLevel
	if above && !d.glucoseAbove {
		events = append(events, Event{
			Type:  EventGlucoseWarning,
			Level: st.Glucose.Current,
			Trend: st.Glucose.Trend,
		})
		d.logger.Debug("glucose warning fired",
			"level", st.Glucose.Current, "trend", st.Glucose.Trend)
	}
	d.glucoseAbove = above

	return events
}

// MarkReminded suppresses a meal's reminder for the rest of the day,
// used when the user records the meal before its reminder window.
func (d *Detector) MarkReminded(meal health.MealType, now time.Time) {
	d.rollDay(now)
	if _, ok := d.schedule.at(meal); ok {
		d.reminded[meal] = true
	}
}

// rollDay clears the per-day reminder marks when the calendar day
// changes.
func (d *Detector) rollDay(now time.Time) {
	day := now.Format("2006-01-02")
	if d.day != day {
		d.day = day
		d.reminded = make(map[health.MealType]bool)
	}
}
