// Package health defines the per-user health state document and its
// file-backed store. The document is the single source of truth for the
// simulated watch: every telemetry advance and every user-reported fact
// mutates it, and it is persisted after each mutation.
package health

import (
	"fmt"
	"slices"
	"time"
)

// Bounded reading history capacities. Oldest entries are evicted when
// a new reading would exceed the cap.
const (
	MaxHeartRateReadings = 24
	MaxGlucoseReadings   = 10
)

// SleepQuality rates the most recent completed sleep cycle.
type SleepQuality string

const (
	QualityUnknown   SleepQuality = "unknown"
	QualityPoor      SleepQuality = "poor"
	QualityFair      SleepQuality = "fair"
	QualityGood      SleepQuality = "good"
	QualityExcellent SleepQuality = "excellent"
)

// HeartRateTrend describes the current direction of heart-rate movement.
type HeartRateTrend string

const (
	HeartTrendRising     HeartRateTrend = "rising"
	HeartTrendStable     HeartRateTrend = "stable"
	HeartTrendElevated   HeartRateTrend = "elevated"
	HeartTrendDecreasing HeartRateTrend = "decreasing"
	HeartTrendLowResting HeartRateTrend = "low-resting"
)

// GlucoseTrend describes glucose movement relative to the previous reading.
type GlucoseTrend string

const (
	GlucoseRising  GlucoseTrend = "rising"
	GlucoseFalling GlucoseTrend = "falling"
	GlucoseStable  GlucoseTrend = "stable"
)

// MealType identifies a meal slot. Breakfast, lunch and dinner are
// write-once slots (overwritten on re-record); snacks accumulate.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealTypeForHour infers a meal slot from the hour of day, used when
// the caller records a meal without naming it.
func MealTypeForHour(hour int) MealType {
	switch {
	case hour >= 5 && hour < 10:
		return MealBreakfast
	case hour >= 11 && hour < 15:
		return MealLunch
	case hour >= 17 && hour < 22:
		return MealDinner
	default:
		return MealSnack
	}
}

// Reading is a single timestamped sensor value (bpm or mg/dL).
type Reading struct {
	Time  time.Time `json:"time"`
	Value int       `json:"value"`
}

// Sleep holds the most recent sleep cycle. Onset and wake time are nil
// until the corresponding transition has been observed.
type Sleep struct {
	LastSleepOnset  *time.Time   `json:"last_sleep_onset,omitempty"`
	WakeTime        *time.Time   `json:"wake_time,omitempty"`
	DurationMinutes int          `json:"duration_minutes"`
	Quality         SleepQuality `json:"quality"`
	DeepPct         int          `json:"deep_sleep_pct"`
	REMPct          int          `json:"rem_sleep_pct"`
	LightPct        int          `json:"light_sleep_pct"`
	AwakePeriods    int          `json:"awake_periods"`
}

// HeartRate holds current heart-rate state plus a bounded reading history.
type HeartRate struct {
	Readings []Reading      `json:"readings"`
	Resting  int            `json:"resting"`
	Current  int            `json:"current"`
	Trend    HeartRateTrend `json:"trend"`
	MinToday int            `json:"min_today"`
	MaxToday int            `json:"max_today"`
}

// Record appends a reading, evicts the oldest past capacity, and keeps
// current/min/max consistent.
func (h *HeartRate) Record(t time.Time, bpm int) {
	h.Readings = append(h.Readings, Reading{Time: t, Value: bpm})
	if len(h.Readings) > MaxHeartRateReadings {
		h.Readings = h.Readings[len(h.Readings)-MaxHeartRateReadings:]
	}
	h.Current = bpm
	if bpm < h.MinToday {
		h.MinToday = bpm
	}
	if bpm > h.MaxToday {
		h.MaxToday = bpm
	}
}

// Activity accumulates daily movement counters. All fields increase
// monotonically within a day and reset on the first wake of a new day.
type Activity struct {
	Steps            int `json:"steps"`
	ActiveMinutes    int `json:"active_minutes"`
	SedentaryMinutes int `json:"sedentary_minutes"`
	CaloriesBurned   int `json:"calories_burned"`
}

// Glucose holds current blood-glucose state plus a bounded reading history.
type Glucose struct {
	Readings []Reading    `json:"readings"`
	Current  int          `json:"current"`
	Trend    GlucoseTrend `json:"trend"`
	MinToday int          `json:"min_today"`
	MaxToday int          `json:"max_today"`
}

// Last returns the most recent reading value and whether one exists.
func (g *Glucose) Last() (int, bool) {
	if len(g.Readings) == 0 {
		return 0, false
	}
	return g.Readings[len(g.Readings)-1].Value, true
}

// Record appends a reading, evicts the oldest past capacity, and keeps
// current/min/max consistent. The trend is set by the caller, which
// knows the previous reading.
func (g *Glucose) Record(t time.Time, mgdl int) {
	g.Readings = append(g.Readings, Reading{Time: t, Value: mgdl})
	if len(g.Readings) > MaxGlucoseReadings {
		g.Readings = g.Readings[len(g.Readings)-MaxGlucoseReadings:]
	}
	g.Current = mgdl
	if mgdl < g.MinToday {
		g.MinToday = mgdl
	}
	if mgdl > g.MaxToday {
		g.MaxToday = mgdl
	}
}

// Meal is one recorded meal: when it was eaten and what it was.
type Meal struct {
	Time  time.Time `json:"time"`
	Foods []string  `json:"foods"`
}

// Meals holds the day's meal slots plus an accumulating snack list.
type Meals struct {
	Breakfast *Meal  `json:"breakfast,omitempty"`
	Lunch     *Meal  `json:"lunch,omitempty"`
	Dinner    *Meal  `json:"dinner,omitempty"`
	Snacks    []Meal `json:"snacks,omitempty"`
}

// Slot returns a pointer to the named slot's meal, or nil for snacks
// and unknown types.
func (m *Meals) Slot(t MealType) *Meal {
	switch t {
	case MealBreakfast:
		return m.Breakfast
	case MealLunch:
		return m.Lunch
	case MealDinner:
		return m.Dinner
	}
	return nil
}

// State is the complete persisted health document for one user.
type State struct {
	UserID        string    `json:"user_id"`
	Sleep         Sleep     `json:"sleep"`
	HeartRate     HeartRate `json:"heart_rate"`
	Activity      Activity  `json:"activity"`
	Glucose       Glucose   `json:"glucose"`
	Meals         Meals     `json:"meals"`
	WaterIntakeML int       `json:"water_intake_ml"`
	LastUpdate    time.Time `json:"last_update"`
}

// NewState returns a fresh default document for a user: resting heart
// rate, baseline glucose, everything else zeroed.
func NewState(userID string) *State {
	return &State{
		UserID: userID,
		Sleep:  Sleep{Quality: QualityUnknown},
		HeartRate: HeartRate{
			Resting:  65,
			Current:  65,
			Trend:    HeartTrendStable,
			MinToday: 65,
			MaxToday: 65,
		},
		Glucose: Glucose{
			Current:  100,
			Trend:    GlucoseStable,
			MinToday: 100,
			MaxToday: 100,
		},
		LastUpdate: time.Now(),
	}
}

// Clone returns a deep copy of the document, detached from the
// original's slices and pointers.
func (s *State) Clone() *State {
	out := *s
	out.Sleep.LastSleepOnset = copyTime(s.Sleep.LastSleepOnset)
	out.Sleep.WakeTime = copyTime(s.Sleep.WakeTime)
	out.HeartRate.Readings = slices.Clone(s.HeartRate.Readings)
	out.Glucose.Readings = slices.Clone(s.Glucose.Readings)
	out.Meals = Meals{
		Breakfast: s.Meals.Breakfast.clone(),
		Lunch:     s.Meals.Lunch.clone(),
		Dinner:    s.Meals.Dinner.clone(),
	}
	if s.Meals.Snacks != nil {
		out.Meals.Snacks = make([]Meal, len(s.Meals.Snacks))
		for i, snack := range s.Meals.Snacks {
			snack.Foods = slices.Clone(snack.Foods)
			out.Meals.Snacks[i] = snack
		}
	}
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (m *Meal) clone() *Meal {
	if m == nil {
		return nil
	}
	c := *m
	c.Foods = slices.Clone(m.Foods)
	return &c
}

// ResetDaily zeroes the daily accumulators and clears the meal slots.
// Called on the first wake event of a new calendar day.
func (s *State) ResetDaily() {
	s.Activity = Activity{}
	s.WaterIntakeML = 0
	s.Meals = Meals{}
}

// FormatDuration renders a minute count as "7h 30m" (or "45m").
// Negative counts render as "0m".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h := minutes / 60
	m := minutes % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
