// Package watch composes the health store, telemetry simulator and
// event detector into the per-user manager the companion layer talks
// to, plus a bounded registry of managers keyed by user ID.
package watch

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/lumen-health/lumen-agent/internal/detect"
	"github.com/lumen-health/lumen-agent/internal/events"
	"github.com/lumen-health/lumen-agent/internal/health"
	"github.com/lumen-health/lumen-agent/internal/telemetry"
)

// Manager binds one user's health state to the simulator and detector.
// Every mutating call persists the state before returning. A mutex
// serializes the facade methods: the chat session drives a manager
// strictly sequentially, but the API server reaches the same manager
// from concurrent request goroutines.
type Manager struct {
	userID   string
	store    *health.Store
	sim      *telemetry.Simulator
	detector *detect.Detector
	bus      *events.Bus
	logger   *slog.Logger

	mu      sync.Mutex
	state   *health.State
	nowFunc func() time.Time
}

// NewManager loads (or initializes) the user's persisted state and
// wires it to the simulator and detector. bus may be nil.
func NewManager(userID string, store *health.Store, sim *telemetry.Simulator, detector *detect.Detector, bus *events.Bus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		userID:   userID,
		store:    store,
		sim:      sim,
		detector: detector,
		bus:      bus,
		logger:   logger,
		state:    store.Load(userID),
		nowFunc:  time.Now,
	}
}

// UserID returns the user this manager is bound to.
func (m *Manager) UserID() string { return m.userID }

// State exposes the live state document to strictly sequential callers
// (the CLI loop, tests). Concurrent readers use [Manager.StateView].
func (m *Manager) State() *health.State { return m.state }

// StateView returns a deep copy of the state document taken under the
// manager lock, safe to serialize while other goroutines mutate
// through the manager.
func (m *Manager) StateView() *health.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

func (m *Manager) save() error {
	if err := m.store.Save(m.state); err != nil {
		return fmt.Errorf("persist state for %s: %w", m.userID, err)
	}
	return nil
}

// Snapshot advances heart rate, steps and glucose, persists, and
// returns the flattened string view the prompt layer consumes. The
// activity flag assumes sedentary working hours from 08:00 onward.
func (m *Manager) Snapshot() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()

	m.sim.AdvanceHeartRate(m.state, now)
	sedentary := now.Hour() >= 8
	m.sim.AdvanceSteps(m.state, now, !sedentary)
	m.sim.AdvanceGlucose(m.state, now, nil)

	if err := m.save(); err != nil {
		return nil, err
	}

	m.bus.Publish(events.Event{
		Timestamp: now,
		Source:    events.SourceWatch,
		Kind:      events.KindTelemetryAdvance,
		Data: map[string]any{
			"user":       m.userID,
			"heart_rate": m.state.HeartRate.Current,
			"steps":      m.state.Activity.Steps,
			"glucose":    m.state.Glucose.Current,
		},
	})

	return map[string]string{
		"heart_rate":        fmt.Sprintf("%d bpm", m.state.HeartRate.Current),
		"heart_rate_trend":  string(m.state.HeartRate.Trend),
		"steps_count":       strconv.Itoa(m.state.Activity.Steps),
		"active_minutes":    strconv.Itoa(m.state.Activity.ActiveMinutes),
		"sedentary_minutes": strconv.Itoa(m.state.Activity.SedentaryMinutes),
		"blood_sugar":       fmt.Sprintf("%d mg/dL", m.state.Glucose.Current),
		"blood_sugar_trend": string(m.state.Glucose.Trend),
		"calories_burned":   strconv.Itoa(m.state.Activity.CaloriesBurned),
		"sleep_duration":    health.FormatDuration(m.state.Sleep.DurationMinutes),
		"sleep_quality":     string(m.state.Sleep.Quality),
		"water_intake_ml":   strconv.Itoa(m.state.WaterIntakeML),
	}, nil
}

// RecordMeal writes a meal to its slot (or the snack list) and runs an
// after-meal glucose advance. An empty meal type is inferred from the
// hour of day. Recording a slot meal suppresses that meal's reminder
// for the day.
func (m *Manager) RecordMeal(mealType health.MealType, foods []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()
	if mealType == "" {
		mealType = health.MealTypeForHour(now.Hour())
	}

	meal := &health.Meal{Time: now, Foods: foods}
	switch mealType {
	case health.MealBreakfast:
		m.state.Meals.Breakfast = meal
	case health.MealLunch:
		m.state.Meals.Lunch = meal
	case health.MealDinner:
		m.state.Meals.Dinner = meal
	default:
		mealType = health.MealSnack
		m.state.Meals.Snacks = append(m.state.Meals.Snacks, *meal)
	}
	if mealType != health.MealSnack {
		m.detector.MarkReminded(mealType, now)
	}

	m.sim.AdvanceGlucose(m.state, now, nil)
	m.state.LastUpdate = now

	if err := m.save(); err != nil {
		return err
	}

	m.bus.Publish(events.Event{
		Timestamp: now,
		Source:    events.SourceWatch,
		Kind:      events.KindMealRecorded,
		Data:      map[string]any{"user": m.userID, "meal": string(mealType), "foods": foods},
	})
	m.logger.Info("meal recorded", "user", m.userID, "meal", mealType, "foods", foods)
	return nil
}

// UpdateGlucose takes a new glucose reading. A non-nil manual value is
// a user self-report and is used verbatim; nil simulates.
func (m *Manager) UpdateGlucose(manual *int) (int, health.GlucoseTrend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, trend := m.sim.AdvanceGlucose(m.state, m.nowFunc(), manual)
	if err := m.save(); err != nil {
		return 0, "", err
	}
	return value, trend, nil
}

// RecordWater adds a water intake amount in milliliters.
func (m *Manager) RecordWater(ml int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ml <= 0 {
		return m.state.WaterIntakeML, fmt.Errorf("water amount must be positive, got %d", ml)
	}
	m.state.WaterIntakeML += ml
	m.state.LastUpdate = m.nowFunc()
	if err := m.save(); err != nil {
		return 0, err
	}
	return m.state.WaterIntakeML, nil
}

// CheckEvents polls the detector and publishes anything that fired.
func (m *Manager) CheckEvents() []detect.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()
	fired := m.detector.Check(m.state, now)
	for _, ev := range fired {
		m.bus.Publish(events.Event{
			Timestamp: now,
			Source:    events.SourceWatch,
			Kind:      events.KindHealthEvent,
			Data:      map[string]any{"user": m.userID, "event_type": string(ev.Type)},
		})
	}
	return fired
}

// MorningSummary is the flattened wake report handed to the companion
// layer after a wake transition.
type MorningSummary struct {
	SleepDuration    string              `json:"sleep_duration"`
	Quality          health.SleepQuality `json:"sleep_quality"`
	DeepPct          int                 `json:"deep_sleep_pct"`
	REMPct           int                 `json:"rem_sleep_pct"`
	AwakePeriods     int                 `json:"awake_periods"`
	RestingHeartRate int                 `json:"resting_heart_rate"`
	MorningGlucose   int                 `json:"morning_glucose"`
	NewDay           bool                `json:"new_day"`
}

// SleepTransition records going to sleep (waking=false) or waking up
// (waking=true). Waking returns a morning summary; sleep onset returns
// nil.
func (m *Manager) SleepTransition(waking bool) (*MorningSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()

	if !waking {
		m.sim.RecordSleepStart(m.state, now)
		if err := m.save(); err != nil {
			return nil, err
		}
		m.publishSleep(now, false, false)
		return nil, nil
	}

	newDay := m.sim.RecordWake(m.state, now)
	if err := m.save(); err != nil {
		return nil, err
	}
	m.publishSleep(now, true, newDay)

	return &MorningSummary{
		SleepDuration:    health.FormatDuration(m.state.Sleep.DurationMinutes),
		Quality:          m.state.Sleep.Quality,
		DeepPct:          m.state.Sleep.DeepPct,
		REMPct:           m.state.Sleep.REMPct,
		AwakePeriods:     m.state.Sleep.AwakePeriods,
		RestingHeartRate: m.state.HeartRate.Resting,
		MorningGlucose:   m.state.Glucose.Current,
		NewDay:           newDay,
	}, nil
}

func (m *Manager) publishSleep(now time.Time, waking, newDay bool) {
	m.bus.Publish(events.Event{
		Timestamp: now,
		Source:    events.SourceWatch,
		Kind:      events.KindSleepTransition,
		Data:      map[string]any{"user": m.userID, "waking": waking, "new_day": newDay},
	})
}
