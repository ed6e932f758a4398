package telemetry

import (
	"time"

	"github.com/lumen-health/lumen-agent/internal/health"
)

const (
	glucoseBaseline = 100
	// mealWindow is how long after a meal its glucose effect lasts.
	mealWindow = 3 * time.Hour
	// trendDelta is the change from the previous reading that counts
	// as rising or falling.
	trendDelta = 10
)

// AdvanceGlucose produces a new glucose reading. A non-nil manual value
// is used verbatim (a self-reported measurement beats simulation).
// Otherwise the value is the 100 mg/dL baseline plus an offset chosen
// by how long ago the most recent meal was eaten, the dawn-phenomenon
// band in the early morning, or plain jitter. The trend compares the
// new value against the immediately preceding reading; the first
// reading ever is stable. Glucose is deliberately unclamped.
func (s *Simulator) AdvanceGlucose(st *health.State, now time.Time, manual *int) (int, health.GlucoseTrend) {
	var glucose int

	switch {
	case manual != nil:
		glucose = *manual
	default:
		if minutesSince, ok := lastMealAge(&st.Meals, now); ok {
			switch {
			case minutesSince < 30:
				glucose = glucoseBaseline + s.between(20, 40) // rising after meal
			case minutesSince < 90:
				glucose = glucoseBaseline + s.between(30, 50) // post-meal peak
			default:
				glucose = glucoseBaseline + s.between(10, 25) // coming down
			}
		} else if hour := now.Hour(); hour >= 5 && hour < 8 {
			glucose = glucoseBaseline + s.between(5, 15) // dawn phenomenon
		} else {
			glucose = glucoseBaseline + s.between(-10, 10)
		}
	}

	trend := health.GlucoseStable
	if prev, ok := st.Glucose.Last(); ok {
		switch {
		case glucose > prev+trendDelta:
			trend = health.GlucoseRising
		case glucose < prev-trendDelta:
			trend = health.GlucoseFalling
		}
	}

	st.Glucose.Record(now, glucose)
	st.Glucose.Trend = trend
	st.LastUpdate = now

	s.logger.Debug("glucose advanced", "mgdl", glucose, "trend", trend)
	return glucose, trend
}

// lastMealAge returns the minutes since the most recently eaten of the
// three meal slots, if one falls within the meal window.
func lastMealAge(meals *health.Meals, now time.Time) (minutes int, ok bool) {
	var latest *health.Meal
	for _, m := range []*health.Meal{meals.Breakfast, meals.Lunch, meals.Dinner} {
		if m == nil {
			continue
		}
		if now.Sub(m.Time) < 0 || now.Sub(m.Time) >= mealWindow {
			continue
		}
		if latest == nil || m.Time.After(latest.Time) {
			latest = m
		}
	}
	if latest == nil {
		return 0, false
	}
	return int(now.Sub(latest.Time).Minutes()), true
}
