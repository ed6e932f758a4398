package telemetry

import (
	"time"

	"github.com/lumen-health/lumen-agent/internal/health"
)

// stepBucket is one row of the time-of-day activity table: step and
// active-minute increments drawn while the user is moving.
type stepBucket struct {
	fromHour, toHour   int // [fromHour, toHour)
	stepLo, stepHi     int
	activeLo, activeHi int
}

var stepTable = []stepBucket{
	{6, 9, 500, 1500, 5, 15},    // morning activity
	{12, 14, 800, 2000, 10, 20}, // lunch walk
	{17, 20, 1000, 3000, 15, 30}, // evening activity
}

// Increments drawn outside every table row while active.
var stepDefault = stepBucket{0, 0, 300, 800, 3, 8}

// AdvanceSteps accumulates step, active-minute and sedentary-minute
// increments. Active periods draw from the time-bucketed table and add
// no sedentary time; inactive periods add a trickle of steps plus a
// sedentary increment. Calories accrue at roughly 0.04 per step. All
// counters only ever increase within a day.
func (s *Simulator) AdvanceSteps(st *health.State, now time.Time, active bool) health.Activity {
	var steps, activeMins, sedentaryMins int

	if active {
		bucket := stepDefault
		hour := now.Hour()
		for _, b := range stepTable {
			if hour >= b.fromHour && hour < b.toHour {
				bucket = b
				break
			}
		}
		steps = s.between(bucket.stepLo, bucket.stepHi)
		activeMins = s.between(bucket.activeLo, bucket.activeHi)
	} else {
		steps = s.between(50, 200)
		sedentaryMins = s.between(25, 60)
	}

	st.Activity.Steps += steps
	st.Activity.ActiveMinutes += activeMins
	st.Activity.SedentaryMinutes += sedentaryMins
	st.Activity.CaloriesBurned += steps * 4 / 100
	st.LastUpdate = now

	s.logger.Debug("steps advanced",
		"steps", st.Activity.Steps,
		"active_minutes", st.Activity.ActiveMinutes,
		"sedentary_minutes", st.Activity.SedentaryMinutes)
	return st.Activity
}
