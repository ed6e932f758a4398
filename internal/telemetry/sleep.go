package telemetry

import (
	"time"

	"github.com/lumen-health/lumen-agent/internal/health"
)

// RecordSleepStart notes the onset of sleep. Nothing else is computed
// until the matching wake event.
func (s *Simulator) RecordSleepStart(st *health.State, now time.Time) {
	onset := now
	st.Sleep.LastSleepOnset = &onset
	st.LastUpdate = now
	s.logger.Debug("sleep onset recorded", "at", now)
}

// RecordWake completes a sleep cycle. If an onset was recorded, the
// duration and a drawn stage breakdown (deep/REM/light percentages
// summing to 100, plus awake periods) are written and a quality rating
// derived; with no prior onset those fields are left untouched. Either
// way a fresh post-wake heart-rate sample is taken, and if the wake
// falls on a new calendar day the daily accumulators are reset.
// Returns whether a new day started.
func (s *Simulator) RecordWake(st *health.State, now time.Time) (newDay bool) {
	if st.Sleep.LastSleepOnset != nil {
		wake := now
		duration := int(now.Sub(*st.Sleep.LastSleepOnset).Minutes())
		if duration < 0 {
			// Clock skew or an out-of-order transition; never report a
			// negative night.
			duration = 0
		}
		deep := s.between(15, 30)
		rem := s.between(15, 25)
		awake := s.between(1, 5)

		st.Sleep.WakeTime = &wake
		st.Sleep.DurationMinutes = duration
		st.Sleep.DeepPct = deep
		st.Sleep.REMPct = rem
		st.Sleep.LightPct = 100 - deep - rem
		st.Sleep.AwakePeriods = awake
		st.Sleep.Quality = deriveQuality(deep, rem, awake)
	} else {
		s.logger.Debug("wake without recorded onset, keeping prior sleep data")
	}

	// Fresh morning heart-rate sample.
	st.HeartRate.Record(now, s.between(65, 75))
	st.HeartRate.Trend = health.HeartTrendRising

	y1, m1, d1 := st.LastUpdate.Date()
	y2, m2, d2 := now.Date()
	newDay = y1 != y2 || m1 != m2 || d1 != d2
	if newDay {
		st.ResetDaily()
		s.logger.Info("new day, daily counters reset", "date", now.Format("2006-01-02"))
	}

	st.LastUpdate = now
	return newDay
}

// deriveQuality rates a sleep cycle from its stage breakdown. Rules are
// checked best-first.
func deriveQuality(deepPct, remPct, awakePeriods int) health.SleepQuality {
	switch {
	case deepPct > 25 && remPct > 20 && awakePeriods < 3:
		return health.QualityExcellent
	case deepPct > 20 && remPct > 18 && awakePeriods < 4:
		return health.QualityGood
	case deepPct > 15 && remPct > 15:
		return health.QualityFair
	default:
		return health.QualityPoor
	}
}
