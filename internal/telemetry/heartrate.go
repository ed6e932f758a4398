package telemetry

import (
	"time"

	"github.com/lumen-health/lumen-agent/internal/health"
)

// Heart rate is the only clamped sensor; simulated values never leave
// this band.
const (
	minHeartRate = 50
	maxHeartRate = 120
)

// hrBucket is one row of the time-of-day heart-rate table.
type hrBucket struct {
	fromHour, toHour int // [fromHour, toHour)
	lo, hi           int
	trend            health.HeartRateTrend
}

// hrTable covers the waking day; hours outside every row fall through
// to the night-time resting band.
var hrTable = []hrBucket{
	{5, 8, 65, 75, health.HeartTrendRising},      // morning, waking up
	{8, 12, 70, 85, health.HeartTrendStable},     // morning work
	{12, 14, 75, 90, health.HeartTrendElevated},  // lunch time
	{14, 18, 70, 85, health.HeartTrendStable},    // afternoon work
	{18, 22, 65, 80, health.HeartTrendDecreasing}, // evening
}

var hrNight = hrBucket{0, 0, 60, 70, health.HeartTrendLowResting}

// AdvanceHeartRate draws a new heart-rate reading conditioned on the
// hour of day, perturbs it by ±5 bpm, and clamps it to [50, 120]. The
// reading is appended to the bounded history and current/min/max are
// updated. Returns the new value and its trend.
func (s *Simulator) AdvanceHeartRate(st *health.State, now time.Time) (int, health.HeartRateTrend) {
	bucket := hrNight
	hour := now.Hour()
	for _, b := range hrTable {
		if hour >= b.fromHour && hour < b.toHour {
			bucket = b
			break
		}
	}

	bpm := s.between(bucket.lo, bucket.hi) + s.between(-5, 5)
	bpm = clamp(bpm, minHeartRate, maxHeartRate)

	st.HeartRate.Record(now, bpm)
	st.HeartRate.Trend = bucket.trend
	st.LastUpdate = now

	s.logger.Debug("heart rate advanced", "bpm", bpm, "trend", bucket.trend)
	return bpm, bucket.trend
}
