package telemetry

import (
	"testing"

	"github.com/lumen-health/lumen-agent/internal/health"
)

func TestAdvanceStepsActiveBuckets(t *testing.T) {
	tests := []struct {
		hour               int
		stepLo, stepHi     int
		activeLo, activeHi int
	}{
		{7, 500, 1500, 5, 15},
		{13, 800, 2000, 10, 20},
		{18, 1000, 3000, 15, 30},
		{10, 300, 800, 3, 8},
		{22, 300, 800, 3, 8},
	}

	sim := New(nil, nil)
	for _, tt := range tests {
		st := health.NewState("test")
		got := sim.AdvanceSteps(st, at(tt.hour, 0), true)
		if got.Steps < tt.stepLo || got.Steps > tt.stepHi {
			t.Errorf("hour %d: steps = %d, want in [%d, %d]", tt.hour, got.Steps, tt.stepLo, tt.stepHi)
		}
		if got.ActiveMinutes < tt.activeLo || got.ActiveMinutes > tt.activeHi {
			t.Errorf("hour %d: active = %d, want in [%d, %d]", tt.hour, got.ActiveMinutes, tt.activeLo, tt.activeHi)
		}
		if got.SedentaryMinutes != 0 {
			t.Errorf("hour %d: sedentary = %d, want 0 while active", tt.hour, got.SedentaryMinutes)
		}
	}
}

func TestAdvanceStepsInactive(t *testing.T) {
	st := health.NewState("test")
	got := New(nil, nil).AdvanceSteps(st, at(10, 0), false)

	if got.Steps < 50 || got.Steps > 200 {
		t.Errorf("steps = %d, want in [50, 200]", got.Steps)
	}
	if got.ActiveMinutes != 0 {
		t.Errorf("active = %d, want 0 while inactive", got.ActiveMinutes)
	}
	if got.SedentaryMinutes < 25 || got.SedentaryMinutes > 60 {
		t.Errorf("sedentary = %d, want in [25, 60]", got.SedentaryMinutes)
	}
}

func TestAdvanceStepsMonotonic(t *testing.T) {
	st := health.NewState("test")
	sim := New(nil, nil)

	var prev health.Activity
	for i := range 20 {
		got := sim.AdvanceSteps(st, at(9, 0), i%2 == 0)
		if got.Steps < prev.Steps ||
			got.ActiveMinutes < prev.ActiveMinutes ||
			got.SedentaryMinutes < prev.SedentaryMinutes ||
			got.CaloriesBurned < prev.CaloriesBurned {
			t.Fatalf("iteration %d: counters decreased: %+v -> %+v", i, prev, got)
		}
		prev = got
	}
}

func TestAdvanceStepsCalories(t *testing.T) {
	// lowRand at hour 7 draws exactly 500 steps; 500 steps at ~0.04
	// calories per step is 20.
	st := health.NewState("test")
	got := New(lowRand{}, nil).AdvanceSteps(st, at(7, 0), true)
	if got.Steps != 500 {
		t.Fatalf("steps = %d, want 500", got.Steps)
	}
	if got.CaloriesBurned != 20 {
		t.Errorf("calories = %d, want 20", got.CaloriesBurned)
	}
}
