package watch

import (
	"fmt"
	"testing"

	"github.com/lumen-health/lumen-agent/internal/detect"
	"github.com/lumen-health/lumen-agent/internal/health"
	"github.com/lumen-health/lumen-agent/internal/telemetry"
)

func newTestRegistry(t *testing.T, size int) *Registry {
	t.Helper()
	store, err := health.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	sim := telemetry.New(lowRand{}, nil)
	r, err := NewRegistry(size, func(userID string) *Manager {
		return NewManager(userID, store, sim, detect.New(testSchedule, nil), nil, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRegistryCreateOnFirstAccess(t *testing.T) {
	r := newTestRegistry(t, 4)

	m1 := r.Get("sam")
	if m1 == nil {
		t.Fatal("Get returned nil")
	}
	if m2 := r.Get("sam"); m2 != m1 {
		t.Error("second Get returned a different manager")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryCapacityBound(t *testing.T) {
	r := newTestRegistry(t, 2)

	for i := range 5 {
		r.Get(fmt.Sprintf("user-%d", i))
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestRegistryEvictedStateSurvives(t *testing.T) {
	r := newTestRegistry(t, 1)

	m := r.Get("sam")
	if _, err := m.RecordWater(400); err != nil {
		t.Fatal(err)
	}

	// Evict sam, then come back: the fresh manager loads the
	// persisted state.
	r.Get("other")
	got := r.Get("sam")
	if got == m {
		t.Fatal("expected a re-created manager after eviction")
	}
	if got.State().WaterIntakeML != 400 {
		t.Errorf("water after re-create = %d, want 400", got.State().WaterIntakeML)
	}
}
