package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumen-health/lumen-agent/internal/detect"
	"github.com/lumen-health/lumen-agent/internal/events"
	"github.com/lumen-health/lumen-agent/internal/health"
	"github.com/lumen-health/lumen-agent/internal/telemetry"
	"github.com/lumen-health/lumen-agent/internal/watch"
)

type lowRand struct{}

func (lowRand) IntN(n int) int { return 0 }

func newTestServer(t *testing.T) (*Server, *events.Bus) {
	t.Helper()
	store, err := health.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	schedule := detect.Schedule{
		Breakfast: detect.ClockTime{Hour: 7, Minute: 30},
		Lunch:     detect.ClockTime{Hour: 12, Minute: 30},
		Dinner:    detect.ClockTime{Hour: 19, Minute: 0},
	}
	bus := events.New()
	sim := telemetry.New(lowRand{}, nil)
	registry, err := watch.NewRegistry(4, func(userID string) *watch.Manager {
		return watch.NewManager(userID, store, sim, detect.New(schedule, nil), bus, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	return New("127.0.0.1", 0, "sam", registry, bus, nil), bus
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/snapshot")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var snapshot map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"heart_rate", "blood_sugar", "steps_count", "sleep_quality"} {
		if _, ok := snapshot[key]; !ok {
			t.Errorf("snapshot missing %q", key)
		}
	}
}

func TestStateEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/state?user=alex")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var st health.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.UserID != "alex" {
		t.Errorf("user = %q, want alex", st.UserID)
	}
	if st.HeartRate.Current != 65 {
		t.Errorf("default heart rate = %d, want 65", st.HeartRate.Current)
	}
}

// Snapshot mutates the shared per-user document, so overlapping
// requests exercise the manager's internal locking.
func TestConcurrentSnapshotAndState(t *testing.T) {
	s, _ := newTestServer(t)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	get := func(path string) error {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: status %d", path, resp.StatusCode)
		}
		return nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				if err := get("/v1/snapshot"); err != nil {
					t.Error(err)
					return
				}
				if err := get("/v1/state"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	resp, err := http.Get(server.URL + "/v1/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var st health.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if len(st.HeartRate.Readings) != health.MaxHeartRateReadings {
		t.Errorf("heart-rate history = %d readings, want %d",
			len(st.HeartRate.Readings), health.MaxHeartRateReadings)
	}
	if st.HeartRate.Current < st.HeartRate.MinToday || st.HeartRate.Current > st.HeartRate.MaxToday {
		t.Errorf("heart rate min/current/max = %d/%d/%d out of order",
			st.HeartRate.MinToday, st.HeartRate.Current, st.HeartRate.MaxToday)
	}
}

func TestEventsFeed(t *testing.T) {
	s, bus := newTestServer(t)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The subscription is registered during the upgrade handler; give
	// it a moment before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	want := events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceWatch,
		Kind:      events.KindHealthEvent,
		Data:      map[string]any{"event_type": "sedentary_warning"},
	}
	bus.Publish(want)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Source != want.Source || got.Kind != want.Kind {
		t.Errorf("got %s/%s, want %s/%s", got.Source, got.Kind, want.Source, want.Kind)
	}
}
