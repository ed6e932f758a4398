// Package companion runs one user's conversational session: it drives
// periodic watch updates, turns detected events into proactive
// messages, and answers user turns with narrative generated by the
// model. Execution is strictly sequential; the time-gated poll is an
// explicit clock comparison, not a timer.
package companion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-health/lumen-agent/internal/events"
	"github.com/lumen-health/lumen-agent/internal/health"
	"github.com/lumen-health/lumen-agent/internal/history"
	"github.com/lumen-health/lumen-agent/internal/llm"
	"github.com/lumen-health/lumen-agent/internal/prompts"
	"github.com/lumen-health/lumen-agent/internal/watch"
)

// historyWindow is how many prior messages are replayed into each
// generation request.
const historyWindow = 20

// Session orchestrates the companion for one user.
type Session struct {
	id       string
	profile  prompts.Profile
	manager  *watch.Manager
	history  *history.Store
	client   llm.Client
	bus      *events.Bus
	logger   *slog.Logger
	interval time.Duration

	lastChecked time.Time
	nowFunc     func() time.Time
}

// New creates a session. interval is the minimum gap between telemetry
// polls in Tick; bus may be nil.
func New(profile prompts.Profile, manager *watch.Manager, hist *history.Store, client llm.Client, bus *events.Bus, interval time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Session{
		id:       manager.UserID(),
		profile:  profile,
		manager:  manager,
		history:  hist,
		client:   client,
		bus:      bus,
		logger:   logger,
		interval: interval,
		nowFunc:  time.Now,
	}
}

// Due reports whether enough wall time has passed for Tick to do work.
func (s *Session) Due(now time.Time) bool {
	return s.lastChecked.IsZero() || now.Sub(s.lastChecked) >= s.interval
}

// Tick performs one poll cycle if the update interval has elapsed:
// advance telemetry, check for events, and generate one proactive
// message per event. Returns the generated messages (nil when the
// interval has not elapsed or nothing fired).
func (s *Session) Tick(ctx context.Context) ([]string, error) {
	now := s.nowFunc()
	if !s.Due(now) {
		return nil, nil
	}
	s.lastChecked = now

	if _, err := s.manager.Snapshot(); err != nil {
		return nil, fmt.Errorf("advance telemetry: %w", err)
	}

	fired := s.manager.CheckEvents()
	var messages []string
	for _, ev := range fired {
		reply, err := s.generate(ctx, prompts.ForEvent(s.profile, ev))
		if err != nil {
			s.logger.Warn("proactive message generation failed",
				"event", ev.Type, "error", err)
			continue
		}
		messages = append(messages, reply)
	}

	s.bus.Publish(events.Event{
		Timestamp: now,
		Source:    events.SourceCompanion,
		Kind:      events.KindTick,
		Data:      map[string]any{"user": s.id, "events": len(fired)},
	})
	return messages, nil
}

// HandleMessage answers one user turn: take a fresh snapshot, fill the
// narrative prompt, and generate a reply. Both sides of the exchange
// are appended to the transcript.
func (s *Session) HandleMessage(ctx context.Context, text string) (string, error) {
	snapshot, err := s.manager.Snapshot()
	if err != nil {
		return "", fmt.Errorf("advance telemetry: %w", err)
	}

	if _, err := s.history.Append(s.id, history.RoleUser, text); err != nil {
		s.logger.Warn("transcript append failed", "error", err)
	}

	prompt := prompts.Narrative(s.profile, s.nowFunc(), snapshot, text)
	reply, err := s.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// SleepTransition forwards a sleep onset or wake to the watch manager.
// On wake it returns a generated morning briefing.
func (s *Session) SleepTransition(ctx context.Context, waking bool) (string, error) {
	summary, err := s.manager.SleepTransition(waking)
	if err != nil {
		return "", err
	}
	if summary == nil {
		return "", nil
	}
	return s.generate(ctx, prompts.Morning(s.profile, summary))
}

// RecordMeal ingests a structured meal report.
func (s *Session) RecordMeal(mealType health.MealType, foods []string) error {
	return s.manager.RecordMeal(mealType, foods)
}

// RecordGlucose ingests a self-reported glucose measurement.
func (s *Session) RecordGlucose(value int) (int, health.GlucoseTrend, error) {
	return s.manager.UpdateGlucose(&value)
}

// RecordWater ingests a water amount already normalized to milliliters.
func (s *Session) RecordWater(ml int) (int, error) {
	return s.manager.RecordWater(ml)
}

// Manager exposes the underlying watch manager (API server, tests).
func (s *Session) Manager() *watch.Manager { return s.manager }

// generate replays the recent transcript plus the prompt through the
// model and appends the reply to the transcript.
func (s *Session) generate(ctx context.Context, prompt string) (string, error) {
	var turns []llm.Turn
	recent, err := s.history.Recent(s.id, historyWindow)
	if err != nil {
		s.logger.Warn("transcript read failed", "error", err)
	}
	for _, m := range recent {
		role := llm.RoleUser
		if m.Role == history.RoleAssistant {
			role = llm.RoleModel
		}
		turns = append(turns, llm.Turn{Role: role, Text: m.Content})
	}
	turns = append(turns, llm.Turn{Role: llm.RoleUser, Text: prompt})

	requestID := uuid.NewString()
	start := s.nowFunc()
	s.bus.Publish(events.Event{
		Timestamp: start,
		Source:    events.SourceCompanion,
		Kind:      events.KindLLMCall,
		Data:      map[string]any{"request_id": requestID},
	})

	reply, err := s.client.Generate(ctx, turns)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	s.bus.Publish(events.Event{
		Timestamp: s.nowFunc(),
		Source:    events.SourceCompanion,
		Kind:      events.KindLLMResponse,
		Data: map[string]any{
			"request_id": requestID,
			"chars":      len(reply),
			"elapsed_ms": time.Since(start).Milliseconds(),
		},
	})

	if _, err := s.history.Append(s.id, history.RoleAssistant, reply); err != nil {
		s.logger.Warn("transcript append failed", "error", err)
	}
	return reply, nil
}
