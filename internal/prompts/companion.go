// Package prompts builds the narrative prompts sent to the model. The
// core never reads generated text back; these builders only flatten
// watch data and profile context into instructions.
package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumen-health/lumen-agent/internal/detect"
	"github.com/lumen-health/lumen-agent/internal/health"
	"github.com/lumen-health/lumen-agent/internal/watch"
)

// Profile carries the static user context woven into every prompt.
type Profile struct {
	Name      string
	Condition string // e.g. "pre-diabetic"
	Style     string // e.g. "friendly, direct, and proactive"
}

// Narrative builds the main interaction prompt: the assistant persona,
// the current time, and every snapshot fill value, followed by the
// user's message if there is one.
func Narrative(p Profile, now time.Time, snapshot map[string]string, userMessage string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s's personal health assistant integrated with their smartwatch and health monitoring system.\n\n", p.Name)
	fmt.Fprintf(&sb, "Current Context:\n")
	fmt.Fprintf(&sb, "- Time: %s\n", now.Format("15:04"))
	fmt.Fprintf(&sb, "- Date: %s\n\n", now.Format("2006-01-02"))

	sb.WriteString("Health Data:\n")
	for _, row := range []struct{ label, key string }{
		{"Sleep Duration", "sleep_duration"},
		{"Sleep Quality", "sleep_quality"},
		{"Heart Rate", "heart_rate"},
		{"Heart Rate Trend", "heart_rate_trend"},
		{"Steps Today", "steps_count"},
		{"Active Minutes", "active_minutes"},
		{"Sedentary Time", "sedentary_minutes"},
		{"Blood Sugar Level", "blood_sugar"},
		{"Blood Sugar Trend", "blood_sugar_trend"},
		{"Calories Burned", "calories_burned"},
		{"Water Intake (ml)", "water_intake_ml"},
	} {
		if v, ok := snapshot[row.key]; ok {
			fmt.Fprintf(&sb, "- %s: %s\n", row.label, v)
		}
	}

	fmt.Fprintf(&sb, "\nUser Context:\n")
	fmt.Fprintf(&sb, "- Condition: %s\n", p.Condition)
	fmt.Fprintf(&sb, "- Communication Style: %s\n\n", p.Style)

	fmt.Fprintf(&sb, "Address %s directly in a %s tone, weave in personalized insights for the time of day, and offer specific, actionable advice for their condition. Write as an interaction happening right now, not a summary of the whole day.\n", p.Name, p.Style)

	if userMessage != "" {
		fmt.Fprintf(&sb, "\n%s says: %s\n", p.Name, userMessage)
	}
	return sb.String()
}

// ForEvent builds the proactive nudge prompt for a detected event.
func ForEvent(p Profile, ev detect.Event) string {
	switch ev.Type {
	case detect.EventMealReminder:
		return fmt.Sprintf("It is %s's usual %s time and nothing has been logged yet. Gently remind them, in a %s tone, and suggest a choice that suits a %s condition.",
			p.Name, ev.Meal, p.Style, p.Condition)
	case detect.EventSedentaryWarning:
		return fmt.Sprintf("%s has been sedentary for %d minutes. Encourage a short movement break, in a %s tone.",
			p.Name, ev.Minutes, p.Style)
	case detect.EventGlucoseWarning:
		return fmt.Sprintf("%s's blood sugar is %d mg/dL and %s. Calmly flag it, in a %s tone, and suggest one concrete step to bring it down.",
			p.Name, ev.Level, ev.Trend, p.Style)
	}
	return ""
}

// Morning builds the wake-up summary prompt, including sleep-quality
// keyed suggestions.
func Morning(p Profile, sum *watch.MorningSummary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s just woke up. Give them a short morning briefing in a %s tone.\n\n", p.Name, p.Style)
	fmt.Fprintf(&sb, "Sleep Report:\n")
	fmt.Fprintf(&sb, "- Duration: %s\n", sum.SleepDuration)
	fmt.Fprintf(&sb, "- Quality: %s\n", sum.Quality)
	fmt.Fprintf(&sb, "- Deep Sleep: %d%%\n", sum.DeepPct)
	fmt.Fprintf(&sb, "- REM Sleep: %d%%\n", sum.REMPct)
	fmt.Fprintf(&sb, "- Awake Periods: %d\n", sum.AwakePeriods)
	fmt.Fprintf(&sb, "- Resting Heart Rate: %d bpm\n", sum.RestingHeartRate)
	fmt.Fprintf(&sb, "- Morning Glucose: %d mg/dL\n\n", sum.MorningGlucose)

	sb.WriteString("Suggestions to work in:\n")
	for _, s := range morningSuggestions(sum.Quality) {
		fmt.Fprintf(&sb, "- %s\n", s)
	}
	return sb.String()
}

// morningSuggestions returns quality-keyed recommendations for the
// morning briefing.
func morningSuggestions(q health.SleepQuality) []string {
	switch q {
	case health.QualityPoor:
		return []string{
			"Consider a short 15-minute morning meditation",
			"Avoid heavy carbs at breakfast to prevent energy crashes",
			"Prioritize protein in your breakfast to stabilize energy",
		}
	case health.QualityFair:
		return []string{
			"A morning stretch might help you feel more refreshed",
			"Consider a balanced breakfast with protein and fiber",
		}
	default:
		return []string{
			"Great sleep! Consider a morning walk to maintain energy",
			"Your body is well-rested - a balanced breakfast will help maintain this state",
		}
	}
}
