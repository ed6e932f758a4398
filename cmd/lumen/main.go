// Lumen is a simulated personal-health companion agent.
//
// It runs a virtual smartwatch for one user — heart rate, steps, sleep,
// glucose, meals, hydration — detects time- and threshold-based events,
// and narrates the day through a text-generation model. Configuration
// is loaded from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	lumen chat               Start the interactive companion session
//	lumen day                Run a scripted day against the simulator
//	lumen snapshot           Print the current flattened watch snapshot
//	lumen serve              Start the local API server
//	lumen version            Print version and build information
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lumen-health/lumen-agent/internal/api"
	"github.com/lumen-health/lumen-agent/internal/buildinfo"
	"github.com/lumen-health/lumen-agent/internal/companion"
	"github.com/lumen-health/lumen-agent/internal/config"
	"github.com/lumen-health/lumen-agent/internal/detect"
	"github.com/lumen-health/lumen-agent/internal/events"
	"github.com/lumen-health/lumen-agent/internal/health"
	"github.com/lumen-health/lumen-agent/internal/history"
	"github.com/lumen-health/lumen-agent/internal/llm"
	"github.com/lumen-health/lumen-agent/internal/prompts"
	"github.com/lumen-health/lumen-agent/internal/telemetry"
	"github.com/lumen-health/lumen-agent/internal/watch"
)

// main constructs the OS-level environment and delegates to [run] so
// the full lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. args is os.Args[1:]; flags are parsed
// manually to avoid global state that interferes with parallel tests.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var command string
	var rest []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" || args[i] == "--config":
			if i+1 >= len(args) {
				return errors.New("-config requires a path")
			}
			i++
			configPath = args[i]
		case command == "":
			command = args[i]
		default:
			rest = append(rest, args[i])
		}
	}

	if command == "" || command == "help" {
		printUsage(stdout)
		return nil
	}
	if command == "version" {
		return printVersion(stdout)
	}

	path, err := config.FindConfig(configPath)
	var cfg *config.Config
	if err != nil {
		// No config file is fine for local use; defaults apply.
		cfg = config.Default()
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := buildLogger(stdout, cfg.LogLevel)
	if err != nil {
		return err
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}

	switch command {
	case "chat":
		return runChat(ctx, stdout, app)
	case "day":
		return runDay(stdout, app)
	case "snapshot":
		return runSnapshot(stdout, app)
	case "serve":
		return runServe(ctx, app)
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: lumen [-config path] <chat|day|snapshot|serve|version>")
}

func printVersion(w io.Writer) error {
	data, err := json.MarshalIndent(buildinfo.Current(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func buildLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: config.ReplaceLogLevelNames,
	})), nil
}

// app bundles the constructed components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	bus      *events.Bus
	registry *watch.Registry
	dataDir  string
}

func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := health.NewStore(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}

	schedule, err := scheduleFromRoutine(cfg.Routine)
	if err != nil {
		return nil, err
	}

	bus := events.New()
	sim := telemetry.New(nil, logger)

	registry, err := watch.NewRegistry(cfg.Watch.SessionCacheSize, func(userID string) *watch.Manager {
		return watch.NewManager(userID, store, sim, detect.New(schedule, logger), bus, logger)
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		registry: registry,
		dataDir:  cfg.DataDir,
	}, nil
}

func scheduleFromRoutine(r config.RoutineConfig) (detect.Schedule, error) {
	var s detect.Schedule
	for _, entry := range []struct {
		value string
		dst   *detect.ClockTime
	}{
		{r.Breakfast, &s.Breakfast},
		{r.Lunch, &s.Lunch},
		{r.Dinner, &s.Dinner},
	} {
		h, m, err := config.ParseClock(entry.value)
		if err != nil {
			return s, err
		}
		*entry.dst = detect.ClockTime{Hour: h, Minute: m}
	}
	return s, nil
}

func (a *app) profile() prompts.Profile {
	return prompts.Profile{
		Name:      a.cfg.User.Name,
		Condition: a.cfg.User.Condition,
		Style:     a.cfg.User.Style,
	}
}

// runChat drives the interactive companion session. Structured reports
// go through slash commands; everything else is a conversational turn.
func runChat(ctx context.Context, stdout io.Writer, a *app) error {
	if a.cfg.Gemini.APIKey == "" {
		return errors.New("gemini.api_key is not configured")
	}

	hist, err := history.NewStore(filepath.Join(a.dataDir, "history.db"), a.logger)
	if err != nil {
		return err
	}
	defer hist.Close()

	client := llm.NewGeminiClient(a.cfg.Gemini.BaseURL, a.cfg.Gemini.APIKey, a.cfg.Gemini.Model, a.logger)
	manager := a.registry.Get(a.cfg.User.Name)
	session := companion.New(a.profile(), manager, hist, client, a.bus, a.cfg.UpdateInterval(), a.logger)

	fmt.Fprintf(stdout, "Lumen companion for %s. Commands: /meal, /glucose, /water, /sleep, /wake, /snapshot, /quit\n", a.cfg.User.Name)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		// Proactive messages first, so reminders land between turns.
		if proactive, err := session.Tick(ctx); err == nil {
			for _, msg := range proactive {
				fmt.Fprintf(stdout, "\n[lumen] %s\n", msg)
			}
		} else {
			a.logger.Warn("tick failed", "error", err)
		}

		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := handleCommand(ctx, stdout, session, line)
			if err != nil {
				fmt.Fprintf(stdout, "error: %s\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		reply, err := session.HandleMessage(ctx, line)
		if err != nil {
			fmt.Fprintf(stdout, "error: %s\n", err)
			continue
		}
		fmt.Fprintf(stdout, "\n[lumen] %s\n", reply)
	}
}

// handleCommand executes one slash command. Returns quit=true for /quit.
func handleCommand(ctx context.Context, stdout io.Writer, session *companion.Session, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/meal":
		if len(fields) < 3 {
			return false, errors.New("usage: /meal <breakfast|lunch|dinner|snack> <foods...>")
		}
		mealType := health.MealType(fields[1])
		return false, session.RecordMeal(mealType, fields[2:])

	case "/glucose":
		if len(fields) != 2 {
			return false, errors.New("usage: /glucose <mg/dL>")
		}
		value, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid glucose value %q", fields[1])
		}
		level, trend, err := session.RecordGlucose(value)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(stdout, "recorded: %d mg/dL (%s)\n", level, trend)
		return false, nil

	case "/water":
		if len(fields) != 2 {
			return false, errors.New("usage: /water <ml>")
		}
		ml, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid water amount %q", fields[1])
		}
		total, err := session.RecordWater(ml)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(stdout, "water today: %d ml\n", total)
		return false, nil

	case "/sleep":
		_, err := session.SleepTransition(ctx, false)
		if err == nil {
			fmt.Fprintln(stdout, "good night")
		}
		return false, err

	case "/wake":
		briefing, err := session.SleepTransition(ctx, true)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(stdout, "\n[lumen] %s\n", briefing)
		return false, nil

	case "/snapshot":
		snapshot, err := session.Manager().Snapshot()
		if err != nil {
			return false, err
		}
		data, _ := json.MarshalIndent(snapshot, "", "  ")
		fmt.Fprintln(stdout, string(data))
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}

// runDay exercises a full simulated day against the watch manager with
// no model in the loop: sleep, wake, meals, telemetry and event polls,
// printing everything as it happens.
func runDay(stdout io.Writer, a *app) error {
	manager := a.registry.Get(a.cfg.User.Name)

	if _, err := manager.SleepTransition(false); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "sleep onset recorded")

	summary, err := manager.SleepTransition(true)
	if err != nil {
		return err
	}
	printJSON(stdout, "morning summary", summary)

	snapshot, err := manager.Snapshot()
	if err != nil {
		return err
	}
	printJSON(stdout, "snapshot", snapshot)

	if err := manager.RecordMeal(health.MealBreakfast, []string{"oatmeal with berries", "green tea"}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "after breakfast glucose: %d mg/dL\n", manager.State().Glucose.Current)

	fired := manager.CheckEvents()
	printJSON(stdout, "events", fired)
	return nil
}

func runSnapshot(stdout io.Writer, a *app) error {
	snapshot, err := a.registry.Get(a.cfg.User.Name).Snapshot()
	if err != nil {
		return err
	}
	printJSON(stdout, "snapshot", snapshot)
	return nil
}

func printJSON(w io.Writer, label string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%s: <unencodable: %s>\n", label, err)
		return
	}
	fmt.Fprintf(w, "%s:\n%s\n", label, data)
}

// runServe starts the local API server and blocks until a signal.
func runServe(ctx context.Context, a *app) error {
	server := api.New(a.cfg.Listen.Address, a.cfg.Listen.Port, a.cfg.User.Name, a.registry, a.bus, a.logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
