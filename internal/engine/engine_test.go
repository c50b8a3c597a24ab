package engine

import (
	"bytes"
	"context"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"repopolicy/internal/checks"
	"repopolicy/internal/config"
	"repopolicy/internal/inspector"
	"repopolicy/internal/throttle"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Target.Owner = "acme"
	cfg.Target.Repository = "acme/repo"
	cfg.Target.SHA = "abc123"
	cfg.Auth.Token = "tok"
	cfg.Output.NoSummary = true
	return cfg
}

// recordingRun replaces RunChecks and records what the engine asked for.
type recordingRun struct {
	ids      []string
	checks   []checks.Check
	capacity int
	pacing   time.Duration
	report   Report
}

func (r *recordingRun) run(_ context.Context, cs []checks.Check, _ inspector.Inspector, capacity int, pacing time.Duration) Report {
	for _, c := range cs {
		r.ids = append(r.ids, c.ID())
	}
	r.checks = cs
	r.capacity = capacity
	r.pacing = pacing
	return r.report
}

func newTestEngine(rec *recordingRun) (*Engine, *bytes.Buffer) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := NewEngine(&fakeInspector{}, logger)
	e.runChecks = rec.run
	return e, &logs
}

func TestEngine_Run_SelectsEnabledChecks(t *testing.T) {
	rec := &recordingRun{report: Aggregate([]Result{
		{CheckID: "copilot-ignore", Outcome: checks.Failure(checks.ReasonNotFound, "missing")},
	})}
	e, logs := newTestEngine(rec)

	cfg := testConfig()
	cfg.Checks.Toggles["dependabot"] = false
	cfg.Checks.Toggles["webhook"] = false
	cfg.Runtime.Capacity = 3
	cfg.Runtime.Pacing = 5 * time.Millisecond

	report, err := e.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := []string{"bundler-audit", "copilot-ignore", "default-branch-protected"}
	if !reflect.DeepEqual(rec.ids, want) {
		t.Fatalf("selected %v, want %v", rec.ids, want)
	}
	if rec.capacity != 3 || rec.pacing != 5*time.Millisecond {
		t.Fatalf("unexpected throttle settings: %d, %s", rec.capacity, rec.pacing)
	}
	if report.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", report.ExitCode())
	}
	out := logs.String()
	if !strings.Contains(out, "checks=3") || !strings.Contains(out, "verdict=failure") {
		t.Fatalf("expected progress logging, got:\n%s", out)
	}
}

func TestEngine_Run_AllTogglesOff(t *testing.T) {
	rec := &recordingRun{report: Aggregate(nil)}
	e, _ := newTestEngine(rec)

	cfg := testConfig()
	for name := range cfg.Checks.Toggles {
		cfg.Checks.Toggles[name] = false
	}
	report, err := e.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(rec.ids) != 0 {
		t.Fatalf("expected no checks, got %v", rec.ids)
	}
	if report.Verdict != VerdictSuccess {
		t.Fatalf("expected success, got %s", report.Verdict)
	}
}

func ranCheck(t *testing.T, rec *recordingRun, id string) checks.Check {
	t.Helper()
	for _, c := range rec.checks {
		if c.ID() == id {
			return c
		}
	}
	t.Fatalf("check %q was not run", id)
	return nil
}

func TestEngine_Run_AppliesOptions(t *testing.T) {
	rec := &recordingRun{}
	e, _ := newTestEngine(rec)

	cfg := testConfig()
	cfg.Checks.Options = map[string]map[string]string{
		"bundler-audit": {"config_path": "config/audit.yml"},
	}
	if _, err := e.Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	insp := &fakeInspector{}
	out := ranCheck(t, rec, "bundler-audit").Run(context.Background(), throttle.New(1, 0), insp)
	if len(out) != 1 || out[0].Message != "Found a `config/audit.yml` file." {
		t.Fatalf("expected configured path to be used, got %+v", out)
	}

	// The registered check is shared across runs and keeps its default.
	registered, _ := checks.Lookup("bundler-audit")
	if registered == ranCheck(t, rec, "bundler-audit") {
		t.Fatalf("expected a configured copy, got the registered instance")
	}
	out = registered.Run(context.Background(), throttle.New(1, 0), insp)
	if len(out) != 1 || out[0].Message != "Found a `.bundler-audit.yml` file." {
		t.Fatalf("expected registered check to keep its default, got %+v", out)
	}
}

func TestPrepareChecks_ConcurrentRunsDoNotShareOptions(t *testing.T) {
	paths := []string{"a/audit.yml", "b/audit.yml", "c/audit.yml", "d/audit.yml"}
	prepared := make([][]checks.Check, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg := testConfig()
			cfg.Checks.Set = []string{"bundler-audit.config_path=" + path}
			prepared[i], errs[i] = PrepareChecks(cfg)
		}()
	}
	wg.Wait()

	for i, path := range paths {
		if errs[i] != nil {
			t.Fatalf("PrepareChecks(%s) returned error: %v", path, errs[i])
		}
		rec := &recordingRun{checks: prepared[i]}
		out := ranCheck(t, rec, "bundler-audit").Run(context.Background(), throttle.New(1, 0), &fakeInspector{})
		if want := "Found a `" + path + "` file."; len(out) != 1 || out[0].Message != want {
			t.Fatalf("run %d: expected %q, got %+v", i, want, out)
		}
	}
}

func TestPrepareChecks_RejectsOptionsForDisabledCheck(t *testing.T) {
	cfg := testConfig()
	cfg.Checks.Toggles["webhook"] = false
	cfg.Checks.Set = []string{"branch-report-webhook.urls="}

	if _, err := PrepareChecks(cfg); err == nil || !strings.Contains(err.Error(), "urls must list at least one URL") {
		t.Fatalf("expected invalid value error, got %v", err)
	}
}

func TestEngine_Run_RejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		set  []string
		want string
	}{
		{name: "unknown check", set: []string{"nope.x=1"}, want: `unknown check ID "nope"`},
		{name: "not configurable", set: []string{"copilot-ignore.x=1"}, want: `check "copilot-ignore" does not support options`},
		{name: "unknown option", set: []string{"bundler-audit.path=x"}, want: `unknown option "path" for check "bundler-audit"`},
		{name: "invalid value", set: []string{"branch-report-webhook.events="}, want: "events must list at least one event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingRun{}
			e, _ := newTestEngine(rec)
			cfg := testConfig()
			cfg.Checks.Set = tt.set

			_, err := e.Run(context.Background(), cfg)
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
			if rec.ids != nil {
				t.Fatalf("no check may run after a configuration error, ran %v", rec.ids)
			}
		})
	}
}

func TestEngine_Run_NilInspector(t *testing.T) {
	e := NewEngine(nil, nil)
	if _, err := e.Run(context.Background(), testConfig()); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
