package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"repopolicy/internal/checks"
	"repopolicy/internal/config"
	"repopolicy/internal/inspector"
)

type Engine struct {
	Inspector inspector.Inspector
	Logger    *slog.Logger

	// runChecks is a test seam. If nil, Engine uses RunChecks.
	runChecks func(ctx context.Context, cs []checks.Check, insp inspector.Inspector, capacity int, pacing time.Duration) Report
}

func NewEngine(insp inspector.Inspector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		Inspector: insp,
		Logger:    logger,
	}
}

// Run prepares the checks enabled by cfg, runs them and returns the
// aggregated report. An error means no check was run.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) (Report, error) {
	selected, err := PrepareChecks(cfg)
	if err != nil {
		return Report{}, err
	}
	return e.RunPrepared(ctx, cfg, selected)
}

// RunPrepared runs checks returned by PrepareChecks.
func (e *Engine) RunPrepared(ctx context.Context, cfg *config.Config, selected []checks.Check) (Report, error) {
	if e.Inspector == nil {
		return Report{}, errors.New("engine: inspector is nil")
	}

	ids := make([]string, len(selected))
	for i, c := range selected {
		ids[i] = c.ID()
	}
	e.Logger.Info("running checks",
		"repository", cfg.Target.Repository,
		"sha", cfg.Target.SHA,
		"checks", len(selected),
	)
	e.Logger.Debug("selected checks", "ids", ids,
		"capacity", cfg.Runtime.Capacity, "pacing", cfg.Runtime.Pacing)

	run := e.runChecks
	if run == nil {
		run = RunChecks
	}
	started := time.Now()
	report := run(ctx, selected, e.Inspector, cfg.Runtime.Capacity, cfg.Runtime.Pacing)

	for _, res := range report.Results {
		if res.IsFailure() {
			e.Logger.Debug("check failed", "check", res.CheckID, "reason", res.Reason, "message", res.Message)
		}
	}
	pass, fail, ignore := report.Counts()
	e.Logger.Info("checks finished",
		"verdict", report.Verdict.String(),
		"pass", pass,
		"fail", fail,
		"ignore", ignore,
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return report, nil
}

// PrepareChecks resolves the checks enabled by cfg and validates the per-check
// options. Configurable checks are returned as configured copies, so the
// registered instances keep their defaults and concurrent runs do not share
// state. It makes no network calls and is meant to run before any output is
// opened.
func PrepareChecks(cfg *config.Config) ([]checks.Check, error) {
	selected, err := checks.Resolve(cfg.EnabledChecks())
	if err != nil {
		return nil, fmt.Errorf("resolve checks: %w", err)
	}
	opts, err := cfg.CheckOptions()
	if err != nil {
		return nil, err
	}
	if err := validateCheckOptions(opts); err != nil {
		return nil, fmt.Errorf("configure checks: %w", err)
	}

	out := make([]checks.Check, len(selected))
	for i, c := range selected {
		cc, ok := c.(checks.ConfigurableCheck)
		if !ok {
			out[i] = c
			continue
		}
		configured, err := checks.Configured(cc, optionsFor(opts, c.ID()))
		if err != nil {
			return nil, fmt.Errorf("configure checks: check %q: %w", c.ID(), err)
		}
		out[i] = configured
	}
	return out, nil
}

// validateCheckOptions checks per-check options (policy file and --set)
// against the registry. Values are validated by Configure on a copy even
// when the check is toggled off, so a typo never hides behind a toggle.
//
// Example:
//
//	repopolicy check --set bundler-audit.config_path=config/bundler-audit.yml
func validateCheckOptions(opts map[string]map[string]string) error {
	ids := make([]string, 0, len(opts))
	for id := range opts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c, ok := checks.Lookup(id)
		if !ok {
			return fmt.Errorf("unknown check ID %q", id)
		}
		cc, ok := c.(checks.ConfigurableCheck)
		if !ok {
			return fmt.Errorf("check %q does not support options", id)
		}
		allowed := make(map[string]struct{})
		for _, opt := range cc.Options() {
			allowed[opt.Name] = struct{}{}
		}
		names := make([]string, 0, len(opts[id]))
		for name := range opts[id] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, ok := allowed[name]; !ok {
				return fmt.Errorf("unknown option %q for check %q", name, id)
			}
		}
		if _, err := checks.Configured(cc, opts[id]); err != nil {
			return fmt.Errorf("check %q: %w", id, err)
		}
	}
	return nil
}

func optionsFor(opts map[string]map[string]string, id string) map[string]string {
	if o := opts[id]; o != nil {
		return o
	}
	return map[string]string{}
}
