package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - action inputs in internal/config/input.go
	// - CLI flags in internal/cli/check.go
	// - the policy file schema in internal/config/file.go
	Target  Target
	Auth    Auth
	Checks  Checks
	Output  Output
	Runtime Runtime
}

type Target struct {
	// Owner is the repository owner (GITHUB_REPOSITORY_OWNER, see --owner).
	Owner string

	// Repository is OWNER/NAME (GITHUB_REPOSITORY, see --repository). A bare
	// NAME is resolved against Owner.
	Repository string

	// SHA is the commit files are read at (GITHUB_SHA, see --sha).
	SHA string

	// APIURL is the REST endpoint (GITHUB_API_URL, see --api-url). Empty
	// means github.com.
	APIURL string
}

type Auth struct {
	// Token reads contents, branches and metadata (GITHUB_TOKEN).
	Token string

	// AccessToken reads admin-only settings: vulnerability alerts and webhooks
	// (INPUT_ACCESS_TOKEN). Falls back to Token.
	AccessToken string
}

type Checks struct {
	// Toggles enables or disables check groups by toggle name. See Toggles.
	Toggles map[string]bool

	// Set provides per-check option overrides from the CLI.
	// Entries are of the form checkID.option=value (repeatable; comma-separated accepted; see --set).
	Set []string

	// Options holds per-check options loaded from the policy file. Set wins
	// over Options for the same check and option.
	Options map[string]map[string]string

	// File is the optional YAML policy file (INPUT_CONFIG, see --config).
	File string
}

type Output struct {
	// Summary is the Markdown file the report is appended to (GITHUB_STEP_SUMMARY, see --summary).
	Summary string

	// NoSummary skips the Markdown summary (see --no-summary).
	NoSummary bool

	// ConsoleFormat controls the console sink format (see --console-format).
	// Allowed values: text, github, json.
	ConsoleFormat string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string
}

type Runtime struct {
	// Capacity is the number of GitHub calls allowed in flight at once (see --capacity).
	Capacity int

	// Pacing is the delay applied to every call once a slot is free (see --pacing).
	Pacing time.Duration

	// CallTimeout bounds each GitHub lookup (see --call-timeout). Zero disables it.
	CallTimeout time.Duration

	// Verbose enables debug logging, including every GitHub API call.
	Verbose bool
}

// Toggle enables a group of checks through one boolean input.
type Toggle struct {
	Name   string
	Env    string
	Checks []string
}

// Toggles lists the check groups in the order they are reported.
var Toggles = []Toggle{
	{Name: "branch-protection", Env: EnvCheckBranchProtection, Checks: []string{"default-branch-protected"}},
	{Name: "copilot", Env: EnvCheckCopilot, Checks: []string{"copilot-ignore"}},
	{Name: "dependabot", Env: EnvCheckDependabot, Checks: []string{"dependabot-config", "dependabot-enabled"}},
	{Name: "bundler-audit", Env: EnvCheckBundlerAudit, Checks: []string{"bundler-audit"}},
	{Name: "webhook", Env: EnvCheckWebhook, Checks: []string{"branch-report-webhook"}},
}

func LookupToggle(name string) (Toggle, bool) {
	for _, t := range Toggles {
		if t.Name == name {
			return t, true
		}
	}
	return Toggle{}, false
}

func New() *Config {
	toggles := make(map[string]bool, len(Toggles))
	for _, t := range Toggles {
		toggles[t.Name] = true
	}
	return &Config{
		Checks: Checks{
			Toggles: toggles,
		},
		Output: Output{
			ConsoleFormat: "github",
		},
		Runtime: Runtime{
			Capacity:    2,
			Pacing:      100 * time.Millisecond,
			CallTimeout: 30 * time.Second,
		},
	}
}

// Validate normalizes c and reports every problem found, joined into one
// error, so a misconfigured run can be fixed in a single pass.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	c.Target.Owner = strings.TrimSpace(c.Target.Owner)
	c.Target.Repository = strings.TrimSpace(c.Target.Repository)
	c.Target.SHA = strings.TrimSpace(c.Target.SHA)
	c.Target.APIURL = strings.TrimSpace(c.Target.APIURL)
	c.Auth.Token = strings.TrimSpace(c.Auth.Token)
	c.Auth.AccessToken = strings.TrimSpace(c.Auth.AccessToken)
	c.Checks.Set = splitCommaList(c.Checks.Set)

	if c.Target.Owner == "" {
		add("%s was not provided (or pass --owner)", EnvRepositoryOwner)
	}
	if c.Target.Repository == "" {
		add("%s was not provided (or pass --repository)", EnvRepository)
	}
	if c.Target.SHA == "" {
		add("%s was not provided (or pass --sha)", EnvSHA)
	}
	if c.Auth.Token == "" {
		add("%s was not provided", EnvToken)
	}
	if c.Auth.AccessToken == "" {
		c.Auth.AccessToken = c.Auth.Token
	}
	if c.Target.Owner != "" && c.Target.Repository != "" {
		if _, _, err := c.RepositoryParts(); err != nil {
			errs = append(errs, err)
		}
	}

	c.Output.Summary = strings.TrimSpace(c.Output.Summary)
	if !c.Output.NoSummary && c.Output.Summary == "" {
		add("%s was not provided (or pass --summary / --no-summary)", EnvStepSummary)
	}

	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	switch c.Output.ConsoleFormat {
	case "text", "github", "json":
	case "":
		add("--console-format must be one of: text, github, json")
	default:
		add("unsupported --console-format: %s (must be one of: text, github, json)", c.Output.ConsoleFormat)
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson":
				c.Output.OutFormat = "ndjson"
			case "":
				add("cannot infer output format from file extension (missing extension); use --out-format")
			default:
				add("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			add("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	if c.Runtime.Capacity < 1 {
		add("--capacity must be >= 1")
	}
	if c.Runtime.Pacing < 0 {
		add("--pacing must be >= 0")
	}
	if c.Runtime.CallTimeout < 0 {
		add("--call-timeout must be >= 0")
	}

	for name := range c.Checks.Toggles {
		if _, ok := LookupToggle(name); !ok {
			add("unknown check toggle %q", name)
		}
	}

	// Check option syntax validation (check.option=value)
	if len(c.Checks.Set) > 0 {
		if _, err := ParseCheckOptionAssignments(c.Checks.Set); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// RepositoryParts splits the target into owner and repository name. The
// repository must belong to Owner.
func (c *Config) RepositoryParts() (owner, name string, err error) {
	owner = c.Target.Owner
	repo := c.Target.Repository
	if prefix, rest, ok := strings.Cut(repo, "/"); ok {
		if !strings.EqualFold(prefix, owner) {
			return "", "", fmt.Errorf("%s %q does not belong to %s %q", EnvRepository, repo, EnvRepositoryOwner, owner)
		}
		repo = rest
	}
	if repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid %s %q: expected OWNER/NAME", EnvRepository, c.Target.Repository)
	}
	return owner, repo, nil
}

// EnabledChecks returns the IDs of checks switched on by Toggles, sorted.
func (c *Config) EnabledChecks() []string {
	var ids []string
	for _, t := range Toggles {
		if c.Checks.Toggles[t.Name] {
			ids = append(ids, t.Checks...)
		}
	}
	sort.Strings(ids)
	return ids
}

// CheckOptions merges policy-file options with --set overrides.
func (c *Config) CheckOptions() (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for id, opts := range c.Checks.Options {
		out[id] = make(map[string]string, len(opts))
		for k, v := range opts {
			out[id][k] = v
		}
	}
	set, err := ParseCheckOptionAssignments(c.Checks.Set)
	if err != nil {
		return nil, err
	}
	for id, opts := range set {
		if out[id] == nil {
			out[id] = make(map[string]string, len(opts))
		}
		for k, v := range opts {
			out[id][k] = v
		}
	}
	return out, nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseCheckOptionAssignments parses values of the form "checkID.option=value".
//
// Notes:
// - Entries may be provided via repeated flags and/or comma-delimited lists.
// - A comma-separated piece without "=" continues the previous value, so list
//   options can be written as "check.urls=a,b".
// - This validates syntax only (no validation of check IDs or option names).
// - Empty values are allowed ("check.option=").
func ParseCheckOptionAssignments(values []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	var lastID, lastOpt string
	for _, raw := range splitCommaList(values) {
		left, value, ok := strings.Cut(raw, "=")
		if !ok {
			if lastID == "" {
				return nil, fmt.Errorf("invalid --set entry %q: expected check.option=value", raw)
			}
			if prev := out[lastID][lastOpt]; prev != "" {
				out[lastID][lastOpt] = prev + "," + raw
			} else {
				out[lastID][lastOpt] = raw
			}
			continue
		}
		checkID, opt, ok := strings.Cut(strings.TrimSpace(left), ".")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected check.option=value", raw)
		}
		checkID = strings.TrimSpace(checkID)
		opt = strings.TrimSpace(opt)
		if checkID == "" || opt == "" {
			return nil, fmt.Errorf("invalid --set entry %q: expected non-empty check and option", raw)
		}
		if _, ok := out[checkID]; !ok {
			out[checkID] = make(map[string]string)
		}
		out[checkID][opt] = strings.TrimSpace(value)
		lastID, lastOpt = checkID, opt
	}
	return out, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
