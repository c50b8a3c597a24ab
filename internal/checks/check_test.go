package checks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"repopolicy/internal/inspector"
	"repopolicy/internal/throttle"
)

func statusErr(code int) error {
	kind := inspector.ErrNotFound
	switch code {
	case 401:
		kind = inspector.ErrAccessDenied
	case 403:
		kind = inspector.ErrForbidden
	}
	return &inspector.APIError{Op: "test", StatusCode: code, Kind: kind, Err: fmt.Errorf("status %d", code)}
}

var errTransport = errors.New("dial tcp: connection refused")

// run executes c against a strict mock configured by expect.
func run(t *testing.T, c Check, expect func(m *inspector.MockInspector)) []Outcome {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := inspector.NewMockInspector(ctrl)
	if expect != nil {
		expect(m)
	}
	th := throttle.New(2, 0)
	out := c.Run(context.Background(), th, m)
	assert.Equal(t, 0, th.InUse(), "every permit must be released when the check returns")
	return out
}

func single(t *testing.T, out []Outcome) Outcome {
	t.Helper()
	require.Len(t, out, 1)
	return out[0]
}

func TestOutcomeConstructors(t *testing.T) {
	p := Pass("ok")
	assert.Equal(t, KindPass, p.Kind)
	assert.Equal(t, "ok", p.Message)
	assert.False(t, p.IsFailure())

	f := Failure(ReasonNotFound, "missing file")
	assert.True(t, f.IsFailure())
	assert.Equal(t, ReasonNotFound, f.Reason)
	assert.Equal(t, "FAIL: missing file", f.String())

	i := Ignore()
	assert.True(t, i.IsIgnore())
	assert.Empty(t, i.Message)
	assert.Equal(t, "IGNORE", i.String())
}

func TestLookupFailure_MessagesDistinguishStatuses(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		reason  Reason
		message string
	}{
		{name: "401", err: statusErr(401), reason: ReasonAccessDenied, message: "Could not read x: Access denied."},
		{name: "403", err: statusErr(403), reason: ReasonForbidden, message: "Could not read x: Access forbidden."},
		{name: "404", err: statusErr(404), reason: ReasonNotFound, message: "x not found."},
		{name: "500", err: statusErr(500), reason: ReasonNotFound, message: "x not found."},
		{name: "malformed", err: fmt.Errorf("decode: %w", inspector.ErrMalformed), reason: ReasonMalformed, message: "Could not read x: response could not be parsed."},
		{name: "transport", err: errTransport, reason: ReasonRequestFailure, message: "Could not read x: Request failure."},
		{name: "deadline", err: context.DeadlineExceeded, reason: ReasonRequestFailure, message: "Could not read x: Request failure."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lookupFailure(tt.err, "Could not read x", "x not found.")
			assert.Equal(t, KindFailure, got.Kind)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestDefaultBranchProtectedCheck(t *testing.T) {
	c := &DefaultBranchProtectedCheck{}

	t.Run("protected", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().DefaultBranch(gomock.Any()).Return("main", nil)
			m.EXPECT().ProtectedBranches(gomock.Any()).Return(map[string]struct{}{"main": {}, "release": {}}, nil)
		})
		assert.Equal(t, Pass("Default Branch is Protected"), single(t, out))
	})

	t.Run("other branches protected only", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().DefaultBranch(gomock.Any()).Return("main", nil)
			m.EXPECT().ProtectedBranches(gomock.Any()).Return(map[string]struct{}{"release": {}}, nil)
		})
		got := single(t, out)
		assert.Equal(t, KindFailure, got.Kind)
		assert.Equal(t, ReasonPolicy, got.Reason)
		assert.Equal(t, "Default Branch is not Protected", got.Message)
	})

	t.Run("metadata failure skips branch listing", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().DefaultBranch(gomock.Any()).Return("", statusErr(401))
		})
		got := single(t, out)
		assert.Equal(t, ReasonAccessDenied, got.Reason)
		assert.Contains(t, got.Message, "default branch")
	})

	t.Run("branch listing transport error", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().DefaultBranch(gomock.Any()).Return("main", nil)
			m.EXPECT().ProtectedBranches(gomock.Any()).Return(nil, errTransport)
		})
		got := single(t, out)
		assert.Equal(t, ReasonRequestFailure, got.Reason)
		assert.Contains(t, got.Message, "Request failure")
	})
}

func TestCopilotIgnoreCheck(t *testing.T) {
	c := &CopilotIgnoreCheck{}

	t.Run("public repository is ignored without further lookups", func(t *testing.T) {
		// The mock is strict: a File call here would fail the test.
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().IsPrivate(gomock.Any()).Return(false, nil)
		})
		assert.Equal(t, []Outcome{Ignore()}, out)
	})

	t.Run("private with file", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().IsPrivate(gomock.Any()).Return(true, nil)
			m.EXPECT().FileExists(gomock.Any(), ".copilotignore").Return(true, nil)
		})
		assert.Equal(t, KindPass, single(t, out).Kind)
	})

	t.Run("private without file", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().IsPrivate(gomock.Any()).Return(true, nil)
			m.EXPECT().FileExists(gomock.Any(), ".copilotignore").Return(false, nil)
		})
		got := single(t, out)
		assert.Equal(t, ReasonNotFound, got.Reason)
		assert.Equal(t, "Could not find a .copilotignore file for a private repository.", got.Message)
	})

	t.Run("file lookup fails", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().IsPrivate(gomock.Any()).Return(true, nil)
			m.EXPECT().FileExists(gomock.Any(), ".copilotignore").Return(false, errTransport)
		})
		got := single(t, out)
		assert.Equal(t, ReasonRequestFailure, got.Reason)
		assert.Equal(t, "Could not find a .copilotignore file for a private repository: Request failure.", got.Message)
	})

	t.Run("visibility forbidden", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().IsPrivate(gomock.Any()).Return(false, statusErr(403))
		})
		got := single(t, out)
		assert.Equal(t, ReasonForbidden, got.Reason)
		assert.Contains(t, got.Message, "Access forbidden")
	})
}

func TestDependabotEnabledCheck(t *testing.T) {
	c := &DependabotEnabledCheck{}

	tests := []struct {
		name    string
		enabled bool
		err     error
		want    Outcome
	}{
		{name: "enabled", enabled: true, want: Pass("Dependabot is enabled")},
		{name: "disabled", enabled: false, want: Failure(ReasonPolicy, "Dependabot not enabled. Endpoint returned 404.")},
		{name: "401", err: statusErr(401), want: Failure(ReasonAccessDenied, "Could not check if dependabot was enabled: Access denied.")},
		{name: "403", err: statusErr(403), want: Failure(ReasonForbidden, "Could not check if dependabot was enabled: Access forbidden.")},
		{name: "502", err: statusErr(502), want: Failure(ReasonNotFound, "Dependabot not enabled. Endpoint returned 502.")},
		{name: "transport", err: errTransport, want: Failure(ReasonRequestFailure, "Could not check if dependabot was enabled: Request failure.")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, c, func(m *inspector.MockInspector) {
				m.EXPECT().VulnerabilityAlertsEnabled(gomock.Any()).Return(tt.enabled, tt.err)
			})
			assert.Equal(t, tt.want, single(t, out))
		})
	}
}

const validDependabot = `version: 2
updates:
  - package-ecosystem: gomod
    directory: /
    schedule:
      interval: weekly
`

func TestDependabotConfigCheck(t *testing.T) {
	c := &DependabotConfigCheck{}

	t.Run("yml found", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().File(gomock.Any(), ".github/dependabot.yml").Return([]byte(validDependabot), nil)
		})
		assert.Equal(t, Pass("Found a `.github/dependabot.yml`"), single(t, out))
	})

	t.Run("falls back to yaml spelling", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			gomock.InOrder(
				m.EXPECT().File(gomock.Any(), ".github/dependabot.yml").Return(nil, statusErr(404)),
				m.EXPECT().File(gomock.Any(), ".github/dependabot.yaml").Return([]byte(validDependabot), nil),
			)
		})
		assert.Equal(t, Pass("Found a `.github/dependabot.yaml`"), single(t, out))
	})

	t.Run("neither file names the expected path", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().File(gomock.Any(), ".github/dependabot.yml").Return(nil, statusErr(404))
			m.EXPECT().File(gomock.Any(), ".github/dependabot.yaml").Return(nil, statusErr(404))
		})
		got := single(t, out)
		assert.Equal(t, ReasonNotFound, got.Reason)
		assert.Equal(t, "Could not find a .github/dependabot.yml file.", got.Message)
	})

	t.Run("access denied does not fall back", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().File(gomock.Any(), ".github/dependabot.yml").Return(nil, statusErr(401))
		})
		got := single(t, out)
		assert.Equal(t, ReasonAccessDenied, got.Reason)
		assert.Equal(t, "Could not find a .github/dependabot.yml file: Access denied.", got.Message)
		assert.NotEqual(t, "Could not find a .github/dependabot.yml file.", got.Message)
	})

	t.Run("unparseable", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().File(gomock.Any(), ".github/dependabot.yml").Return([]byte("version: [2\n"), nil)
		})
		assert.Equal(t, ReasonMalformed, single(t, out).Reason)
	})

	t.Run("wrong version", func(t *testing.T) {
		out := run(t, c, func(m *inspector.MockInspector) {
			m.EXPECT().File(gomock.Any(), ".github/dependabot.yml").Return([]byte("version: 1\nupdates: []\n"), nil)
		})
		got := single(t, out)
		assert.Equal(t, ReasonPolicy, got.Reason)
		assert.Contains(t, got.Message, "version must be 2")
	})
}

func TestValidateDependabotConfig(t *testing.T) {
	require.NoError(t, validateDependabotConfig([]byte(validDependabot)))

	err := validateDependabotConfig([]byte("version: 2\nupdates: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no updates")

	err = validateDependabotConfig([]byte("version: 2\nupdates:\n  - directories: [\"/a\"]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package-ecosystem")
	assert.Contains(t, err.Error(), "schedule interval")
	assert.NotContains(t, err.Error(), "no directory")
}

func TestBundlerAuditCheck(t *testing.T) {
	newCheck := func(t *testing.T, opts map[string]string) *BundlerAuditCheck {
		c := &BundlerAuditCheck{}
		require.NoError(t, c.Configure(opts))
		return c
	}

	t.Run("no ruby manifests is ignored", func(t *testing.T) {
		out := run(t, newCheck(t, nil), func(m *inspector.MockInspector) {
			m.EXPECT().FileExists(gomock.Any(), "Gemfile.lock").Return(false, nil)
			m.EXPECT().FileExists(gomock.Any(), "Gemfile").Return(false, nil)
		})
		assert.Equal(t, []Outcome{Ignore()}, out)
	})

	t.Run("lockfile skips Gemfile lookup", func(t *testing.T) {
		out := run(t, newCheck(t, nil), func(m *inspector.MockInspector) {
			m.EXPECT().FileExists(gomock.Any(), "Gemfile.lock").Return(true, nil)
			m.EXPECT().FileExists(gomock.Any(), ".bundler-audit.yml").Return(true, nil)
		})
		assert.Equal(t, Pass("Found a `.bundler-audit.yml` file."), single(t, out))
	})

	t.Run("Gemfile without companion", func(t *testing.T) {
		out := run(t, newCheck(t, nil), func(m *inspector.MockInspector) {
			m.EXPECT().FileExists(gomock.Any(), "Gemfile.lock").Return(false, nil)
			m.EXPECT().FileExists(gomock.Any(), "Gemfile").Return(true, nil)
			m.EXPECT().FileExists(gomock.Any(), ".bundler-audit.yml").Return(false, nil)
		})
		got := single(t, out)
		assert.Equal(t, ReasonNotFound, got.Reason)
		assert.Equal(t, "Could not find a `.bundler-audit.yml` file.", got.Message)
	})

	t.Run("manifest lookup denied", func(t *testing.T) {
		out := run(t, newCheck(t, nil), func(m *inspector.MockInspector) {
			m.EXPECT().FileExists(gomock.Any(), "Gemfile.lock").Return(false, statusErr(401))
		})
		got := single(t, out)
		assert.Equal(t, ReasonAccessDenied, got.Reason)
		assert.Equal(t, "Could not check for a Gemfile.lock file: Access denied.", got.Message)
	})

	t.Run("custom config path", func(t *testing.T) {
		out := run(t, newCheck(t, map[string]string{"config_path": "config/bundler-audit.yml"}), func(m *inspector.MockInspector) {
			m.EXPECT().FileExists(gomock.Any(), "Gemfile.lock").Return(true, nil)
			m.EXPECT().FileExists(gomock.Any(), "config/bundler-audit.yml").Return(true, nil)
		})
		assert.Equal(t, KindPass, single(t, out).Kind)
	})

	t.Run("empty config path rejected", func(t *testing.T) {
		c := &BundlerAuditCheck{}
		assert.Error(t, c.Configure(map[string]string{"config_path": " "}))
	})
}

func TestBranchReportWebhookCheck(t *testing.T) {
	allEvents := []string{"create", "delete", "pull_request", "pull_request_review", "push", "workflow_run"}
	good := inspector.Webhook{URL: "https://yellr.app/webhook", ContentType: "json", Active: true, Events: allEvents}

	newCheck := func(t *testing.T, opts map[string]string) *BranchReportWebhookCheck {
		c := &BranchReportWebhookCheck{}
		require.NoError(t, c.Configure(opts))
		return c
	}

	tests := []struct {
		name    string
		opts    map[string]string
		hooks   []inspector.Webhook
		kind    Kind
		message string
	}{
		{
			name:    "matching hook",
			hooks:   []inspector.Webhook{{URL: "https://example.com"}, good},
			kind:    KindPass,
			message: "Repository reports to Yellr correctly",
		},
		{
			name:    "legacy endpoint",
			hooks:   []inspector.Webhook{{URL: defaultReportURLs[0], ContentType: "json", Active: true, Events: []string{"*"}}},
			kind:    KindPass,
			message: "Repository reports to Yellr correctly",
		},
		{
			name:    "no hooks",
			kind:    KindFailure,
			message: "Repository does not report to Yellr.",
		},
		{
			name:    "inactive hook with missing events",
			hooks:   []inspector.Webhook{{URL: good.URL, ContentType: "json", Active: false, Events: []string{"push"}}},
			kind:    KindFailure,
			message: "Repository does not report to Yellr: webhook is inactive; is missing events create, delete, pull_request, pull_request_review, workflow_run.",
		},
		{
			name:    "form content type",
			hooks:   []inspector.Webhook{{URL: good.URL, ContentType: "form", Active: true, Events: allEvents}},
			kind:    KindFailure,
			message: `Repository does not report to Yellr: webhook content type is "form", want "json".`,
		},
		{
			name:    "custom url and events",
			opts:    map[string]string{"urls": "https://hooks.internal/report", "events": "push"},
			hooks:   []inspector.Webhook{{URL: "https://hooks.internal/report", ContentType: "json", Active: true, Events: []string{"push"}}},
			kind:    KindPass,
			message: "Repository reports to Yellr correctly",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, newCheck(t, tt.opts), func(m *inspector.MockInspector) {
				m.EXPECT().Webhooks(gomock.Any()).Return(tt.hooks, nil)
			})
			got := single(t, out)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.message, got.Message)
		})
	}

	t.Run("listing failure", func(t *testing.T) {
		out := run(t, newCheck(t, nil), func(m *inspector.MockInspector) {
			m.EXPECT().Webhooks(gomock.Any()).Return(nil, errTransport)
		})
		assert.Equal(t, Failure(ReasonRequestFailure, "Could not check if repository reports to Yellr: Request failure."), single(t, out))
	})

	t.Run("empty option rejected", func(t *testing.T) {
		c := &BranchReportWebhookCheck{}
		assert.Error(t, c.Configure(map[string]string{"urls": " , "}))
	})
}

func TestConfigured_LeavesOriginalUntouched(t *testing.T) {
	webhook := &BranchReportWebhookCheck{}
	require.NoError(t, webhook.Configure(nil))
	bundler := &BundlerAuditCheck{}
	require.NoError(t, bundler.Configure(nil))

	got, err := Configured(webhook, map[string]string{"urls": "https://hooks.example.com", "events": "push"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://hooks.example.com"}, got.(*BranchReportWebhookCheck).urls)
	assert.Equal(t, defaultReportURLs, webhook.urls)
	assert.Equal(t, defaultReportEvents, webhook.events)

	got, err = Configured(bundler, map[string]string{"config_path": "config/audit.yml"})
	require.NoError(t, err)
	assert.Equal(t, "config/audit.yml", got.(*BundlerAuditCheck).configPath)
	assert.Equal(t, defaultBundlerAuditConfig, bundler.configPath)

	_, err = Configured(bundler, map[string]string{"config_path": ""})
	assert.Error(t, err)
	assert.Equal(t, defaultBundlerAuditConfig, bundler.configPath)
}

func TestChecks_ReleasePermitBetweenLookups(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := inspector.NewMockInspector(ctrl)
	th := throttle.New(1, 0)

	// With a single slot, holding the first permit across the second lookup
	// would deadlock; observe the slot count inside each call instead.
	m.EXPECT().FileExists(gomock.Any(), "Gemfile.lock").DoAndReturn(func(context.Context, string) (bool, error) {
		assert.Equal(t, 1, th.InUse())
		return false, nil
	})
	m.EXPECT().FileExists(gomock.Any(), "Gemfile").DoAndReturn(func(context.Context, string) (bool, error) {
		assert.Equal(t, 1, th.InUse())
		return true, nil
	})
	m.EXPECT().FileExists(gomock.Any(), ".bundler-audit.yml").DoAndReturn(func(context.Context, string) (bool, error) {
		assert.Equal(t, 1, th.InUse())
		return true, nil
	})

	c := &BundlerAuditCheck{}
	require.NoError(t, c.Configure(nil))
	out := c.Run(context.Background(), th, m)
	assert.Equal(t, KindPass, single(t, out).Kind)
	assert.Equal(t, 0, th.InUse())
}
