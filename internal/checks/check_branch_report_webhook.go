package checks

import (
	"context"
	"fmt"
	"strings"

	"repopolicy/internal/inspector"
	"repopolicy/internal/throttle"
)

var (
	defaultReportURLs = []string{
		"https://us-central1-active-branches-report.cloudfunctions.net/webhook",
		"https://yellr.app/webhook",
	}
	defaultReportEvents = []string{
		"create",
		"delete",
		"pull_request",
		"pull_request_review",
		"push",
		"workflow_run",
	}
)

const reportContentType = "json"

// BranchReportWebhookCheck requires a webhook that feeds the Yellr branch
// activity report.
type BranchReportWebhookCheck struct {
	urls   []string
	events []string
}

func (c *BranchReportWebhookCheck) ID() string {
	return "branch-report-webhook"
}

func (c *BranchReportWebhookCheck) Title() string {
	return "Repository Reports to Yellr"
}

func (c *BranchReportWebhookCheck) Description() string {
	return "Verifies that the repository has an active webhook delivering JSON payloads to an approved " +
		"Yellr endpoint and subscribed to every event the branch report needs " +
		"(create, delete, pull_request, pull_request_review, push, workflow_run by default).\n\n" +
		"Listing webhooks requires repository admin rights; the access token input is used when set."
}

func (c *BranchReportWebhookCheck) Options() []Option {
	return []Option{
		{
			Name:        "urls",
			Description: "Comma-separated list of accepted webhook URLs.",
			Default:     strings.Join(defaultReportURLs, ","),
		},
		{
			Name:        "events",
			Description: "Comma-separated list of events the webhook must subscribe to.",
			Default:     strings.Join(defaultReportEvents, ","),
		},
	}
}

func (c *BranchReportWebhookCheck) Configure(opts map[string]string) error {
	c.urls = append([]string(nil), defaultReportURLs...)
	c.events = append([]string(nil), defaultReportEvents...)

	if v, ok := opts["urls"]; ok {
		urls := splitList(v)
		if len(urls) == 0 {
			return fmt.Errorf("urls must list at least one URL")
		}
		c.urls = urls
	}
	if v, ok := opts["events"]; ok {
		events := splitList(v)
		if len(events) == 0 {
			return fmt.Errorf("events must list at least one event")
		}
		c.events = events
	}
	return nil
}

func (c *BranchReportWebhookCheck) Clone() ConfigurableCheck {
	return &BranchReportWebhookCheck{
		urls:   append([]string(nil), c.urls...),
		events: append([]string(nil), c.events...),
	}
}

func (c *BranchReportWebhookCheck) Run(ctx context.Context, t *throttle.Throttle, insp inspector.Inspector) []Outcome {
	hooks, err := throttle.Call(t, func() ([]inspector.Webhook, error) {
		return insp.Webhooks(ctx)
	})
	if err != nil {
		return []Outcome{lookupFailure(err,
			"Could not check if repository reports to Yellr",
			"Could not check if repository reports to Yellr: webhooks not found.")}
	}

	var nearest []string
	for _, h := range hooks {
		if !c.approved(h.URL) {
			continue
		}
		problems := c.problems(h)
		if len(problems) == 0 {
			return []Outcome{Pass("Repository reports to Yellr correctly")}
		}
		if nearest == nil || len(problems) < len(nearest) {
			nearest = problems
		}
	}
	if nearest != nil {
		return []Outcome{Failure(ReasonPolicy,
			"Repository does not report to Yellr: webhook "+strings.Join(nearest, "; ")+".")}
	}
	return []Outcome{Failure(ReasonPolicy, "Repository does not report to Yellr.")}
}

func (c *BranchReportWebhookCheck) approved(url string) bool {
	for _, u := range c.urls {
		if u == url {
			return true
		}
	}
	return false
}

// problems lists what keeps an approved-URL hook from satisfying the rule.
func (c *BranchReportWebhookCheck) problems(h inspector.Webhook) []string {
	var out []string
	if !h.Active {
		out = append(out, "is inactive")
	}
	if h.ContentType != reportContentType {
		out = append(out, fmt.Sprintf("content type is %q, want %q", h.ContentType, reportContentType))
	}
	var missing []string
	for _, e := range c.events {
		if !h.Subscribes(e) {
			missing = append(missing, e)
		}
	}
	if len(missing) > 0 {
		out = append(out, "is missing events "+strings.Join(missing, ", "))
	}
	return out
}

func init() {
	c := &BranchReportWebhookCheck{}
	_ = c.Configure(map[string]string{})
	Register(c)
}
