package checks

import (
	"context"
	"fmt"
	"net/http"

	"repopolicy/internal/inspector"
	"repopolicy/internal/throttle"
)

type DependabotEnabledCheck struct{}

func (c *DependabotEnabledCheck) ID() string {
	return "dependabot-enabled"
}

func (c *DependabotEnabledCheck) Title() string {
	return "Dependabot Alerts Enabled"
}

func (c *DependabotEnabledCheck) Description() string {
	return "Verifies that Dependabot vulnerability alerts are enabled for the repository.\n\n" +
		"Reading this setting requires repository admin rights; the access token input is used when set."
}

func (c *DependabotEnabledCheck) Run(ctx context.Context, t *throttle.Throttle, insp inspector.Inspector) []Outcome {
	enabled, err := throttle.Call(t, func() (bool, error) {
		return insp.VulnerabilityAlertsEnabled(ctx)
	})
	if err != nil {
		code := inspector.StatusCode(err)
		if code == 0 {
			code = http.StatusNotFound
		}
		return []Outcome{lookupFailure(err,
			"Could not check if dependabot was enabled",
			fmt.Sprintf("Dependabot not enabled. Endpoint returned %d.", code))}
	}
	if !enabled {
		return []Outcome{Failure(ReasonPolicy,
			fmt.Sprintf("Dependabot not enabled. Endpoint returned %d.", http.StatusNotFound))}
	}
	return []Outcome{Pass("Dependabot is enabled")}
}

func init() {
	Register(&DependabotEnabledCheck{})
}
