package checks

import (
	"context"

	"repopolicy/internal/inspector"
	"repopolicy/internal/throttle"
)

const copilotIgnorePath = ".copilotignore"

type CopilotIgnoreCheck struct{}

func (c *CopilotIgnoreCheck) ID() string {
	return "copilot-ignore"
}

func (c *CopilotIgnoreCheck) Title() string {
	return "Private Repository Has .copilotignore"
}

func (c *CopilotIgnoreCheck) Description() string {
	return "Verifies that a private repository carries a `.copilotignore` file at the inspected revision.\n\n" +
		"Public repositories are skipped: the rule does not apply to them and they are left out of the report."
}

func (c *CopilotIgnoreCheck) Run(ctx context.Context, t *throttle.Throttle, insp inspector.Inspector) []Outcome {
	private, err := throttle.Call(t, func() (bool, error) {
		return insp.IsPrivate(ctx)
	})
	if err != nil {
		return []Outcome{lookupFailure(err,
			"Could not determine repository visibility",
			"Could not determine repository visibility: repository not found.")}
	}
	if !private {
		return []Outcome{Ignore()}
	}

	const missing = "Could not find a .copilotignore file for a private repository."
	found, err := throttle.Call(t, func() (bool, error) {
		return insp.FileExists(ctx, copilotIgnorePath)
	})
	if err != nil {
		return []Outcome{lookupFailure(err,
			"Could not find a .copilotignore file for a private repository", missing)}
	}
	if !found {
		return []Outcome{Failure(ReasonNotFound, missing)}
	}
	return []Outcome{Pass("Found a `.copilotignore` file for a private repository.")}
}

func init() {
	Register(&CopilotIgnoreCheck{})
}
