package checks

import (
	"context"

	"repopolicy/internal/inspector"
	"repopolicy/internal/throttle"
)

type DefaultBranchProtectedCheck struct{}

func (c *DefaultBranchProtectedCheck) ID() string {
	return "default-branch-protected"
}

func (c *DefaultBranchProtectedCheck) Title() string {
	return "Default Branch Is Protected"
}

func (c *DefaultBranchProtectedCheck) Description() string {
	return "Verifies that the repository's default branch appears in the list of protected branches.\n\n" +
		"The default branch name is read from the repository metadata and compared against the " +
		"branches GitHub reports as protected. The check fails if the default branch is not among them."
}

func (c *DefaultBranchProtectedCheck) Run(ctx context.Context, t *throttle.Throttle, insp inspector.Inspector) []Outcome {
	branch, err := throttle.Call(t, func() (string, error) {
		return insp.DefaultBranch(ctx)
	})
	if err != nil {
		return []Outcome{lookupFailure(err,
			"Could not determine the default branch",
			"Could not determine the default branch: repository not found.")}
	}

	protected, err := throttle.Call(t, func() (map[string]struct{}, error) {
		return insp.ProtectedBranches(ctx)
	})
	if err != nil {
		return []Outcome{lookupFailure(err,
			"Could not list protected branches",
			"Could not list protected branches: repository not found.")}
	}

	if _, ok := protected[branch]; ok {
		return []Outcome{Pass("Default Branch is Protected")}
	}
	return []Outcome{Failure(ReasonPolicy, "Default Branch is not Protected")}
}

func init() {
	Register(&DefaultBranchProtectedCheck{})
}
