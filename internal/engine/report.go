package engine

import (
	"fmt"

	"repopolicy/internal/checks"
)

// Verdict is the overall result of a run.
type Verdict int

const (
	VerdictSuccess Verdict = iota
	VerdictFailure
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictFailure:
		return "failure"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Result is one outcome attributed to the check that produced it.
type Result struct {
	CheckID string `json:"check_id"`
	checks.Outcome
}

// Report is the aggregated result of a run. It is not modified once built.
type Report struct {
	Verdict Verdict  `json:"verdict"`
	Results []Result `json:"results"`
}

// Aggregate reduces results to a Report. The verdict is a failure if and only
// if at least one result is a Failure; Ignore never affects it.
func Aggregate(results []Result) Report {
	r := Report{
		Verdict: VerdictSuccess,
		Results: make([]Result, len(results)),
	}
	copy(r.Results, results)
	for _, res := range results {
		if res.IsFailure() {
			r.Verdict = VerdictFailure
			break
		}
	}
	return r
}

// Renderable returns the Pass and Failure results in report order.
func (r Report) Renderable() []Result {
	out := make([]Result, 0, len(r.Results))
	for _, res := range r.Results {
		if res.IsIgnore() {
			continue
		}
		out = append(out, res)
	}
	return out
}

// Failures returns the Failure results in report order.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.IsFailure() {
			out = append(out, res)
		}
	}
	return out
}

// Counts tallies results by kind.
func (r Report) Counts() (pass, fail, ignore int) {
	for _, res := range r.Results {
		switch res.Kind {
		case checks.KindPass:
			pass++
		case checks.KindFailure:
			fail++
		default:
			ignore++
		}
	}
	return pass, fail, ignore
}

// ExitCode maps the verdict onto the process exit status.
func (r Report) ExitCode() int {
	if r.Verdict == VerdictFailure {
		return 1
	}
	return 0
}
