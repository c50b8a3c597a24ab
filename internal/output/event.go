package output

import "repopolicy/internal/engine"

const (
	EventRunStarted  = "run.started"
	EventCheckResult = "check.result"
	EventRunFinished = "run.finished"
)

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line):
// - run.started
// - check.result
// - run.finished
//
// JSON mode remains an aggregate of engine.Result values.
type Event struct {
	Type       string `json:"type"`
	Repository string `json:"repository,omitempty"`
	SHA        string `json:"sha,omitempty"`
	*engine.Result
	Checks   int    `json:"checks,omitempty"`
	Verdict  string `json:"verdict,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
}

func eventFromResult(r engine.Result) Event {
	return Event{Type: EventCheckResult, Result: &r}
}

// FinishedEvent summarizes report as a run.finished event.
func FinishedEvent(report engine.Report) Event {
	return Event{
		Type:     EventRunFinished,
		Verdict:  report.Verdict.String(),
		ExitCode: report.ExitCode(),
	}
}

// WriteReport streams report through m: every renderable result followed by
// the run.finished event.
func WriteReport(m *Manager, report engine.Report) error {
	for _, r := range report.Renderable() {
		if err := m.Write(r); err != nil {
			return err
		}
	}
	return m.Write(FinishedEvent(report))
}

// renderable reports whether v may reach a renderer. Ignore results never do.
func renderable(v any) (engine.Result, bool) {
	r, ok := v.(engine.Result)
	if !ok || r.IsIgnore() {
		return engine.Result{}, false
	}
	return r, true
}
