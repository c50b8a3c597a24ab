package output

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"repopolicy/internal/engine"
)

// SummaryHeading opens the section a run appends to the step summary.
const SummaryHeading = "### Repository policy checks"

// SummarySink appends a Markdown rendering of the report to the step summary
// file (GITHUB_STEP_SUMMARY). Other steps write to the same file, so it is
// only ever appended to, once, when the sink is closed.
type SummarySink struct {
	path    string
	mu      sync.Mutex
	results []engine.Result
	closed  bool
}

func NewSummarySink(path string) (*SummarySink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("summary path required")
	}
	return &SummarySink{path: path}, nil
}

func (s *SummarySink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := renderable(v); ok {
		s.results = append(s.results, r)
	}
	return nil
}

func (s *SummarySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open summary file: %w", err)
	}
	if _, err := f.WriteString(RenderMarkdown(s.results)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return f.Close()
}

// RenderMarkdown renders results as the step summary section: a heading and
// one line per Pass or Failure. Ignore results are dropped.
func RenderMarkdown(results []engine.Result) string {
	var b strings.Builder
	b.WriteString(SummaryHeading)
	b.WriteString("\n\n")
	for _, r := range results {
		if r.IsIgnore() {
			continue
		}
		mark := "✅"
		if r.IsFailure() {
			mark = "❌"
		}
		// Two trailing spaces keep consecutive lines apart in GitHub Markdown.
		fmt.Fprintf(&b, "%s %s  \n", mark, strings.ReplaceAll(r.Message, "\n", " "))
	}
	b.WriteString("\n")
	return b.String()
}
