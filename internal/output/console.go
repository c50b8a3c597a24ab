package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"repopolicy/internal/checks"
	"repopolicy/internal/engine"
)

// FailedRunMessage closes the console output of a run with a Failure verdict.
const FailedRunMessage = "Failed repository policy checks"

type ConsoleSink struct {
	writer  io.Writer
	format  string // "text", "github", "json"
	mu      sync.Mutex
	results []engine.Result // For JSON array output

	pass *color.Color
	fail *color.Color
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	return &ConsoleSink{
		writer:  w,
		format:  format,
		results: []engine.Result{},
		pass:    color.New(color.FgGreen, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
	}
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	switch s.format {
	case "json":
		r, ok := renderable(v)
		if !ok {
			// Ignore lifecycle events in JSON console mode.
			return nil
		}
		s.results = append(s.results, r)
		return nil
	case "github":
		return s.writeGitHub(v)
	case "text":
		return s.writeText(v)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) writeText(v any) error {
	if e, ok := v.(Event); ok {
		if e.Type != EventRunFinished {
			return nil
		}
		var err error
		if e.Verdict == engine.VerdictFailure.String() {
			_, err = s.fail.Fprintln(s.writer, FailedRunMessage)
		} else {
			_, err = s.pass.Fprintln(s.writer, "Repository policy checks passed")
		}
		if err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	}

	r, ok := renderable(v)
	if !ok {
		return nil
	}
	label := s.pass.Sprintf("[%s]", r.Kind)
	if r.Kind == checks.KindFailure {
		label = s.fail.Sprintf("[%s]", r.Kind)
	}
	if _, err := fmt.Fprintf(s.writer, "%s %s: %s\n", label, r.CheckID, r.Message); err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

// writeGitHub prints workflow commands: failures become error annotations,
// passes plain log lines.
func (s *ConsoleSink) writeGitHub(v any) error {
	if e, ok := v.(Event); ok {
		if e.Type != EventRunFinished || e.Verdict != engine.VerdictFailure.String() {
			return nil
		}
		if _, err := io.WriteString(s.writer, ErrorCommand("", FailedRunMessage)); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	}

	r, ok := renderable(v)
	if !ok {
		return nil
	}
	var err error
	if r.IsFailure() {
		_, err = io.WriteString(s.writer, ErrorCommand(r.CheckID, r.Message))
	} else {
		_, err = fmt.Fprintf(s.writer, "%s: %s\n", r.CheckID, r.Message)
	}
	if err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.results); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "text", "github":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

// flushIfPossible pushes buffered output through so each line shows up in the
// job log as it is produced.
func flushIfPossible(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
