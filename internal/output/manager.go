package output

import (
	"errors"
	"fmt"
	"io"

	"repopolicy/internal/config"
)

// Sink defines a destination for check results and lifecycle events.
type Sink interface {
	Write(v any) error
	Close() error
}

// Manager fans every value out to all of its sinks.
type Manager struct {
	sinks []Sink
}

func NewManager() *Manager {
	return &Manager{}
}

// Open builds the sinks cfg asks for: the console (on stdout), the Markdown
// step summary unless disabled, and the structured --out file. On error no
// sink is left open.
func Open(cfg *config.Config, stdout io.Writer) (*Manager, error) {
	m := NewManager()
	fail := func(err error) (*Manager, error) {
		_ = m.Close()
		return nil, err
	}

	if err := m.AddSink(NewConsoleSink(stdout, cfg.Output.ConsoleFormat)); err != nil {
		return fail(err)
	}

	if !cfg.Output.NoSummary {
		ss, err := NewSummarySink(cfg.Output.Summary)
		if err != nil {
			return fail(err)
		}
		if err := m.AddSink(ss); err != nil {
			return fail(err)
		}
	}

	if cfg.Output.Out != "" {
		fs, err := NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			return fail(err)
		}
		if err := m.AddSink(fs); err != nil {
			return fail(err)
		}
	}

	return m, nil
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

// Write hands v to every sink, even after one of them fails.
func (m *Manager) Write(v any) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(v); err != nil {
			errs = append(errs, fmt.Errorf("write %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors writing to sinks: %w", errors.Join(errs...))
	}
	return nil
}

func (m *Manager) Close() error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	m.sinks = nil
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sinks: %w", errors.Join(errs...))
	}
	return nil
}
