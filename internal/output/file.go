package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"repopolicy/internal/engine"
)

// FileSink writes the structured --out file.
//
// In json format the results are collected and the array is written to a
// temporary file that replaces path on Close, so readers never see half a
// report. In ndjson format each event is appended to path as it arrives.
type FileSink struct {
	path   string
	format string

	mu      sync.Mutex
	file    *os.File
	enc     *json.Encoder
	results []engine.Result
	closed  bool
}

// InferFileFormat maps an --out extension to a format name.
func InferFileFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return "json", nil
	case ".ndjson", ".jsonl":
		return "ndjson", nil
	default:
		return "", fmt.Errorf("cannot infer output format from file extension %q", ext)
	}
}

func NewFileSink(path string, format string) (*FileSink, error) {
	if path == "" {
		return nil, errors.New("output path required")
	}
	if format == "" {
		var err error
		if format, err = InferFileFormat(path); err != nil {
			return nil, err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &FileSink{path: path, format: format, results: []engine.Result{}}
	var err error
	switch format {
	case "json":
		s.file, err = os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	case "ndjson":
		s.file, err = os.Create(path)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	s.enc = json.NewEncoder(s.file)
	return s, nil
}

func (s *FileSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("file sink is closed")
	}

	if s.format == "json" {
		// Lifecycle events have no place in the aggregate array.
		if r, ok := renderable(v); ok {
			s.results = append(s.results, r)
		}
		return nil
	}

	switch x := v.(type) {
	case Event:
		return s.enc.Encode(x)
	default:
		if r, ok := renderable(v); ok {
			return s.enc.Encode(eventFromResult(r))
		}
		return nil
	}
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.format != "json" {
		return s.file.Close()
	}

	tmp := s.file.Name()
	s.enc.SetIndent("", "  ")
	err := s.enc.Encode(s.results)
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp, s.path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
