package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"repopolicy/internal/checks"
	"repopolicy/internal/engine"
)

func withoutColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func writeAll(t *testing.T, s Sink, report engine.Report) {
	t.Helper()
	if err := s.Write(Event{Type: EventRunStarted}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	// Ignore results are written too; the sink must drop them.
	for _, r := range report.Results {
		if err := s.Write(r); err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
	}
	if err := s.Write(FinishedEvent(report)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestConsoleSink_Text(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	writeAll(t, NewConsoleSink(&buf, "text"), sampleReport())

	want := "[PASS] default-branch-protected: Default Branch is Protected\n" +
		"[FAIL] dependabot-enabled: Dependabot not enabled. Endpoint returned 404.\n" +
		FailedRunMessage + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected text output\nwant:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestConsoleSink_Text_Success(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	report := engine.Aggregate([]engine.Result{{CheckID: "x", Outcome: checks.Pass("ok")}})
	writeAll(t, NewConsoleSink(&buf, ""), report)

	if !strings.HasSuffix(buf.String(), "Repository policy checks passed\n") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestConsoleSink_GitHub(t *testing.T) {
	var buf bytes.Buffer
	report := engine.Aggregate([]engine.Result{
		{CheckID: "a", Outcome: checks.Pass("ok")},
		{CheckID: "b", Outcome: checks.Ignore()},
		{CheckID: "c", Outcome: checks.Failure(checks.ReasonRequestFailure, "100% broken\nsecond line")},
	})
	writeAll(t, NewConsoleSink(&buf, "github"), report)

	want := "a: ok\n" +
		"::error title=c::100%25 broken%0Asecond line\n" +
		"::error::Failed repository policy checks\n"
	if buf.String() != want {
		t.Fatalf("unexpected github output\nwant:\n%q\ngot:\n%q", want, buf.String())
	}
}

func TestConsoleSink_GitHub_SuccessHasNoAnnotations(t *testing.T) {
	var buf bytes.Buffer
	report := engine.Aggregate([]engine.Result{{CheckID: "a", Outcome: checks.Pass("ok")}})
	writeAll(t, NewConsoleSink(&buf, "github"), report)

	if strings.Contains(buf.String(), "::error") {
		t.Fatalf("unexpected annotation:\n%s", buf.String())
	}
}

func TestConsoleSink_JSON(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewConsoleSink(&buf, "json"), sampleReport())

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal failed: %v\nbody=%s", err, buf.String())
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d: %s", len(got), buf.String())
	}
	if got[1]["check_id"] != "dependabot-enabled" || got[1]["kind"] != "FAIL" || got[1]["reason"] != "policy" {
		t.Fatalf("unexpected result: %v", got[1])
	}
}

func TestConsoleSink_UnsupportedFormat(t *testing.T) {
	s := NewConsoleSink(&bytes.Buffer{}, "yaml")
	if err := s.Write(engine.Result{CheckID: "a", Outcome: checks.Pass("ok")}); err == nil {
		t.Fatalf("expected error, got nil")
	}
	if err := s.Close(); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestConsoleSink_GitHub_FlushesPerWrite(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	defer pw.Close()

	bw := bufio.NewWriterSize(pw, 64*1024)
	s := NewConsoleSink(bw, "github")

	lineCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(pr).ReadString('\n')
		if err != nil {
			errCh <- err
			return
		}
		lineCh <- line
	}()

	if err := s.Write(engine.Result{CheckID: "c", Outcome: checks.Failure(checks.ReasonPolicy, "bad")}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	select {
	case line := <-lineCh:
		if line != "::error title=c::bad\n" {
			t.Fatalf("unexpected line %q", line)
		}
	case err := <-errCh:
		t.Fatalf("read error: %v", err)
	case <-time.After(250 * time.Millisecond):
		t.Fatalf("timed out waiting for annotation; writer likely not flushing")
	}
}

func TestEscaping(t *testing.T) {
	if got := EscapeData("a%b\r\nc:d,e"); got != "a%25b%0D%0Ac:d,e" {
		t.Fatalf("EscapeData = %q", got)
	}
	if got := EscapeProperty("a%b\r\nc:d,e"); got != "a%25b%0D%0Ac%3Ad%2Ce" {
		t.Fatalf("EscapeProperty = %q", got)
	}
	if got := ErrorCommand("", "x"); got != "::error::x\n" {
		t.Fatalf("ErrorCommand = %q", got)
	}
}
