// Package inspector reads the repository facts compliance checks depend on.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

//go:generate mockgen -source=inspector.go -destination=mock_inspector.go -package=inspector

// Inspector is the read-only view of one repository at one revision.
//
// Every method performs one logical remote lookup and is called under one
// permit. A logical lookup may span several HTTP requests: ProtectedBranches
// and Webhooks follow pagination, and File re-fetches files over 1 MB as raw
// media. Failures are returned as errors that Classify can sort into a
// Status.
type Inspector interface {
	DefaultBranch(ctx context.Context) (string, error)
	ProtectedBranches(ctx context.Context) (map[string]struct{}, error)
	IsPrivate(ctx context.Context) (bool, error)
	// File returns the content of path at the inspected revision.
	File(ctx context.Context, path string) ([]byte, error)
	// FileExists reports whether path exists without reading its content.
	// A missing file is (false, nil).
	FileExists(ctx context.Context, path string) (bool, error)
	VulnerabilityAlertsEnabled(ctx context.Context) (bool, error)
	Webhooks(ctx context.Context) ([]Webhook, error)
}

// Webhook is the subset of a repository hook's configuration checks look at.
type Webhook struct {
	URL         string   `json:"url"`
	ContentType string   `json:"content_type"`
	Active      bool     `json:"active"`
	Events      []string `json:"events"`
}

// Subscribes reports whether the hook delivers the given event type.
func (w Webhook) Subscribes(event string) bool {
	for _, e := range w.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

// Repository addresses the repository and revision under inspection.
type Repository struct {
	Owner string
	Name  string
	// Ref is the commit SHA, branch or tag files are read at. Empty means
	// the default branch.
	Ref string
}

func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepository splits an OWNER/NAME string.
func ParseRepository(fullName string) (Repository, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(fullName), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("invalid repository %q: expected OWNER/REPO", fullName)
	}
	return Repository{Owner: owner, Name: name}, nil
}

var (
	ErrAccessDenied = errors.New("access denied")
	ErrForbidden    = errors.New("access forbidden")
	ErrNotFound     = errors.New("not found")
	ErrMalformed    = errors.New("malformed response")
)

// Status is the classification of a lookup result.
type Status int

const (
	StatusOK Status = iota
	StatusAccessDenied
	StatusForbidden
	StatusNotFound
	StatusMalformed
	StatusRequestFailure
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAccessDenied:
		return "access denied"
	case StatusForbidden:
		return "access forbidden"
	case StatusNotFound:
		return "not found"
	case StatusMalformed:
		return "malformed"
	case StatusRequestFailure:
		return "request failure"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Classify maps a lookup error onto a Status. Errors that carry none of the
// sentinel kinds (network failures, deadlines, budget waits) are request
// failures.
func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrAccessDenied):
		return StatusAccessDenied
	case errors.Is(err, ErrForbidden):
		return StatusForbidden
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrMalformed):
		return StatusMalformed
	default:
		return StatusRequestFailure
	}
}

// APIError describes a failed lookup against the remote API.
type APIError struct {
	Op         string
	StatusCode int
	Kind       error
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Kind != nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StatusCode returns the HTTP status carried by err, or 0 when the request
// never produced a response.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// kindForStatus maps a non-success HTTP status onto an error kind.
func kindForStatus(code int) error {
	switch {
	case code == 401:
		return ErrAccessDenied
	case code == 403:
		return ErrForbidden
	case code >= 300:
		return ErrNotFound
	default:
		return nil
	}
}
