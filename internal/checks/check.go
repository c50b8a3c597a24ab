// Package checks holds the repository policy checks and the outcome type they
// produce.
package checks

import (
	"context"
	"fmt"

	"repopolicy/internal/inspector"
	"repopolicy/internal/throttle"
)

// Check is one compliance rule.
//
// Run performs its remote lookups through insp, each under its own permit
// from t, and reports zero or more outcomes. It must not return before every
// lookup it started has finished, and it never fails: lookup errors become
// Failure outcomes.
type Check interface {
	ID() string
	Title() string
	Description() string
	Run(ctx context.Context, t *throttle.Throttle, insp inspector.Inspector) []Outcome
}

type Option struct {
	Name        string
	Description string
	Default     string
}

// ConfigurableCheck is a Check that accepts per-check options. Registered
// instances are shared, so runs configure a Clone rather than the original.
type ConfigurableCheck interface {
	Check
	Options() []Option
	Configure(opts map[string]string) error
	Clone() ConfigurableCheck
}

// Configured returns a copy of c with opts applied. c is not modified.
func Configured(c ConfigurableCheck, opts map[string]string) (ConfigurableCheck, error) {
	cp := c.Clone()
	if err := cp.Configure(opts); err != nil {
		return nil, err
	}
	return cp, nil
}

// Kind is the variant of an Outcome.
type Kind int

const (
	// KindIgnore means the rule does not apply to the repository.
	KindIgnore Kind = iota
	KindPass
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindIgnore:
		return "IGNORE"
	case KindPass:
		return "PASS"
	case KindFailure:
		return "FAIL"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "IGNORE":
		*k = KindIgnore
	case "PASS":
		*k = KindPass
	case "FAIL":
		*k = KindFailure
	default:
		return fmt.Errorf("unknown outcome kind %q", b)
	}
	return nil
}

// Reason classifies a Failure.
type Reason string

const (
	ReasonAccessDenied   Reason = "access_denied"
	ReasonForbidden      Reason = "access_forbidden"
	ReasonNotFound       Reason = "not_found"
	ReasonRequestFailure Reason = "request_failure"
	ReasonMalformed      Reason = "malformed"
	// ReasonPolicy means the lookups succeeded and the repository violates the rule.
	ReasonPolicy Reason = "policy"
	// ReasonInternal means the check itself broke.
	ReasonInternal Reason = "internal"
)

// Outcome is the result of evaluating a rule once. Ignore carries no message.
type Outcome struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message,omitempty"`
	Reason  Reason `json:"reason,omitempty"`
}

func Pass(message string) Outcome {
	return Outcome{Kind: KindPass, Message: message}
}

func Failure(reason Reason, message string) Outcome {
	return Outcome{Kind: KindFailure, Message: message, Reason: reason}
}

func Ignore() Outcome {
	return Outcome{Kind: KindIgnore}
}

func (o Outcome) IsFailure() bool { return o.Kind == KindFailure }

func (o Outcome) IsIgnore() bool { return o.Kind == KindIgnore }

func (o Outcome) String() string {
	if o.Kind == KindIgnore {
		return o.Kind.String()
	}
	return o.Kind.String() + ": " + o.Message
}
