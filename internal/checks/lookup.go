package checks

import (
	"strings"

	"repopolicy/internal/inspector"
)

// lookupFailure turns a failed lookup into a Failure outcome. prefix names
// what the check was trying to do; notFound is the full message used when
// the resource does not exist.
func lookupFailure(err error, prefix, notFound string) Outcome {
	switch inspector.Classify(err) {
	case inspector.StatusAccessDenied:
		return Failure(ReasonAccessDenied, prefix+": Access denied.")
	case inspector.StatusForbidden:
		return Failure(ReasonForbidden, prefix+": Access forbidden.")
	case inspector.StatusNotFound:
		return Failure(ReasonNotFound, notFound)
	case inspector.StatusMalformed:
		return Failure(ReasonMalformed, prefix+": response could not be parsed.")
	case inspector.StatusOK:
		// Callers only get here with a non-nil error.
		return Failure(ReasonInternal, prefix+": unexpected lookup result.")
	default:
		return Failure(ReasonRequestFailure, prefix+": Request failure.")
	}
}

// isNotFound reports whether err means the looked-up resource is absent.
func isNotFound(err error) bool {
	return inspector.Classify(err) == inspector.StatusNotFound
}

// splitList parses a comma separated option value.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
