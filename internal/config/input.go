package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// LookupFunc reads one input. os.LookupEnv satisfies it.
type LookupFunc func(name string) (string, bool)

// Input names, as a GitHub Action receives them.
const (
	EnvRepositoryOwner = "GITHUB_REPOSITORY_OWNER"
	EnvRepository      = "GITHUB_REPOSITORY"
	EnvSHA             = "GITHUB_SHA"
	EnvAPIURL          = "GITHUB_API_URL"
	EnvToken           = "GITHUB_TOKEN"
	EnvAccessToken     = "INPUT_ACCESS_TOKEN"
	EnvStepSummary     = "GITHUB_STEP_SUMMARY"
	EnvConfig          = "INPUT_CONFIG"

	EnvCheckBranchProtection = "INPUT_CHECK_BRANCH_PROTECTION"
	EnvCheckCopilot          = "INPUT_CHECK_COPILOT"
	EnvCheckDependabot       = "INPUT_CHECK_DEPENDABOT"
	EnvCheckBundlerAudit     = "INPUT_CHECK_BUNDLER_AUDIT"
	EnvCheckWebhook          = "INPUT_CHECK_WEBHOOK"
)

type inputKind int

const (
	inputMissing inputKind = iota
	inputString
	inputBool
	inputInvalid
)

// Input is one action input value: missing, a string, a boolean, or a value
// that could not be read. Accessors never panic; asking for the wrong shape
// returns an error naming the input.
type Input struct {
	name string
	kind inputKind
	str  string
	b    bool
	err  error
}

func (in Input) Name() string { return in.name }

// Present reports whether the input was supplied, valid or not.
func (in Input) Present() bool { return in.kind != inputMissing }

func (in Input) String() (string, error) {
	switch in.kind {
	case inputString:
		return in.str, nil
	case inputMissing:
		return "", fmt.Errorf("%s was not provided", in.name)
	case inputInvalid:
		return "", in.err
	default:
		return "", fmt.Errorf("%s is a boolean input, not a string", in.name)
	}
}

func (in Input) Bool() (bool, error) {
	switch in.kind {
	case inputBool:
		return in.b, nil
	case inputMissing:
		return false, fmt.Errorf("%s was not provided", in.name)
	case inputInvalid:
		return false, in.err
	default:
		return false, fmt.Errorf("%s is a string input, not a boolean", in.name)
	}
}

// ReadString reads a string input. Values that are not valid UTF-8 are
// rejected.
func ReadString(lookup LookupFunc, name string) Input {
	v, ok := lookup(name)
	if !ok {
		return Input{name: name, kind: inputMissing}
	}
	if !utf8.ValidString(v) {
		return Input{name: name, kind: inputInvalid, err: fmt.Errorf("%s was not properly encoded", name)}
	}
	return Input{name: name, kind: inputString, str: v}
}

// ReadBool reads a boolean input. Accepted spellings follow the Actions
// toolkit: true, True, TRUE, false, False, FALSE. An empty value counts as
// not provided, which is how a runner passes an unset action input.
func ReadBool(lookup LookupFunc, name string) Input {
	s := ReadString(lookup, name)
	if s.kind != inputString {
		return s
	}
	switch strings.TrimSpace(s.str) {
	case "":
		return Input{name: name, kind: inputMissing}
	case "true", "True", "TRUE":
		return Input{name: name, kind: inputBool, b: true}
	case "false", "False", "FALSE":
		return Input{name: name, kind: inputBool, b: false}
	default:
		return Input{name: name, kind: inputInvalid,
			err: fmt.Errorf("%s was provided, but could not be converted to a boolean value", name)}
	}
}

// ApplyEnv overlays action inputs read through lookup onto c. Absent inputs
// leave the current value alone. Every malformed input is reported, joined
// into one error.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		return errors.New("config: lookup is nil")
	}
	var errs []error

	strs := []struct {
		name string
		dst  *string
	}{
		{EnvRepositoryOwner, &c.Target.Owner},
		{EnvRepository, &c.Target.Repository},
		{EnvSHA, &c.Target.SHA},
		{EnvAPIURL, &c.Target.APIURL},
		{EnvToken, &c.Auth.Token},
		{EnvAccessToken, &c.Auth.AccessToken},
		{EnvStepSummary, &c.Output.Summary},
		{EnvConfig, &c.Checks.File},
	}
	for _, s := range strs {
		in := ReadString(lookup, s.name)
		if !in.Present() {
			continue
		}
		v, err := in.String()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			*s.dst = v
		}
	}

	for _, toggle := range Toggles {
		in := ReadBool(lookup, toggle.Env)
		if !in.Present() {
			continue
		}
		v, err := in.Bool()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.Checks.Toggles[toggle.Name] = v
	}

	return errors.Join(errs...)
}
