package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PolicyFile is the optional YAML policy file:
//
//	checks:
//	  dependabot: true
//	  webhook: false
//	options:
//	  branch-report-webhook:
//	    events: push,pull_request
//	runtime:
//	  capacity: 2
//	  pacing: 100ms
//	  call_timeout: 30s
type PolicyFile struct {
	Checks  map[string]bool              `yaml:"checks"`
	Options map[string]map[string]string `yaml:"options"`
	Runtime struct {
		Capacity    *int   `yaml:"capacity"`
		Pacing      string `yaml:"pacing"`
		CallTimeout string `yaml:"call_timeout"`
	} `yaml:"runtime"`
}

// LoadPolicyFile reads and decodes the policy file at path. Unknown keys are
// rejected so typos do not silently disable a check.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return decodePolicyFile(f)
}

func decodePolicyFile(r io.Reader) (*PolicyFile, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var pf PolicyFile
	if len(bytes.TrimSpace(body)) == 0 {
		return &pf, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(body))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode policy file: %w", err)
	}
	return &pf, nil
}

// ApplyPolicyFile overlays pf onto c. Toggle names and durations are checked
// here; option names are checked against the selected checks later.
func (c *Config) ApplyPolicyFile(pf *PolicyFile) error {
	if pf == nil {
		return nil
	}
	var errs []error

	for name, enabled := range pf.Checks {
		if _, ok := LookupToggle(name); !ok {
			errs = append(errs, fmt.Errorf("policy file: unknown check toggle %q", name))
			continue
		}
		c.Checks.Toggles[name] = enabled
	}

	if len(pf.Options) > 0 && c.Checks.Options == nil {
		c.Checks.Options = make(map[string]map[string]string, len(pf.Options))
	}
	for id, opts := range pf.Options {
		if c.Checks.Options[id] == nil {
			c.Checks.Options[id] = make(map[string]string, len(opts))
		}
		for k, v := range opts {
			c.Checks.Options[id][k] = v
		}
	}

	if pf.Runtime.Capacity != nil {
		c.Runtime.Capacity = *pf.Runtime.Capacity
	}
	if pf.Runtime.Pacing != "" {
		d, err := time.ParseDuration(pf.Runtime.Pacing)
		if err != nil {
			errs = append(errs, fmt.Errorf("policy file: runtime.pacing: %w", err))
		} else {
			c.Runtime.Pacing = d
		}
	}
	if pf.Runtime.CallTimeout != "" {
		d, err := time.ParseDuration(pf.Runtime.CallTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("policy file: runtime.call_timeout: %w", err))
		} else {
			c.Runtime.CallTimeout = d
		}
	}

	return errors.Join(errs...)
}
