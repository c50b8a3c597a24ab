package checks

import (
	"context"
	"fmt"
	"strings"

	"repopolicy/internal/inspector"
	"repopolicy/internal/throttle"
)

const defaultBundlerAuditConfig = ".bundler-audit.yml"

var rubyManifests = []string{"Gemfile.lock", "Gemfile"}

type BundlerAuditCheck struct {
	configPath string
}

func (c *BundlerAuditCheck) ID() string {
	return "bundler-audit"
}

func (c *BundlerAuditCheck) Title() string {
	return "Ruby Projects Configure bundler-audit"
}

func (c *BundlerAuditCheck) Description() string {
	return "Verifies that Ruby projects carry a bundler-audit configuration file.\n\n" +
		"A repository is treated as a Ruby project when it has a `Gemfile.lock` or, failing that, a `Gemfile`. " +
		"Repositories with neither are skipped."
}

func (c *BundlerAuditCheck) Options() []Option {
	return []Option{
		{
			Name:        "config_path",
			Description: "Path of the bundler-audit configuration file to require.",
			Default:     defaultBundlerAuditConfig,
		},
	}
}

func (c *BundlerAuditCheck) Configure(opts map[string]string) error {
	c.configPath = defaultBundlerAuditConfig
	if v, ok := opts["config_path"]; ok {
		v = strings.TrimSpace(v)
		if v == "" {
			return fmt.Errorf("config_path must not be empty")
		}
		c.configPath = v
	}
	return nil
}

func (c *BundlerAuditCheck) Clone() ConfigurableCheck {
	cp := *c
	return &cp
}

func (c *BundlerAuditCheck) Run(ctx context.Context, t *throttle.Throttle, insp inspector.Inspector) []Outcome {
	ruby := false
	for _, manifest := range rubyManifests {
		found, err := throttle.Call(t, func() (bool, error) {
			return insp.FileExists(ctx, manifest)
		})
		if err != nil {
			return []Outcome{lookupFailure(err,
				"Could not check for a "+manifest+" file",
				"Could not check for a "+manifest+" file.")}
		}
		if found {
			ruby = true
			break
		}
	}
	if !ruby {
		return []Outcome{Ignore()}
	}

	path := c.configPath
	if path == "" {
		path = defaultBundlerAuditConfig
	}
	missing := "Could not find a `" + path + "` file."
	found, err := throttle.Call(t, func() (bool, error) {
		return insp.FileExists(ctx, path)
	})
	if err != nil {
		return []Outcome{lookupFailure(err, "Could not find a `"+path+"` file", missing)}
	}
	if !found {
		return []Outcome{Failure(ReasonNotFound, missing)}
	}
	return []Outcome{Pass("Found a `" + path + "` file.")}
}

func init() {
	c := &BundlerAuditCheck{}
	_ = c.Configure(map[string]string{})
	Register(c)
}
