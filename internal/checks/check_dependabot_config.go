package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"repopolicy/internal/inspector"
	"repopolicy/internal/throttle"
)

var dependabotConfigPaths = []string{".github/dependabot.yml", ".github/dependabot.yaml"}

type DependabotConfigCheck struct{}

func (c *DependabotConfigCheck) ID() string {
	return "dependabot-config"
}

func (c *DependabotConfigCheck) Title() string {
	return "Dependabot Configuration Present"
}

func (c *DependabotConfigCheck) Description() string {
	return "Verifies that `.github/dependabot.yml` (or `.github/dependabot.yaml`) exists at the inspected revision " +
		"and is a version 2 Dependabot configuration with at least one `updates` entry. Every entry must name " +
		"a package ecosystem, a directory and a schedule interval.\n\n" +
		"The `.yaml` spelling is only looked up when the `.yml` file does not exist."
}

func (c *DependabotConfigCheck) Run(ctx context.Context, t *throttle.Throttle, insp inspector.Inspector) []Outcome {
	for _, path := range dependabotConfigPaths {
		body, err := throttle.Call(t, func() ([]byte, error) {
			return insp.File(ctx, path)
		})
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return []Outcome{lookupFailure(err,
				"Could not find a "+path+" file",
				"Could not find a "+path+" file.")}
		}
		if err := validateDependabotConfig(body); err != nil {
			if errors.Is(err, errDependabotSyntax) {
				return []Outcome{Failure(ReasonMalformed, fmt.Sprintf("Found `%s` but it could not be parsed: %v", path, err))}
			}
			return []Outcome{Failure(ReasonPolicy, fmt.Sprintf("Found `%s` but it is not a usable Dependabot configuration: %v", path, err))}
		}
		return []Outcome{Pass("Found a `" + path + "`")}
	}
	return []Outcome{Failure(ReasonNotFound, "Could not find a "+dependabotConfigPaths[0]+" file.")}
}

type dependabotConfig struct {
	Version int                `yaml:"version"`
	Updates []dependabotUpdate `yaml:"updates"`
}

type dependabotUpdate struct {
	PackageEcosystem string   `yaml:"package-ecosystem"`
	Directory        string   `yaml:"directory"`
	Directories      []string `yaml:"directories"`
	Schedule         struct {
		Interval string `yaml:"interval"`
	} `yaml:"schedule"`
}

var errDependabotSyntax = errors.New("invalid YAML")

func validateDependabotConfig(body []byte) error {
	var cfg dependabotConfig
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return fmt.Errorf("%w: %v", errDependabotSyntax, err)
	}
	if cfg.Version != 2 {
		return fmt.Errorf("version must be 2, got %d", cfg.Version)
	}
	if len(cfg.Updates) == 0 {
		return errors.New("no updates are configured")
	}
	var problems []string
	for i, u := range cfg.Updates {
		if strings.TrimSpace(u.PackageEcosystem) == "" {
			problems = append(problems, fmt.Sprintf("updates[%d] has no package-ecosystem", i))
		}
		if u.Directory == "" && len(u.Directories) == 0 {
			problems = append(problems, fmt.Sprintf("updates[%d] has no directory", i))
		}
		if u.Schedule.Interval == "" {
			problems = append(problems, fmt.Sprintf("updates[%d] has no schedule interval", i))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func init() {
	Register(&DependabotConfigCheck{})
}
