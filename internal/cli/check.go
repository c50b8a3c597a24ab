package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"repopolicy/internal/config"
	"repopolicy/internal/engine"
	"repopolicy/internal/flags"
	gh "repopolicy/internal/github"
	"repopolicy/internal/inspector"
	"repopolicy/internal/output"
)

const checkHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
  GITHUB_REPOSITORY_OWNER, GITHUB_REPOSITORY, GITHUB_SHA   target (required)
  GITHUB_TOKEN                      contents token (required; falls back to gh auth token)
  INPUT_ACCESS_TOKEN                admin token for alert and webhook settings (optional)
  GITHUB_STEP_SUMMARY               Markdown summary file (required unless --no-summary)
  GITHUB_API_URL                    REST endpoint for GitHub Enterprise Server (optional)
  INPUT_CONFIG                      YAML policy file (optional)
  INPUT_CHECK_BRANCH_PROTECTION, INPUT_CHECK_COPILOT, INPUT_CHECK_DEPENDABOT,
  INPUT_CHECK_BUNDLER_AUDIT, INPUT_CHECK_WEBHOOK
                                    true|True|TRUE|false|False|FALSE (default true)

  Flags override the environment; the environment overrides the policy file.

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

// checkFlags holds flag values until they are overlaid onto the config.
// Only flags the user actually set override other sources.
type checkFlags struct {
	owner      string
	repository string
	sha        string
	apiURL     string

	toggles    map[string]*bool
	configPath string
	set        []string

	summary       string
	noSummary     bool
	consoleFormat string
	out           string
	outFormat     string

	capacity    int
	pacing      time.Duration
	callTimeout time.Duration
}

var checkOpts = &checkFlags{}

// newInspector builds the GitHub-backed inspector. It is a test seam.
var newInspector = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (inspector.Inspector, error) {
	var clientOpts []gh.Option
	clientOpts = append(clientOpts, gh.WithBaseURL(cfg.Target.APIURL))
	if cfg.Runtime.Verbose {
		clientOpts = append(clientOpts, gh.WithLogger(logger))
	}

	contents, err := gh.NewClient(ctx, cfg.Auth.Token, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	admin := contents
	if cfg.Auth.AccessToken != cfg.Auth.Token {
		admin, err = gh.NewClient(ctx, cfg.Auth.AccessToken, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub admin client: %w", err)
		}
	}

	owner, name, err := cfg.RepositoryParts()
	if err != nil {
		return nil, err
	}
	return inspector.NewGitHub(contents.Client,
		inspector.Repository{Owner: owner, Name: name, Ref: cfg.Target.SHA},
		inspector.WithAdminClient(admin.Client),
		inspector.WithBudget(inspector.NewRequestBudget()),
		inspector.WithCallTimeout(cfg.Runtime.CallTimeout),
	)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the repository policy checks",
	Long: `Run the enabled repository policy checks against one repository at one commit.

repopolicy is read-only: it reads repository settings and files through the
GitHub API and never changes them.

Checks:
  default-branch-protected   the default branch is protected
  copilot-ignore             private repositories carry a .copilotignore file
  dependabot-enabled         vulnerability alerts are enabled
  dependabot-config          .github/dependabot.yml is a valid version 2 config
  bundler-audit              Ruby projects carry a bundler-audit configuration
  branch-report-webhook      a webhook reports branch activity to Yellr

Output:
  Console output is controlled by --console-format (default: github, which
  prints workflow commands). The result is appended to the step summary as a
  Markdown list. --out writes a JSON array or an NDJSON stream of lifecycle
  events (run.started, check.result, run.finished).

Exit codes:
  0 = every check passed or did not apply
  1 = at least one check failed, or the inputs were invalid

Examples:
  # Inside a workflow step all inputs come from the environment
  repopolicy check

  # Locally, with gh auth and no step summary
  repopolicy check --owner acme --repository acme/widgets --sha main \
    --no-summary --console-format text

  # Skip the webhook check and point bundler-audit elsewhere
  repopolicy check --check-webhook=false --set bundler-audit.config_path=config/bundler-audit.yml
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		code := runCheck(ctx, cmd, checkOpts, os.LookupEnv, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.SetHelpTemplate(checkHelpTemplate)
	registerCheckFlags(checkCmd, checkOpts)
}

func registerCheckFlags(cmd *cobra.Command, f *checkFlags) {
	// MAINTAINER NOTE: If you add/change/remove flags here, keep
	// applyFlagOverrides and internal/config in sync.
	defaults := config.New()

	// Target
	cmd.Flags().StringVar(&f.owner, flags.FlagOwner, "", "Repository owner (default: $GITHUB_REPOSITORY_OWNER)")
	cmd.Flags().StringVar(&f.repository, flags.FlagRepository, "", "Repository as OWNER/NAME (default: $GITHUB_REPOSITORY)")
	cmd.Flags().StringVar(&f.sha, flags.FlagSHA, "", "Commit to read files at (default: $GITHUB_SHA)")
	cmd.Flags().StringVar(&f.apiURL, flags.FlagAPIURL, "", "GitHub REST endpoint (default: $GITHUB_API_URL or github.com)")

	// Checks
	f.toggles = make(map[string]*bool, len(config.Toggles))
	for _, t := range config.Toggles {
		v := new(bool)
		f.toggles[t.Name] = v
		cmd.Flags().BoolVar(v, flags.CheckToggleFlags[t.Name], true,
			fmt.Sprintf("Enable %s (default: $%s or true)", strings.Join(t.Checks, " and "), t.Env))
	}
	cmd.Flags().StringVar(&f.configPath, flags.FlagConfig, "", "YAML policy file (default: $INPUT_CONFIG)")
	cmd.Flags().StringSliceVar(&f.set, flags.FlagSet, nil, "Per-check options as checkID.option=value (repeatable)")

	// Output
	cmd.Flags().StringVar(&f.summary, flags.FlagSummary, "", "Markdown file the summary is appended to (default: $GITHUB_STEP_SUMMARY)")
	cmd.Flags().BoolVar(&f.noSummary, flags.FlagNoSummary, false, "Do not write the Markdown summary")
	cmd.Flags().StringVar(&f.consoleFormat, flags.FlagConsoleFormat, defaults.Output.ConsoleFormat, "Console output format: text|github|json")
	cmd.Flags().StringVar(&f.out, flags.FlagOut, "", "Write structured output to this path")
	cmd.Flags().StringVar(&f.outFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")

	// Runtime
	cmd.Flags().IntVar(&f.capacity, flags.FlagCapacity, defaults.Runtime.Capacity, "GitHub API calls allowed in flight at once")
	cmd.Flags().DurationVar(&f.pacing, flags.FlagPacing, defaults.Runtime.Pacing, "Delay before each GitHub API call")
	cmd.Flags().DurationVar(&f.callTimeout, flags.FlagCallTimeout, defaults.Runtime.CallTimeout, "Timeout for each GitHub API call (0 = none)")
}

// gatherConfig layers the config sources: defaults, then the policy file,
// then the environment, then flags the user set. Every problem found is
// returned, joined.
func gatherConfig(cmd *cobra.Command, f *checkFlags, lookup config.LookupFunc) (*config.Config, error) {
	cfg := config.New()
	var errs []error

	path := ""
	if v, ok := lookup(config.EnvConfig); ok {
		path = strings.TrimSpace(v)
	}
	if cmd.Flags().Changed(flags.FlagConfig) {
		path = strings.TrimSpace(f.configPath)
	}
	if path != "" {
		pf, err := config.LoadPolicyFile(path)
		if err != nil {
			errs = append(errs, err)
		} else if err := cfg.ApplyPolicyFile(pf); err != nil {
			errs = append(errs, err)
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		errs = append(errs, err)
	}
	applyFlagOverrides(cmd, f, cfg)
	if path != "" {
		cfg.Checks.File = path
	}
	return cfg, errors.Join(errs...)
}

func applyFlagOverrides(cmd *cobra.Command, f *checkFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	str := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	str(flags.FlagOwner, &cfg.Target.Owner, f.owner)
	str(flags.FlagRepository, &cfg.Target.Repository, f.repository)
	str(flags.FlagSHA, &cfg.Target.SHA, f.sha)
	str(flags.FlagAPIURL, &cfg.Target.APIURL, f.apiURL)
	str(flags.FlagSummary, &cfg.Output.Summary, f.summary)
	str(flags.FlagConsoleFormat, &cfg.Output.ConsoleFormat, f.consoleFormat)
	str(flags.FlagOut, &cfg.Output.Out, f.out)
	str(flags.FlagOutFormat, &cfg.Output.OutFormat, f.outFormat)

	for name, v := range f.toggles {
		if changed(flags.CheckToggleFlags[name]) {
			cfg.Checks.Toggles[name] = *v
		}
	}
	if changed(flags.FlagSet) {
		cfg.Checks.Set = append(cfg.Checks.Set, f.set...)
	}
	if changed(flags.FlagNoSummary) {
		cfg.Output.NoSummary = f.noSummary
	}
	if changed(flags.FlagCapacity) {
		cfg.Runtime.Capacity = f.capacity
	}
	if changed(flags.FlagPacing) {
		cfg.Runtime.Pacing = f.pacing
	}
	if changed(flags.FlagCallTimeout) {
		cfg.Runtime.CallTimeout = f.callTimeout
	}
	cfg.Runtime.Verbose = verbose
}

// runCheck performs one run and returns the process exit code.
func runCheck(ctx context.Context, cmd *cobra.Command, f *checkFlags, lookup config.LookupFunc, stdout, stderr io.Writer) int {
	logger := newLogger(stderr, verbose)

	cfg, gatherErr := gatherConfig(cmd, f, lookup)

	tokens, err := gh.ResolveTokens(ctx, cfg.Auth.Token, cfg.Auth.AccessToken, gh.HostFromAPIURL(cfg.Target.APIURL))
	if err != nil {
		gatherErr = errors.Join(gatherErr, fmt.Errorf("failed to resolve GitHub auth token: %w", err))
	}
	cfg.Auth.Token, cfg.Auth.AccessToken = tokens.Contents, tokens.Admin
	logger.Debug("resolved tokens", "contents", tokens.ContentsSource, "admin", tokens.AdminSource)

	if err := errors.Join(gatherErr, cfg.Validate()); err != nil {
		reportInputErrors(stdout, stderr, cfg.Output.ConsoleFormat, err)
		return 1
	}

	// Option errors are fatal and must surface before any sink is opened.
	selected, err := engine.PrepareChecks(cfg)
	if err != nil {
		reportInputErrors(stdout, stderr, cfg.Output.ConsoleFormat, err)
		return 1
	}

	insp, err := newInspector(ctx, cfg, logger)
	if err != nil {
		reportInputErrors(stdout, stderr, cfg.Output.ConsoleFormat, err)
		return 1
	}

	outMgr, err := output.Open(cfg, stdout)
	if err != nil {
		reportInputErrors(stdout, stderr, cfg.Output.ConsoleFormat, fmt.Errorf("failed to create output sinks: %w", err))
		return 1
	}

	eng := engine.NewEngine(insp, logger)
	_ = outMgr.Write(output.Event{
		Type:       output.EventRunStarted,
		Repository: cfg.Target.Repository,
		SHA:        cfg.Target.SHA,
		Checks:     len(selected),
	})

	report, err := eng.RunPrepared(ctx, cfg, selected)
	if err != nil {
		_ = outMgr.Close()
		reportInputErrors(stdout, stderr, cfg.Output.ConsoleFormat, err)
		return 1
	}

	if err := output.WriteReport(outMgr, report); err != nil {
		logger.Error("failed to write results", "error", err)
	}
	if err := outMgr.Close(); err != nil {
		// A lost summary must not turn a failing run green or a passing run red.
		logger.Error("failed to close output sinks", "error", err)
	}
	return report.ExitCode()
}

// reportInputErrors prints fatal configuration errors, one per line. In
// github console format they become error annotations.
func reportInputErrors(stdout, stderr io.Writer, consoleFormat string, err error) {
	lines := strings.Split(err.Error(), "\n")
	if strings.EqualFold(strings.TrimSpace(consoleFormat), "github") {
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			_, _ = io.WriteString(stdout, output.ErrorCommand("", line))
		}
		_, _ = io.WriteString(stdout, output.ErrorCommand("", "Invalid or missing inputs."))
		return
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintf(stderr, "Error: %s\n", line)
	}
}
