package flags

// Package flags defines canonical CLI flag names shared across the CLI and the
// config layer, so error messages and flag wiring cannot drift apart.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Target.Owner, flags.FlagOwner, "", "...")
//	arg := "--" + flags.FlagOwner
const (
	// Target
	FlagOwner      = "owner"
	FlagRepository = "repository"
	FlagSHA        = "sha"
	FlagAPIURL     = "api-url"

	// Checks
	FlagCheckBranchProtection = "check-branch-protection"
	FlagCheckCopilot          = "check-copilot"
	FlagCheckDependabot       = "check-dependabot"
	FlagCheckBundlerAudit     = "check-bundler-audit"
	FlagCheckWebhook          = "check-webhook"
	FlagConfig                = "config"
	FlagSet                   = "set"

	// Output
	FlagSummary       = "summary"
	FlagNoSummary     = "no-summary"
	FlagConsoleFormat = "console-format"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"

	// Runtime
	FlagCapacity    = "capacity"
	FlagPacing      = "pacing"
	FlagCallTimeout = "call-timeout"
	FlagVerbose     = "verbose"
)

// CheckToggleFlags maps each check toggle name to its flag.
var CheckToggleFlags = map[string]string{
	"branch-protection": FlagCheckBranchProtection,
	"copilot":           FlagCheckCopilot,
	"dependabot":        FlagCheckDependabot,
	"bundler-audit":     FlagCheckBundlerAudit,
	"webhook":           FlagCheckWebhook,
}
