package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"repopolicy/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "repopolicy",
	Short: "Check a GitHub repository against the organization's repository policy",
	Long: `repopolicy checks one GitHub repository at one commit against a set of
repository policy rules and reports every violation.

It is meant to run as a GitHub Action: inputs are read from the environment a
workflow step receives, and the result is appended to the step summary.
Every input can also be given as a flag.

Examples:
	# Show available commands and global flags
	repopolicy --help

	# Check a repository from a workstation
	repopolicy check --owner acme --repository acme/widgets --sha HEAD --no-summary --console-format text

	# List checks
	repopolicy checks list

	# Print build info
	repopolicy version`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, flags.FlagVerbose, false, "Enable debug logging (logs every GitHub API call)")
}

// newLogger returns the process logger: text records on w, debug level when
// verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
