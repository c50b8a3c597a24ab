package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"repopolicy/internal/checks"
	"repopolicy/internal/config"
	"repopolicy/internal/flags"
)

var checksListQuiet bool

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "Describe the available checks",
	Long: `Describe the repository policy checks built into repopolicy.

Each check belongs to a toggle group that can be switched off with an action
input or a --check-* flag (see "repopolicy check --help").

Examples:
  repopolicy checks list
  repopolicy checks show bundler-audit
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var checksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available checks",
	Long: `List every check, sorted by check ID.

Output:
  ----------------------------------------
  CHECK: {ID}
  ----------------------------------------
  {TITLE}
  {DESCRIPTION}
  Toggle: --{FLAG} / {INPUT}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, c := range checks.List() {
			if checksListQuiet {
				fmt.Fprintln(w, c.ID())
				continue
			}
			printCheck(w, c)
		}
		return nil
	},
}

var checksShowCmd = &cobra.Command{
	Use:   "show [check-id]",
	Short: "Show one check and its options",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ok := checks.Lookup(args[0])
		if !ok {
			return fmt.Errorf("check not found: %s", args[0])
		}
		printCheck(cmd.OutOrStdout(), c)
		return nil
	},
}

func printCheck(w io.Writer, c checks.Check) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "CHECK: %s\n", c.ID())
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, c.Title())
	fmt.Fprintln(w, c.Description())
	if t, ok := toggleFor(c.ID()); ok {
		fmt.Fprintf(w, "Toggle: --%s / %s\n", flags.CheckToggleFlags[t.Name], t.Env)
	}

	if cc, ok := c.(checks.ConfigurableCheck); ok {
		if opts := cc.Options(); len(opts) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Options:")
			for _, opt := range opts {
				def := opt.Default
				if def == "" {
					def = `""`
				}
				fmt.Fprintf(w, "  %s.%s\n", c.ID(), opt.Name)
				fmt.Fprintf(w, "    Description: %s\n", opt.Description)
				fmt.Fprintf(w, "    Default:     %s\n", def)
			}
		}
	}
	fmt.Fprintln(w)
}

func toggleFor(id string) (config.Toggle, bool) {
	for _, t := range config.Toggles {
		if slices.Contains(t.Checks, id) {
			return t, true
		}
	}
	return config.Toggle{}, false
}

func init() {
	rootCmd.AddCommand(checksCmd)
	checksCmd.AddCommand(checksListCmd)
	checksListCmd.Flags().BoolVarP(&checksListQuiet, "quiet", "q", false, "Only print check IDs")
	checksCmd.AddCommand(checksShowCmd)
}
