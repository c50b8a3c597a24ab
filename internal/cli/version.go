package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version, commit, date := BuildInfo()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "repopolicy %s\n", version)
		fmt.Fprintf(w, "commit:   %s\n", commit)
		fmt.Fprintf(w, "built:    %s\n", date)
		fmt.Fprintf(w, "go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
