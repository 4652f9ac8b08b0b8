// Package cli defines the aide command tree. Service instances are wired
// into package-level variables by the app initializer before Execute runs.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "aide",
	Short: "aide - a personal AI employee over a plain-file workspace",
	Long: `aide watches your communication surfaces (Gmail, LinkedIn, WhatsApp Web)
and turns anything that needs you into a markdown file under Needs_Action/.
You review, move files to Approved/, and the actors take it from there:
posting, sending, replying, and filing the result under Done/.

Every action is audited under Logs/, outbound sends are rate limited, and
nothing leaves the machine without an approval file.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("aide %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
