package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for jarcompare
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jarcompare",
		Short: "Report duplicated library versions in a directory",
		Long: `jarcompare lists the .jar files of a directory, strips the version suffix
from each filename ("guava-32.1.2.jar" becomes "guava") and reports files that
share a library name with their alphabetical predecessor.

Results are appended to CompareJarFilesLog.txt in the scanned directory.
Run without a subcommand to scan the current directory.

Configuration is loaded from .jarcompare/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		Args:    cobra.NoArgs,
		RunE:    runScan,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	addScanFlags(cmd)

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewStripCommand())

	return cmd
}
