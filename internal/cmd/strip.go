package cmd

import (
	"fmt"

	"github.com/harrison/jarcompare/internal/detector"
	"github.com/spf13/cobra"
)

// NewStripCommand creates the strip command
func NewStripCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "strip <filename>...",
		Short: "Print the library name inferred from each filename",
		Long: `Print the library name jarcompare compares for each filename, that is the
name with its version suffix removed. Two files are reported as duplicates when
their library names are identical.

Example:
  jarcompare strip guava-32.1.2.jar readme-1.0.jar readme.jar`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range args {
				fmt.Fprintf(out, "%s -> %s\n", name, detector.StripVersionSuffix(name))
			}
			return nil
		},
	}
}
