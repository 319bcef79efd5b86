package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ed-fi-alliance-oss/meadowlark/internal/build"
)

// NewVersionCommand returns the command to get the meadowlark version.
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the Meadowlark version",
		Long:  "Return the Meadowlark version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

// print out the built version
func version(cmd *cobra.Command, _ []string) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Meadowlark Version %s Date %s commit id %s\n", build.Version, build.Date, build.Commit)
	return err
}
