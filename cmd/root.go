// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with MEADOWLARK, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("MEADOWLARK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/meadowlark", "$HOME/.meadowlark", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	return &cobra.Command{
		Use:   "meadowlark",
		Short: "Tools for an Ed-Fi style document store driven by a resource schema",
		Long: `Tools for an Ed-Fi style document store driven by a resource schema.

Meadowlark derives the identity and references of documents from a schema document,
keeps references consistent when identities change, and computes the order in which
resources can be bulk loaded.`,
		SilenceUsage: true,
	}
}
