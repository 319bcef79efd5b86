package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ed-fi-alliance-oss/meadowlark/cmd"
	"github.com/ed-fi-alliance-oss/meadowlark/cmd/document"
	"github.com/ed-fi-alliance-oss/meadowlark/cmd/inspect"
	"github.com/ed-fi-alliance-oss/meadowlark/cmd/loadorder"
	"github.com/ed-fi-alliance-oss/meadowlark/cmd/migrate"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := cmd.NewRootCommand()

	rootCmd.AddCommand(cmd.NewVersionCommand())
	rootCmd.AddCommand(migrate.NewMigrateCommand())
	rootCmd.AddCommand(loadorder.NewLoadOrderCommand())
	rootCmd.AddCommand(inspect.NewInspectCommand())
	rootCmd.AddCommand(document.NewDocumentCommand())

	return rootCmd
}
