// Package cli implements the springforge command line interface: a
// one-shot conversion pipeline plus an analyze-only mode.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "springforge",
		Short: "Convert Ruby on Rails projects to Spring Boot",
		Long: "Springforge fetches a Ruby or Rails codebase, asks an LLM for a target\n" +
			"Spring Boot layout, translates the sources file by file and packages\n" +
			"the result as a buildable Maven project.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConvertCmd())
	cmd.AddCommand(newAnalyzeCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the CLI. Errors are reported here; the caller only
// decides the exit code.
func Execute(ctx context.Context) error {
	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		newColorLogger().Error("%v", err)
	}
	return err
}
