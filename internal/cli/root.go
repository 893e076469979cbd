package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "smearctl",
		Short:        "Analyze blood smear images from the command line",
		SilenceUsage: true,
	}

	cmd.AddCommand(analyzeCmd())
	cmd.AddCommand(validateCmd())
	return cmd
}
