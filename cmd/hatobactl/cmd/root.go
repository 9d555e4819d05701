package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Hatoba/common/version"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hatobactl",
		Short: "Hatoba webhook gateway CLI",
		Long: `hatobactl runs webhook payloads through the Hatoba event pipeline
offline and checks gateway configuration files.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newNormalizeCmd(), newConfigCmd(), newVersionCmd())
	return root
}

// Execute runs the CLI, printing the error on failure.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		printError(root.ErrOrStderr(), "%v", err)
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}
