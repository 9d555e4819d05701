package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Hatoba/internal/hatoba/config"
)

func newConfigCmd() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Gateway configuration commands",
	}
	cfgCmd.AddCommand(&cobra.Command{
		Use:     "validate <file>",
		Short:   "Check a gateway config file",
		Long:    "Checks a config file against the schema and the semantic rules the gateway applies at startup. Environment overrides are not applied.",
		Example: "  hatobactl config validate /etc/hatoba/hatoba.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read config file: %w", err)
			}
			cfg, err := config.Parse(data)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			for _, w := range config.Warnings(cfg) {
				printWarn(cmd.OutOrStdout(), "%s", w)
			}
			printSuccess(cmd.OutOrStdout(), "%s is valid", args[0])
			return nil
		},
	})
	return cfgCmd
}
