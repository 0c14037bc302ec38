package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays every configuration key with its value from config.toml, or the
default when unset. Secrets are masked.

Examples:
  chatrelay config list`

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := openConfiger(cmd)
			if err != nil {
				return err
			}

			keys := config.ValidConfigKeys()
			maxLen := 0
			for _, k := range keys {
				maxLen = max(maxLen, len(k))
			}

			out := cmd.OutOrStdout()
			for _, key := range keys {
				value, err := cfger.GetConfigValue(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %-*s  %s\n", maxLen, key, displayValue(key, value))
			}
			fmt.Fprintln(out)

			return nil
		},
	}
}
