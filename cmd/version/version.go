// Package versioncmder provides the version command.
package versioncmder

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Version:"), utils.Version)
			fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Sha:"), utils.Sha)
			fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Built at:"), utils.Buildtime)
			fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Go:"), runtime.Version())
			return nil
		},
	}
}
