// Package cli implements the plsfix command line: batch exports of
// annotated screenshots described by a YAML manifest.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plsfix",
		Short: "Annotate screenshots and export them as PNG, PDF or interactive HTML",
		Long: `plsfix renders annotated screenshots without the web editor.

Describe the screenshots and their notes in a YAML manifest and export them
in any of the formats the editor offers, or publish them through the
configured share target.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newShareCmd())

	return cmd
}
