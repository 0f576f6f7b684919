// Package main provides the battlemap command: offline tools for scene files.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "battlemap",
		Short:        "Inspect and edit battlemap scene files",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to configuration file (defaults and BATTLEMAP_ env when empty)")
	root.PersistentFlags().BoolP("verbose", "v", false, "log tool decisions at debug level")
	root.AddCommand(validateCmd())
	root.AddCommand(revealCmd())
	root.AddCommand(doorCmd())
	root.AddCommand(maskCmd())
	return root
}
