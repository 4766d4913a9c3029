package cmd

import (
	"fmt"
	"os"

	"CampusTrade/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "campustrade",
	Short: "CampusTrade is a campus secondhand marketplace backend.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
