package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/flowsim-io/flowsim/pkg/flowsim"
)

var rootCmd = &cobra.Command{
	Use:   "flowsim",
	Short: "Walk branching guided procedures interactively or headlessly",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		flowsim.SetupLogger()
	},
}

func main() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(searchCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
