package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowsim-io/flowsim/pkg/flowsim/core"
	"github.com/flowsim-io/flowsim/pkg/flowsim/loader"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition-file>",
	Short: "Check a workflow definition for structural defects and dangling references",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	wf, err := loader.LoadFromPath(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workflow: %s (%s mode, %d steps)\n", wf.Name, wf.Mode, len(wf.Steps))

	findings := core.CheckReferences(wf)
	if len(findings) == 0 {
		fmt.Fprintln(out, "OK: all branch, jump and transition targets resolve")
		return nil
	}
	fmt.Fprintf(out, "Findings: (%d, runs fall back to sequential advancement on these)\n", len(findings))
	for _, finding := range findings {
		fmt.Fprintf(out, "  %s\n", finding)
	}
	return nil
}
