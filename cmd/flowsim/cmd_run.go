package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowsim-io/flowsim/internal/config"
	"github.com/flowsim-io/flowsim/pkg/flowsim/core"
	"github.com/flowsim-io/flowsim/pkg/flowsim/loader"
)

var runFlags struct {
	inputs []string
}

var runCmd = &cobra.Command{
	Use:   "run <definition-file>",
	Short: "Execute a workflow definition headlessly and print the trail",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringArrayVar(&runFlags.inputs, "input", nil, "answer for a question step, key=value (repeatable)")
}

func runRun(cmd *cobra.Command, args []string) error {
	wf, err := loader.LoadFromPath(args[0])
	if err != nil {
		return err
	}

	machine := core.NewMachine(wf, config.GuardSettings(), core.NewRealClock())
	run := machine.NewRun()
	for _, pair := range runFlags.inputs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return fmt.Errorf("invalid --input %q, expected key=value", pair)
		}
		run.Inputs[key] = value
	}

	machine.Execute(run)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workflow: %s (%s mode)\n", wf.Name, wf.Mode)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Trail:    (%d steps)\n", len(run.Trail))
	for _, entry := range run.Trail {
		line := fmt.Sprintf("  [%s] %s (%s)", entry.Position, entry.StepTitle, entry.StepType)
		if entry.Answered {
			line += " answer=" + entry.Answer
		}
		if entry.ConditionResult != "" {
			line += " -> " + entry.ConditionResult
		}
		if entry.Notes != "" {
			line += " (" + entry.Notes + ")"
		}
		fmt.Fprintln(out, line)
	}
	if run.Status.Terminal() && len(run.Trail) > 0 {
		fmt.Fprintf(out, "Stopped on: %s\n", run.Trail[len(run.Trail)-1].StepTitle)
	}

	if len(run.Results) > 0 {
		fmt.Fprintf(out, "Results:\n")
		keys := make([]string, 0, len(run.Results))
		for k := range run.Results {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %s\n", k, run.Results[k])
		}
	}
	return nil
}
