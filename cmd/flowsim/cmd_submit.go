package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowsim-io/flowsim/pkg/flowsim"
	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

var submitFlags struct {
	workflow string
	inputs   []string
	group    string
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new simulation for a registered workflow",
	RunE:  runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitFlags.workflow, "workflow", "", "registered workflow name (required)")
	f.StringArrayVar(&submitFlags.inputs, "input", nil, "answer for a question step, key=value (repeatable)")
	f.StringVar(&submitFlags.group, "group", "", "executor group (defaults to the configured group)")

	_ = submitCmd.MarkFlagRequired("workflow")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	inputs := make(map[string]string, len(submitFlags.inputs))
	for _, pair := range submitFlags.inputs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return fmt.Errorf("invalid --input %q, expected key=value", pair)
		}
		inputs[key] = value
	}

	db := flowsim.OpenDatabase()
	defer db.Close()
	manager := flowsim.NewSimulationManager(db)

	sim, err := manager.CreateSimulation(models.StartSimulationRequest{
		WorkflowName:  submitFlags.workflow,
		ExecutorGroup: submitFlags.group,
		Inputs:        inputs,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Simulation submitted\n")
	fmt.Fprintf(out, "ID:          %d\n", sim.ID)
	fmt.Fprintf(out, "External ID: %s\n", sim.ExternalID)
	return nil
}
