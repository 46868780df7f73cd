package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowsim-io/flowsim/pkg/flowsim"
)

var resolveFlags struct {
	id       int64
	resolved bool
	notes    string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the checkpoint a simulation is blocked on",
	RunE:  runResolve,
}

func init() {
	f := resolveCmd.Flags()
	f.Int64Var(&resolveFlags.id, "id", 0, "Simulation DB ID (required)")
	f.BoolVar(&resolveFlags.resolved, "resolved", false, "true completes the run, false continues to the next step")
	f.StringVar(&resolveFlags.notes, "notes", "", "annotation recorded in the trail")

	_ = resolveCmd.MarkFlagRequired("id")
}

func runResolve(cmd *cobra.Command, _ []string) error {
	db := flowsim.OpenDatabase()
	defer db.Close()
	manager := flowsim.NewSimulationManager(db)

	ok, err := manager.ResolveCheckpoint(resolveFlags.id, resolveFlags.resolved, resolveFlags.notes)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintf(out, "Simulation #%d is not blocked on a checkpoint\n", resolveFlags.id)
		return nil
	}
	fmt.Fprintf(out, "Checkpoint on simulation #%d recorded (resolved=%v)\n", resolveFlags.id, resolveFlags.resolved)
	return nil
}
