package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowsim-io/flowsim/pkg/flowsim"
	"github.com/flowsim-io/flowsim/pkg/flowsim/loader"
)

var serveFlags struct {
	definitions []string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulation engine against the configured database",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringArrayVar(&serveFlags.definitions, "definition", nil, "workflow definition file to register on boot (repeatable)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(serveFlags.definitions) > 0 {
		db := flowsim.OpenDatabase()
		manager := flowsim.NewSimulationManager(db)
		for _, path := range serveFlags.definitions {
			wf, err := loader.LoadFromPath(path)
			if err != nil {
				db.Close()
				return err
			}
			if err := manager.RegisterWorkflowDefinition(wf); err != nil {
				db.Close()
				return err
			}
		}
		db.Close()
	}

	return flowsim.Start(ctx)
}
