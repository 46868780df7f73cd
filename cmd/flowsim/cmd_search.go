package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowsim-io/flowsim/pkg/flowsim"
	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

var searchFlags struct {
	workflow   string
	status     string
	externalID string
	group      string
	limit      int
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "List simulations matching the given filters",
	RunE:  runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchFlags.workflow, "workflow", "", "filter by workflow name")
	f.StringVar(&searchFlags.status, "status", "", "filter by status (Active, Completed, Stopped, Timeout, Error)")
	f.StringVar(&searchFlags.externalID, "external-id", "", "filter by external id")
	f.StringVar(&searchFlags.group, "group", "", "filter by executor group")
	f.IntVar(&searchFlags.limit, "limit", 0, "maximum rows to return (default 100)")
}

func runSearch(cmd *cobra.Command, _ []string) error {
	db := flowsim.OpenDatabase()
	defer db.Close()
	manager := flowsim.NewSimulationManager(db)

	sims, err := manager.SearchSimulations(models.SearchSimulationRequest{
		WorkflowName:  searchFlags.workflow,
		Status:        searchFlags.status,
		ExternalID:    searchFlags.externalID,
		ExecutorGroup: searchFlags.group,
		Limit:         searchFlags.limit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Simulations: (%d)\n", len(*sims))
	for _, sim := range *sims {
		line := fmt.Sprintf("  #%d %s workflow=%s status=%s", sim.ID, sim.ExternalID, sim.WorkflowName, sim.Status)
		if sim.CurrentPosition != "" {
			line += " position=" + sim.CurrentPosition
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
