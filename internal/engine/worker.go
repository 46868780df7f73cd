package engine

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/flowsim-io/flowsim/pkg/flowsim/domain"
)

// Worker processes claimed simulations from the queue until the
// context is cancelled.
func Worker(ctx context.Context, id int, sm *SimulationManager, queue <-chan domain.Simulation) {
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Worker stopping due to context cancel", "worker_id", workerID)
			return
		case sim := <-queue:
			slog.Info("Worker starting simulation", "worker_id", workerID, "simulation_id", sim.ID)
			if err := RunSimulation(ctx, &sim, sm.SimulationRepo, sm.EventRepo, sm.DefinitionRepo, sm.clock, workerID); err != nil {
				slog.ErrorContext(ctx, "Error running simulation", "worker_id", workerID, "simulation_id", sim.ID, "error", err)
			}
			slog.Info("Worker finished simulation", "worker_id", workerID, "simulation_id", sim.ID)
		}
	}
}
