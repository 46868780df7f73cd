package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/flowsim-io/flowsim/internal/config"
	"github.com/flowsim-io/flowsim/pkg/flowsim/core"
	"github.com/flowsim-io/flowsim/pkg/flowsim/domain"
	"github.com/flowsim-io/flowsim/pkg/flowsim/loader"
	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

// RunSimulation executes one claimed simulation to completion (or to a
// guard trip or checkpoint) and persists the updated state. The core
// does the walking; this is the external caller that supplies the
// workflow definition, the inputs and the place to persist the result.
func RunSimulation(ctx context.Context, sim *domain.Simulation, r SimulationRepo, er SimulationEventRepo, dr DefinitionRepo, clock core.Clock, workerID string) error {
	slog.InfoContext(ctx, "Running simulation", "simulation_id", sim.ID, "workflow", sim.WorkflowName, "worker_id", workerID)

	def, err := dr.FindByName(sim.WorkflowName)
	if err != nil {
		return fmt.Errorf("load workflow definition %q: %w", sim.WorkflowName, err)
	}
	wf, err := loader.Load([]byte(def.Definition), ".json")
	if err != nil {
		return fmt.Errorf("parse workflow definition %q: %w", sim.WorkflowName, err)
	}

	machine := core.NewMachine(wf, config.GuardSettings(), clock)
	run, err := restoreRun(machine, sim, er)
	if err != nil {
		return err
	}

	if !sim.Started.Valid {
		if err := r.UpdateStartingTime(sim.ID); err != nil {
			slog.ErrorContext(ctx, "Error updating simulation starting time", "error", err, "worker_id", workerID)
			return err
		}
	}

	priorEntries := len(run.Trail)
	ok := machine.Execute(run)
	if !ok {
		slog.WarnContext(ctx, "Simulation guard tripped", "simulation_id", sim.ID, "status", string(run.Status), "error", run.Results["_error"], "worker_id", workerID)
	}

	if err := persistRun(machine, run, sim, priorEntries, r, er, clock); err != nil {
		return err
	}

	if !run.Status.Terminal() {
		// blocked on a checkpoint: release the claim so the run can be
		// picked up again once the checkpoint is resolved
		if err := r.ClearExecutorId(sim.ID); err != nil {
			slog.ErrorContext(ctx, "Error clearing executor id", "error", err, "worker_id", workerID)
			return err
		}
	}

	slog.InfoContext(ctx, "Simulation finished", "simulation_id", sim.ID, "status", string(run.Status), "iterations", run.Iterations, "worker_id", workerID)
	return nil
}

// restoreRun rebuilds the in-memory run from the persisted record and
// its trail rows.
func restoreRun(machine *core.Machine, sim *domain.Simulation, er SimulationEventRepo) (*core.Run, error) {
	results, err := decodeStringMap(sim.Results)
	if err != nil {
		return nil, fmt.Errorf("decode simulation %d results: %w", sim.ID, err)
	}
	inputs, err := decodeStringMap(sim.Inputs)
	if err != nil {
		return nil, fmt.Errorf("decode simulation %d inputs: %w", sim.ID, err)
	}
	events, err := er.FindAllBySimulationID(sim.ID)
	if err != nil {
		return nil, fmt.Errorf("load simulation %d trail: %w", sim.ID, err)
	}
	trail := eventsToEntries(events)
	return machine.RestoreRun(models.SimulationStatus(sim.Status), sim.CurrentPosition, sim.IterationCount, results, inputs, trail), nil
}

// persistRun writes the updated run state back: the new trail entries
// become event rows and the simulation record gets the final status,
// position and state maps.
func persistRun(machine *core.Machine, run *core.Run, sim *domain.Simulation, priorEntries int, r SimulationRepo, er SimulationEventRepo, clock core.Clock) error {
	for i := priorEntries; i < len(run.Trail); i++ {
		event := entryToEvent(sim.ID, i, &run.Trail[i])
		if _, err := er.Save(event); err != nil {
			return fmt.Errorf("save simulation %d event %d: %w", sim.ID, i, err)
		}
	}
	resultsJSON, err := encodeStringMap(run.Results)
	if err != nil {
		return err
	}
	inputsJSON, err := encodeStringMap(run.Inputs)
	if err != nil {
		return err
	}
	if err := r.SaveRunState(sim.ID, string(run.Status), machine.PositionKey(run), run.Iterations, resultsJSON, inputsJSON, run.Status.Terminal()); err != nil {
		return fmt.Errorf("save simulation %d run state: %w", sim.ID, err)
	}
	return nil
}

func eventsToEntries(events *[]domain.SimulationEvent) []models.ExecutionEntry {
	if events == nil {
		return nil
	}
	entries := make([]models.ExecutionEntry, 0, len(*events))
	for _, e := range *events {
		entry := models.ExecutionEntry{
			Position:        e.Position,
			StepTitle:       e.StepTitle,
			StepType:        models.StepType(e.StepType),
			Answer:          e.Answer.String,
			Answered:        e.Answer.Valid,
			ConditionResult: e.ConditionResult.String,
			Notes:           e.Notes.String,
			Timestamp:       e.DateTime,
		}
		if e.Resolved.Valid {
			resolved := e.Resolved.Bool
			entry.Resolved = &resolved
		}
		entries = append(entries, entry)
	}
	return entries
}

func entryToEvent(simulationID int64, seq int, entry *models.ExecutionEntry) *domain.SimulationEvent {
	event := &domain.SimulationEvent{
		SimulationID: simulationID,
		Seq:          seq,
		Position:     entry.Position,
		StepTitle:    entry.StepTitle,
		StepType:     string(entry.StepType),
		DateTime:     entry.Timestamp,
	}
	if entry.Answered {
		event.Answer = sql.NullString{String: entry.Answer, Valid: true}
	}
	if entry.ConditionResult != "" {
		event.ConditionResult = sql.NullString{String: entry.ConditionResult, Valid: true}
	}
	if entry.Notes != "" {
		event.Notes = sql.NullString{String: entry.Notes, Valid: true}
	}
	if entry.Resolved != nil {
		event.Resolved = sql.NullBool{Bool: *entry.Resolved, Valid: true}
	}
	return event
}

func decodeStringMap(raw sql.NullString) (map[string]string, error) {
	m := make(map[string]string)
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func encodeStringMap(m map[string]string) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
