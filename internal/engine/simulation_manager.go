package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowsim-io/flowsim/internal/config"
	"github.com/flowsim-io/flowsim/pkg/flowsim/core"
	"github.com/flowsim-io/flowsim/pkg/flowsim/domain"
	"github.com/flowsim-io/flowsim/pkg/flowsim/loader"
	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

// SimulationManager polls the store for pending simulations and feeds
// them to worker goroutines, and exposes the run-level operations
// callers need between batch executions (checkpoint resolution, stop,
// rewind).
type SimulationManager struct {
	SimulationRepo SimulationRepo
	EventRepo      SimulationEventRepo
	DefinitionRepo DefinitionRepo
	executorID     string
	wakeup         chan struct{}
	clock          core.Clock
}

func NewSimulationManager(simulationRepo SimulationRepo, eventRepo SimulationEventRepo, definitionRepo DefinitionRepo, clock core.Clock) *SimulationManager {
	return &SimulationManager{
		SimulationRepo: simulationRepo,
		EventRepo:      eventRepo,
		DefinitionRepo: definitionRepo,
		executorID:     uuid.NewString(),
		wakeup:         make(chan struct{}, 1),
		clock:          clock,
	}
}

// Wakeup nudges the poll loop without waiting for the next tick.
func (sm *SimulationManager) Wakeup() {
	select {
	case sm.wakeup <- struct{}{}:
	default:
	}
}

// RegisterWorkflowDefinition normalizes, validates and stores a
// workflow definition under its name.
func (sm *SimulationManager) RegisterWorkflowDefinition(wf *models.Workflow) error {
	core.Normalize(wf)
	if err := core.Validate(wf); err != nil {
		return fmt.Errorf("invalid workflow %q: %w", wf.Name, err)
	}
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("encode workflow %q: %w", wf.Name, err)
	}
	now := sm.clock.Now().UTC()
	return sm.DefinitionRepo.Save(&domain.WorkflowDefinition{
		Name:        wf.Name,
		Description: wf.Description,
		Created:     now,
		Updated:     now,
		Definition:  string(data),
	})
}

// CreateSimulation submits a new run for the engine to pick up. A
// fresh external id is minted when the request does not carry one.
func (sm *SimulationManager) CreateSimulation(req models.StartSimulationRequest) (*domain.Simulation, error) {
	if _, err := sm.DefinitionRepo.FindByName(req.WorkflowName); err != nil {
		return nil, fmt.Errorf("unknown workflow %q: %w", req.WorkflowName, err)
	}
	externalID := req.ExternalID
	if externalID == "" {
		externalID = uuid.NewString()
	}
	executorGroup := req.ExecutorGroup
	if executorGroup == "" {
		executorGroup = config.GetSystemSettingString(config.ENGINE_EXECUTOR_GROUP)
	}
	inputs := "{}"
	if len(req.Inputs) > 0 {
		data, err := json.Marshal(req.Inputs)
		if err != nil {
			return nil, fmt.Errorf("encode inputs: %w", err)
		}
		inputs = string(data)
	}
	sim := &domain.Simulation{
		ExternalID:    externalID,
		WorkflowName:  req.WorkflowName,
		Status:        string(models.StatusActive),
		ExecutorGroup: executorGroup,
		Inputs:        sql.NullString{String: inputs, Valid: true},
		Results:       sql.NullString{String: "{}", Valid: true},
	}
	if _, err := sm.SimulationRepo.Save(sim); err != nil {
		return nil, err
	}
	sm.Wakeup()
	return sim, nil
}

// SearchSimulations lists persisted runs matching the request filters.
func (sm *SimulationManager) SearchSimulations(req models.SearchSimulationRequest) (*[]domain.Simulation, error) {
	return sm.SimulationRepo.SearchSimulations(req)
}

// GetSimulation returns the persisted record together with its trail.
func (sm *SimulationManager) GetSimulation(id int64) (*domain.Simulation, []models.ExecutionEntry, error) {
	sim, err := sm.SimulationRepo.FindByID(id)
	if err != nil {
		return nil, nil, err
	}
	events, err := sm.EventRepo.FindAllBySimulationID(id)
	if err != nil {
		return nil, nil, err
	}
	return sim, eventsToEntries(events), nil
}

// ResolveCheckpoint applies an external checkpoint resolution to a
// blocked simulation and persists the outcome. False means the run is
// terminal or not positioned on a checkpoint.
func (sm *SimulationManager) ResolveCheckpoint(id int64, resolved bool, notes string) (bool, error) {
	machine, run, sim, err := sm.loadRun(id)
	if err != nil {
		return false, err
	}
	priorEntries := len(run.Trail)
	ok := machine.ResolveCheckpoint(run, resolved, notes)
	if err := persistRun(machine, run, sim, priorEntries, sm.SimulationRepo, sm.EventRepo, sm.clock); err != nil {
		return ok, err
	}
	if ok && !run.Status.Terminal() {
		sm.Wakeup()
	}
	return ok, nil
}

// StopSimulation terminates a run on external request. Stopping always
// succeeds regardless of the current step type.
func (sm *SimulationManager) StopSimulation(id int64, atPosition *int) error {
	machine, run, sim, err := sm.loadRun(id)
	if err != nil {
		return err
	}
	priorEntries := len(run.Trail)
	machine.Stop(run, atPosition)
	return persistRun(machine, run, sim, priorEntries, sm.SimulationRepo, sm.EventRepo, sm.clock)
}

// RewindSimulation truncates the trail at point and rebuilds the run
// state by replaying the remaining entries.
func (sm *SimulationManager) RewindSimulation(id int64, point int) error {
	machine, run, sim, err := sm.loadRun(id)
	if err != nil {
		return err
	}
	rewound := machine.Rewind(run.Trail, point)
	if err := sm.EventRepo.DeleteFromSeq(id, point); err != nil {
		return fmt.Errorf("truncate simulation %d trail: %w", id, err)
	}
	if err := persistRun(machine, rewound, sim, len(rewound.Trail), sm.SimulationRepo, sm.EventRepo, sm.clock); err != nil {
		return err
	}
	sm.Wakeup()
	return nil
}

func (sm *SimulationManager) loadRun(id int64) (*core.Machine, *core.Run, *domain.Simulation, error) {
	sim, err := sm.SimulationRepo.FindByID(id)
	if err != nil {
		return nil, nil, nil, err
	}
	def, err := sm.DefinitionRepo.FindByName(sim.WorkflowName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load workflow definition %q: %w", sim.WorkflowName, err)
	}
	wf, err := loader.Load([]byte(def.Definition), ".json")
	if err != nil {
		return nil, nil, nil, err
	}
	machine := core.NewMachine(wf, config.GuardSettings(), sm.clock)
	run, err := restoreRun(machine, sim, sm.EventRepo)
	if err != nil {
		return nil, nil, nil, err
	}
	return machine, run, sim, nil
}

// StartEngine starts polling for pending simulations at the given
// interval. It blocks until the context is cancelled.
func (sm *SimulationManager) StartEngine(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	queueSize := config.GetSystemSettingInteger(config.ENGINE_BATCH_SIZE)
	if queueSize <= 0 {
		queueSize = 10 // fallback default
	}
	simulationQueue := make(chan domain.Simulation, queueSize)

	workers := config.GetSystemSettingInteger(config.ENGINE_EXECUTOR_SIZE)
	slog.Info("Starting simulation engine", "workers", workers, "queue_size", queueSize, "executor_id", sm.executorID)
	for i := 0; i < workers; i++ {
		go Worker(ctx, i, sm, simulationQueue)
	}

	slog.Info("Simulation engine started", "poll_interval", pollInterval.String())

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Simulation engine stopping due to context cancel")
			return
		case <-ticker.C:
			sm.pollAndRunSimulations(ctx, simulationQueue)
		case <-sm.wakeup:
			sm.pollAndRunSimulations(ctx, simulationQueue)
		}
	}
}

func (sm *SimulationManager) pollAndRunSimulations(ctx context.Context, queue chan<- domain.Simulation) {
	batchSize := config.GetSystemSettingInteger(config.ENGINE_BATCH_SIZE)
	executorGroup := config.GetSystemSettingString(config.ENGINE_EXECUTOR_GROUP)
	pending, err := sm.SimulationRepo.FindPendingSimulations(batchSize, executorGroup)
	if err != nil {
		slog.ErrorContext(ctx, "Error finding pending simulations", "error", err)
		return
	}
	for _, sim := range *pending {
		if !sm.SimulationRepo.MarkSimulationAsScheduledForExecution(sim.ID, sm.executorID, sim.Modified) {
			// another executor claimed it first
			continue
		}
		select {
		case queue <- sim:
		case <-ctx.Done():
			return
		}
	}
}
