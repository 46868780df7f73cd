package engine

import (
	"time"

	"github.com/flowsim-io/flowsim/pkg/flowsim/domain"
	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

// SimulationRepo defines the interface for simulation persistence,
// matching repository.SimulationRepository.
type SimulationRepo interface {
	FindByID(id int64) (*domain.Simulation, error)
	FindByExternalID(externalID string) (*domain.Simulation, error)
	Save(sim *domain.Simulation) (int64, error)
	FindPendingSimulations(size int, executorGroup string) (*[]domain.Simulation, error)
	SearchSimulations(req models.SearchSimulationRequest) (*[]domain.Simulation, error)
	MarkSimulationAsScheduledForExecution(id int64, executorID string, modified time.Time) bool
	UpdateStartingTime(id int64) error
	SaveRunState(id int64, status string, position string, iterations int, results string, inputs string, terminal bool) error
	ClearExecutorId(id int64) error
}

// SimulationEventRepo defines the interface for trail persistence.
type SimulationEventRepo interface {
	Save(e *domain.SimulationEvent) (int64, error)
	FindAllBySimulationID(simulationID int64) (*[]domain.SimulationEvent, error)
	DeleteFromSeq(simulationID int64, seq int) error
}

// DefinitionRepo defines the interface for workflow definition persistence.
type DefinitionRepo interface {
	FindAll() (*[]domain.WorkflowDefinition, error)
	FindByName(name string) (*domain.WorkflowDefinition, error)
	Save(def *domain.WorkflowDefinition) error
}
