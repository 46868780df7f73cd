package core

import (
	"maps"

	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

// Run is the mutable state of one execution attempt. The run
// exclusively owns its results, inputs and trail; the workflow
// definition it executes against is read-only input.
//
// Position is an index into the workflow's step arena for both
// addressing modes; len(steps) means "past the end" and implies
// completion. The navigator renders it as an array position (linear) or
// a step identifier (graph) for persistence and the trail.
type Run struct {
	Status     models.SimulationStatus
	Position   int
	Results    map[string]string
	Inputs     map[string]string
	Trail      []models.ExecutionEntry
	Iterations int
}

// Clone returns a deep copy sharing nothing with the original. The
// batch runner works on a clone so a guard trip or completion commits
// the whole trail at once.
func (r *Run) Clone() *Run {
	c := *r
	c.Results = maps.Clone(r.Results)
	c.Inputs = maps.Clone(r.Inputs)
	c.Trail = append([]models.ExecutionEntry(nil), r.Trail...)
	return &c
}

// NewRun starts a fresh run positioned on the workflow's start step.
func (m *Machine) NewRun() *Run {
	return &Run{
		Status:   models.StatusActive,
		Position: m.nav.Start(),
		Results:  make(map[string]string),
		Inputs:   make(map[string]string),
	}
}

// PositionKey renders the run's current position in the workflow's
// addressing scheme.
func (m *Machine) PositionKey(run *Run) string {
	return m.nav.PositionKey(run.Position)
}

// RestoreRun rebuilds a run from persisted state. Nil maps are
// replaced so callers can hand the run straight to the machine.
func (m *Machine) RestoreRun(status models.SimulationStatus, positionKey string, iterations int, results, inputs map[string]string, trail []models.ExecutionEntry) *Run {
	run := &Run{
		Status:     status,
		Results:    results,
		Inputs:     inputs,
		Trail:      trail,
		Iterations: iterations,
	}
	if run.Status == "" {
		run.Status = models.StatusActive
	}
	if run.Results == nil {
		run.Results = make(map[string]string)
	}
	if run.Inputs == nil {
		run.Inputs = make(map[string]string)
	}
	if idx, ok := m.nav.IndexOf(positionKey); ok {
		run.Position = idx
	} else if positionKey == "" && run.Status == models.StatusActive {
		run.Position = m.nav.Start()
	} else {
		run.Position = len(m.wf.Steps)
	}
	return run
}
