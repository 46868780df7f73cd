package models

import "time"

// SimulationStatus is the lifecycle state of one execution attempt.
type SimulationStatus string

const (
	StatusActive    SimulationStatus = "Active"
	StatusCompleted SimulationStatus = "Completed"
	StatusStopped   SimulationStatus = "Stopped"
	StatusTimeout   SimulationStatus = "Timeout"
	StatusError     SimulationStatus = "Error"
)

// Terminal reports whether the status accepts no further step processing.
func (s SimulationStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusStopped, StatusTimeout, StatusError:
		return true
	}
	return false
}

// ExecutionEntry is one record of the append-only execution trail.
// Entries are never mutated once appended, only truncated on rewind.
type ExecutionEntry struct {
	Position        string    `json:"position"`
	StepTitle       string    `json:"stepTitle"`
	StepType        StepType  `json:"stepType"`
	Answer          string    `json:"answer,omitempty"`
	Answered        bool      `json:"answered,omitempty"`
	ConditionResult string    `json:"conditionResult,omitempty"`
	Resolved        *bool     `json:"resolved,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// StartSimulationRequest is the payload for submitting a new simulation
// to the engine.
type StartSimulationRequest struct {
	ExternalID    string            `json:"externalId"`
	ExecutorGroup string            `json:"executorGroup"`
	WorkflowName  string            `json:"workflowName"`
	Inputs        map[string]string `json:"inputs"`
}

// StartSimulationResponse is returned on successful submission.
type StartSimulationResponse struct {
	ID int64 `json:"id"`
}

// SearchSimulationRequest filters simulation queries; zero-valued
// fields match everything.
type SearchSimulationRequest struct {
	WorkflowName  string `json:"workflowName,omitempty"`
	Status        string `json:"status,omitempty"`
	ExternalID    string `json:"externalId,omitempty"`
	ExecutorGroup string `json:"executorGroup,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}
