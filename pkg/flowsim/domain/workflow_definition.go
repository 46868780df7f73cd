package domain

import "time"

// WorkflowDefinition is a stored workflow definition; Definition holds
// the JSON-encoded models.Workflow handed to the execution core.
type WorkflowDefinition struct {
	Name        string
	Description string
	Created     time.Time
	Updated     time.Time
	Definition  string
}
