package models

// Mode selects how a workflow addresses its steps.
type Mode string

const (
	ModeLinear Mode = "linear" // steps addressed by array position, implicit next
	ModeGraph  Mode = "graph"  // steps addressed by identifier with explicit transitions
)

// Workflow is the immutable definition the execution core walks. A
// workflow is in exactly one mode; when the mode field is absent the
// loader derives it from the presence of a start identifier or
// transition edges.
type Workflow struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Mode        Mode   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Start       string `json:"start,omitempty" yaml:"start,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}
