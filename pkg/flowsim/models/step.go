package models

// StepType identifies the behavior of a workflow step.
type StepType string

const (
	StepQuestion   StepType = "Question"   // collects one answer from the operator
	StepDecision   StepType = "Decision"   // routes on branch conditions, no input
	StepAction     StepType = "Action"     // executes and may derive variables
	StepCheckpoint StepType = "Checkpoint" // halts until externally resolved
	StepSubFlow    StepType = "SubFlow"    // references another workflow (graph mode)

	// StepSimpleDecision is the legacy alias for Decision. Normalization
	// rewrites it before execution; the state machine never sees it.
	StepSimpleDecision StepType = "SimpleDecision"
)

// Branch is one conditional route of a Decision step. Branches are
// evaluated in listed order and the first true condition wins.
type Branch struct {
	Condition string `json:"condition" yaml:"condition"`
	Target    string `json:"target" yaml:"target"`
}

// Transition is an explicit edge between two steps in graph mode.
// A transition without a condition is the unconditional default edge.
type Transition struct {
	Target    string `json:"target" yaml:"target"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
}

// JumpRule is a universal override edge attached to any step type.
// Jumps are checked before the step's own routing and win when they match.
type JumpRule struct {
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Target    string `json:"target" yaml:"target"`
}

// OutputField is one derived variable produced by an Action step. The
// value template may contain {{variable}} tokens substituted from results.
type OutputField struct {
	Name          string `json:"name" yaml:"name"`
	ValueTemplate string `json:"value" yaml:"value"`
}

// Step is one node of a workflow. The type tag selects which of the
// per-type field groups is meaningful; unrelated fields are ignored.
type Step struct {
	ID    string   `json:"id" yaml:"id"`
	Title string   `json:"title" yaml:"title"`
	Type  StepType `json:"type" yaml:"type"`

	// Question
	VariableName string   `json:"variableName,omitempty" yaml:"variableName,omitempty"`
	AnswerType   string   `json:"answerType,omitempty" yaml:"answerType,omitempty"`
	Options      []string `json:"options,omitempty" yaml:"options,omitempty"`

	// Decision
	Branches   []Branch `json:"branches,omitempty" yaml:"branches,omitempty"`
	ElseTarget string   `json:"elseTarget,omitempty" yaml:"elseTarget,omitempty"`

	// Legacy decision form, rewritten into Branches/ElseTarget at load time.
	Condition   string `json:"condition,omitempty" yaml:"condition,omitempty"`
	TrueTarget  string `json:"trueTarget,omitempty" yaml:"trueTarget,omitempty"`
	FalseTarget string `json:"falseTarget,omitempty" yaml:"falseTarget,omitempty"`

	// Action
	OutputFields []OutputField `json:"outputFields,omitempty" yaml:"outputFields,omitempty"`

	// Checkpoint
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// SubFlow
	TargetWorkflowID string `json:"targetWorkflowId,omitempty" yaml:"targetWorkflowId,omitempty"`

	// Graph mode edges owned by this step.
	Transitions []Transition `json:"transitions,omitempty" yaml:"transitions,omitempty"`

	// Universal jump rules, checked before type-specific routing.
	Jumps []JumpRule `json:"jumps,omitempty" yaml:"jumps,omitempty"`
}
