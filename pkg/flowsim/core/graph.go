package core

import (
	"strconv"

	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

// Navigator is one of two traversal strategies, selected once per
// workflow: linear workflows address steps by array position with an
// implicit next step, graph workflows address steps by identifier with
// explicit transition edges. An index of len(wf.Steps) means "past the
// end", which implies completion.
type Navigator interface {
	// Start returns the index of the first step to execute.
	Start() int
	// Next returns the index the run moves to when no jump or branch
	// routed it elsewhere. Graph mode evaluates the step's transitions
	// in order, first match wins; a transition without a condition is
	// the unconditional default.
	Next(idx int, step *models.Step, results map[string]string) int
	// Fallback is the structurally-next index, ignoring conditional
	// edges: position+1 in linear mode, the default transition in
	// graph mode.
	Fallback(idx int, step *models.Step) int
	// PositionKey renders an index in the workflow's addressing scheme.
	PositionKey(idx int) string
	// IndexOf parses a position key back to an index.
	IndexOf(key string) (int, bool)
}

// NewNavigator selects the traversal strategy for the workflow.
func NewNavigator(wf *models.Workflow) Navigator {
	if wf.Mode == models.ModeGraph {
		return &graphNavigator{wf: wf}
	}
	return &linearNavigator{wf: wf}
}

type linearNavigator struct {
	wf *models.Workflow
}

func (n *linearNavigator) Start() int { return 0 }

func (n *linearNavigator) Next(idx int, _ *models.Step, _ map[string]string) int {
	return n.Fallback(idx, nil)
}

func (n *linearNavigator) Fallback(idx int, _ *models.Step) int {
	next := idx + 1
	if next > len(n.wf.Steps) {
		return len(n.wf.Steps)
	}
	return next
}

func (n *linearNavigator) PositionKey(idx int) string { return strconv.Itoa(idx) }

func (n *linearNavigator) IndexOf(key string) (int, bool) {
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || idx > len(n.wf.Steps) {
		return 0, false
	}
	return idx, true
}

type graphNavigator struct {
	wf *models.Workflow
}

func (n *graphNavigator) Start() int {
	if idx, ok := ResolveReference(n.wf, n.wf.Start); ok {
		return idx
	}
	return 0
}

func (n *graphNavigator) Next(idx int, step *models.Step, results map[string]string) int {
	if step == nil {
		return len(n.wf.Steps)
	}
	for _, t := range step.Transitions {
		if t.Condition != "" && !Evaluate(t.Condition, results) {
			continue
		}
		if target, ok := ResolveReference(n.wf, t.Target); ok {
			return target
		}
		// dangling target, keep scanning the remaining edges
	}
	// no edge matched: the node is a dead end, treated as terminal
	return len(n.wf.Steps)
}

func (n *graphNavigator) Fallback(_ int, step *models.Step) int {
	if step == nil {
		return len(n.wf.Steps)
	}
	for _, t := range step.Transitions {
		if t.Condition != "" {
			continue
		}
		if target, ok := ResolveReference(n.wf, t.Target); ok {
			return target
		}
	}
	return len(n.wf.Steps)
}

func (n *graphNavigator) PositionKey(idx int) string {
	if idx < 0 || idx >= len(n.wf.Steps) {
		return ""
	}
	return n.wf.Steps[idx].ID
}

func (n *graphNavigator) IndexOf(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	return ResolveReference(n.wf, key)
}

// StartNode returns the index of the designated start step, or the
// first step in declaration order when none is set.
func StartNode(wf *models.Workflow) int {
	return NewNavigator(wf).Start()
}

// TerminalNodes lists the indexes of steps a run can end on: every step
// with zero outgoing transitions in graph mode, the last step only in
// linear mode.
func TerminalNodes(wf *models.Workflow) []int {
	if len(wf.Steps) == 0 {
		return nil
	}
	if wf.Mode != models.ModeGraph {
		return []int{len(wf.Steps) - 1}
	}
	var terminal []int
	for i := range wf.Steps {
		if len(wf.Steps[i].Transitions) == 0 {
			terminal = append(terminal, i)
		}
	}
	return terminal
}

// TransitionsFrom returns the outgoing edges of the identified step.
func TransitionsFrom(wf *models.Workflow, id string) []models.Transition {
	idx, ok := ResolveReference(wf, id)
	if !ok {
		return nil
	}
	return wf.Steps[idx].Transitions
}

// StepsLeadingTo returns the identifiers of steps with an edge into the
// identified step. The reverse index is computed by scanning every
// step's transition list; workflow sizes are bounded, so no separate
// reverse index is maintained.
func StepsLeadingTo(wf *models.Workflow, id string) []string {
	var sources []string
	for i := range wf.Steps {
		for _, t := range wf.Steps[i].Transitions {
			if t.Target == id {
				sources = append(sources, wf.Steps[i].ID)
				break
			}
		}
	}
	return sources
}

// AddTransition appends an edge from source to target. It reports
// failure without mutating anything if the workflow is not in graph
// mode, the source step does not exist, or an identical (source,
// target) edge is already present.
func AddTransition(wf *models.Workflow, source, target, condition, label string) bool {
	if wf.Mode != models.ModeGraph {
		return false
	}
	idx, ok := ResolveReference(wf, source)
	if !ok {
		return false
	}
	for _, t := range wf.Steps[idx].Transitions {
		if t.Target == target {
			return false
		}
	}
	wf.Steps[idx].Transitions = append(wf.Steps[idx].Transitions, models.Transition{
		Target:    target,
		Condition: condition,
		Label:     label,
	})
	return true
}

// RemoveTransition deletes the edge from source to target, reporting
// whether an edge was removed.
func RemoveTransition(wf *models.Workflow, source, target string) bool {
	idx, ok := ResolveReference(wf, source)
	if !ok {
		return false
	}
	edges := wf.Steps[idx].Transitions
	for i, t := range edges {
		if t.Target == target {
			wf.Steps[idx].Transitions = append(edges[:i:i], edges[i+1:]...)
			return true
		}
	}
	return false
}
