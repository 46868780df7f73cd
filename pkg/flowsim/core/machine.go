package core

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

// Outcome is the state machine's verdict on one processing attempt.
type Outcome int

const (
	// OutcomeAdvanced means the step was processed and the run moved on.
	OutcomeAdvanced Outcome = iota
	// OutcomeBlocked means the current step is a checkpoint awaiting
	// explicit resolution; nothing changed.
	OutcomeBlocked
	// OutcomeRejected means the run is in a state that accepts no
	// processing (terminal status, past the end).
	OutcomeRejected
)

// Machine walks one workflow definition. It is stateless with respect
// to individual runs, so one machine may drive any number of
// independent runs; the workflow it wraps is never mutated.
type Machine struct {
	wf       *models.Workflow
	nav      Navigator
	settings Settings
	clock    Clock
}

// NewMachine builds a machine for a normalized workflow. The navigator
// is selected once from the workflow's mode.
func NewMachine(wf *models.Workflow, settings Settings, clock Clock) *Machine {
	if clock == nil {
		clock = NewRealClock()
	}
	return &Machine{
		wf:       wf,
		nav:      NewNavigator(wf),
		settings: settings,
		clock:    clock,
	}
}

// Workflow returns the definition this machine executes.
func (m *Machine) Workflow() *models.Workflow { return m.wf }

// ProcessStep advances the run by one step under the interactive
// iteration guard. The answer, when non-nil, is applied to the current
// step before routing. False means no advancement occurred: a terminal
// status, a checkpoint awaiting resolution, or a guard trip. Only the
// guard trip is an error condition, and it is reported through the run
// status and results["_error"], never raised.
func (m *Machine) ProcessStep(run *Run, answer *string) bool {
	if run.Status.Terminal() {
		return false
	}
	if run.Iterations >= m.settings.MaxIterations {
		m.tripIterationCeiling(run)
		return false
	}
	return m.Process(run, answer) == OutcomeAdvanced
}

// Process executes the current step and decides the next one. Universal
// jump rules are checked before type-specific routing for every step
// type; when no route matches, the navigator's structural fallback
// applies. Processing appends exactly one trail entry per advancement,
// keeping the trail length equal to the iteration count.
func (m *Machine) Process(run *Run, answer *string) Outcome {
	if run.Status.Terminal() {
		return OutcomeRejected
	}
	if run.Position < 0 || run.Position >= len(m.wf.Steps) {
		run.Status = models.StatusCompleted
		return OutcomeRejected
	}
	step := &m.wf.Steps[run.Position]
	switch step.Type {
	case models.StepQuestion:
		return m.processQuestion(run, step, answer)
	case models.StepDecision:
		return m.processDecision(run, step)
	case models.StepAction:
		return m.processAction(run, step)
	case models.StepCheckpoint:
		return OutcomeBlocked
	case models.StepSubFlow:
		return m.processSubFlow(run, step)
	default:
		// Malformed data reached execution; advance structurally so
		// the run cannot wedge on it.
		slog.Warn("Skipping step of unknown type", "position", m.nav.PositionKey(run.Position), "type", string(step.Type))
		entry := m.newEntry(run, step)
		entry.Notes = "skipped: unknown step type " + string(step.Type)
		m.commit(run, entry, m.nav.Fallback(run.Position, step))
		return OutcomeAdvanced
	}
}

func (m *Machine) processQuestion(run *Run, step *models.Step, answer *string) Outcome {
	entry := m.newEntry(run, step)
	if answer != nil {
		a := *answer
		key := m.nav.PositionKey(run.Position)
		if step.VariableName != "" {
			run.Results[step.VariableName] = a
			run.Inputs[step.VariableName] = a
		}
		if step.Title != "" {
			run.Results[step.Title] = a
			run.Inputs[step.Title] = a
		}
		run.Inputs[key] = a
		entry.Answer = a
		entry.Answered = true
	}
	next, note := m.routeForward(run, step)
	entry.ConditionResult = note
	m.commit(run, entry, next)
	return OutcomeAdvanced
}

func (m *Machine) processDecision(run *Run, step *models.Step) Outcome {
	entry := m.newEntry(run, step)
	next := -1
	note := "no match"

	if target, jumpNote, ok := m.resolveJump(run, step); ok {
		next = target
		note = jumpNote
	} else {
		for k, branch := range step.Branches {
			if !Evaluate(branch.Condition, run.Results) {
				continue
			}
			note = fmt.Sprintf("branch %d: %s", k+1, branch.Condition)
			if target, ok := ResolveReference(m.wf, branch.Target); ok {
				next = target
			} else {
				// dangling branch target falls back to sequential
				note += " (target missing)"
				next = m.nav.Fallback(run.Position, step)
			}
			break
		}
		if next < 0 && step.ElseTarget != "" {
			if target, ok := ResolveReference(m.wf, step.ElseTarget); ok {
				next = target
				note = "else"
			} else {
				next = m.nav.Fallback(run.Position, step)
				note = "else (target missing)"
			}
		}
		if next < 0 {
			next = m.nav.Fallback(run.Position, step)
		}
	}

	entry.ConditionResult = note
	m.commit(run, entry, next)
	return OutcomeAdvanced
}

func (m *Machine) processAction(run *Run, step *models.Step) Outcome {
	entry := m.newEntry(run, step)
	for _, field := range step.OutputFields {
		if field.Name == "" {
			continue
		}
		run.Results[field.Name] = Interpolate(field.ValueTemplate, run.Results)
	}
	entry.Notes = "completed"
	next, note := m.routeForward(run, step)
	entry.ConditionResult = note
	m.commit(run, entry, next)
	return OutcomeAdvanced
}

func (m *Machine) processSubFlow(run *Run, step *models.Step) Outcome {
	// The referenced workflow is not inlined here; invoking it is the
	// caller's responsibility. The step records the reference and
	// advances through its own transitions.
	entry := m.newEntry(run, step)
	entry.Notes = "subflow: " + step.TargetWorkflowID
	if step.Title != "" {
		run.Results[step.Title] = step.TargetWorkflowID
	}
	next, note := m.routeForward(run, step)
	entry.ConditionResult = note
	m.commit(run, entry, next)
	return OutcomeAdvanced
}

// ResolveCheckpoint is the only way past a checkpoint step. Resolving
// completes the run and moves the position past the end; declining
// moves to the structurally-next step and keeps the run active. The
// call is rejected when the run is terminal or the current step is not
// a checkpoint.
func (m *Machine) ResolveCheckpoint(run *Run, resolved bool, notes string) bool {
	if run.Status.Terminal() {
		return false
	}
	if run.Position < 0 || run.Position >= len(m.wf.Steps) {
		return false
	}
	step := &m.wf.Steps[run.Position]
	if step.Type != models.StepCheckpoint {
		return false
	}
	if run.Iterations >= m.settings.MaxIterations {
		m.tripIterationCeiling(run)
		return false
	}

	entry := m.newEntry(run, step)
	entry.Resolved = &resolved
	entry.Notes = notes

	annotationKey := step.Title
	if annotationKey == "" {
		annotationKey = "_checkpoint"
	}
	if resolved {
		run.Results[annotationKey] = "resolved"
		m.commit(run, entry, len(m.wf.Steps))
		return true
	}
	run.Results[annotationKey] = "continue"
	m.commit(run, entry, m.nav.Fallback(run.Position, step))
	return true
}

// Stop terminates the run on external request. It always succeeds
// regardless of the current step type or status; the stop position is
// recorded in results.
func (m *Machine) Stop(run *Run, atPosition *int) {
	if atPosition != nil {
		run.Position = *atPosition
	}
	run.Status = models.StatusStopped
	run.Results["_stopped_at"] = m.nav.PositionKey(run.Position)
}

// routeForward decides the next step for the types without branches:
// jump rules first, then the navigator.
func (m *Machine) routeForward(run *Run, step *models.Step) (int, string) {
	if target, note, ok := m.resolveJump(run, step); ok {
		return target, note
	}
	return m.nav.Next(run.Position, step, run.Results), ""
}

// resolveJump checks the step's universal jump rules in order. A rule
// without a condition matches unconditionally. On Action steps the
// literal condition "completed" also matches unconditionally once the
// action has executed; pre-identifier workflows used it as an "after
// this action" marker. Rules with dangling targets are skipped.
func (m *Machine) resolveJump(run *Run, step *models.Step) (int, string, bool) {
	for _, jump := range step.Jumps {
		matched := false
		switch {
		case jump.Condition == "":
			matched = true
		case step.Type == models.StepAction && strings.EqualFold(jump.Condition, "completed"):
			matched = true
		default:
			matched = Evaluate(jump.Condition, run.Results)
		}
		if !matched {
			continue
		}
		if target, ok := ResolveReference(m.wf, jump.Target); ok {
			note := "jump"
			if jump.Condition != "" {
				note = "jump: " + jump.Condition
			}
			return target, note, true
		}
	}
	return 0, "", false
}

func (m *Machine) newEntry(run *Run, step *models.Step) models.ExecutionEntry {
	return models.ExecutionEntry{
		Position:  m.nav.PositionKey(run.Position),
		StepTitle: step.Title,
		StepType:  step.Type,
		Timestamp: m.clock.Now(),
	}
}

// commit appends the trail entry, bumps the persisted iteration counter
// and moves the position. Moving past the end completes the run.
func (m *Machine) commit(run *Run, entry models.ExecutionEntry, next int) {
	run.Trail = append(run.Trail, entry)
	run.Iterations++
	if next < 0 {
		next = len(m.wf.Steps)
	}
	run.Position = next
	if next >= len(m.wf.Steps) {
		run.Status = models.StatusCompleted
	}
}

func (m *Machine) tripIterationCeiling(run *Run) {
	run.Status = models.StatusError
	run.Results["_error"] = fmt.Sprintf("iteration limit of %d exceeded, execution aborted", m.settings.MaxIterations)
	slog.Warn("Iteration ceiling tripped", "limit", m.settings.MaxIterations, "position", m.nav.PositionKey(run.Position))
}

var templateToken = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Interpolate substitutes {{variable}} tokens from results. Unresolved
// tokens are left verbatim, not treated as errors.
func Interpolate(template string, results map[string]string) string {
	return templateToken.ReplaceAllStringFunc(template, func(token string) string {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(token, "{{"), "}}"))
		if value, ok := results[name]; ok {
			return value
		}
		return token
	})
}
