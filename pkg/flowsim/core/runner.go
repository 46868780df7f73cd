package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

// Settings are the safety guard ceilings for one machine. The
// iteration counter is part of the persisted run state, so interactive
// step-by-step calls cannot dodge the ceiling by spanning many calls.
type Settings struct {
	MaxIterations    int
	MaxExecutionTime time.Duration
}

// DefaultSettings returns the guard ceilings used when nothing is
// configured.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations:    1000,
		MaxExecutionTime: 30 * time.Second,
	}
}

// Execute runs the state machine from the current position to
// completion, bounded by the iteration ceiling and a wall-clock
// timeout. Question steps take their answers from the run's inputs
// mapping, keyed by variable name, step title or position.
//
// The loop works on a private clone and commits it to the run in one
// assignment at the end, so a guard trip never leaves a half-applied
// trail behind. The timeout is cooperative: it is checked between step
// iterations, not preemptively.
//
// False means a guard tripped (status Error or Timeout with an
// explanation in results["_error"]) or the run was already terminal; a
// run halted on a checkpoint is not a failure.
func (m *Machine) Execute(run *Run) bool {
	if run.Status.Terminal() {
		return false
	}

	local := run.Clone()
	deadline := m.clock.Now().Add(m.settings.MaxExecutionTime)
	ok := true

	for {
		if local.Status.Terminal() {
			break
		}
		if local.Position >= len(m.wf.Steps) {
			local.Status = models.StatusCompleted
			break
		}
		if m.clock.Now().After(deadline) {
			local.Status = models.StatusTimeout
			local.Results["_error"] = fmt.Sprintf("execution time limit of %s exceeded, execution aborted", m.settings.MaxExecutionTime)
			slog.Warn("Execution timeout tripped", "limit", m.settings.MaxExecutionTime.String(), "position", m.nav.PositionKey(local.Position))
			ok = false
			break
		}
		if local.Iterations >= m.settings.MaxIterations {
			m.tripIterationCeiling(local)
			ok = false
			break
		}

		step := &m.wf.Steps[local.Position]
		var answer *string
		if step.Type == models.StepQuestion {
			if value, found := m.batchAnswer(local, step); found {
				answer = &value
			}
		}

		outcome := m.Process(local, answer)
		if outcome != OutcomeAdvanced {
			// Blocked on a checkpoint or rejected past the end; either
			// way the batch run can go no further.
			break
		}
	}

	*run = *local
	return ok
}

// batchAnswer looks the answer for a question step up in the supplied
// inputs mapping, trying the variable name, the step title and the
// positional key in that order.
func (m *Machine) batchAnswer(run *Run, step *models.Step) (string, bool) {
	if step.VariableName != "" {
		if value, ok := run.Inputs[step.VariableName]; ok {
			return value, true
		}
	}
	if step.Title != "" {
		if value, ok := run.Inputs[step.Title]; ok {
			return value, true
		}
	}
	if value, ok := run.Inputs[m.nav.PositionKey(run.Position)]; ok {
		return value, true
	}
	return "", false
}
