package core

import "github.com/flowsim-io/flowsim/pkg/flowsim/models"

// Rewind reconstructs run state as a pure function of the trail. The
// entries before point are kept and only the Question and Action ones
// are replayed into fresh results and inputs; point addresses the first
// entry to discard, and the position is reset to that entry's step so
// the operator redoes it. Passing len(trail) keeps the whole trail and
// leaves the position on the last recorded step.
//
// The returned run is always Active: rewinding past a guard trip or a
// stop is exactly what the operation is for.
func (m *Machine) Rewind(trail []models.ExecutionEntry, point int) *Run {
	if point < 0 {
		point = 0
	}
	if point > len(trail) {
		point = len(trail)
	}

	run := m.NewRun()
	run.Trail = append([]models.ExecutionEntry(nil), trail[:point]...)
	run.Iterations = point

	for i := range run.Trail {
		entry := &run.Trail[i]
		idx, ok := m.nav.IndexOf(entry.Position)
		if !ok || idx >= len(m.wf.Steps) {
			continue
		}
		step := &m.wf.Steps[idx]
		switch entry.StepType {
		case models.StepQuestion:
			if !entry.Answered {
				continue
			}
			if step.VariableName != "" {
				run.Results[step.VariableName] = entry.Answer
				run.Inputs[step.VariableName] = entry.Answer
			}
			if step.Title != "" {
				run.Results[step.Title] = entry.Answer
				run.Inputs[step.Title] = entry.Answer
			}
			run.Inputs[entry.Position] = entry.Answer
		case models.StepAction:
			for _, field := range step.OutputFields {
				if field.Name == "" {
					continue
				}
				run.Results[field.Name] = Interpolate(field.ValueTemplate, run.Results)
			}
		}
	}

	switch {
	case point < len(trail):
		if idx, ok := m.nav.IndexOf(trail[point].Position); ok {
			run.Position = idx
		}
	case len(trail) > 0:
		if idx, ok := m.nav.IndexOf(trail[len(trail)-1].Position); ok {
			run.Position = idx
		}
	}
	return run
}
