package core

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

// Normalize rewrites legacy constructs into their canonical form, once,
// at load time. The execution hot path never re-checks for legacy data.
//
// SimpleDecision becomes Decision, and the legacy decision fields
// {condition, true_target, false_target} become the branch form: the
// first true branch is the old true target and the else target is the
// old false target. A derived mode is filled in when absent: the
// presence of a start identifier or of any transition edge means graph,
// otherwise linear.
func Normalize(wf *models.Workflow) {
	if wf.Mode == "" {
		wf.Mode = models.ModeLinear
		if wf.Start != "" {
			wf.Mode = models.ModeGraph
		} else {
			for i := range wf.Steps {
				if len(wf.Steps[i].Transitions) > 0 {
					wf.Mode = models.ModeGraph
					break
				}
			}
		}
	}
	for i := range wf.Steps {
		step := &wf.Steps[i]
		if step.Type == models.StepSimpleDecision {
			step.Type = models.StepDecision
		}
		if step.Type != models.StepDecision {
			continue
		}
		if len(step.Branches) == 0 && step.Condition != "" {
			step.Branches = []models.Branch{{Condition: step.Condition, Target: step.TrueTarget}}
			if step.ElseTarget == "" {
				step.ElseTarget = step.FalseTarget
			}
		}
		step.Condition = ""
		step.TrueTarget = ""
		step.FalseTarget = ""
	}
}

var knownStepTypes = map[models.StepType]bool{
	models.StepQuestion:   true,
	models.StepDecision:   true,
	models.StepAction:     true,
	models.StepCheckpoint: true,
	models.StepSubFlow:    true,
}

// Validate reports the structural defects that make a workflow
// unexecutable. Findings are accumulated so authors see everything at
// once instead of fixing one defect per attempt. Dangling branch and
// transition targets are deliberately not errors; the state machine
// degrades to sequential advancement for those (see CheckReferences).
func Validate(wf *models.Workflow) error {
	var result *multierror.Error

	if len(wf.Steps) == 0 {
		result = multierror.Append(result, fmt.Errorf("workflow %q has no steps", wf.Name))
		return result.ErrorOrNil()
	}

	seen := make(map[string]int, len(wf.Steps))
	for i := range wf.Steps {
		step := &wf.Steps[i]
		if step.Type == models.StepSimpleDecision {
			result = multierror.Append(result, fmt.Errorf("step %d: legacy type SimpleDecision present, workflow was not normalized", i))
		} else if !knownStepTypes[step.Type] {
			result = multierror.Append(result, fmt.Errorf("step %d: unknown step type %q", i, step.Type))
		}
		if step.ID != "" {
			if prev, dup := seen[step.ID]; dup {
				result = multierror.Append(result, fmt.Errorf("duplicate step identifier %q (steps %d and %d)", step.ID, prev, i))
			} else {
				seen[step.ID] = i
			}
		}
		if wf.Mode == models.ModeGraph && step.ID == "" {
			result = multierror.Append(result, fmt.Errorf("step %d (%q): graph mode requires a step identifier", i, step.Title))
		}
		if step.Type == models.StepSubFlow && wf.Mode != models.ModeGraph {
			result = multierror.Append(result, fmt.Errorf("step %d (%q): SubFlow steps are only valid in graph mode", i, step.Title))
		}
		if step.Type == models.StepQuestion && step.VariableName == "" {
			result = multierror.Append(result, fmt.Errorf("step %d (%q): question has no variable name", i, step.Title))
		}
	}

	if wf.Mode == models.ModeGraph && wf.Start != "" {
		if _, ok := ResolveReference(wf, wf.Start); !ok {
			result = multierror.Append(result, fmt.Errorf("start identifier %q does not match any step", wf.Start))
		}
	}

	return result.ErrorOrNil()
}

// CheckReferences lists the dangling branch, jump, else and transition
// targets of a workflow. These degrade gracefully at run time, so they
// are reported as findings for authors rather than load errors.
func CheckReferences(wf *models.Workflow) []string {
	var findings []string
	note := func(i int, kind, target string) {
		if target == "" {
			return
		}
		if _, ok := ResolveReference(wf, target); !ok {
			findings = append(findings, fmt.Sprintf("step %d (%q): %s target %q does not resolve", i, wf.Steps[i].Title, kind, target))
		}
	}
	for i := range wf.Steps {
		step := &wf.Steps[i]
		for _, b := range step.Branches {
			note(i, "branch", b.Target)
		}
		note(i, "else", step.ElseTarget)
		for _, j := range step.Jumps {
			note(i, "jump", j.Target)
		}
		for _, t := range step.Transitions {
			note(i, "transition", t.Target)
		}
	}
	return findings
}
