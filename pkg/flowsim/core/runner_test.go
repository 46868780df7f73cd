package core

import (
	"strings"
	"testing"
	"time"

	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

func batchTriageWorkflow() *models.Workflow {
	return &models.Workflow{
		Name: "batch triage",
		Mode: models.ModeGraph,
		Steps: []models.Step{
			{ID: "collect", Title: "How many incidents?", Type: models.StepQuestion, VariableName: "count",
				Transitions: []models.Transition{{Target: "classify"}}},
			{ID: "classify", Title: "Classify severity", Type: models.StepDecision,
				Branches: []models.Branch{
					{Condition: "count >= 100", Target: "critical"},
					{Condition: "count >= 50", Target: "high"},
				},
				ElseTarget: "low"},
			{ID: "critical", Title: "Critical", Type: models.StepAction,
				OutputFields: []models.OutputField{{Name: "severity", ValueTemplate: "critical"}}},
			{ID: "high", Title: "High", Type: models.StepAction,
				OutputFields: []models.OutputField{{Name: "severity", ValueTemplate: "high"}}},
			{ID: "low", Title: "Low", Type: models.StepAction,
				OutputFields: []models.OutputField{{Name: "severity", ValueTemplate: "low"}}},
		},
	}
}

func TestExecuteToCompletion(t *testing.T) {
	m := newTestMachine(t, batchTriageWorkflow())
	run := m.NewRun()
	run.Inputs["count"] = "75"

	if !m.Execute(run) {
		t.Fatalf("execute failed: %+v", run.Results)
	}
	if run.Status != models.StatusCompleted {
		t.Errorf("status = %s, want Completed", run.Status)
	}
	if run.Results["count"] != "75" {
		t.Errorf("results[count] = %q, want 75", run.Results["count"])
	}
	if run.Results["severity"] != "high" {
		t.Errorf("results[severity] = %q, want high", run.Results["severity"])
	}

	var visited []string
	for _, entry := range run.Trail {
		visited = append(visited, entry.Position)
	}
	want := []string{"collect", "classify", "high"}
	if len(visited) != len(want) {
		t.Fatalf("trail = %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("trail[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
	if run.Iterations != len(run.Trail) {
		t.Errorf("iterations = %d, trail = %d; must stay equal", run.Iterations, len(run.Trail))
	}
}

func TestExecuteAnswerLookupOrder(t *testing.T) {
	tests := []struct {
		name   string
		inputs map[string]string
		want   string
	}{
		{"variable name", map[string]string{"count": "120"}, "critical"},
		{"step title", map[string]string{"How many incidents?": "120"}, "critical"},
		{"position key", map[string]string{"collect": "120"}, "critical"},
		{"variable name wins", map[string]string{"count": "120", "collect": "1"}, "critical"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMachine(t, batchTriageWorkflow())
			run := m.NewRun()
			for k, v := range tc.inputs {
				run.Inputs[k] = v
			}
			if !m.Execute(run) {
				t.Fatalf("execute failed: %+v", run.Results)
			}
			if run.Results["severity"] != tc.want {
				t.Errorf("severity = %q, want %q", run.Results["severity"], tc.want)
			}
		})
	}
}

func TestExecuteHaltsOnCheckpoint(t *testing.T) {
	wf := &models.Workflow{
		Name: "gated batch",
		Steps: []models.Step{
			{Title: "Prepare", Type: models.StepAction},
			{Title: "Await sign-off", Type: models.StepCheckpoint},
			{Title: "Finish", Type: models.StepAction},
		},
	}
	m := newTestMachine(t, wf)
	run := m.NewRun()

	// Halting on a checkpoint is a pause, not a failure.
	if !m.Execute(run) {
		t.Fatalf("execute failed: %+v", run.Results)
	}
	if run.Status != models.StatusActive {
		t.Errorf("status = %s, want Active", run.Status)
	}
	if run.Position != 1 {
		t.Errorf("position = %d, want 1 (the checkpoint)", run.Position)
	}
	if len(run.Trail) != 1 {
		t.Errorf("trail length = %d, want 1", len(run.Trail))
	}

	// Resolving lets a second batch pass run to completion.
	if !m.ResolveCheckpoint(run, false, "") {
		t.Fatal("resolution rejected")
	}
	if !m.Execute(run) {
		t.Fatalf("second execute failed: %+v", run.Results)
	}
	if run.Status != models.StatusCompleted {
		t.Errorf("status = %s, want Completed", run.Status)
	}
}

func TestExecuteIterationCeiling(t *testing.T) {
	// classify loops straight back to itself, so the run can only end
	// on the guard.
	wf := &models.Workflow{
		Name: "endless",
		Mode: models.ModeGraph,
		Steps: []models.Step{
			{ID: "classify", Title: "Spin", Type: models.StepDecision,
				Branches: []models.Branch{{Condition: "count >= 0", Target: "classify"}}},
		},
	}
	Normalize(wf)
	settings := Settings{MaxIterations: 7, MaxExecutionTime: time.Hour}
	m := NewMachine(wf, settings, NewFakeClock(testEpoch))

	run := m.NewRun()
	run.Results["count"] = "1"

	if m.Execute(run) {
		t.Fatal("endless run reported success")
	}
	if run.Status != models.StatusError {
		t.Errorf("status = %s, want Error", run.Status)
	}
	if len(run.Trail) != 7 || run.Iterations != 7 {
		t.Errorf("trail=%d iterations=%d, want exactly 7", len(run.Trail), run.Iterations)
	}
	if msg := run.Results["_error"]; !strings.Contains(msg, "iteration limit of 7") {
		t.Errorf("results[_error] = %q", msg)
	}
}

func TestExecuteTimeout(t *testing.T) {
	wf := &models.Workflow{
		Name: "slow spin",
		Mode: models.ModeGraph,
		Steps: []models.Step{
			{ID: "spin", Title: "Spin", Type: models.StepAction,
				Transitions: []models.Transition{{Target: "spin"}}},
		},
	}
	Normalize(wf)
	// Every Now call advances the clock, so a handful of iterations
	// crosses the deadline deterministically.
	clock := NewTickingClock(testEpoch, 40*time.Millisecond)
	settings := Settings{MaxIterations: 100000, MaxExecutionTime: 200 * time.Millisecond}
	m := NewMachine(wf, settings, clock)

	run := m.NewRun()
	if m.Execute(run) {
		t.Fatal("run past the deadline reported success")
	}
	if run.Status != models.StatusTimeout {
		t.Errorf("status = %s, want Timeout", run.Status)
	}
	if msg := run.Results["_error"]; !strings.Contains(msg, "execution time limit") {
		t.Errorf("results[_error] = %q", msg)
	}
	if len(run.Trail) == 0 {
		t.Error("no steps recorded before the deadline")
	}
	if run.Iterations >= 100000 {
		t.Error("iteration ceiling tripped instead of the deadline")
	}
}

func TestExecuteRejectsTerminalRun(t *testing.T) {
	m := newTestMachine(t, batchTriageWorkflow())
	run := m.NewRun()
	run.Status = models.StatusStopped

	if m.Execute(run) {
		t.Error("terminal run reported success")
	}
	if len(run.Trail) != 0 {
		t.Error("terminal run grew a trail")
	}
}

func TestExecuteCommitsWholeTrailAtOnce(t *testing.T) {
	m := newTestMachine(t, batchTriageWorkflow())
	run := m.NewRun()
	run.Inputs["count"] = "5"

	before := run.Clone()
	if !m.Execute(run) {
		t.Fatalf("execute failed: %+v", run.Results)
	}

	// The clone kept the pre-execution view: batch execution works on
	// private state and commits in one assignment.
	if len(before.Trail) != 0 || before.Status != models.StatusActive {
		t.Errorf("pre-execution clone mutated: %+v", before)
	}
	if len(run.Trail) != 3 {
		t.Errorf("trail length = %d, want 3", len(run.Trail))
	}
}

func TestCloneSharesNothing(t *testing.T) {
	m := newTestMachine(t, batchTriageWorkflow())
	run := m.NewRun()
	run.Results["a"] = "1"
	run.Inputs["b"] = "2"
	run.Trail = append(run.Trail, models.ExecutionEntry{Position: "collect"})

	c := run.Clone()
	c.Results["a"] = "changed"
	c.Inputs["b"] = "changed"
	c.Trail[0].Position = "changed"
	c.Trail = append(c.Trail, models.ExecutionEntry{})

	if run.Results["a"] != "1" || run.Inputs["b"] != "2" {
		t.Error("clone shares maps with the original")
	}
	if run.Trail[0].Position != "collect" || len(run.Trail) != 1 {
		t.Error("clone shares the trail with the original")
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.MaxIterations != 1000 {
		t.Errorf("MaxIterations = %d, want 1000", s.MaxIterations)
	}
	if s.MaxExecutionTime != 30*time.Second {
		t.Errorf("MaxExecutionTime = %s, want 30s", s.MaxExecutionTime)
	}
}
