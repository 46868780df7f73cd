package core

import (
	"strings"
	"testing"
	"time"

	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestMachine(t *testing.T, wf *models.Workflow) *Machine {
	t.Helper()
	Normalize(wf)
	if err := Validate(wf); err != nil {
		t.Fatalf("test workflow invalid: %v", err)
	}
	return NewMachine(wf, DefaultSettings(), NewFakeClock(testEpoch))
}

func severityWorkflow() *models.Workflow {
	return &models.Workflow{
		Name: "severity triage",
		Steps: []models.Step{
			{Title: "How many incidents?", Type: models.StepQuestion, VariableName: "count"},
			{Title: "Classify severity", Type: models.StepDecision,
				Branches: []models.Branch{
					{Condition: "count >= 100", Target: "Critical"},
					{Condition: "count >= 50", Target: "High"},
					{Condition: "count >= 10", Target: "Medium"},
				},
				ElseTarget: "Low"},
			{Title: "Critical", Type: models.StepAction},
			{Title: "High", Type: models.StepAction},
			{Title: "Medium", Type: models.StepAction},
			{Title: "Low", Type: models.StepAction},
		},
	}
}

func TestDecisionBranchRouting(t *testing.T) {
	tests := []struct {
		answer    string
		wantTitle string
	}{
		{"100", "Critical"},
		{"75", "High"},
		{"50", "High"},
		{"10", "Medium"},
		{"5", "Low"},
		{"0", "Low"},
	}
	for _, tc := range tests {
		t.Run(tc.answer, func(t *testing.T) {
			m := newTestMachine(t, severityWorkflow())
			run := m.NewRun()

			answer := tc.answer
			if !m.ProcessStep(run, &answer) {
				t.Fatal("question step did not advance")
			}
			if !m.ProcessStep(run, nil) {
				t.Fatal("decision step did not advance")
			}

			got := m.Workflow().Steps[run.Position].Title
			if got != tc.wantTitle {
				t.Errorf("count=%s landed on %q, want %q", tc.answer, got, tc.wantTitle)
			}
			if len(run.Trail) != 2 || run.Iterations != 2 {
				t.Errorf("trail=%d iterations=%d, want 2 and 2", len(run.Trail), run.Iterations)
			}
		})
	}
}

func TestDecisionFirstMatchWins(t *testing.T) {
	m := newTestMachine(t, severityWorkflow())
	run := m.NewRun()
	run.Results["count"] = "200"
	run.Position = 1

	if !m.ProcessStep(run, nil) {
		t.Fatal("decision did not advance")
	}
	// 200 satisfies every branch; only the first may fire.
	if got := m.Workflow().Steps[run.Position].Title; got != "Critical" {
		t.Errorf("landed on %q, want Critical", got)
	}
	if note := run.Trail[0].ConditionResult; !strings.HasPrefix(note, "branch 1:") {
		t.Errorf("condition note = %q, want branch 1 prefix", note)
	}
}

func TestDecisionNoMatchFallsThrough(t *testing.T) {
	wf := &models.Workflow{
		Name: "no else",
		Steps: []models.Step{
			{Title: "Route", Type: models.StepDecision,
				Branches: []models.Branch{{Condition: "flag == 'yes'", Target: "Special"}}},
			{Title: "Next in line", Type: models.StepAction},
			{Title: "Special", Type: models.StepAction},
		},
	}
	m := newTestMachine(t, wf)
	run := m.NewRun()

	if !m.ProcessStep(run, nil) {
		t.Fatal("decision did not advance")
	}
	if run.Position != 1 {
		t.Errorf("position = %d, want 1 (sequential)", run.Position)
	}
	if run.Trail[0].ConditionResult != "no match" {
		t.Errorf("condition note = %q, want %q", run.Trail[0].ConditionResult, "no match")
	}
}

func TestDecisionDanglingBranchTarget(t *testing.T) {
	wf := &models.Workflow{
		Name: "dangling",
		Steps: []models.Step{
			{Title: "Route", Type: models.StepDecision,
				Branches: []models.Branch{{Condition: "flag == 'yes'", Target: "Vanished"}}},
			{Title: "Safe landing", Type: models.StepAction},
		},
	}
	m := newTestMachine(t, wf)
	run := m.NewRun()
	run.Results["flag"] = "yes"

	if !m.ProcessStep(run, nil) {
		t.Fatal("decision did not advance")
	}
	if run.Position != 1 {
		t.Errorf("position = %d, want 1 (sequential fallback)", run.Position)
	}
	if note := run.Trail[0].ConditionResult; !strings.Contains(note, "(target missing)") {
		t.Errorf("condition note = %q, want a target-missing marker", note)
	}
}

func TestQuestionRecordsAnswer(t *testing.T) {
	m := newTestMachine(t, severityWorkflow())
	run := m.NewRun()

	answer := "42"
	if !m.ProcessStep(run, &answer) {
		t.Fatal("question did not advance")
	}

	if run.Results["count"] != "42" {
		t.Errorf("results[count] = %q, want 42", run.Results["count"])
	}
	for _, key := range []string{"count", "How many incidents?", "0"} {
		if run.Inputs[key] != "42" {
			t.Errorf("inputs[%q] = %q, want 42", key, run.Inputs[key])
		}
	}

	entry := run.Trail[0]
	if !entry.Answered || entry.Answer != "42" {
		t.Errorf("trail entry = %+v, want answered with 42", entry)
	}
	if entry.StepType != models.StepQuestion || entry.Position != "0" {
		t.Errorf("trail entry = %+v, want question at position 0", entry)
	}
	if entry.Timestamp.IsZero() {
		t.Error("trail entry has no timestamp")
	}
}

func TestQuestionWithoutAnswerStillAdvances(t *testing.T) {
	m := newTestMachine(t, severityWorkflow())
	run := m.NewRun()

	if !m.ProcessStep(run, nil) {
		t.Fatal("unanswered question did not advance")
	}
	if run.Trail[0].Answered {
		t.Error("entry marked answered without an answer")
	}
	if _, ok := run.Results["count"]; ok {
		t.Error("results should not gain a value without an answer")
	}
}

func TestActionOutputFields(t *testing.T) {
	wf := &models.Workflow{
		Name: "greeting",
		Steps: []models.Step{
			{Title: "Compose", Type: models.StepAction,
				OutputFields: []models.OutputField{
					{Name: "greeting", ValueTemplate: "Hello {{name}}, severity {{severity}}"},
				}},
		},
	}
	m := newTestMachine(t, wf)
	run := m.NewRun()
	run.Results["name"] = "Ada"

	if !m.ProcessStep(run, nil) {
		t.Fatal("action did not advance")
	}
	want := "Hello Ada, severity {{severity}}"
	if got := run.Results["greeting"]; got != want {
		t.Errorf("results[greeting] = %q, want %q", got, want)
	}
	if run.Trail[0].Notes != "completed" {
		t.Errorf("trail notes = %q, want completed", run.Trail[0].Notes)
	}
	if run.Status != models.StatusCompleted {
		t.Errorf("status = %s, want Completed (past the end)", run.Status)
	}
}

func TestJumpRules(t *testing.T) {
	t.Run("conditional jump wins over branches", func(t *testing.T) {
		wf := severityWorkflow()
		wf.Steps[1].Jumps = []models.JumpRule{{Condition: "count == 0", Target: "Low"}}
		m := newTestMachine(t, wf)
		run := m.NewRun()
		run.Results["count"] = "0"
		run.Position = 1

		m.ProcessStep(run, nil)
		if got := m.Workflow().Steps[run.Position].Title; got != "Low" {
			t.Errorf("landed on %q, want Low", got)
		}
		if note := run.Trail[0].ConditionResult; note != "jump: count == 0" {
			t.Errorf("condition note = %q", note)
		}
	})

	t.Run("empty condition jumps unconditionally", func(t *testing.T) {
		wf := severityWorkflow()
		wf.Steps[0].Jumps = []models.JumpRule{{Target: "Medium"}}
		m := newTestMachine(t, wf)
		run := m.NewRun()

		answer := "75"
		m.ProcessStep(run, &answer)
		if got := m.Workflow().Steps[run.Position].Title; got != "Medium" {
			t.Errorf("landed on %q, want Medium", got)
		}
	})

	t.Run("completed jumps after actions only", func(t *testing.T) {
		wf := severityWorkflow()
		wf.Steps[2].Jumps = []models.JumpRule{{Condition: "completed", Target: "Low"}}
		wf.Steps[0].Jumps = []models.JumpRule{{Condition: "completed", Target: "Low"}}
		m := newTestMachine(t, wf)

		run := m.NewRun()
		run.Position = 2
		m.ProcessStep(run, nil)
		if got := m.Workflow().Steps[run.Position].Title; got != "Low" {
			t.Errorf("action jump landed on %q, want Low", got)
		}

		// On a question the same literal is an ordinary (unparsable)
		// condition and never matches.
		run = m.NewRun()
		m.ProcessStep(run, nil)
		if run.Position != 1 {
			t.Errorf("question position = %d, want 1 (no jump)", run.Position)
		}
	})

	t.Run("dangling jump target is skipped", func(t *testing.T) {
		wf := severityWorkflow()
		wf.Steps[0].Jumps = []models.JumpRule{{Target: "Nowhere"}}
		m := newTestMachine(t, wf)
		run := m.NewRun()

		m.ProcessStep(run, nil)
		if run.Position != 1 {
			t.Errorf("position = %d, want 1 (sequential)", run.Position)
		}
	})
}

func TestCheckpointBlocksUntilResolved(t *testing.T) {
	wf := &models.Workflow{
		Name: "gated",
		Steps: []models.Step{
			{Title: "Verify backup", Type: models.StepCheckpoint, Message: "did the backup finish?"},
			{Title: "Cleanup", Type: models.StepAction},
		},
	}

	t.Run("process is a no-op", func(t *testing.T) {
		m := newTestMachine(t, wf)
		run := m.NewRun()

		for i := 0; i < 3; i++ {
			if m.ProcessStep(run, nil) {
				t.Fatal("checkpoint advanced without resolution")
			}
		}
		if run.Position != 0 || len(run.Trail) != 0 || run.Iterations != 0 {
			t.Errorf("blocked checkpoint mutated the run: %+v", run)
		}
		if run.Status != models.StatusActive {
			t.Errorf("status = %s, want Active", run.Status)
		}
	})

	t.Run("resolve completes", func(t *testing.T) {
		m := newTestMachine(t, wf)
		run := m.NewRun()

		if !m.ResolveCheckpoint(run, true, "backup confirmed") {
			t.Fatal("resolution rejected")
		}
		if run.Status != models.StatusCompleted {
			t.Errorf("status = %s, want Completed", run.Status)
		}
		if run.Results["Verify backup"] != "resolved" {
			t.Errorf("results annotation = %q, want resolved", run.Results["Verify backup"])
		}
		entry := run.Trail[0]
		if entry.Resolved == nil || !*entry.Resolved || entry.Notes != "backup confirmed" {
			t.Errorf("trail entry = %+v", entry)
		}

		// Terminal run rejects further resolution.
		if m.ResolveCheckpoint(run, true, "") {
			t.Error("terminal run accepted a second resolution")
		}
	})

	t.Run("decline continues", func(t *testing.T) {
		m := newTestMachine(t, wf)
		run := m.NewRun()

		if !m.ResolveCheckpoint(run, false, "retrying") {
			t.Fatal("resolution rejected")
		}
		if run.Status != models.StatusActive {
			t.Errorf("status = %s, want Active", run.Status)
		}
		if run.Position != 1 {
			t.Errorf("position = %d, want 1", run.Position)
		}
		if run.Results["Verify backup"] != "continue" {
			t.Errorf("results annotation = %q, want continue", run.Results["Verify backup"])
		}
	})

	t.Run("rejected off a checkpoint", func(t *testing.T) {
		m := newTestMachine(t, wf)
		run := m.NewRun()
		run.Position = 1
		if m.ResolveCheckpoint(run, true, "") {
			t.Error("resolution accepted on an action step")
		}
	})
}

func TestStop(t *testing.T) {
	m := newTestMachine(t, severityWorkflow())

	run := m.NewRun()
	run.Position = 1
	m.Stop(run, nil)
	if run.Status != models.StatusStopped {
		t.Errorf("status = %s, want Stopped", run.Status)
	}
	if run.Results["_stopped_at"] != "1" {
		t.Errorf("results[_stopped_at] = %q, want 1", run.Results["_stopped_at"])
	}

	// An explicit position overrides the current one.
	run = m.NewRun()
	at := 3
	m.Stop(run, &at)
	if run.Position != 3 || run.Results["_stopped_at"] != "3" {
		t.Errorf("stop at explicit position: pos=%d results=%q", run.Position, run.Results["_stopped_at"])
	}

	// Stop always succeeds, even on a checkpoint or a completed run.
	run = m.NewRun()
	run.Status = models.StatusCompleted
	m.Stop(run, nil)
	if run.Status != models.StatusStopped {
		t.Errorf("status = %s, want Stopped", run.Status)
	}
}

func TestProcessStepRejectsTerminalRun(t *testing.T) {
	m := newTestMachine(t, severityWorkflow())
	for _, status := range []models.SimulationStatus{
		models.StatusCompleted, models.StatusStopped, models.StatusTimeout, models.StatusError,
	} {
		run := m.NewRun()
		run.Status = status
		if m.ProcessStep(run, nil) {
			t.Errorf("run with status %s accepted processing", status)
		}
		if len(run.Trail) != 0 {
			t.Errorf("run with status %s grew a trail", status)
		}
	}
}

func TestProcessPastEndCompletes(t *testing.T) {
	m := newTestMachine(t, severityWorkflow())
	run := m.NewRun()
	run.Position = len(m.Workflow().Steps)

	if m.ProcessStep(run, nil) {
		t.Error("past-end run accepted processing")
	}
	if run.Status != models.StatusCompleted {
		t.Errorf("status = %s, want Completed", run.Status)
	}
}

func TestInteractiveIterationGuard(t *testing.T) {
	wf := severityWorkflow()
	Normalize(wf)
	settings := Settings{MaxIterations: 2, MaxExecutionTime: time.Minute}
	m := NewMachine(wf, settings, NewFakeClock(testEpoch))
	run := m.NewRun()

	answer := "75"
	if !m.ProcessStep(run, &answer) {
		t.Fatal("first step did not advance")
	}
	if !m.ProcessStep(run, nil) {
		t.Fatal("second step did not advance")
	}
	if m.ProcessStep(run, nil) {
		t.Error("third step advanced past the ceiling")
	}
	if run.Status != models.StatusError {
		t.Errorf("status = %s, want Error", run.Status)
	}
	if msg := run.Results["_error"]; !strings.Contains(msg, "iteration limit of 2") {
		t.Errorf("results[_error] = %q", msg)
	}
	if len(run.Trail) != 2 {
		t.Errorf("trail length = %d, want 2", len(run.Trail))
	}
}

func TestSubFlowRecordsReference(t *testing.T) {
	wf := &models.Workflow{
		Name: "parent",
		Mode: models.ModeGraph,
		Steps: []models.Step{
			{ID: "hand-off", Title: "Run escalation", Type: models.StepSubFlow,
				TargetWorkflowID: "escalation-procedure",
				Transitions:      []models.Transition{{Target: "wrap"}}},
			{ID: "wrap", Title: "Wrap up", Type: models.StepAction},
		},
	}
	m := newTestMachine(t, wf)
	run := m.NewRun()

	if !m.ProcessStep(run, nil) {
		t.Fatal("subflow did not advance")
	}
	if run.Results["Run escalation"] != "escalation-procedure" {
		t.Errorf("results = %q, want the referenced workflow", run.Results["Run escalation"])
	}
	if run.Trail[0].Notes != "subflow: escalation-procedure" {
		t.Errorf("trail notes = %q", run.Trail[0].Notes)
	}
	if run.Position != 1 {
		t.Errorf("position = %d, want 1", run.Position)
	}
}

func TestRestoreRunRoundTrip(t *testing.T) {
	m := newTestMachine(t, severityWorkflow())
	run := m.NewRun()
	answer := "75"
	m.ProcessStep(run, &answer)
	m.ProcessStep(run, nil)

	restored := m.RestoreRun(run.Status, m.PositionKey(run), run.Iterations, run.Results, run.Inputs, run.Trail)
	if restored.Position != run.Position {
		t.Errorf("restored position = %d, want %d", restored.Position, run.Position)
	}
	if restored.Iterations != run.Iterations {
		t.Errorf("restored iterations = %d, want %d", restored.Iterations, run.Iterations)
	}

	// Fresh state restores to the start with usable maps.
	blank := m.RestoreRun("", "", 0, nil, nil, nil)
	if blank.Status != models.StatusActive || blank.Position != 0 {
		t.Errorf("blank restore = %+v", blank)
	}
	blank.Results["probe"] = "ok"
	blank.Inputs["probe"] = "ok"
}
