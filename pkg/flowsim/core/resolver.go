package core

import "github.com/flowsim-io/flowsim/pkg/flowsim/models"

// ResolveReference maps a branch or jump target to a step index. The
// stable identifier is tried first; workflows authored before step
// identifiers existed reference steps by title, so a title match (first
// occurrence) is accepted as a fallback.
//
// Absence is a normal outcome, not an error: callers fall through to
// sequential advancement when the reference does not resolve.
func ResolveReference(wf *models.Workflow, reference string) (int, bool) {
	if reference == "" {
		return 0, false
	}
	for i := range wf.Steps {
		if wf.Steps[i].ID == reference {
			return i, true
		}
	}
	for i := range wf.Steps {
		if wf.Steps[i].Title == reference {
			return i, true
		}
	}
	return 0, false
}
