package domain

import "time"
import "database/sql"

// Simulation is the persisted run record for one execution attempt.
// Results and Inputs hold JSON-encoded string maps; the trail is stored
// as SimulationEvent rows.
type Simulation struct {
	ID              int64
	ExternalID      string
	WorkflowName    string
	Status          string
	CurrentPosition string
	IterationCount  int
	ExecutorGroup   string
	ExecutorID      sql.NullString
	Created         time.Time
	Modified        time.Time
	Started         sql.NullTime
	Finished        sql.NullTime
	Results         sql.NullString
	Inputs          sql.NullString
}
