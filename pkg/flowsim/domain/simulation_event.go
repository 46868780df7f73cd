package domain

import "time"
import "database/sql"

// SimulationEvent is one persisted row of a simulation's execution
// trail, in trail order by Seq.
type SimulationEvent struct {
	ID              int64        // BIGSERIAL
	SimulationID    int64        // BIGINT (foreign key)
	Seq             int          // INT, position within the trail
	Position        string       // TEXT
	StepTitle       string       // TEXT
	StepType        string       // TEXT
	Answer          sql.NullString
	ConditionResult sql.NullString
	Resolved        sql.NullBool
	Notes           sql.NullString
	DateTime        time.Time // TIMESTAMP
}
