package repository

import (
	"database/sql"
	"log/slog"

	"github.com/flowsim-io/flowsim/pkg/flowsim/core"
	"github.com/flowsim-io/flowsim/pkg/flowsim/domain"
)

// SimulationEventRepository persists and queries the execution trail
// rows of a simulation.
type SimulationEventRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewSimulationEventRepository(db *sql.DB, clock core.Clock) *SimulationEventRepository {
	return &SimulationEventRepository{db: db, clock: clock}
}

// Save inserts a new trail row and returns its ID.
// It expects the following table schema (PostgreSQL):
//
//	simulation_events(id BIGSERIAL PK, simulation_id BIGINT, seq INT, step_position TEXT,
//	                 step_title TEXT, step_type TEXT, answer TEXT, condition_result TEXT,
//	                 resolved BOOLEAN, notes TEXT, date_time TIMESTAMP)
func (r *SimulationEventRepository) Save(e *domain.SimulationEvent) (int64, error) {
	base := `
		INSERT INTO simulation_events (
			simulation_id, seq, step_position, step_title, step_type, answer, condition_result, resolved, notes, date_time
		) VALUES (
			` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `, ` + placeholder(6) + `, ` + placeholder(7) + `, ` + placeholder(8) + `, ` + placeholder(9) + `, ` + placeholder(10) + `
		)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(
			query,
			e.SimulationID,
			e.Seq,
			e.Position,
			e.StepTitle,
			e.StepType,
			e.Answer,
			e.ConditionResult,
			e.Resolved,
			e.Notes,
			e.DateTime,
		).Scan(&e.ID)
	} else {
		res, er := r.db.Exec(base,
			e.SimulationID,
			e.Seq,
			e.Position,
			e.StepTitle,
			e.StepType,
			e.Answer,
			e.ConditionResult,
			e.Resolved,
			e.Notes,
			e.DateTime,
		)
		if er != nil {
			err = er
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				e.ID = id
			}
		}
	}

	if err != nil {
		slog.Error("Failed to save simulation event", "error", err)
	}

	return e.ID, err
}

// FindAllBySimulationID returns the full trail for a simulation in
// trail order.
func (r *SimulationEventRepository) FindAllBySimulationID(simulationID int64) (*[]domain.SimulationEvent, error) {
	query := `
		SELECT id, simulation_id, seq, step_position, step_title, step_type, answer, condition_result, resolved, notes, date_time
		FROM simulation_events
		WHERE simulation_id = ` + placeholder(1) + `
		ORDER BY seq ASC
	`
	rows, err := r.db.Query(query, simulationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.SimulationEvent
	for rows.Next() {
		var e domain.SimulationEvent
		if err := rows.Scan(
			&e.ID,
			&e.SimulationID,
			&e.Seq,
			&e.Position,
			&e.StepTitle,
			&e.StepType,
			&e.Answer,
			&e.ConditionResult,
			&e.Resolved,
			&e.Notes,
			&e.DateTime,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &events, nil
}

// DeleteFromSeq removes trail rows at and after the truncation point,
// used when a run is rewound.
func (r *SimulationEventRepository) DeleteFromSeq(simulationID int64, seq int) error {
	query := `
		DELETE FROM simulation_events
		WHERE simulation_id = ` + placeholder(1) + ` AND seq >= ` + placeholder(2) + `
	`
	_, err := r.db.Exec(query, simulationID, seq)
	return err
}
