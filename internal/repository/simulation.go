package repository

import (
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/flowsim-io/flowsim/pkg/flowsim/core"
	domain "github.com/flowsim-io/flowsim/pkg/flowsim/domain"
	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

// SimulationRepository provides methods to persist and query simulation
// run records.
type SimulationRepository struct {
	db    *sql.DB
	clock core.Clock
}

const ALL_SIMULATION_COLUMNS = ` id, external_id, workflow_name, status, current_position,
		       iteration_count, executor_group, executor_id, created, modified,
		       started, finished, results, inputs `

func NewSimulationRepository(db *sql.DB, clock core.Clock) *SimulationRepository {
	return &SimulationRepository{db: db, clock: clock}
}

func (r *SimulationRepository) scanRow(row interface{ Scan(...any) error }) (*domain.Simulation, error) {
	var sim domain.Simulation
	err := row.Scan(
		&sim.ID,
		&sim.ExternalID,
		&sim.WorkflowName,
		&sim.Status,
		&sim.CurrentPosition,
		&sim.IterationCount,
		&sim.ExecutorGroup,
		&sim.ExecutorID,
		&sim.Created,
		&sim.Modified,
		&sim.Started,
		&sim.Finished,
		&sim.Results,
		&sim.Inputs,
	)
	if err != nil {
		return nil, err
	}
	return &sim, nil
}

func (r *SimulationRepository) FindByID(id int64) (*domain.Simulation, error) {
	query := `
		SELECT ` + ALL_SIMULATION_COLUMNS + `
		FROM simulation WHERE id = ` + placeholder(1) + `
	`
	return r.scanRow(r.db.QueryRow(query, id))
}

func (r *SimulationRepository) FindByExternalID(externalID string) (*domain.Simulation, error) {
	query := `
		SELECT ` + ALL_SIMULATION_COLUMNS + `
		FROM simulation WHERE external_id = ` + placeholder(1) + `
	`
	return r.scanRow(r.db.QueryRow(query, externalID))
}

func (r *SimulationRepository) Save(sim *domain.Simulation) (int64, error) {
	now := r.clock.Now().UTC()
	sim.Created = now
	sim.Modified = now
	vals := []interface{}{
		sim.ExternalID, sim.WorkflowName, sim.Status, sim.CurrentPosition,
		sim.IterationCount, sim.ExecutorGroup, sim.ExecutorID, sim.Created,
		sim.Modified, sim.Started, sim.Finished, sim.Results, sim.Inputs,
	}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO simulation (
		external_id, workflow_name, status, current_position,
		iteration_count, executor_group, executor_id, created, modified,
		started, finished, results, inputs
	) VALUES (` + strings.Join(pps, ", ") + `)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(query, vals...).Scan(&sim.ID)
	} else {
		res, e := r.db.Exec(base, vals...)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				sim.ID = id
			}
		}
	}
	if err != nil {
		slog.Error("Failed to save simulation", "error", err)
	}
	return sim.ID, err
}

// FindPendingSimulations returns active simulations with no executor
// assigned, oldest first, limited to the batch size.
func (r *SimulationRepository) FindPendingSimulations(size int, executorGroup string) (*[]domain.Simulation, error) {
	query := `
		SELECT ` + ALL_SIMULATION_COLUMNS + `
		FROM simulation
		WHERE status = 'Active'
		  AND (executor_id IS NULL OR executor_id = '')
		  AND executor_group = ` + placeholder(1) + `
		ORDER BY modified ASC
		LIMIT ` + placeholder(2) + `
	`
	rows, err := r.db.Query(query, executorGroup, size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sims []domain.Simulation
	for rows.Next() {
		sim, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		sims = append(sims, *sim)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sims, nil
}

// SearchSimulations returns simulations matching the request's set
// fields, most recently modified first. A zero request lists the most
// recent runs up to the default limit.
func (r *SimulationRepository) SearchSimulations(req models.SearchSimulationRequest) (*[]domain.Simulation, error) {
	query := `SELECT ` + ALL_SIMULATION_COLUMNS + ` FROM simulation`
	var (
		clauses []string
		args    []interface{}
	)
	filter := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		clauses = append(clauses, column+" = "+placeholder(len(args)))
	}
	filter("workflow_name", req.WorkflowName)
	filter("status", req.Status)
	filter("external_id", req.ExternalID)
	filter("executor_group", req.ExecutorGroup)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` ORDER BY modified DESC LIMIT ` + placeholder(len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sims []domain.Simulation
	for rows.Next() {
		sim, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		sims = append(sims, *sim)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sims, nil
}

// MarkSimulationAsScheduledForExecution claims the simulation for one
// executor using the modified timestamp as an optimistic lock; false
// means another executor got there first.
func (r *SimulationRepository) MarkSimulationAsScheduledForExecution(id int64, executorID string, modified time.Time) bool {
	query := `
		UPDATE simulation
		SET executor_id = ` + placeholder(1) + `, modified = ` + placeholder(2) + `
		WHERE id = ` + placeholder(3) + ` AND modified = ` + placeholder(4) + `
		  AND (executor_id IS NULL OR executor_id = '')
	`
	res, err := r.db.Exec(query, executorID, r.clock.Now().UTC(), id, modified)
	if err != nil {
		slog.Error("Failed to mark simulation as scheduled", "simulation_id", id, "error", err)
		return false
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false
	}
	return affected == 1
}

// UpdateStartingTime stamps the run's first execution.
func (r *SimulationRepository) UpdateStartingTime(id int64) error {
	query := `
		UPDATE simulation SET started = ` + placeholder(1) + `, modified = ` + placeholder(2) + `
		WHERE id = ` + placeholder(3) + `
	`
	_, err := r.db.Exec(query, r.clock.Now().UTC(), r.clock.Now().UTC(), id)
	return err
}

// SaveRunState writes the updated execution state back in one
// statement. Terminal statuses also stamp the finish time.
func (r *SimulationRepository) SaveRunState(id int64, status string, position string, iterations int, results string, inputs string, terminal bool) error {
	now := r.clock.Now().UTC()
	finished := sql.NullTime{}
	if terminal {
		finished = sql.NullTime{Time: now, Valid: true}
	}
	query := `
		UPDATE simulation
		SET status = ` + placeholder(1) + `,
		    current_position = ` + placeholder(2) + `,
		    iteration_count = ` + placeholder(3) + `,
		    results = ` + placeholder(4) + `,
		    inputs = ` + placeholder(5) + `,
		    finished = ` + placeholder(6) + `,
		    modified = ` + placeholder(7) + `
		WHERE id = ` + placeholder(8) + `
	`
	_, err := r.db.Exec(query, status, position, iterations, results, inputs, finished, now, id)
	return err
}

// ClearExecutorId releases the simulation for another executor to pick
// up, used when a run blocks on a checkpoint and must wait.
func (r *SimulationRepository) ClearExecutorId(id int64) error {
	query := `
		UPDATE simulation SET executor_id = NULL, modified = ` + placeholder(1) + `
		WHERE id = ` + placeholder(2) + `
	`
	_, err := r.db.Exec(query, r.clock.Now().UTC(), id)
	return err
}
