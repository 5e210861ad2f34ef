package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
)

const generationRunColumns = `
	id, trigger_source, status, error_message, events_scanned, pairs_evaluated, pairs_skipped,
	pairs_excluded, items_upserted, contacts_created, worker_id, started_at, completed_at,
	created_at, updated_at
`

// GenerationRunRepository handles database operations for generation runs
type GenerationRunRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewGenerationRunRepository creates a new GenerationRunRepository
func NewGenerationRunRepository(db *sql.DB) *GenerationRunRepository {
	return &GenerationRunRepository{db: db}
}

// Create creates a new generation run
func (r *GenerationRunRepository) Create(run *models.GenerationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO generation_runs (` + generationRunColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.Trigger,
		run.Status,
		run.ErrorMessage,
		run.EventsScanned,
		run.PairsEvaluated,
		run.PairsSkipped,
		run.PairsExcluded,
		run.ItemsUpserted,
		run.ContactsCreated,
		run.WorkerID,
		utcPtr(run.StartedAt),
		utcPtr(run.CompletedAt),
		run.CreatedAt.UTC(),
		run.UpdatedAt.UTC(),
	)
	return err
}

// GetByID retrieves a generation run by ID
func (r *GenerationRunRepository) GetByID(id string) (*models.GenerationRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + generationRunColumns + ` FROM generation_runs WHERE id = ?`
	return scanGenerationRun(r.db.QueryRow(query, id))
}

// ListRecent returns the latest runs, newest first
func (r *GenerationRunRepository) ListRecent(limit int) ([]*models.GenerationRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT ` + generationRunColumns + `
		FROM generation_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.GenerationRun
	for rows.Next() {
		run, err := scanGenerationRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetNextPendingRun claims the oldest pending run for workerID (FIFO).
// This method is thread-safe and marks the run as in-progress; it returns nil when nothing is queued.
func (r *GenerationRunRepository) GetNextPendingRun(workerID string) (*models.GenerationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		SELECT ` + generationRunColumns + `
		FROM generation_runs
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT 1
	`

	run, err := scanGenerationRun(tx.QueryRow(query, models.RunStatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	run.MarkStarted()
	run.WorkerID = &workerID

	updateQuery := `
		UPDATE generation_runs
		SET status = ?, worker_id = ?, started_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := tx.Exec(updateQuery, run.Status, run.WorkerID, utcPtr(run.StartedAt), run.UpdatedAt.UTC(), run.ID, models.RunStatusPending)
	if err != nil {
		return nil, err
	}
	if affected, err := result.RowsAffected(); err != nil || affected == 0 {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return run, nil
}

// Update updates a generation run
func (r *GenerationRunRepository) Update(run *models.GenerationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE generation_runs
		SET status = ?, error_message = ?, events_scanned = ?, pairs_evaluated = ?, pairs_skipped = ?,
		    pairs_excluded = ?, items_upserted = ?, contacts_created = ?, worker_id = ?,
		    started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		run.Status,
		run.ErrorMessage,
		run.EventsScanned,
		run.PairsEvaluated,
		run.PairsSkipped,
		run.PairsExcluded,
		run.ItemsUpserted,
		run.ContactsCreated,
		run.WorkerID,
		utcPtr(run.StartedAt),
		utcPtr(run.CompletedAt),
		time.Now().UTC(),
		run.ID,
	)
	return err
}

// CountPending returns how many runs are waiting for a worker
func (r *GenerationRunRepository) CountPending() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM generation_runs WHERE status = ?`, models.RunStatusPending).Scan(&count)
	return count, err
}

func scanGenerationRun(row rowScanner) (*models.GenerationRun, error) {
	run := &models.GenerationRun{}
	err := row.Scan(
		&run.ID,
		&run.Trigger,
		&run.Status,
		&run.ErrorMessage,
		&run.EventsScanned,
		&run.PairsEvaluated,
		&run.PairsSkipped,
		&run.PairsExcluded,
		&run.ItemsUpserted,
		&run.ContactsCreated,
		&run.WorkerID,
		&run.StartedAt,
		&run.CompletedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}
