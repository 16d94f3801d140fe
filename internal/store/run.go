package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// RunKind describes what a run annotated.
type RunKind string

const (
	// RunKindImage is a single annotated image.
	RunKindImage RunKind = "image"
	// RunKindVideo is an annotated video file or camera recording.
	RunKindVideo RunKind = "video"
	// RunKindLive is a live preview session.
	RunKindLive RunKind = "live"
)

// Run represents one annotation run stored in the database.
type Run struct {
	ID        string    `json:"id"`
	Kind      RunKind   `json:"kind"`
	Source    string    `json:"source"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Frames    int       `json:"frames"`
	CreatedAt time.Time `json:"created_at"`
}

// RunRepository provides CRUD operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run. An empty ID is replaced with a fresh UUID.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO runs (id, kind, source, width, height, frames, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Source, run.Width, run.Height, run.Frames, run.CreatedAt,
	)
	return err
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run := &Run{}
	var kind string

	err := r.db.QueryRow(
		`SELECT id, kind, source, width, height, frames, created_at
		 FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &kind, &run.Source, &run.Width, &run.Height, &run.Frames, &run.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	run.Kind = RunKind(kind)
	return run, nil
}

// List retrieves all runs, newest first.
func (r *RunRepository) List() ([]*Run, error) {
	rows, err := r.db.Query(
		`SELECT id, kind, source, width, height, frames, created_at
		 FROM runs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var kind string
		if err := rows.Scan(&run.ID, &kind, &run.Source, &run.Width, &run.Height, &run.Frames, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Kind = RunKind(kind)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Finish records the final frame count and output size of a run.
func (r *RunRepository) Finish(id string, frames, width, height int) error {
	result, err := r.db.Exec(
		`UPDATE runs SET frames = ?, width = ?, height = ? WHERE id = ?`,
		frames, width, height, id,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetThumbnail stores a JPEG preview for a run, replacing any previous one.
func (r *RunRepository) SetThumbnail(id string, jpeg []byte) error {
	_, err := r.db.Exec(
		`INSERT INTO thumbnails (run_id, data) VALUES (?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET data = excluded.data`,
		id, jpeg,
	)
	return err
}

// Thumbnail returns the JPEG preview of a run. ErrNotFound is returned when
// the run has none.
func (r *RunRepository) Thumbnail(id string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRow(`SELECT data FROM thumbnails WHERE run_id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Delete removes a run and, through the cascade, its detections and thumbnail.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
