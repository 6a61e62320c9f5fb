// Package store persists evaluation history and named parameter presets in
// SQLite. History rows hold summaries only; curves are deterministic replays
// of their parameters, so the 300 samples are never stored.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
)

// ErrPresetNotFound indicates a preset name with no stored row.
var ErrPresetNotFound = errors.New("preset not found")

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	eval_id TEXT NOT NULL,
	cd REAL NOT NULL,
	crest_width REAL NOT NULL,
	max_head REAL NOT NULL,
	sample_count INTEGER NOT NULL,
	min_head REAL NOT NULL,
	peak_discharge REAL NOT NULL,
	evaluated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_evaluated_at ON evaluations(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_evaluations_eval_id ON evaluations(eval_id);

CREATE TABLE IF NOT EXISTS presets (
	name TEXT PRIMARY KEY,
	cd REAL NOT NULL,
	crest_width REAL NOT NULL,
	max_head REAL NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);`

// EvaluationRecord is one history row: the inputs and headline result of a
// past evaluation.
type EvaluationRecord struct {
	ID            int64     `json:"-"`
	EvalID        string    `json:"id"`
	Cd            float64   `json:"cd"`
	CrestWidth    float64   `json:"crest_width"`
	MaxHead       float64   `json:"max_head"`
	SampleCount   int       `json:"sample_count"`
	MinHead       float64   `json:"min_head"`
	PeakDischarge float64   `json:"peak_discharge"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

// Preset is a named parameter set saved by a user.
type Preset struct {
	Name       string    `json:"name"`
	Cd         float64   `json:"cd"`
	CrestWidth float64   `json:"crest_width"`
	MaxHead    float64   `json:"max_head"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Params converts the preset into a parameter set.
func (p Preset) Params() domain.Params {
	return domain.Params{Cd: p.Cd, CrestWidth: p.CrestWidth, MaxHead: p.MaxHead}
}

// Store is a SQLite-backed evaluation history and preset repository.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveEvaluation stores the summary row for one evaluation. Implements
// board.Recorder.
func (s *Store) SaveEvaluation(ctx context.Context, eval domain.Evaluation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations(eval_id, cd, crest_width, max_head, sample_count, min_head, peak_discharge, evaluated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		eval.ID,
		eval.Params.Cd,
		eval.Params.CrestWidth,
		eval.Params.MaxHead,
		eval.Sampling.Count,
		eval.Sampling.MinHead,
		eval.Peak.Discharge,
		eval.EvaluatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation %s: %w", eval.ID, err)
	}
	return nil
}

// RecentEvaluations returns up to limit history rows, newest first.
func (s *Store) RecentEvaluations(ctx context.Context, limit int) ([]EvaluationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, eval_id, cd, crest_width, max_head, sample_count, min_head, peak_discharge, evaluated_at
		FROM evaluations
		ORDER BY evaluated_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var records []EvaluationRecord
	for rows.Next() {
		var rec EvaluationRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.EvalID,
			&rec.Cd,
			&rec.CrestWidth,
			&rec.MaxHead,
			&rec.SampleCount,
			&rec.MinHead,
			&rec.PeakDischarge,
			&rec.EvaluatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan evaluation row: %w", err)
		}
		rec.EvaluatedAt = rec.EvaluatedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation rows: %w", err)
	}
	return records, nil
}

// PruneEvaluationsBefore deletes history rows older than cutoff and returns
// the number removed.
func (s *Store) PruneEvaluationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE evaluated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune evaluations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune evaluations: %w", err)
	}
	return n, nil
}

// SavePreset inserts or updates a named parameter set.
func (s *Store) SavePreset(ctx context.Context, name string, params domain.Params, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO presets(name, cd, crest_width, max_head, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			cd=excluded.cd,
			crest_width=excluded.crest_width,
			max_head=excluded.max_head,
			updated_at=excluded.updated_at`,
		name, params.Cd, params.CrestWidth, params.MaxHead, now.UTC(), now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save preset %q: %w", name, err)
	}
	return nil
}

// GetPreset returns the preset stored under name.
func (s *Store) GetPreset(ctx context.Context, name string) (Preset, error) {
	var p Preset
	err := s.db.QueryRowContext(ctx, `
		SELECT name, cd, crest_width, max_head, created_at, updated_at
		FROM presets WHERE name = ?`, name).
		Scan(&p.Name, &p.Cd, &p.CrestWidth, &p.MaxHead, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	if err != nil {
		return Preset{}, fmt.Errorf("get preset %q: %w", name, err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// ListPresets returns all presets ordered by name.
func (s *Store) ListPresets(ctx context.Context) ([]Preset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, cd, crest_width, max_head, created_at, updated_at
		FROM presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query presets: %w", err)
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		var p Preset
		if err := rows.Scan(&p.Name, &p.Cd, &p.CrestWidth, &p.MaxHead, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan preset row: %w", err)
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		presets = append(presets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preset rows: %w", err)
	}
	return presets, nil
}

// DeletePreset removes the preset stored under name.
func (s *Store) DeletePreset(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete preset %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete preset %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return nil
}
