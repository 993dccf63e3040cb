// Package sqlite persists trial data in an embedded SQLite database using the
// pure-Go driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"cytocore/pkg/domain"
)

// Store implements domain.Store over a SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

var _ domain.Store = (*Store)(nil)

// NewStore opens (or creates) the database at path and enables foreign key
// enforcement. Rebuild must run before the first commit into a fresh file.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "cytocore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	// The pragma rides on the DSN so it applies to every pooled connection.
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

var schema = []string{
	`DROP TABLE IF EXISTS cell_counts`,
	`DROP TABLE IF EXISTS samples`,
	`DROP TABLE IF EXISTS subjects`,
	`CREATE TABLE subjects (
		subject_id TEXT PRIMARY KEY,
		project    TEXT NOT NULL,
		condition  TEXT NOT NULL,
		age        INTEGER,
		sex        TEXT,
		treatment  TEXT NOT NULL,
		response   TEXT
	)`,
	`CREATE TABLE samples (
		sample_id                 TEXT PRIMARY KEY,
		subject_id                TEXT NOT NULL REFERENCES subjects(subject_id),
		sample_type               TEXT NOT NULL,
		time_from_treatment_start INTEGER NOT NULL
	)`,
	`CREATE TABLE cell_counts (
		sample_id  TEXT NOT NULL REFERENCES samples(sample_id),
		population TEXT NOT NULL,
		count      INTEGER NOT NULL CHECK (count >= 0),
		PRIMARY KEY (sample_id, population)
	)`,
	`CREATE INDEX idx_subjects_project ON subjects(project)`,
	`CREATE INDEX idx_subjects_treatment ON subjects(treatment)`,
	`CREATE INDEX idx_samples_subject ON samples(subject_id)`,
	`CREATE INDEX idx_samples_type_time ON samples(sample_type, time_from_treatment_start)`,
	`CREATE INDEX idx_cell_counts_population ON cell_counts(population)`,
}

// Rebuild drops and recreates the relational schema. Every load is a full
// refresh.
func (s *Store) Rebuild(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild schema: %w", err)
		}
	}
	return nil
}

// CommitBatch writes the batch inside one transaction: either every subject,
// sample, and measurement lands or none do.
func (s *Store) CommitBatch(ctx context.Context, batch domain.TrialBatch) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, sub := range batch.Subjects {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO subjects(subject_id, project, condition, age, sex, treatment, response) VALUES(?,?,?,?,?,?,?)`,
			sub.SubjectID, sub.Project, sub.Condition, sub.Age, sub.Sex, sub.Treatment, sub.Response,
		); err != nil {
			return fmt.Errorf("insert subject %s: %w", sub.SubjectID, err)
		}
	}
	for _, sample := range batch.Samples {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO samples(sample_id, subject_id, sample_type, time_from_treatment_start) VALUES(?,?,?,?)`,
			sample.SampleID, sample.SubjectID, sample.SampleType, sample.TimeFromTreatmentStart,
		); err != nil {
			return fmt.Errorf("insert sample %s: %w", sample.SampleID, err)
		}
	}
	for _, m := range batch.Measurements {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cell_counts(sample_id, population, count) VALUES(?,?,?)`,
			m.SampleID, string(m.Population), m.Count,
		); err != nil {
			return fmt.Errorf("insert measurement %s/%s: %w", m.SampleID, m.Population, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) countRows(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) CountSubjects(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM subjects`)
}

func (s *Store) CountSamples(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM samples`)
}

func (s *Store) CountMeasurements(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM cell_counts`)
}

func (s *Store) MeasurementCountsBySample(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sample_id, COUNT(*) FROM cell_counts GROUP BY sample_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *Store) DistinctPopulations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT population FROM cell_counts ORDER BY population`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var pop string
		if err := rows.Scan(&pop); err != nil {
			return nil, err
		}
		out = append(out, pop)
	}
	return out, rows.Err()
}

func (s *Store) Subjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id, project, condition, age, sex, treatment, response FROM subjects ORDER BY subject_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Subject
	for rows.Next() {
		var sub domain.Subject
		if err := rows.Scan(&sub.SubjectID, &sub.Project, &sub.Condition, &sub.Age, &sub.Sex, &sub.Treatment, &sub.Response); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) Samples(ctx context.Context) ([]domain.Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sample_id, subject_id, sample_type, time_from_treatment_start FROM samples ORDER BY sample_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Sample
	for rows.Next() {
		var sample domain.Sample
		if err := rows.Scan(&sample.SampleID, &sample.SubjectID, &sample.SampleType, &sample.TimeFromTreatmentStart); err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

func (s *Store) Measurements(ctx context.Context) ([]domain.Measurement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sample_id, population, count FROM cell_counts ORDER BY sample_id, population`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Measurement
	for rows.Next() {
		var m domain.Measurement
		var pop string
		if err := rows.Scan(&m.SampleID, &pop, &m.Count); err != nil {
			return nil, err
		}
		m.Population = domain.Population(pop)
		out = append(out, m)
	}
	return out, rows.Err()
}

// CohortSamples joins samples with their subjects and applies the filter in
// SQL so only matching rows cross the driver boundary.
func (s *Store) CohortSamples(ctx context.Context, filter domain.CohortFilter) ([]domain.CohortSample, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT sa.subject_id, sa.sample_id, su.response, sa.time_from_treatment_start
		FROM samples sa JOIN subjects su ON su.subject_id = sa.subject_id WHERE 1=1`)
	var args []any
	if filter.Condition != "" {
		query.WriteString(` AND su.condition = ?`)
		args = append(args, filter.Condition)
	}
	if filter.Treatment != "" {
		query.WriteString(` AND su.treatment = ?`)
		args = append(args, filter.Treatment)
	}
	if filter.SampleType != "" {
		query.WriteString(` AND sa.sample_type = ?`)
		args = append(args, filter.SampleType)
	}
	if len(filter.Responses) > 0 {
		query.WriteString(` AND su.response IN (` + placeholders(len(filter.Responses)) + `)`)
		for _, r := range filter.Responses {
			args = append(args, r)
		}
	}
	if len(filter.Timepoints) > 0 {
		query.WriteString(` AND sa.time_from_treatment_start IN (` + placeholders(len(filter.Timepoints)) + `)`)
		for _, tp := range filter.Timepoints {
			args = append(args, tp)
		}
	}
	query.WriteString(` ORDER BY sa.sample_id`)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []domain.CohortSample
	for rows.Next() {
		var cs domain.CohortSample
		var response sql.NullString
		if err := rows.Scan(&cs.SubjectID, &cs.SampleID, &response, &cs.TimeFromTreatmentStart); err != nil {
			return nil, err
		}
		cs.Response = response.String
		out = append(out, cs)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
