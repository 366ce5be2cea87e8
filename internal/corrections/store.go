// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corrections persists user corrections to extraction output in a
// SQLite log so they can be exported as evaluation or fine-tuning data.
package corrections

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pdf2comp/pkg/types"
)

const (
	defaultDBPath       = "pdf2comp.db"
	defaultModelVersion = "v1"
	defaultListLimit    = 50

	// timeFormat is fixed-width so created_at sorts lexically.
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNotFound is returned by Get when no record has the given ID.
var ErrNotFound = errors.New("correction not found")

// now is the clock used for CreatedAt. Tests override it.
var now = func() time.Time { return time.Now().UTC() }

// Store manages the correction log SQLite database.
type Store struct {
	db        *sql.DB
	exportDir string
}

// NewStore opens or creates the correction log database at cfg.DBPath and
// creates the schema if it does not exist.
func NewStore(cfg types.CorrectionConfig) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	exportDir := cfg.ExportDir
	if exportDir == "" {
		exportDir = filepath.Dir(dbPath)
	}

	s := &Store{db: db, exportDir: exportDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS correction_log (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			task_type TEXT NOT NULL,
			input_context TEXT NOT NULL,
			llm_output TEXT,
			user_correction TEXT,
			model_version TEXT,
			confidence REAL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_correction_task ON correction_log(task_type)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// EncodeOutput returns v unchanged when it is a string and its JSON
// encoding otherwise, so structured model outputs and corrections are
// stored as JSON text.
func EncodeOutput(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding output: %w", err)
	}
	return string(data), nil
}

// Log inserts a correction record. ID and CreatedAt are assigned when
// empty, and ModelVersion defaults to "v1". The stored record is returned.
func (s *Store) Log(ctx context.Context, rec types.CorrectionRecord) (types.CorrectionRecord, error) {
	if strings.TrimSpace(rec.TaskType) == "" {
		return rec, fmt.Errorf("task type is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now()
	}
	if rec.ModelVersion == "" {
		rec.ModelVersion = defaultModelVersion
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO correction_log
			(id, task_type, input_context, llm_output, user_correction, model_version, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TaskType, rec.InputContext, rec.LLMOutput, rec.UserCorrection,
		rec.ModelVersion, rec.Confidence, rec.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return rec, fmt.Errorf("inserting correction: %w", err)
	}
	return rec, nil
}

// Get returns the record with the given ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*types.CorrectionRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListOptions filters List results.
type ListOptions struct {
	// TaskType restricts results to one task.
	TaskType string

	// Query is a substring matched against the input context and both outputs.
	Query string

	// Limit caps the result count. Zero uses the default (50); negative
	// means no limit.
	Limit int
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.CorrectionRecord, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(selectColumns + ` WHERE 1=1`)

	if opts.TaskType != "" {
		qb.WriteString(` AND task_type = ?`)
		args = append(args, opts.TaskType)
	}
	if opts.Query != "" {
		qb.WriteString(` AND (input_context LIKE ? OR llm_output LIKE ? OR user_correction LIKE ?)`)
		like := "%" + opts.Query + "%"
		args = append(args, like, like, like)
	}
	qb.WriteString(` ORDER BY created_at DESC, rowid DESC`)

	limit := opts.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying corrections: %w", err)
	}
	defer rows.Close()

	var records []types.CorrectionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

const selectColumns = `SELECT id, task_type, input_context, llm_output, user_correction,
	model_version, confidence, created_at FROM correction_log`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*types.CorrectionRecord, error) {
	var (
		rec                                     types.CorrectionRecord
		llmOutput, correction, version, created sql.NullString
		confidence                              sql.NullFloat64
	)
	err := sc.Scan(&rec.ID, &rec.TaskType, &rec.InputContext, &llmOutput, &correction,
		&version, &confidence, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning correction: %w", err)
	}
	rec.LLMOutput = llmOutput.String
	rec.UserCorrection = correction.String
	rec.ModelVersion = version.String
	rec.Confidence = confidence.Float64
	if created.Valid {
		t, err := time.Parse(timeFormat, created.String)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at for %s: %w", rec.ID, err)
		}
		rec.CreatedAt = t
	}
	return &rec, nil
}
