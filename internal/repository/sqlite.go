// Package repository provides the SQLite audit log. The live session state
// is in-memory; this log is a best-effort record of intakes, notes and
// pipeline runs for after-the-fact review.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/graphcare/backend/internal/domain"
)

// AuditLog records decision-support activity in SQLite.
type AuditLog struct {
	db *sql.DB
}

// NewAuditLog opens the database and runs migrations.
func NewAuditLog(dsn string) (*AuditLog, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	log := &AuditLog{db: db}
	if err := log.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return log, nil
}

func (a *AuditLog) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL,
			probability REAL NOT NULL,
			artifact_path TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			note_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			text TEXT NOT NULL,
			probability REAL NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_session ON notes(session_id, seq)`,
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_session ON pipeline_runs(session_id, started_at)`,
	}
	for _, m := range migrations {
		if _, err := a.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (a *AuditLog) Close() error {
	return a.db.Close()
}

// RecordSession logs a newly created session.
func (a *AuditLog) RecordSession(ctx context.Context, s *domain.Session) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, patient_id, probability, artifact_path, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.PatientID, s.Probability, s.ArtifactPath, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// RecordNote logs an appended clinical note and the probability it produced.
func (a *AuditLog) RecordNote(ctx context.Context, noteID, sessionID string, seq int, text string, probability float64) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO notes (note_id, session_id, seq, text, probability, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		noteID, sessionID, seq, text, probability, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record note: %w", err)
	}
	return nil
}

// RecordPipelineRun logs one external pipeline invocation.
func (a *AuditLog) RecordPipelineRun(ctx context.Context, run *domain.PipelineRun) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (run_id, session_id, mode, status, error, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.SessionID, string(run.Mode), run.Status, nullable(run.Error), run.StartedAt, run.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record pipeline run: %w", err)
	}
	return nil
}

// NoteRecord is a stored note row.
type NoteRecord struct {
	NoteID      string
	SessionID   string
	Seq         int
	Text        string
	Probability float64
}

// ListNotes returns the notes of a session in sequence order.
func (a *AuditLog) ListNotes(ctx context.Context, sessionID string) ([]NoteRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT note_id, session_id, seq, text, probability FROM notes
		 WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []NoteRecord
	for rows.Next() {
		var n NoteRecord
		if err := rows.Scan(&n.NoteID, &n.SessionID, &n.Seq, &n.Text, &n.Probability); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// ListPipelineRuns returns the pipeline runs of a session, oldest first.
func (a *AuditLog) ListPipelineRuns(ctx context.Context, sessionID string) ([]domain.PipelineRun, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT run_id, session_id, mode, status, error, started_at, ended_at FROM pipeline_runs
		 WHERE session_id = ? ORDER BY started_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	defer rows.Close()
	return scanPipelineRuns(rows)
}

func scanPipelineRuns(rows *sql.Rows) ([]domain.PipelineRun, error) {
	var runs []domain.PipelineRun
	for rows.Next() {
		var r domain.PipelineRun
		var mode string
		var errMsg sql.NullString
		if err := rows.Scan(&r.RunID, &r.SessionID, &mode, &r.Status, &errMsg, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		r.Mode = domain.PipelineMode(mode)
		r.Error = errMsg.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecentPipelineRuns returns the most recent pipeline runs across all
// sessions, newest first.
func (a *AuditLog) RecentPipelineRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT run_id, session_id, mode, status, error, started_at, ended_at FROM pipeline_runs
		 ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent pipeline runs: %w", err)
	}
	defer rows.Close()
	return scanPipelineRuns(rows)
}

// GetSessionRecord returns the stored intake row, or nil if absent.
func (a *AuditLog) GetSessionRecord(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT session_id, patient_id, probability, artifact_path, created_at FROM sessions
		 WHERE session_id = ?`, sessionID)

	var s domain.Session
	err := row.Scan(&s.ID, &s.PatientID, &s.Probability, &s.ArtifactPath, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session record: %w", err)
	}
	return &s, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
