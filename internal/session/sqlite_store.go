// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voxhire/voxhire/internal/persistence/sqlite"
	"github.com/voxhire/voxhire/internal/types"
)

const sqliteSchemaVersion = 1

// SqliteStore implements Store on a single-file SQLite database.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore opens the database at dbPath and runs migrations.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &SqliteStore{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session store: migration failed: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

func (s *SqliteStore) migrate() error {
	var currentVersion int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= sqliteSchemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		candidate_name TEXT NOT NULL,
		candidate_email TEXT NOT NULL,
		position TEXT NOT NULL,
		status TEXT NOT NULL,
		room_name TEXT NOT NULL,
		questions_json TEXT NOT NULL,
		analysis_json TEXT,
		transcript_json TEXT,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL,
		status_changed_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at_ms);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) Put(ctx context.Context, sess *Session) error {
	questionsJSON, err := json.Marshal(sess.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	analysisJSON, err := marshalNullable(sess.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	transcriptJSON, err := marshalNullable(sess.Transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	query := `
	INSERT INTO sessions (
		id, candidate_name, candidate_email, position, status, room_name,
		questions_json, analysis_json, transcript_json,
		created_at_ms, updated_at_ms, status_changed_at_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		candidate_name = excluded.candidate_name,
		candidate_email = excluded.candidate_email,
		position = excluded.position,
		status = excluded.status,
		room_name = excluded.room_name,
		questions_json = excluded.questions_json,
		analysis_json = excluded.analysis_json,
		transcript_json = excluded.transcript_json,
		updated_at_ms = excluded.updated_at_ms,
		status_changed_at_ms = excluded.status_changed_at_ms
	`
	_, err = s.DB.ExecContext(ctx, query,
		sess.ID, sess.CandidateName, sess.CandidateEmail, sess.Position,
		sess.Status.String(), sess.RoomName,
		string(questionsJSON), analysisJSON, transcriptJSON,
		sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli(), sess.StatusChangedAt.UnixMilli(),
	)
	return err
}

func (s *SqliteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.DB.QueryRowContext(ctx, sessionSelect+" WHERE id = ?", id)
	return scanSession(row)
}

func (s *SqliteStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, sessionSelect+" WHERE id = ?", id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		return nil, err
	}

	questionsJSON, err := json.Marshal(sess.Questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}
	analysisJSON, err := marshalNullable(sess.Analysis)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	transcriptJSON, err := marshalNullable(sess.Transcript)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	UPDATE sessions SET
		candidate_name = ?, candidate_email = ?, position = ?, status = ?, room_name = ?,
		questions_json = ?, analysis_json = ?, transcript_json = ?,
		updated_at_ms = ?, status_changed_at_ms = ?
	WHERE id = ?`,
		sess.CandidateName, sess.CandidateEmail, sess.Position, sess.Status.String(), sess.RoomName,
		string(questionsJSON), analysisJSON, transcriptJSON,
		sess.UpdatedAt.UnixMilli(), sess.StatusChangedAt.UnixMilli(),
		id,
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SqliteStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.DB.QueryContext(ctx, sessionSelect+" ORDER BY created_at_ms DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SqliteStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionSelect = `
	SELECT id, candidate_name, candidate_email, position, status, room_name,
		questions_json, analysis_json, transcript_json,
		created_at_ms, updated_at_ms, status_changed_at_ms
	FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var status, questionsJSON string
	var analysisJSON, transcriptJSON sql.NullString
	var createdMs, updatedMs, statusChangedMs int64

	err := row.Scan(
		&sess.ID, &sess.CandidateName, &sess.CandidateEmail, &sess.Position,
		&status, &sess.RoomName,
		&questionsJSON, &analysisJSON, &transcriptJSON,
		&createdMs, &updatedMs, &statusChangedMs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	parsed, err := types.ParseSessionStatus(status)
	if err != nil {
		return nil, err
	}
	sess.Status = parsed

	if err := json.Unmarshal([]byte(questionsJSON), &sess.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if analysisJSON.Valid && analysisJSON.String != "" {
		if err := json.Unmarshal([]byte(analysisJSON.String), &sess.Analysis); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
	}
	if transcriptJSON.Valid && transcriptJSON.String != "" {
		if err := json.Unmarshal([]byte(transcriptJSON.String), &sess.Transcript); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
	}

	sess.CreatedAt = time.UnixMilli(createdMs).UTC()
	sess.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	sess.StatusChangedAt = time.UnixMilli(statusChangedMs).UTC()
	return &sess, nil
}

// marshalNullable encodes v as JSON, mapping nil/empty to SQL NULL.
func marshalNullable(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *Analysis:
		if t == nil {
			return sql.NullString{}, nil
		}
	case []TranscriptEntry:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(buf), Valid: true}, nil
}
