package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/utils"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS incident_states (
	incident_id TEXT PRIMARY KEY,
	version     INTEGER NOT NULL,
	state       TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
`

// SQLiteStore persists incident state in a local SQLite database so
// workflows survive process restarts. Optimistic concurrency rides on a
// version column checked in the UPDATE's WHERE clause.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dsn.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, utils.NewAppError("store.sqlite", "dsn is required", nil)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, utils.NewAppError("store.sqlite", "open database", err)
	}
	// modernc's driver serialises writes per connection; a single
	// connection avoids SQLITE_BUSY under concurrent workflows.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, utils.NewAppError("store.sqlite", "initialise schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, incidentID string) (models.IncidentState, int64, error) {
	var (
		version int64
		data    string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT version, state FROM incident_states WHERE incident_id = ?`, incidentID)
	if err := row.Scan(&version, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.IncidentState{}, 0, fmt.Errorf("%w: %s", ErrNotFound, incidentID)
		}
		return models.IncidentState{}, 0, utils.NewAppError("store.sqlite", "query state", err)
	}

	var state models.IncidentState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return models.IncidentState{}, 0, utils.NewAppError("store.sqlite", "decode state", err)
	}
	return state, version, nil
}

func (s *SQLiteStore) CompareAndSwap(ctx context.Context, state models.IncidentState, version int64) (int64, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return 0, utils.NewAppError("store.sqlite", "encode state", err)
	}
	next := version + 1

	if version == 0 {
		result, err := s.db.ExecContext(ctx,
			`INSERT INTO incident_states (incident_id, version, state, updated_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(incident_id) DO NOTHING`,
			state.IncidentID, next, string(data), state.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z"))
		if err != nil {
			return 0, utils.NewAppError("store.sqlite", "insert state", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, utils.NewAppError("store.sqlite", "insert state", err)
		}
		if affected == 0 {
			return 0, fmt.Errorf("%w: %s already exists", ErrConcurrentModification, state.IncidentID)
		}
		return next, nil
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE incident_states SET version = ?, state = ?, updated_at = ?
		 WHERE incident_id = ? AND version = ?`,
		next, string(data), state.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		state.IncidentID, version)
	if err != nil {
		return 0, utils.NewAppError("store.sqlite", "update state", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, utils.NewAppError("store.sqlite", "update state", err)
	}
	if affected == 0 {
		if _, _, getErr := s.Get(ctx, state.IncidentID); errors.Is(getErr, ErrNotFound) {
			return 0, getErr
		}
		return 0, fmt.Errorf("%w: %s, expected version %d",
			ErrConcurrentModification, state.IncidentID, version)
	}
	return next, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT incident_id FROM incident_states ORDER BY incident_id`)
	if err != nil {
		return nil, utils.NewAppError("store.sqlite", "list states", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, utils.NewAppError("store.sqlite", "scan state id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
