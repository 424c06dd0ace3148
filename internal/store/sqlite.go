package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores the same JSON snapshot in a single-row table. The
// load/save contract is identical to the file backend; sqlite just buys atomic
// writes for free.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single writer; the store serializes access anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		body BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Load() (*State, error) {
	var body []byte
	err := r.db.QueryRow(`SELECT body FROM snapshot WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	st := &State{}
	if err := json.Unmarshal(body, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (r *SQLiteRepository) Save(st *State) error {
	body, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`INSERT INTO snapshot (id, body, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		body, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) Close() error { return r.db.Close() }
