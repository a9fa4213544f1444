// Package store provides SQLite persistence for the submission audit
// log. Only accepted submissions are recorded; the edit buffer itself is
// ephemeral and never touches disk.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Submission is one accepted submit, as the server acknowledged it.
type Submission struct {
	ID        int64
	BatchID   string
	Candidate string
	Score     float64
	Message   string
	Payload   string // exact payload echo, JSON text
	CreatedAt time.Time
}

// Open creates a Store at the given database path, creating tables as
// needed. WAL mode is enabled for file-based databases.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		candidate TEXT NOT NULL,
		score REAL NOT NULL,
		message TEXT,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_batch ON submissions(batch_id, created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveSubmission records one accepted submission and returns its row id.
func (s *Store) SaveSubmission(sub Submission) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := sub.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO submissions (batch_id, candidate, score, message, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sub.BatchID, sub.Candidate, sub.Score, sub.Message, sub.Payload, created)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// LastSubmission returns the most recent submission for a batch, or
// sql.ErrNoRows via found=false when there is none.
func (s *Store) LastSubmission(batchID string) (Submission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, batch_id, candidate, score, message, payload, created_at
		FROM submissions WHERE batch_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, batchID)

	var sub Submission
	err := row.Scan(&sub.ID, &sub.BatchID, &sub.Candidate, &sub.Score, &sub.Message, &sub.Payload, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return Submission{}, false, nil
	}
	if err != nil {
		return Submission{}, false, fmt.Errorf("query last submission: %w", err)
	}
	return sub, true, nil
}

// RecentSubmissions returns up to limit submissions across all batches,
// newest first.
func (s *Store) RecentSubmissions(limit int) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, batch_id, candidate, score, message, payload, created_at
		FROM submissions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.BatchID, &sub.Candidate, &sub.Score, &sub.Message, &sub.Payload, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
