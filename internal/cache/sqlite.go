package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// diskStore persists embeddings across runs. Entries are write-once: inserts
// ignore existing keys, and staleness is purely a key-mismatch concern (a new
// model identity or revision is a different key).
type diskStore struct {
	db *sql.DB

	getStmt    *sql.Stmt
	insertStmt *sql.Stmt
}

func openDiskStore(path string) (*diskStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache: empty sqlite path")
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("cache: create dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: ping sqlite: %w", err)
	}

	stmts := []string{
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			model TEXT NOT NULL,
			task TEXT NOT NULL,
			split TEXT NOT NULL,
			item TEXT NOT NULL,
			vector BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY(model, task, split, item)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cache: init schema: %w", err)
		}
	}

	st := &diskStore{db: db}
	st.getStmt, err = db.Prepare(
		`SELECT item, vector FROM embeddings WHERE model = ? AND task = ? AND split = ?`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: prepare get: %w", err)
	}
	st.insertStmt, err = db.Prepare(
		`INSERT OR IGNORE INTO embeddings (model, task, split, item, vector, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: prepare insert: %w", err)
	}
	return st, nil
}

func (s *diskStore) close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// loadNamespace reads every stored vector for (model, task, split).
func (s *diskStore) loadNamespace(model, taskName, split string) (map[string][]float32, error) {
	if s == nil || s.getStmt == nil {
		return nil, errors.New("cache: nil disk store")
	}

	rows, err := s.getStmt.Query(model, taskName, split)
	if err != nil {
		return nil, fmt.Errorf("cache: query: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var item string
		var blob []byte
		if err := rows.Scan(&item, &blob); err != nil {
			return nil, fmt.Errorf("cache: scan: %w", err)
		}
		if v := bytesToFloat32(blob); v != nil {
			out[item] = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache: rows: %w", err)
	}
	return out, nil
}

// storeBatch writes a batch of vectors in one transaction, so a racing
// reader sees either all of the batch or none of it.
func (s *diskStore) storeBatch(model, taskName, split string, ids []string, vectors [][]float32) error {
	if s == nil || s.db == nil {
		return errors.New("cache: nil disk store")
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("cache: %d ids for %d vectors", len(ids), len(vectors))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin: %w", err)
	}

	now := time.Now().Unix()
	stmt := tx.Stmt(s.insertStmt)
	for i, id := range ids {
		if _, err := stmt.Exec(model, taskName, split, id, float32ToBytes(vectors[i]), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("cache: insert %q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache: commit: %w", err)
	}
	return nil
}
