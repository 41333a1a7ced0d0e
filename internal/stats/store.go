// Package stats keeps the direct backend's usage counters in SQLite.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/snonux/studycards/internal/deck"
)

const (
	counterFlashcards = "flashcards_generated"
	counterTexts      = "texts_processed"
	counterImages     = "images_processed"
)

// MemoryPath opens a store that lives only as long as the process
const MemoryPath = ":memory:"

// Store is a SQLite backed set of usage counters
type Store struct {
	db *sql.DB
}

// Open opens or creates the counter database at path
func Open(path string) (*Store, error) {
	if path == "" {
		path = MemoryPath
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create stats directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS counters (
		name  text PRIMARY KEY,
		value integer NOT NULL DEFAULT 0
	)`); err != nil {
		return fmt.Errorf("failed to create counters table: %w", err)
	}

	for _, name := range []string{counterFlashcards, counterTexts, counterImages} {
		if _, err := s.db.Exec(`INSERT OR IGNORE INTO counters (name, value) VALUES (?, 0)`, name); err != nil {
			return fmt.Errorf("failed to seed counter %s: %w", name, err)
		}
	}
	return nil
}

// RecordGeneration counts one processed text that produced cards flashcards
func (s *Store) RecordGeneration(ctx context.Context, cards int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := add(ctx, tx, counterFlashcards, cards); err != nil {
			return err
		}
		return add(ctx, tx, counterTexts, 1)
	})
}

// RecordImage counts one image that text was extracted from
func (s *Store) RecordImage(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return add(ctx, tx, counterImages, 1)
	})
}

// Get returns the current totals
func (s *Store) Get(ctx context.Context) (deck.Statistics, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM counters`)
	if err != nil {
		return deck.Statistics{}, fmt.Errorf("failed to read counters: %w", err)
	}
	defer rows.Close()

	var stats deck.Statistics
	for rows.Next() {
		var name string
		var value int
		if err := rows.Scan(&name, &value); err != nil {
			return deck.Statistics{}, fmt.Errorf("failed to scan counter: %w", err)
		}
		switch name {
		case counterFlashcards:
			stats.TotalFlashcardsGenerated = value
		case counterTexts:
			stats.TotalTextsProcessed = value
		case counterImages:
			stats.TotalImagesProcessed = value
		}
	}
	if err := rows.Err(); err != nil {
		return deck.Statistics{}, fmt.Errorf("failed to read counters: %w", err)
	}
	return stats, nil
}

// Reset sets every counter back to zero
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE counters SET value = 0`); err != nil {
		return fmt.Errorf("failed to reset counters: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit counters: %w", err)
	}
	return nil
}

func add(ctx context.Context, tx *sql.Tx, name string, delta int) error {
	if _, err := tx.ExecContext(ctx, `UPDATE counters SET value = value + ? WHERE name = ?`, delta, name); err != nil {
		return fmt.Errorf("failed to update counter %s: %w", name, err)
	}
	return nil
}
