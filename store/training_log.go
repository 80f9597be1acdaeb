// Package store keeps a history of training runs in SQLite.
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
)

const schema = `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_type VARCHAR(50) NOT NULL,
        dataset TEXT NOT NULL,
        bundle_path TEXT NOT NULL,
        accuracy REAL,
        precision REAL,
        recall REAL,
        f1 REAL,
        train_rows INTEGER,
        test_rows INTEGER,
        iterations INTEGER,
        trained_at DATETIME NOT NULL
    );
    `

// TrainingRun is one row of the training log.
type TrainingRun struct {
	ID         int64     `json:"id"`
	ModelType  string    `json:"model_type"`
	Dataset    string    `json:"dataset"`
	BundlePath string    `json:"bundle_path"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	F1         float64   `json:"f1"`
	TrainRows  int       `json:"train_rows"`
	TestRows   int       `json:"test_rows"`
	Iterations int       `json:"iterations"`
	TrainedAt  time.Time `json:"trained_at"`
}

// TrainingLog is the SQLite training history.
type TrainingLog struct {
	db *sql.DB
}

// Open creates the database file and its table if needed.
func Open(path string) (*TrainingLog, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise %s: %w", path, err)
	}
	return &TrainingLog{db: db}, nil
}

// Close closes the database.
func (l *TrainingLog) Close() error {
	return l.db.Close()
}

// Record stores run and returns its id.
func (l *TrainingLog) Record(ctx context.Context, run TrainingRun) (int64, error) {
	if run.TrainedAt.IsZero() {
		run.TrainedAt = time.Now()
	}
	res, err := l.db.ExecContext(ctx, `
        INSERT INTO training_log (
            model_type, dataset, bundle_path, accuracy, precision, recall, f1,
            train_rows, test_rows, iterations, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ModelType, run.Dataset, run.BundlePath, run.Accuracy, run.Precision, run.Recall, run.F1,
		run.TrainRows, run.TestRows, run.Iterations, run.TrainedAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Recent returns up to limit runs, newest first.
func (l *TrainingLog) Recent(ctx context.Context, limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx, `
        SELECT id, model_type, dataset, bundle_path, accuracy, precision, recall, f1,
               train_rows, test_rows, iterations, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var r TrainingRun
		if err := rows.Scan(&r.ID, &r.ModelType, &r.Dataset, &r.BundlePath, &r.Accuracy, &r.Precision,
			&r.Recall, &r.F1, &r.TrainRows, &r.TestRows, &r.Iterations, &r.TrainedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
