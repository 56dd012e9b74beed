package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteKV keeps values in a single kv table of a SQLite database. It is safe
// for concurrent use because the underlying *sql.DB is concurrency-safe.
type SQLiteKV struct {
	conn   *sql.DB
	logger *logrus.Logger

	getStmt    *sql.Stmt
	setStmt    *sql.Stmt
	deleteStmt *sql.Stmt
}

// NewSQLiteKV opens (or creates) a SQLite database at dbPath and ensures the
// kv table exists. Caller should Close() it when finished.
func NewSQLiteKV(dbPath string, logger *logrus.Logger) (*SQLiteKV, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1) // SQLite allows a single writer
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	kv := &SQLiteKV{
		conn:   conn,
		logger: logger,
	}

	if err := kv.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := kv.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Storage database initialized successfully")
	return kv, nil
}

// createTables is idempotent and safe to call multiple times.
func (kv *SQLiteKV) createTables() error {
	kvTable := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	_, err := kv.conn.Exec(kvTable)
	return err
}

func (kv *SQLiteKV) prepareStatements() error {
	var err error

	kv.getStmt, err = kv.conn.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	kv.setStmt, err = kv.conn.Prepare(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare set statement: %w", err)
	}

	kv.deleteStmt, err = kv.conn.Prepare(`DELETE FROM kv WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Get returns the value stored under key.
func (kv *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := kv.getStmt.QueryRowContext(ctx, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		kv.logger.WithError(err).WithField("key", key).Error("Failed to read key")
		return "", false, err
	}
	return value, true, nil
}

// Set upserts the value stored under key.
func (kv *SQLiteKV) Set(ctx context.Context, key, value string) error {
	if _, err := kv.setStmt.ExecContext(ctx, key, value); err != nil {
		kv.logger.WithError(err).WithField("key", key).Error("Failed to write key")
		return err
	}
	return nil
}

// Delete removes key.
func (kv *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := kv.deleteStmt.ExecContext(ctx, key); err != nil {
		kv.logger.WithError(err).WithField("key", key).Error("Failed to delete key")
		return err
	}
	return nil
}

// Ping checks database connectivity.
func (kv *SQLiteKV) Ping(ctx context.Context) error {
	return kv.conn.PingContext(ctx)
}

// Close closes the prepared statements and the database connection.
func (kv *SQLiteKV) Close() error {
	statements := []*sql.Stmt{
		kv.getStmt,
		kv.setStmt,
		kv.deleteStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				kv.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	if kv.conn != nil {
		return kv.conn.Close()
	}
	return nil
}
