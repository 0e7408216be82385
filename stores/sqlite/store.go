package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/core"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database and its blobs table.
func NewStore(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	blobTableStmt := `
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at DATETIME
	);`
	if _, err = db.Exec(blobTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}

	return &sqliteStore{db}, nil
}

// Close releases the database handle.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	log := logrus.WithField("key", key)
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("Blob not found")
			return nil, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve blob")
		return nil, err
	}
	log.Debug("Blob retrieved successfully")
	return data, nil
}

func (s *sqliteStore) Set(ctx context.Context, key string, data []byte) error {
	if err := core.ValidateKey(key); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	log := logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(data),
	})

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now())
	if err != nil {
		log.WithError(err).Error("Failed to save blob")
		return err
	}
	log.Debug("Blob saved successfully")
	return nil
}

func (s *sqliteStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE key = ?", key)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to remove blob")
	}
	return err
}
