package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/core"
)

// writeFile is replaced in tests to simulate a failed write.
var writeFile = os.WriteFile

type fsStore struct {
	basePath string
}

// NewStore creates a filesystem-based store rooted at basePath, creating the
// directory if needed.
func NewStore(basePath string) (*fsStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &fsStore{basePath: basePath}, nil
}

func (s *fsStore) path(key string) (string, error) {
	if err := core.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, key), nil
}

func (s *fsStore) Get(ctx context.Context, key string) ([]byte, error) {
	filePath, err := s.path(key)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "file_path": filePath})

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("Blob file not found")
			return nil, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to read blob file")
		return nil, err
	}

	log.Debug("Blob retrieved successfully")
	return data, nil
}

// Set writes through a temporary file and renames it over the target, so a
// crash mid-write never leaves a truncated blob behind.
func (s *fsStore) Set(ctx context.Context, key string, data []byte) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "file_path": filePath})

	tmpPath := filepath.Join(s.basePath, "."+key+"."+ulid.Make().String()+".tmp")
	if err := writeFile(tmpPath, data, 0644); err != nil {
		os.Remove(tmpPath)
		log.WithError(err).Error("Failed to write blob file")
		return err
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		log.WithError(err).Error("Failed to replace blob file")
		return err
	}

	log.WithField("data_length", len(data)).Debug("Blob saved successfully")
	return nil
}

func (s *fsStore) Remove(ctx context.Context, key string) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "file_path": filePath})

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("Blob file not found for removal, considered successful.")
			return nil
		}
		log.WithError(err).Error("Failed to remove blob file")
		return err
	}

	log.Debug("Blob removed")
	return nil
}
