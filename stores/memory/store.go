package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/core"
)

// memStore keeps blobs in process memory. Each instance owns its map.
type memStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()

	log := logrus.WithField("key", key)
	if !ok {
		log.Debug("Blob not found")
		return nil, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	log.WithField("data_length", len(data)).Debug("Blob retrieved successfully")
	return bytes.Clone(data), nil
}

func (s *memStore) Set(ctx context.Context, key string, data []byte) error {
	if err := core.ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	s.blobs[key] = bytes.Clone(data)
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(data),
	}).Debug("Blob saved successfully")
	return nil
}

func (s *memStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()

	logrus.WithField("key", key).Debug("Blob removed")
	return nil
}
