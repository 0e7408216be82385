// Package gallery keeps the ordered collection of captures and mirrors it to
// a blob store after every mutation.
package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/core"
)

// StorageKey is the fixed blob key holding the serialized gallery.
const StorageKey = "capturedImages"

// StartupPolicy decides what Init does with previously persisted captures.
type StartupPolicy string

const (
	// StartupClear wipes persisted captures on every start.
	StartupClear StartupPolicy = "clear"
	// StartupRestore reloads persisted captures.
	StartupRestore StartupPolicy = "restore"
)

// ParseStartupPolicy accepts "clear", "restore" or "" (clear).
func ParseStartupPolicy(s string) (StartupPolicy, error) {
	switch StartupPolicy(s) {
	case "", StartupClear:
		return StartupClear, nil
	case StartupRestore:
		return StartupRestore, nil
	}
	return "", fmt.Errorf("unknown startup policy %q (want clear or restore)", s)
}

// Store is the in-memory gallery, newest capture last. Memory is
// authoritative: a failed sync is reported but never rolls back.
type Store struct {
	blobs   core.BlobStore
	key     string
	records []core.CaptureRecord
}

// NewStore creates an empty gallery persisted to blobs under StorageKey.
func NewStore(blobs core.BlobStore) *Store {
	return &Store{blobs: blobs, key: StorageKey}
}

// Init applies the startup policy and returns the resulting record count.
func (s *Store) Init(ctx context.Context, policy StartupPolicy) int {
	if policy == StartupRestore {
		return len(s.Restore(ctx))
	}
	if err := s.Clear(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to clear saved captures at startup")
	}
	return 0
}

// Append adds rec at the end and syncs. A persistence failure keeps the
// record in memory and returns an error wrapping core.ErrPersistence.
func (s *Store) Append(ctx context.Context, rec core.CaptureRecord) error {
	if s.indexOf(rec.ID) >= 0 {
		return fmt.Errorf("append capture %d: %w", rec.ID, core.ErrDuplicateID)
	}
	s.records = append(s.records, rec)
	logrus.WithFields(logrus.Fields{
		"capture_id": rec.ID,
		"count":      len(s.records),
	}).Info("Capture added")
	return s.sync(ctx)
}

// DeleteAt removes the record at index and syncs.
func (s *Store) DeleteAt(ctx context.Context, index int) error {
	if index < 0 || index >= len(s.records) {
		return fmt.Errorf("delete capture %d of %d: %w", index, len(s.records), core.ErrIndexOutOfRange)
	}
	id := s.records[index].ID
	s.records = slices.Delete(s.records, index, index+1)
	logrus.WithFields(logrus.Fields{
		"capture_id": id,
		"index":      index,
		"count":      len(s.records),
	}).Info("Capture deleted")
	return s.sync(ctx)
}

// Clear empties the gallery and removes the persisted blob.
func (s *Store) Clear(ctx context.Context) error {
	s.records = nil
	if err := s.blobs.Remove(ctx, s.key); err != nil {
		logrus.WithError(err).WithField("key", s.key).Error("Failed to remove saved captures")
		return fmt.Errorf("clear captures: %w: %v", core.ErrPersistence, err)
	}
	logrus.Info("All saved captures removed")
	return nil
}

// Restore replaces the in-memory records with the persisted ones. A missing
// blob means an empty gallery; unreadable or corrupt data is logged and also
// leaves the gallery empty.
func (s *Store) Restore(ctx context.Context) []core.CaptureRecord {
	s.records = nil
	log := logrus.WithField("key", s.key)

	data, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			log.WithError(err).Error("Failed to read saved captures")
		}
		return s.Records()
	}

	var saved []core.CaptureRecord
	if err := json.Unmarshal(data, &saved); err != nil {
		log.WithError(err).Error("Failed to decode saved captures")
		return s.Records()
	}

	for _, rec := range saved {
		if s.indexOf(rec.ID) >= 0 {
			log.WithField("capture_id", rec.ID).Warn("Skipping duplicate saved capture")
			continue
		}
		s.records = append(s.records, rec)
	}
	log.Infof("Found %d saved captures", len(s.records))
	return s.Records()
}

// Records returns a snapshot of the gallery in insertion order.
func (s *Store) Records() []core.CaptureRecord {
	return slices.Clone(s.records)
}

// Len returns the number of captures.
func (s *Store) Len() int {
	return len(s.records)
}

// At returns the record at index.
func (s *Store) At(index int) (core.CaptureRecord, error) {
	if index < 0 || index >= len(s.records) {
		return core.CaptureRecord{}, fmt.Errorf("capture %d of %d: %w", index, len(s.records), core.ErrIndexOutOfRange)
	}
	return s.records[index], nil
}

// Latest returns the newest record, if any.
func (s *Store) Latest() (core.CaptureRecord, bool) {
	if len(s.records) == 0 {
		return core.CaptureRecord{}, false
	}
	return s.records[len(s.records)-1], true
}

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.records, func(r core.CaptureRecord) bool { return r.ID == id })
}

func (s *Store) sync(ctx context.Context) error {
	records := s.records
	if records == nil {
		records = []core.CaptureRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode captures: %w: %v", core.ErrPersistence, err)
	}
	if err := s.blobs.Set(ctx, s.key, data); err != nil {
		logrus.WithError(err).WithField("key", s.key).Error("Failed to save captures")
		return fmt.Errorf("save captures: %w: %v", core.ErrPersistence, err)
	}
	return nil
}
