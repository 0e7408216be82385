package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/webseed87/camera/core"
)

func setupTestDB(t *testing.T) *sqliteStore {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("NewStore() did not create database file")
	}

	var tableName string
	err = store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='blobs'").Scan(&tableName)
	if err != nil {
		t.Fatalf("blobs table not created: %v", err)
	}
}

func TestSetGet_Success(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Set(ctx, "capturedImages", []byte("payload")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	data, err := store.Get(ctx, "capturedImages")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Get() data mismatch: got %q", data)
	}
}

func TestSet_Upsert(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("first"))
	if err := store.Set(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("Set() overwrite failed: %v", err)
	}

	data, _ := store.Get(ctx, "k")
	if string(data) != "second" {
		t.Errorf("Upsert mismatch: got %q, want %q", data, "second")
	}

	var count int
	store.db.QueryRow("SELECT COUNT(*) FROM blobs").Scan(&count)
	if count != 1 {
		t.Errorf("Row count mismatch: got %d, want 1", count)
	}
}

func TestSet_Empty(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", nil); err != nil {
		t.Fatalf("Set(nil) failed: %v", err)
	}
	data, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty blob, got %q", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() error mismatch: got %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("x"))
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() after Remove() should be ErrNotFound, got %v", err)
	}
}

func TestDataPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store1, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	store1.Set(ctx, "k", []byte("persistent"))
	store1.Close()

	store2, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore() reopen failed: %v", err)
	}
	defer store2.Close()

	data, err := store2.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() after reopen failed: %v", err)
	}
	if string(data) != "persistent" {
		t.Errorf("Data persistence failed: got %q", data)
	}
}
