package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/webseed87/camera/core"
)

func TestNewStore(t *testing.T) {
	if NewStore() == nil {
		t.Fatal("NewStore() returned nil")
	}
}

func TestSetGet_Success(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Set(ctx, "capturedImages", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	data, err := store.Get(ctx, "capturedImages")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(data) != `[{"id":1}]` {
		t.Errorf("Get() data mismatch: got %q", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := NewStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() error mismatch: got %v, want ErrNotFound", err)
	}
}

func TestSet_Overwrite(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	store.Set(ctx, "k", []byte("first"))
	store.Set(ctx, "k", []byte("second"))

	data, _ := store.Get(ctx, "k")
	if string(data) != "second" {
		t.Errorf("Overwrite mismatch: got %q, want %q", data, "second")
	}
}

func TestSet_CopiesData(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	buf := []byte("original")
	store.Set(ctx, "k", buf)
	buf[0] = 'X'

	data, _ := store.Get(ctx, "k")
	if string(data) != "original" {
		t.Errorf("Store should not alias caller buffers, got %q", data)
	}
}

func TestSet_InvalidKey(t *testing.T) {
	store := NewStore()
	if err := store.Set(context.Background(), "../escape", []byte("x")); err == nil {
		t.Error("Set() should reject path-like keys")
	}
}

func TestRemove(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	store.Set(ctx, "k", []byte("x"))
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() after Remove() should be ErrNotFound, got %v", err)
	}
	if err := store.Remove(ctx, "k"); err != nil {
		t.Errorf("Removing an absent key should succeed, got %v", err)
	}
}

func TestStoreIsolation(t *testing.T) {
	ctx := context.Background()
	a, b := NewStore(), NewStore()

	a.Set(ctx, "k", []byte("x"))
	if _, err := b.Get(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Error("Store instances should not share state")
	}
}

func TestConcurrentReadWrite(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	store.Set(ctx, "k", []byte("initial"))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := store.Get(ctx, "k"); err != nil {
					t.Errorf("Concurrent Get() failed: %v", err)
				}
			}
		}()
		go func(index int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := store.Set(ctx, "k", []byte{byte(index)}); err != nil {
					t.Errorf("Concurrent Set() failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()
}
