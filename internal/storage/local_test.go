package storage

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/imgvault/imgvault/internal/errdefs"
)

func TestLocalRoundTrip(t *testing.T) {
	store := NewLocal(t.TempDir())
	ctx := context.Background()
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

	if err := store.Store(ctx, "alice", "avatar.png", payload); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, err := store.GetImage(ctx, "alice", "avatar.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: %v", got)
	}

	ok, err := store.Exists(ctx, "alice", "avatar.png")
	if err != nil || !ok {
		t.Fatalf("expected image to exist, got %v/%v", ok, err)
	}
	modified, err := store.LastModified(ctx, "alice", "avatar.png")
	if err != nil {
		t.Fatalf("last modified: %v", err)
	}
	if time.Since(modified) > time.Minute {
		t.Fatalf("implausible modification time: %v", modified)
	}

	if err := store.Delete(ctx, "alice", "avatar.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = store.Exists(ctx, "alice", "avatar.png")
	if err != nil || ok {
		t.Fatalf("expected image to be gone, got %v/%v", ok, err)
	}
}

func TestLocalNotFound(t *testing.T) {
	store := NewLocal(t.TempDir())
	ctx := context.Background()

	if _, err := store.GetImage(ctx, "alice", "nope"); !errdefs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Delete(ctx, "alice", "nope"); !errdefs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.LastModified(ctx, "alice", "nope"); !errdefs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLocalStatus(t *testing.T) {
	store := NewLocal(t.TempDir())
	if !store.Status(context.Background()) {
		t.Fatalf("expected healthy")
	}
}
