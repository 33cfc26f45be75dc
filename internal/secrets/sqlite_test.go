package secrets

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/trellishq/trellis-gw/internal/storage"
)

func TestSQLStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "gw.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewSQLStore(db)

	if _, err := store.Resolve(ctx, "acme-main", "github"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before Put, got %v", err)
	}

	if err := store.Put(ctx, "acme-main", "github", "first"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Resolve(ctx, "acme-main", "github")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "first" {
		t.Errorf("secret = %q, want first", got)
	}

	// Rotation replaces in place.
	if err := store.Put(ctx, "acme-main", "github", "second"); err != nil {
		t.Fatalf("Put (rotate): %v", err)
	}
	got, err = store.Resolve(ctx, "acme-main", "github")
	if err != nil {
		t.Fatalf("Resolve after rotate: %v", err)
	}
	if got != "second" {
		t.Errorf("secret = %q, want second", got)
	}
}

func TestSQLStorePutValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "gw.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewSQLStore(db)

	if err := store.Put(ctx, "", "github", "x"); err == nil {
		t.Error("expected error for empty project key")
	}
	if err := store.Put(ctx, "acme-main", "github", ""); err == nil {
		t.Error("expected error for empty secret")
	}
}
