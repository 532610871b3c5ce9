package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "lectern.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := &Recording{
		ID:           "job-1",
		Title:        "Graph Algorithms",
		RecordingDir: "/lectures/2026-08-26_graph-algorithms",
		VideoPath:    "/lectures/2026-08-26_graph-algorithms/video.mp4",
		Status:       StatusProcessing,
		Stage:        "transcribing",
		Progress:     12.5,
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.GetByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != rec.Title || got.Status != StatusProcessing || got.Stage != "transcribing" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.Progress != 12.5 {
		t.Errorf("progress = %v, want 12.5", got.Progress)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps populated")
	}
	if got.CompletedAt != nil {
		t.Error("expected nil completion time for in-flight recording")
	}
}

func TestSaveUpsertsExistingRecord(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := &Recording{ID: "job-1", Title: "Lecture", RecordingDir: "/out", Status: StatusProcessing}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	done := time.Now().UTC()
	rec.Status = StatusComplete
	rec.Progress = 100
	rec.CompletedAt = &done
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := store.GetByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusComplete || got.Progress != 100 {
		t.Errorf("update not applied: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("expected completion time set")
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected single record after upsert, got %d", len(all))
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := &Recording{ID: "a", Title: "Old", RecordingDir: "/a", Status: StatusComplete,
		CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := &Recording{ID: "b", Title: "New", RecordingDir: "/b", Status: StatusComplete}
	if err := store.Save(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, newer); err != nil {
		t.Fatal(err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != "b" || all[1].ID != "a" {
		t.Errorf("unexpected order: %+v", all)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Recording{ID: "a", Title: "T", RecordingDir: "/a", Status: StatusFailed}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing record, got %v", err)
	}
}

func TestReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lectern.db")
	ctx := context.Background()

	store, err := OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := store.Save(ctx, &Recording{ID: "a", Title: "T", RecordingDir: "/a", Status: StatusComplete}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("GetByID after reopen: %v", err)
	}
	if got.Title != "T" {
		t.Errorf("unexpected record after reopen: %+v", got)
	}
}
