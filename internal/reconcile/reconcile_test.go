package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yourusername/pairchat/internal/models"
	"github.com/yourusername/pairchat/internal/state"
	"github.com/yourusername/pairchat/internal/workspace"
)

type listing []models.FileReference

func (l listing) FetchFiles(ctx context.Context, query string) ([]models.FileReference, error) {
	return l, nil
}

func snapshot(t *testing.T, files ...models.FileReference) *workspace.Snapshot {
	t.Helper()
	snap, err := workspace.Fetch(context.Background(), listing(files), "")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	return snap
}

func TestSyncDropsMissingFiles(t *testing.T) {
	s := state.NewStore()
	s.Select(models.FileReference{ID: "1", Name: "a.go", Path: "a.go"})
	s.Select(models.FileReference{ID: "2", Name: "b.go", Path: "b.go", Range: &models.LineRange{Start: 1, End: 5}})
	s.Select(models.FileReference{ID: "3", Name: "gone.go", Path: "gone.go"})

	snap := snapshot(t,
		models.FileReference{ID: "1", Name: "a.go", Path: "a.go"},
		models.FileReference{ID: "2", Name: "b.go", Path: "b.go"},
	)

	if !Sync(snap, s) {
		t.Fatal("Sync() = false, want true")
	}
	got := s.SelectedPaths()
	if len(got) != 2 || got[0] != "a.go" || got[1] != "b.go" {
		t.Errorf("SelectedPaths() = %v, want [a.go b.go]", got)
	}
	if s.Selection.Get()[1].Range == nil {
		t.Error("Sync() dropped the line range of a kept file")
	}
}

func TestSyncRefreshesIDs(t *testing.T) {
	s := state.NewStore()
	s.Select(models.FileReference{ID: "old", Name: "a.go", Path: "a.go"})

	if !Sync(snapshot(t, models.FileReference{ID: "new", Path: "a.go"}), s) {
		t.Fatal("Sync() = false, want true")
	}
	if id := s.Selection.Get()[0].ID; id != "new" {
		t.Errorf("ID = %q, want refreshed id", id)
	}
}

func TestSyncNoChange(t *testing.T) {
	s := state.NewStore()
	s.Select(models.FileReference{ID: "1", Name: "a.go", Path: "a.go"})

	path := filepath.Join(t.TempDir(), "state.json")
	if err := SyncAndSave(snapshot(t, models.FileReference{ID: "1", Name: "a.go", Path: "a.go"}), s, path); err != nil {
		t.Fatalf("SyncAndSave() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("SyncAndSave() wrote state although nothing changed")
	}
}

func TestSyncAndSavePersists(t *testing.T) {
	s := state.NewStore()
	s.Select(models.FileReference{ID: "1", Name: "gone.go", Path: "gone.go"})

	path := filepath.Join(t.TempDir(), "state.json")
	if err := SyncAndSave(snapshot(t), s, path); err != nil {
		t.Fatalf("SyncAndSave() error: %v", err)
	}

	restored := state.NewStore()
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(restored.SelectedPaths()) != 0 {
		t.Errorf("restored selection = %v, want empty", restored.SelectedPaths())
	}
}
