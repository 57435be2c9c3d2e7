package reconcile

import (
	"github.com/yourusername/pairchat/internal/logging"
	"github.com/yourusername/pairchat/internal/models"
	"github.com/yourusername/pairchat/internal/state"
	"github.com/yourusername/pairchat/internal/workspace"
)

// Sync updates the selection to match the host's project listing.
// It drops selected files that no longer exist and refreshes the id and
// name of the ones that do. Returns true if the selection changed; the
// caller decides whether to persist.
func Sync(snap *workspace.Snapshot, s *state.Store) bool {
	changed := false
	dropped := 0
	s.Selection.Update(func(files []models.FileReference) []models.FileReference {
		valid := make([]models.FileReference, 0, len(files))
		for _, f := range files {
			listed, ok := snap.Lookup(f.Path)
			if !ok {
				dropped++
				changed = true
				continue
			}
			if listed.ID != f.ID || listed.Name != f.Name {
				f.ID = listed.ID
				f.Name = listed.Name
				changed = true
			}
			valid = append(valid, f)
		}
		return valid
	})

	if dropped > 0 {
		logging.Info().Int("dropped", dropped).Msg("removed missing files from selection")
	}
	return changed
}

// SyncAndSave runs Sync and persists the store to path if anything changed
func SyncAndSave(snap *workspace.Snapshot, s *state.Store, path string) error {
	if !Sync(snap, s) {
		return nil
	}
	return s.Save(path)
}
