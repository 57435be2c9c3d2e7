package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/pairchat/internal/models"
)

const (
	// StateVersion is the current state file format version
	StateVersion = 2
	// DefaultStateDir is the directory under $HOME for state files
	DefaultStateDir = ".local/state/pairchat"
	// DefaultStateFile is the state file name
	DefaultStateFile = "state.json"
)

// Snapshot is the persisted part of the store: what the user picked, not
// what the host told us
type Snapshot struct {
	Version     int                    `json:"version"`
	Selection   []models.FileReference `json:"selection"`
	Designs     []models.FigmaDesign   `json:"designs"`
	LastUpdated time.Time              `json:"lastUpdated"`

	// Files is the version 1 name of Selection
	Files []models.FileReference `json:"files,omitempty"`
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:     StateVersion,
		Selection:   []models.FileReference{},
		Designs:     []models.FigmaDesign{},
		LastUpdated: time.Now(),
	}
}

// GetStatePath returns the full path to the state file
func GetStatePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DefaultStateDir, DefaultStateFile)
}

// LoadSnapshotFrom loads a snapshot, returning an empty one if the file
// doesn't exist
func LoadSnapshotFrom(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewSnapshot(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if snap.Version < StateVersion {
		snap = *migrateSnapshot(&snap)
	}
	if snap.Selection == nil {
		snap.Selection = []models.FileReference{}
	}
	if snap.Designs == nil {
		snap.Designs = []models.FigmaDesign{}
	}

	return &snap, nil
}

// SaveTo persists the snapshot to path atomically
func (snap *Snapshot) SaveTo(path string) error {
	snap.Version = StateVersion
	snap.LastUpdated = time.Now()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Write atomically using temp file + rename
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// Snapshot captures the persisted containers. File content is dropped;
// only references are saved.
func (s *Store) Snapshot() *Snapshot {
	snap := NewSnapshot()
	for _, f := range s.Selection.Get() {
		f.Content = nil
		snap.Selection = append(snap.Selection, f)
	}
	snap.Designs = append(snap.Designs, s.Attachments.Get().Designs...)
	return snap
}

// Restore replaces the persisted containers with snap's contents
func (s *Store) Restore(snap *Snapshot) {
	files := make([]models.FileReference, len(snap.Selection))
	copy(files, snap.Selection)
	s.Selection.Set(files)

	designs := make([]models.FigmaDesign, len(snap.Designs))
	copy(designs, snap.Designs)
	s.Attachments.Update(func(a Attachments) Attachments {
		a.Designs = designs
		return a
	})
}

// Load restores the store from path
func (s *Store) Load(path string) error {
	snap, err := LoadSnapshotFrom(path)
	if err != nil {
		return err
	}
	s.Restore(snap)
	return nil
}

// Save persists the store to path
func (s *Store) Save(path string) error {
	return s.Snapshot().SaveTo(path)
}

// Reset clears the persisted containers and saves to path
func (s *Store) Reset(path string) error {
	s.Restore(NewSnapshot())
	return s.Save(path)
}

// migrateSnapshot handles migration from older state versions
func migrateSnapshot(old *Snapshot) *Snapshot {
	snap := NewSnapshot()
	snap.Selection = old.Selection
	if len(snap.Selection) == 0 && len(old.Files) > 0 {
		snap.Selection = old.Files
	}
	snap.Designs = old.Designs
	snap.LastUpdated = old.LastUpdated
	return snap
}
