// Package workspace captures the host's project file listing at a point in
// time.
package workspace

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/pairchat/internal/models"
)

// FileLister is the part of the client a snapshot needs
type FileLister interface {
	FetchFiles(ctx context.Context, query string) ([]models.FileReference, error)
}

// Snapshot is a read-only view of the project files the host reported.
// It is everything reconciliation needs to check the local selection.
type Snapshot struct {
	Query   string
	Files   []models.FileReference // sorted by path, one entry per path
	Paths   map[string]bool        // quick lookup: does the file exist?
	TakenAt time.Time
}

// Fetch calls fetch_files ONCE and indexes the result
func Fetch(ctx context.Context, c FileLister, query string) (*Snapshot, error) {
	files, err := c.FetchFiles(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch_files failed: %w", err)
	}
	snap := parseSnapshot(files)
	snap.Query = query
	return snap, nil
}

func parseSnapshot(files []models.FileReference) *Snapshot {
	snap := &Snapshot{
		Paths:   make(map[string]bool, len(files)),
		TakenAt: time.Now(),
	}
	for _, f := range files {
		f.Path = normalizePath(f.Path)
		if f.Path == "" || snap.Paths[f.Path] {
			continue
		}
		if f.Name == "" {
			f.Name = baseName(f.Path)
		}
		snap.Paths[f.Path] = true
		snap.Files = append(snap.Files, f)
	}
	sort.Slice(snap.Files, func(i, j int) bool { return snap.Files[i].Path < snap.Files[j].Path })
	return snap
}

// Has returns true if path is part of the project
func (s *Snapshot) Has(path string) bool {
	return s.Paths[normalizePath(path)]
}

// Lookup returns the listed reference for path
func (s *Snapshot) Lookup(path string) (models.FileReference, bool) {
	path = normalizePath(path)
	i := sort.Search(len(s.Files), func(i int) bool { return s.Files[i].Path >= path })
	if i < len(s.Files) && s.Files[i].Path == path {
		return s.Files[i], true
	}
	return models.FileReference{}, false
}

// Match returns files whose path contains every whitespace-separated term,
// case-insensitively
func (s *Snapshot) Match(query string) []models.FileReference {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return s.Files
	}
	var out []models.FileReference
	for _, f := range s.Files {
		lower := strings.ToLower(f.Path)
		matched := true
		for _, term := range terms {
			if !strings.Contains(lower, term) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, f)
		}
	}
	return out
}

func normalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "./")
}

func baseName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
