package state

import (
	"time"

	"github.com/yourusername/pairchat/internal/models"
)

// Session is the signed-in user
type Session struct {
	LoggedIn     bool                 `json:"loggedIn"`
	User         *models.UserInfo     `json:"user,omitempty"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// Global holds handshake flags and view routing
type Global struct {
	Ready         bool        `json:"ready"`
	Initialized   bool        `json:"initialized"`
	View          models.View `json:"view"`
	FocusRequests int         `json:"focusRequests"`
	LastFocusAt   time.Time   `json:"lastFocusAt,omitempty"`
}

// Attachments holds context attached to the next message besides files
type Attachments struct {
	Designs []models.FigmaDesign   `json:"designs"`
	Figma   models.FigmaConnection `json:"figma"`
}

// Store owns one container per concern. Nothing else holds UI state.
type Store struct {
	Session     *Container[Session]
	Global      *Container[Global]
	Selection   *Container[[]models.FileReference]
	Attachments *Container[Attachments]
}

// NewStore creates a store with empty containers
func NewStore() *Store {
	return &Store{
		Session:     NewContainer(Session{}),
		Global:      NewContainer(Global{}),
		Selection:   NewContainer([]models.FileReference{}),
		Attachments: NewContainer(Attachments{Designs: []models.FigmaDesign{}}),
	}
}

// Select adds ref to the selection. A reference with the same label is
// replaced in place. Returns false if ref was already selected.
func (s *Store) Select(ref models.FileReference) bool {
	changed := true
	s.Selection.Update(func(files []models.FileReference) []models.FileReference {
		out := make([]models.FileReference, len(files), len(files)+1)
		copy(out, files)
		for i, f := range out {
			if f.Label() == ref.Label() {
				changed = f.ID != ref.ID || f.HasContent() != ref.HasContent()
				out[i] = ref
				return out
			}
		}
		return append(out, ref)
	})
	return changed
}

// Deselect removes every reference to path. Returns the number removed.
func (s *Store) Deselect(path string) int {
	removed := 0
	s.Selection.Update(func(files []models.FileReference) []models.FileReference {
		out := make([]models.FileReference, 0, len(files))
		for _, f := range files {
			if f.Path == path {
				removed++
				continue
			}
			out = append(out, f)
		}
		return out
	})
	return removed
}

// ClearSelection empties the selection
func (s *Store) ClearSelection() {
	s.Selection.Set([]models.FileReference{})
}

// Attach adds a design, replacing one with the same node id
func (s *Store) Attach(d models.FigmaDesign) {
	s.Attachments.Update(func(a Attachments) Attachments {
		designs := make([]models.FigmaDesign, 0, len(a.Designs)+1)
		for _, existing := range a.Designs {
			if existing.FileKey == d.FileKey && existing.NodeID == d.NodeID {
				continue
			}
			designs = append(designs, existing)
		}
		a.Designs = append(designs, d)
		return a
	})
}

// Detach removes the design with the given node id
func (s *Store) Detach(nodeID string) bool {
	found := false
	s.Attachments.Update(func(a Attachments) Attachments {
		designs := make([]models.FigmaDesign, 0, len(a.Designs))
		for _, existing := range a.Designs {
			if existing.NodeID == nodeID {
				found = true
				continue
			}
			designs = append(designs, existing)
		}
		a.Designs = designs
		return a
	})
	return found
}

// SignOut clears the session and routes to the login view
func (s *Store) SignOut() {
	s.Session.Set(Session{})
	s.Global.Update(func(g Global) Global {
		g.View = models.ViewLogin
		return g
	})
}
