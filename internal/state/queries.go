package state

import "github.com/yourusername/pairchat/internal/models"

// SelectedPaths returns the paths of the selected files, in selection order
func (s *Store) SelectedPaths() []string {
	files := s.Selection.Get()
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

// IsSelected returns true if any reference to path is selected
func (s *Store) IsSelected(path string) bool {
	for _, f := range s.Selection.Get() {
		if f.Path == path {
			return true
		}
	}
	return false
}

// Context returns the files and designs to attach to the next message
func (s *Store) Context() ([]models.FileReference, []models.FigmaDesign) {
	files := s.Selection.Get()
	designs := s.Attachments.Get().Designs
	outFiles := make([]models.FileReference, len(files))
	copy(outFiles, files)
	outDesigns := make([]models.FigmaDesign, len(designs))
	copy(outDesigns, designs)
	return outFiles, outDesigns
}

// Summary returns a summary of the current state for display/debugging
func (s *Store) Summary() map[string]interface{} {
	session := s.Session.Get()
	global := s.Global.Get()
	attachments := s.Attachments.Get()

	user := ""
	if session.User != nil {
		user = session.User.Email
	}

	return map[string]interface{}{
		"loggedIn":       session.LoggedIn,
		"user":           user,
		"view":           string(global.View),
		"ready":          global.Ready,
		"initialized":    global.Initialized,
		"selectedFiles":  len(s.Selection.Get()),
		"designs":        len(attachments.Designs),
		"figmaConnected": attachments.Figma.Connected,
	}
}
