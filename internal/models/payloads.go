package models

import (
	"fmt"
	"time"
)

// FileReference points at a file (or a slice of one) in the user's project
type FileReference struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Path    string     `json:"path"`
	Content *string    `json:"content,omitempty"`
	Range   *LineRange `json:"range,omitempty"`
}

// LineRange is an inclusive 1-based line span
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Label returns "path" or "path:start-end"
func (f FileReference) Label() string {
	if f.Range == nil {
		return f.Path
	}
	return fmt.Sprintf("%s:%d-%d", f.Path, f.Range.Start, f.Range.End)
}

// HasContent returns true if the reference carries file content
func (f FileReference) HasContent() bool {
	return f.Content != nil
}

// FetchFilesRequest filters the project file listing
type FetchFilesRequest struct {
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Role is the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single message in the conversation
type ChatMessage struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Text      string          `json:"text"`
	Files     []FileReference `json:"files,omitempty"`
	Designs   []FigmaDesign   `json:"designs,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewMessageRequest asks the assistant to answer a user message
type NewMessageRequest struct {
	Message ChatMessage `json:"message"`
}

// MessageDelta is one streamed chunk of an assistant message
type MessageDelta struct {
	MessageID string `json:"messageId"`
	Delta     string `json:"delta"`
}

// SyncProgress reports project indexing progress
type SyncProgress struct {
	Stage   string `json:"stage"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// Percent returns completion in the 0-100 range
func (p SyncProgress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Done) / float64(p.Total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// SyncResult is the final answer to sync_project
type SyncResult struct {
	FilesIndexed int    `json:"filesIndexed"`
	Status       string `json:"status"`
}

// UserInfo describes the signed-in user
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Subscription describes the user's billing plan
type Subscription struct {
	Plan          string     `json:"plan"`
	Status        string     `json:"status"`
	RequestsUsed  int        `json:"requestsUsed"`
	RequestsLimit int        `json:"requestsLimit"`
	RenewsAt      *time.Time `json:"renewsAt,omitempty"`
}

// Active returns true if the plan is usable
func (s Subscription) Active() bool {
	return s.Status == "active" || s.Status == "trialing"
}

// AuthLink is a sign-in URL produced by the host
type AuthLink struct {
	URL string `json:"url"`
}

// ExternalURL asks the host to open a URL in the user's browser
type ExternalURL struct {
	URL string `json:"url"`
}

// FastApplyRequest asks the host to apply generated code to a file
type FastApplyRequest struct {
	EditID   string `json:"editId"`
	FilePath string `json:"filePath"`
	Code     string `json:"code"`
}

// FastApplyResult is the host's answer to fast_apply
type FastApplyResult struct {
	EditID    string `json:"editId"`
	FilePath  string `json:"filePath"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// FastApplyDecision accepts or rejects an applied edit
type FastApplyDecision struct {
	EditID   string `json:"editId"`
	FilePath string `json:"filePath"`
}

// FigmaDesign is a design frame attached to the conversation
type FigmaDesign struct {
	FileKey string `json:"fileKey"`
	NodeID  string `json:"nodeId"`
	Name    string `json:"name"`
	URL     string `json:"url"`
}

// FigmaAttachRequest resolves a Figma URL into a design
type FigmaAttachRequest struct {
	URL string `json:"url"`
}

// FigmaConnection is pushed when the Figma OAuth flow finishes
type FigmaConnection struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account,omitempty"`
}

// View names the screen the host wants the UI to show
type View string

const (
	ViewUnknown View = ""
	ViewLogin   View = "login"
	ViewChat    View = "chat"
)

// ViewChange is the payload of show_login_view / show_chat_view
type ViewChange struct {
	Reason string `json:"reason,omitempty"`
}
