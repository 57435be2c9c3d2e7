package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/yourusername/pairchat/internal/apply"
	"github.com/yourusername/pairchat/internal/models"
)

// PrintFilesTable prints project files in a table format. Files for which
// selected returns true are marked.
func PrintFilesTable(w io.Writer, files []models.FileReference, selected func(path string) bool) {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Path", "Range", "Selected")

	for _, f := range files {
		mark := ""
		if selected != nil && selected(f.Path) {
			mark = "✓"
		}
		table.Append(
			truncate(f.ID, 12),
			truncate(f.Name, 25),
			truncate(f.Path, 60),
			formatRange(f.Range),
			mark,
		)
	}

	table.Render()
}

// PrintApplyTable prints the apply lifecycle of every tracked file
func PrintApplyTable(w io.Writer, statuses []apply.Status) {
	table := tablewriter.NewWriter(w)
	table.Header("File", "State", "Edit", "+/-", "Updated", "Error")

	// Sort by path
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Path < statuses[j].Path
	})

	for _, st := range statuses {
		diff := "-"
		if st.Result != nil {
			diff = fmt.Sprintf("+%d/-%d", st.Result.Additions, st.Result.Deletions)
		}
		table.Append(
			truncate(st.Path, 50),
			st.State.String(),
			truncate(st.EditID, 12),
			diff,
			formatTime(st.UpdatedAt),
			truncate(st.Error, 40),
		)
	}

	table.Render()
}

// PrintSummaryTable prints a key/value summary sorted by key
func PrintSummaryTable(w io.Writer, summary map[string]interface{}) {
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Key", "Value")
	for _, k := range keys {
		table.Append(k, fmt.Sprintf("%v", summary[k]))
	}
	table.Render()
}

// PrintUserDetail prints the signed-in user and, if known, their plan
func PrintUserDetail(w io.Writer, user models.UserInfo, sub *models.Subscription) {
	fmt.Fprintf(w, "User ID: %s\n", user.ID)
	fmt.Fprintf(w, "Email: %s\n", user.Email)
	if user.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", user.Name)
	}
	if sub == nil {
		return
	}
	fmt.Fprintf(w, "Plan: %s (%s)\n", sub.Plan, sub.Status)
	if sub.RequestsLimit > 0 {
		fmt.Fprintf(w, "Requests: %d/%d\n", sub.RequestsUsed, sub.RequestsLimit)
	} else {
		fmt.Fprintf(w, "Requests: %d\n", sub.RequestsUsed)
	}
	if sub.RenewsAt != nil {
		fmt.Fprintf(w, "Renews: %s\n", sub.RenewsAt.Format("2006-01-02"))
	}
}

// PrintTranscript prints a conversation, one message per block
func PrintTranscript(w io.Writer, messages []models.ChatMessage) {
	for i, m := range messages {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "[%s] %s\n", m.Role, m.Text)
		for _, f := range m.Files {
			fmt.Fprintf(w, "  @ %s\n", f.Label())
		}
		for _, d := range m.Designs {
			fmt.Fprintf(w, "  # %s\n", d.Name)
		}
	}
}

// ProgressBar renders sync progress as a fixed-width bar
func ProgressBar(p models.SyncProgress, width int) string {
	if width <= 0 {
		width = 30
	}
	filled := int(p.Percent() / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	line := fmt.Sprintf("%s %3.0f%%", bar, p.Percent())
	if p.Stage != "" {
		line += " " + p.Stage
	}
	return line
}

// Helper functions

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatRange(r *models.LineRange) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("15:04:05")
}
