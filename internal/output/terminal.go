package output

import (
	"os"

	"golang.org/x/sys/unix"
)

// DefaultWidth is used when stdout is not a terminal
const DefaultWidth = 80

// TerminalWidth returns the column count of the terminal behind f
func TerminalWidth(f *os.File) int {
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return DefaultWidth
	}
	return int(ws.Col)
}

// BarWidth picks a progress bar width that leaves room for the label
func BarWidth(f *os.File) int {
	w := TerminalWidth(f) - 30
	if w < 10 {
		return 10
	}
	if w > 50 {
		return 50
	}
	return w
}
