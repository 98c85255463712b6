// Package tui renders workspace reports and replay progress for a terminal.
// Output that does not go to a terminal stays plain markdown or text.
package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// DefaultWidth wraps rendered markdown when the terminal size is unknown.
const DefaultWidth = 100

// terminal returns the descriptor of w when it is an interactive terminal.
func terminal(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// NewRenderer returns a function that renders markdown with glamour,
// detecting a light or dark background.
func NewRenderer(width int) (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}

// Render writes markdown to w, styled when w is a terminal.
func Render(w io.Writer, markdown string) error {
	fd, ok := terminal(w)
	if !ok {
		_, err := io.WriteString(w, markdown)
		return err
	}
	width := DefaultWidth
	if cols, _, err := term.GetSize(fd); err == nil && cols > 0 {
		width = cols
	}
	render, err := NewRenderer(width)
	if err != nil {
		return err
	}
	out, err := render(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
