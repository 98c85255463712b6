package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/pkg/domain"
)

// StatusWriter prints one line per replayed step, colored on terminals.
type StatusWriter struct {
	w       io.Writer
	profile termenv.Profile
}

// NewStatusWriter detects the color support of w.
func NewStatusWriter(w io.Writer) *StatusWriter {
	p := termenv.Ascii
	if _, ok := terminal(w); ok {
		p = termenv.NewOutput(w).ColorProfile()
	}
	return &StatusWriter{w: w, profile: p}
}

func (s *StatusWriter) paint(text, color string) termenv.Style {
	return termenv.String(text).Foreground(s.profile.Color(color))
}

// Step prints the outcome of step index running op.
func (s *StatusWriter) Step(index int, op string, res *topoedit.Result, err error) {
	if err != nil {
		fmt.Fprintf(s.w, "%s %3d %s: %v\n", s.paint("✗", "#ef4444"), index, op, err)
		return
	}
	mark := s.paint("✓", "#22c55e")
	if res != nil && res.Preview {
		mark = s.paint("~", "#eab308")
	}
	fmt.Fprintf(s.w, "%s %3d %s%s\n", mark, index, op, changes(res))
}

func changes(res *topoedit.Result) string {
	if res == nil || len(res.Changes) == 0 {
		return ""
	}
	var parts []string
	for _, t := range []domain.Transition{domain.Created, domain.Deleted, domain.DisplayModified, domain.MeshModified} {
		if n := res.Changes[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", strings.ToLower(t.String()), n))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
