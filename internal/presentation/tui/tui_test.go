package tui

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/internal/runtime"
	"github.com/aretw0/topoedit/pkg/domain"
)

func TestReport(t *testing.T) {
	ctx := context.Background()
	ws := topoedit.New()
	_, err := ws.Apply(ctx, topoedit.NewBlock(domain.Point{}, domain.Point{X: 1, Y: 1, Z: 1}, 2))
	require.NoError(t, err)
	b, err := ws.Resolve(domain.KindBlock, "Bl0000")
	require.NoError(t, err)
	_, err = ws.Apply(ctx, topoedit.SetGroup([]domain.ID{b}, "fluid"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Report(ws, "demo")))
	out := buf.String()

	assert.Contains(t, out, "# demo\n")
	assert.Contains(t, out, "| block | 1 |")
	assert.Contains(t, out, "| vertex | 8 |")
	assert.Contains(t, out, "| Bl0000 | transfinite | yes | no | fluid |")
	assert.Contains(t, out, "- **fluid**: Bl0000")
	assert.Contains(t, out, "| 2 | SetGroup | committed |")
}

func TestStatusWriter(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatusWriter(&buf)

	s.Step(1, "new_block", &topoedit.Result{Summary: summary(map[domain.Transition]int{domain.Created: 3})}, nil)
	s.Step(2, "undo", nil, nil)
	s.Step(3, "split_block", nil, errors.New("boom"))

	assert.Equal(t, "✓   1 new_block (created 3)\n✓   2 undo\n✗   3 split_block: boom\n", buf.String())
}

func summary(changes map[domain.Transition]int) runtime.Summary {
	return runtime.Summary{Changes: changes}
}
