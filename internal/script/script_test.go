package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

func TestRun_SplitUndoRedo(t *testing.T) {
	s, err := Load("testdata/split.yaml")
	require.NoError(t, err)
	assert.Equal(t, "split and undo", s.Name)
	require.Len(t, s.Steps, 5)

	ws := topoedit.New(s.Options()...)
	var ops []string
	err = s.Run(context.Background(), ws, func(e Event) {
		require.NoError(t, e.Err)
		ops = append(ops, e.Step.Op)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"new_block", "split_block", "set_group", "undo", "redo"}, ops)
	assert.Equal(t, 2, ws.Sizes()[domain.KindBlock])
	require.NoError(t, ws.View(func(g *topo.Graph) error {
		b, err := g.ByName(domain.KindBlock, "Bl0001")
		require.NoError(t, err)
		assert.Equal(t, []string{"inlet"}, b.Props().Groups)
		return nil
	}))
}

func TestRun_ProjectsOntoDeclaredGeometry(t *testing.T) {
	s, err := Load("testdata/geometry.yaml")
	require.NoError(t, err)
	assert.Contains(t, s.Model().Names(), "floor.e0")

	ws := topoedit.New(s.Options()...)
	require.NoError(t, s.Run(context.Background(), ws, nil))

	require.NoError(t, ws.View(func(g *topo.Graph) error {
		v, err := g.ByName(domain.KindVertex, "Som0000")
		require.NoError(t, err)
		assert.InDelta(t, -0.5, v.(*topo.Vertex).Coord.Z, 1e-12)
		return nil
	}))
}

func TestRun_TransformSteps(t *testing.T) {
	s, err := Parse([]byte(`
steps:
  - op: new_block
    hi: {x: 1, y: 1, z: 1}
    nb: 2
  - op: translate_topo
    entities: [Bl0000]
    offset: {x: 1}
  - op: scale_topo
    entities: [Bl0000]
    factor: 2
    center: {x: 1}
  - op: align_vertices
    from: {x: -5}
    to: {x: 5}
    vertices: [Som0007]
`))
	require.NoError(t, err)

	ws := topoedit.New()
	require.NoError(t, s.Run(context.Background(), ws, nil))
	assert.Len(t, ws.History(), 4)
	require.NoError(t, ws.View(func(g *topo.Graph) error {
		v, err := g.ByName(domain.KindVertex, "Som0000")
		require.NoError(t, err)
		assert.Equal(t, domain.Point{X: 1}, v.(*topo.Vertex).Coord)
		v, err = g.ByName(domain.KindVertex, "Som0007")
		require.NoError(t, err)
		p := v.(*topo.Vertex).Coord
		assert.InDelta(t, 3, p.X, 1e-12)
		assert.Zero(t, p.Y)
		assert.Zero(t, p.Z)
		return nil
	}))
}

func TestRun_StopsAtFailingStep(t *testing.T) {
	s, err := Parse([]byte(`
steps:
  - op: new_block
    hi: {x: 1, y: 1, z: 1}
    nb: 2
  - op: delete_blocks
    blocks: [Bl0042]
  - op: undo
`))
	require.NoError(t, err)

	ws := topoedit.New()
	var seen int
	err = s.Run(context.Background(), ws, func(Event) { seen++ })
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "step 2 (delete_blocks)")
	assert.Equal(t, 2, seen)
	assert.Len(t, ws.History(), 1)
}

func TestRun_Preview(t *testing.T) {
	s, err := Parse([]byte(`
steps:
  - op: new_block
    hi: {x: 1, y: 1, z: 1}
    nb: 2
  - op: delete_blocks
    blocks: [Bl0000]
    preview: true
  - op: preview_end
`))
	require.NoError(t, err)

	ws := topoedit.New()
	var previewed bool
	require.NoError(t, s.Run(context.Background(), ws, func(e Event) {
		if e.Step.Preview {
			previewed = e.Result.Preview
			assert.Zero(t, ws.Sizes()[domain.KindBlock])
		}
	}))
	assert.True(t, previewed)
	assert.Equal(t, 1, ws.Sizes()[domain.KindBlock])
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", ``, "empty"},
		{"unknown top-level key", "stepz: []\n", "stepz"},
		{"missing op", "steps:\n  - block: Bl0000\n", "no op"},
		{"unknown op", "steps:\n  - op: explode\n", "unknown operation"},
		{"unknown argument", "steps:\n  - op: new_block\n    size: 3\n", "invalid arguments"},
		{"history with arguments", "steps:\n  - op: undo\n    count: 2\n", "takes no arguments"},
		{"preview of history", "steps:\n  - op: undo\n    preview: true\n", "only edit operations"},
		{"bad geometry", "geometry:\n  - {name: p, kind: point}\n", "invalid geometry"},
		{"missing snapshot", "steps:\n  - op: import\n    path: testdata/absent.json\n", "failed to read snapshot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestKindOf(t *testing.T) {
	for name, want := range map[string]domain.Kind{
		"Som0001":  domain.KindVertex,
		"Ar0002":   domain.KindCoEdge,
		"Edge0003": domain.KindEdge,
		"Fa0004":   domain.KindCoFace,
		"Face0005": domain.KindFace,
		"Bl0006":   domain.KindBlock,
	} {
		got, ok := kindOf(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := kindOf("B0")
	assert.False(t, ok)
}
