package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit/internal/edit"
	"github.com/aretw0/topoedit/internal/presentation/graph"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
	"github.com/aretw0/topoedit/pkg/topo"
)

func build(t *testing.T, fn func(tx *topo.Tx) error) *topo.Graph {
	t.Helper()
	g := topo.NewGraph()
	tx := topo.NewTx(g, naming.NewManager())
	require.NoError(t, fn(tx))
	tx.Commit()
	return g
}

func count(s, sub string) int { return strings.Count(s, sub) }

func TestGenerateMermaid(t *testing.T) {
	box := func(tx *topo.Tx) error {
		_, err := edit.NewBlock(tx, domain.Point{}, domain.Point{X: 1, Y: 1, Z: 1}, 2)
		return err
	}
	grid := func(tx *topo.Tx) error {
		_, err := edit.NewBlockGrid(tx, domain.Point{}, domain.Point{X: 2, Y: 1, Z: 1}, 2, 1, 1, 2)
		return err
	}
	loose := func(tx *topo.Tx) error {
		_, err := edit.NewCoFace(tx, []domain.Point{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}, 2)
		return err
	}

	tests := []struct {
		name     string
		build    func(tx *topo.Tx) error
		opts     graph.Options
		contains []string
		arrows   int
		cofaces  int
	}{
		{
			name:     "box at default depth",
			build:    box,
			contains: []string{"graph TD\n", "Bl0000[[\"Bl0000\"]]", "Fa0000[/\"Fa0000\"/]"},
			arrows:   12,
			cofaces:  6,
		},
		{
			name:     "box down to edges",
			build:    box,
			opts:     graph.Options{Depth: 3},
			contains: []string{"Edge0000(\"Edge0000\")"},
			arrows:   12 + 24,
			cofaces:  6,
		},
		{
			name:    "grid shares one coface",
			build:   grid,
			arrows:  24,
			cofaces: 11,
		},
		{
			name:     "standalone coface",
			build:    loose,
			contains: []string{"Fa0000[/\"Fa0000\"/]"},
			cofaces:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(build(t, tt.build), tt.opts)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			assert.Equal(t, tt.arrows, count(out, " --> "), out)
			assert.Equal(t, tt.cofaces, count(out, "[/\""), out)
		})
	}
}

func TestGenerateMermaid_Vertices(t *testing.T) {
	g := build(t, func(tx *topo.Tx) error {
		_, err := edit.NewBlock(tx, domain.Point{}, domain.Point{X: 1, Y: 1, Z: 1}, 2)
		return err
	})
	out := graph.GenerateMermaid(g, graph.Options{Depth: 9})
	assert.Equal(t, 8, count(out, "((\"Som"))
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	g := build(t, func(tx *topo.Tx) error {
		b, err := edit.NewBlock(tx, domain.Point{}, domain.Point{X: 1, Y: 1, Z: 1}, 2)
		if err != nil {
			return err
		}
		b.Groups = []string{"fluid"}
		return nil
	})
	out := graph.GenerateMermaid(g, graph.Options{Overlay: &graph.Overlay{
		Created:  []string{"Bl0000", "Bl0000"},
		Modified: []string{"Som0000"},
	}})

	assert.Contains(t, out, "Bl0000 <br/> fluid")
	assert.Contains(t, out, "classDef created")
	assert.Equal(t, 1, count(out, "class Bl0000 created;"))
	assert.NotContains(t, out, "class Som0000")
}
