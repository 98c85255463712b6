package topo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
)

// buildBox creates a unit hex with nb segments per coedge inside tx.
func buildBox(t *testing.T, tx *Tx, origin domain.Point, nb int) *Block {
	t.Helper()
	var corners [8]domain.ID
	for i := range 8 {
		p := domain.Point{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)}
		corners[i] = tx.NewVertex(origin.Add(p)).ID()
	}
	coedge := make(map[[2]int]domain.ID)
	for d := range 3 {
		for _, pair := range BlockEdges[d] {
			c := tx.NewCoEdge(corners[pair[0]], corners[pair[1]], domain.Uniform(nb))
			coedge[pair] = c.ID()
			coedge[[2]int{pair[1], pair[0]}] = c.ID()
		}
	}
	var faces [6]domain.ID
	for s, loop := range FaceCorners {
		var cs, es []domain.ID
		for i, slot := range loop {
			next := loop[(i+1)%4]
			cs = append(cs, corners[slot])
			es = append(es, tx.NewEdge(corners[slot], []domain.ID{coedge[[2]int{slot, next}]}, nil).ID())
		}
		cf := tx.NewCoFace(cs, es, true)
		faces[s] = tx.NewFace([]domain.ID{cf.ID()}, nil).ID()
	}
	return tx.NewBlock(corners, faces, domain.BlockMeshing{Law: domain.LawTransfinite})
}

func newBox(t *testing.T, nb int) (*Graph, *naming.Manager, *Block) {
	t.Helper()
	g := NewGraph()
	names := naming.NewManager()
	tx := NewTx(g, names)
	b := buildBox(t, tx, domain.Point{}, nb)
	tx.Commit()
	require.NoError(t, g.Check())
	return g, names, b
}
