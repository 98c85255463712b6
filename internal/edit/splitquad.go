package edit

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// invalidateMeshes drops the volume meshes of the blocks using cf.
func invalidateMeshes(tx *topo.Tx, cf *topo.CoFace) {
	for _, b := range tx.Graph().BlocksOfCoFace(cf) {
		if b.Mesh != nil {
			tx.MeshModify(b)
			b.Mesh = nil
		}
	}
}

// cutMeshing returns the law of a CoEdge running parallel to side, from its
// start to its end.
func cutMeshing(g *topo.Graph, side topo.Chain) domain.EdgeMeshing {
	if len(side.CoEdges) != 1 {
		return domain.Uniform(side.Total())
	}
	c := g.MustCoEdge(side.CoEdges[0])
	m := c.Meshing
	if c.V[0] != side.Start() {
		m = m.Reversed()
	}
	m.Segments = side.Total()
	return m
}

// splitQuad cuts the quad x across its sides parallel to the low side, k units
// away from it. Faces using x get both halves. It returns the low and high
// halves and the CoEdge of the cut.
func splitQuad(tx *topo.Tx, x *topo.CoFace, low, k int) (*topo.CoFace, *topo.CoFace, domain.ID, error) {
	g := tx.Graph()
	if x.Degenerate() {
		domain.Invariantf("splitQuad on degenerate coface %s", x.Name())
	}
	p1 := fromLow(g, x, low, (low+1)%4)
	p2 := fromLow(g, x, low, (low+3)%4)
	if k <= 0 || k >= p1.Total() || k >= p2.Total() {
		return nil, nil, 0, domain.Newf(domain.CodePrecondition, "cut at %d is outside coface %s (%d and %d units)", k, x.Name(), p1.Total(), p2.Total())
	}
	if p1.Total() != p2.Total() {
		return nil, nil, 0, domain.Newf(domain.CodePrecondition, "coface %s is not structured: opposite sides carry %d and %d units", x.Name(), p1.Total(), p2.Total())
	}
	invalidateMeshes(tx, x)

	v := slices.Clone(x.V)
	at := func(i int) domain.ID { return v[(low+i)%4] }
	lowSide := g.Side(x, low)
	oldP1, oldP2 := x.Edges[(low+1)%4], x.Edges[(low+3)%4]

	a := cutChain(tx, p1, k)
	c := cutChain(tx, p2, k)
	p1 = fromLow(g, x, low, (low+1)%4)
	p2 = fromLow(g, x, low, (low+3)%4)
	ia := slices.Index(p1.Vertices, a)
	ic := slices.Index(p2.Vertices, c)
	last := len(p1.Vertices) - 1
	last2 := len(p2.Vertices) - 1

	n := tx.NewCoEdge(c, a, cutMeshing(g, lowSide))
	e1lo := newEdge(tx, p1.Sub(0, ia))
	e1hi := newEdge(tx, p1.Sub(ia, last))
	e2lo := newEdge(tx, p2.Sub(0, ic))
	e2hi := newEdge(tx, p2.Sub(ic, last2))
	cutLo := tx.NewEdge(c, []domain.ID{n.ID()}, nil)
	cutHi := tx.NewEdge(c, []domain.ID{n.ID()}, nil)

	lo := tx.NewCoFace(
		[]domain.ID{at(0), at(1), a, c},
		[]domain.ID{x.Edges[low], e1lo.ID(), cutLo.ID(), e2lo.ID()},
		x.Structured)
	hi := tx.NewCoFace(
		[]domain.ID{c, a, at(2), at(3)},
		[]domain.ID{cutHi.ID(), e1hi.ID(), x.Edges[(low+2)%4], e2hi.ID()},
		x.Structured)
	inherit(x, n, lo, hi)

	tx.ReplaceCoFace(x, []domain.ID{lo.ID(), hi.ID()})
	tx.Delete(x)
	for _, id := range []domain.ID{oldP1, oldP2} {
		if e := g.MustEdge(id); !g.Referenced(e) {
			tx.Delete(e)
		}
	}
	return lo, hi, n.ID(), nil
}
