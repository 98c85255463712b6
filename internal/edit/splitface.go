package edit

import (
	"math"
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// faceSplit describes one CoFace split.
type faceSplit struct {
	Parts []*topo.CoFace
	// Cut lists the CoEdges created inside the CoFace.
	Cut []domain.ID
	// Ogrid is the leg offset used by a triangle O-grid, 0 otherwise.
	Ogrid int
}

// SplitFace cuts coface through its side holding pivot, ratio along pivot
// from its first vertex. A quad gives two quads. A triangle cut from one of its
// legs gives a triangle and a quad; cut from the side opposite its collapsed
// corner it gives two triangles, or 3 quads around an inner vertex when
// ratioOgrid is positive.
func SplitFace(tx *topo.Tx, coface, pivot domain.ID, ratio, ratioOgrid float64) ([]*topo.CoFace, error) {
	g := tx.Graph()
	x, err := g.CoFace(coface)
	if err != nil {
		return nil, err
	}
	s, k, err := facePivot(g, x, pivot, ratio, ratioOgrid)
	if err != nil {
		return nil, err
	}
	res, err := splitFaceAt(tx, x, s, k, ratioOgrid, 0)
	if err != nil {
		return nil, err
	}
	return res.Parts, nil
}

func facePivot(g *topo.Graph, x *topo.CoFace, pivot domain.ID, ratio, ratioOgrid float64) (side, k int, err error) {
	if err := checkRatio(ratio); err != nil {
		return 0, 0, err
	}
	if math.IsNaN(ratioOgrid) || ratioOgrid < 0 || ratioOgrid >= 1 {
		return 0, 0, domain.Newf(domain.CodeInvalidArgument, "o-grid ratio %g must lie in [0, 1)", ratioOgrid)
	}
	if _, err := g.CoEdge(pivot); err != nil {
		return 0, 0, err
	}
	side = sideHolding(g, x, pivot)
	if side < 0 {
		return 0, 0, domain.Newf(domain.CodePrecondition, "coedge %s does not bound coface %s", g.MustCoEdge(pivot).Name(), x.Name())
	}
	k, err = pivotUnits(g, g.Side(x, side), pivot, ratio)
	if err != nil {
		return 0, 0, err
	}
	return side, k, nil
}

// ExtendSplitFace cuts coface through vertex, which must lie strictly inside
// one of its sides.
func ExtendSplitFace(tx *topo.Tx, coface, vertex domain.ID) ([]*topo.CoFace, error) {
	g := tx.Graph()
	x, err := g.CoFace(coface)
	if err != nil {
		return nil, err
	}
	v, err := g.Vertex(vertex)
	if err != nil {
		return nil, err
	}
	s, k, ok := interiorOffset(g, x, vertex)
	if !ok {
		return nil, domain.Newf(domain.CodePrecondition, "vertex %s is not inside a side of coface %s", v.Name(), x.Name())
	}
	res, err := splitFaceAt(tx, x, s, k, 0, 0)
	if err != nil {
		return nil, err
	}
	return res.Parts, nil
}

// interiorOffset finds the side of x holding v strictly between its ends.
func interiorOffset(g *topo.Graph, x *topo.CoFace, v domain.ID) (side, k int, ok bool) {
	for s := range x.Edges {
		ch := g.Side(x, s)
		if off, found := ch.Offset(v); found && off > 0 && off < ch.Total() {
			return s, off, true
		}
	}
	return 0, 0, false
}

// SplitFaces splits the listed CoFace bounded by pivot, then extends the cut
// through every listed CoFace that a cut vertex lies on, until none is left.
// An empty list means every CoFace. CoFaces are visited by ascending id; every
// triangle O-grid reuses the leg offset of the first one.
func SplitFaces(tx *topo.Tx, cofaces []domain.ID, pivot domain.ID, ratio, ratioOgrid float64) ([]*topo.CoFace, error) {
	g := tx.Graph()
	listed := topo.NewIDSet(cofaces...)
	if len(cofaces) == 0 {
		listed = topo.NewIDSet(idsOf(g.CoFaces())...)
	}
	if _, err := g.CoEdge(pivot); err != nil {
		return nil, err
	}
	var first *topo.CoFace
	for _, id := range listed {
		x, err := g.CoFace(id)
		if err != nil {
			return nil, err
		}
		if sideHolding(g, x, pivot) >= 0 {
			first = x
			break
		}
	}
	if first == nil {
		return nil, domain.Newf(domain.CodePrecondition, "no listed coface is bounded by coedge %s", g.MustCoEdge(pivot).Name())
	}
	s, k, err := facePivot(g, first, pivot, ratio, ratioOgrid)
	if err != nil {
		return nil, err
	}
	res, err := splitFaceAt(tx, first, s, k, ratioOgrid, 0)
	if err != nil {
		return nil, err
	}
	ni := res.Ogrid

	var created topo.IDSet
	var cutVertices topo.IDSet
	record := func(old *topo.CoFace, r faceSplit) {
		listed = listed.Remove(old.ID())
		for _, p := range r.Parts {
			listed = listed.Add(p.ID())
			created = created.Add(p.ID())
		}
		for _, id := range r.Cut {
			for _, v := range g.MustCoEdge(id).V {
				cutVertices = cutVertices.Add(v)
			}
		}
	}
	record(first, res)

	for {
		var next *topo.CoFace
		var side, off int
		for _, id := range listed {
			x, err := g.CoFace(id)
			if err != nil {
				continue
			}
			for _, v := range cutVertices {
				if s, k, ok := interiorOffset(g, x, v); ok {
					next, side, off = x, s, k
					break
				}
			}
			if next != nil {
				break
			}
		}
		if next == nil {
			break
		}
		r, err := splitFaceAt(tx, next, side, off, ratioOgrid, ni)
		if err != nil {
			return nil, err
		}
		record(next, r)
	}

	var out []*topo.CoFace
	for _, id := range created {
		if x, err := g.CoFace(id); err == nil {
			out = append(out, x)
		}
	}
	return out, nil
}

// splitFaceAt cuts x through the point k units along side s from V[s].
func splitFaceAt(tx *topo.Tx, x *topo.CoFace, s, k int, ratioOgrid float64, ni int) (faceSplit, error) {
	g := tx.Graph()
	if !g.CoFaceStructured(x) {
		return faceSplit{}, domain.Newf(domain.CodePrecondition, "coface %s is not structured", x.Name())
	}
	if !x.Degenerate() {
		lo, hi, cut, err := splitQuad(tx, x, (s+3)%4, k)
		if err != nil {
			return faceSplit{}, err
		}
		return faceSplit{Parts: []*topo.CoFace{lo, hi}, Cut: []domain.ID{cut}}, nil
	}
	switch {
	case s != 1:
		d := k
		if s == 2 {
			d = g.Side(x, 2).Total() - k
		}
		return splitTriangleLegs(tx, x, d)
	case ratioOgrid > 0:
		return splitTriangleOgrid(tx, x, k, ratioOgrid, ni)
	}
	return splitTriangleApex(tx, x, k)
}

// retire replaces x by parts in its faces and deletes x with the side Edges
// nothing uses any more.
func retire(tx *topo.Tx, x *topo.CoFace, parts []*topo.CoFace, edges []domain.ID) {
	g := tx.Graph()
	tx.ReplaceCoFace(x, idsOf(parts))
	tx.Delete(x)
	for _, id := range edges {
		if e := g.MustEdge(id); !g.Referenced(e) {
			tx.Delete(e)
		}
	}
}

// splitTriangleApex cuts a triangle from its collapsed corner to the point k
// units along its opposite side, giving two triangles.
func splitTriangleApex(tx *topo.Tx, x *topo.CoFace, k int) (faceSplit, error) {
	g := tx.Graph()
	invalidateMeshes(tx, x)
	v := slices.Clone(x.V)
	old := slices.Clone(x.Edges)
	leg := g.Side(x, 0)

	m := cutChain(tx, g.Side(x, 1), k)
	s1 := g.Side(x, 1)
	im := slices.Index(s1.Vertices, m)
	lo := newEdge(tx, s1.Sub(0, im))
	hi := newEdge(tx, s1.Sub(im, len(s1.Vertices)-1))

	n := tx.NewCoEdge(v[0], m, cutMeshing(g, leg))
	ca := tx.NewEdge(m, []domain.ID{n.ID()}, nil)
	cb := tx.NewEdge(v[0], []domain.ID{n.ID()}, nil)
	t1 := tx.NewCoFace([]domain.ID{v[0], v[1], m}, []domain.ID{old[0], lo.ID(), ca.ID()}, x.Structured)
	t2 := tx.NewCoFace([]domain.ID{v[0], m, v[2]}, []domain.ID{cb.ID(), hi.ID(), old[2]}, x.Structured)
	inherit(x, n, t1, t2)

	parts := []*topo.CoFace{t1, t2}
	retire(tx, x, parts, []domain.ID{old[1]})
	return faceSplit{Parts: parts, Cut: []domain.ID{n.ID()}}, nil
}

// splitTriangleLegs cuts both legs of a triangle d units away from its
// collapsed corner, giving a triangle at the corner and a quad.
func splitTriangleLegs(tx *topo.Tx, x *topo.CoFace, d int) (faceSplit, error) {
	g := tx.Graph()
	n0 := g.Side(x, 0).Total()
	if d <= 0 || d >= n0 {
		return faceSplit{}, domain.Newf(domain.CodePrecondition, "cut at %d is outside the legs of coface %s", d, x.Name())
	}
	invalidateMeshes(tx, x)
	v := slices.Clone(x.V)
	old := slices.Clone(x.Edges)
	base := g.Side(x, 1)

	a := cutChain(tx, g.Side(x, 0), d)
	c := cutChain(tx, g.Side(x, 2).Reversed(), d)
	s0 := g.Side(x, 0)
	s2 := g.Side(x, 2).Reversed()
	ia, ic := slices.Index(s0.Vertices, a), slices.Index(s2.Vertices, c)

	e0lo := newEdge(tx, s0.Sub(0, ia))
	e0hi := newEdge(tx, s0.Sub(ia, len(s0.Vertices)-1))
	e2lo := newEdge(tx, s2.Sub(0, ic))
	e2hi := newEdge(tx, s2.Sub(ic, len(s2.Vertices)-1))
	n := tx.NewCoEdge(a, c, cutMeshing(g, base))
	cutT := tx.NewEdge(a, []domain.ID{n.ID()}, nil)
	cutQ := tx.NewEdge(c, []domain.ID{n.ID()}, nil)

	tri := tx.NewCoFace([]domain.ID{v[0], a, c}, []domain.ID{e0lo.ID(), cutT.ID(), e2lo.ID()}, x.Structured)
	quad := tx.NewCoFace([]domain.ID{a, v[1], v[2], c}, []domain.ID{e0hi.ID(), old[1], e2hi.ID(), cutQ.ID()}, x.Structured)
	inherit(x, n, tri, quad)

	parts := []*topo.CoFace{tri, quad}
	retire(tx, x, parts, []domain.ID{old[0], old[2]})
	return faceSplit{Parts: parts, Cut: []domain.ID{n.ID()}}, nil
}

// splitTriangleOgrid replaces a triangle by 3 quads meeting at an inner
// vertex. The cut on the side opposite the collapsed corner lies k units from
// V[1]; the legs are cut ni units from the collapsed corner, or at
// ratioOgrid/√2 of their length when ni is 0.
func splitTriangleOgrid(tx *topo.Tx, x *topo.CoFace, k int, ratioOgrid float64, ni int) (faceSplit, error) {
	g := tx.Graph()
	n0 := g.Side(x, 0).Total()
	if n0 < 2 {
		return faceSplit{}, domain.Newf(domain.CodePrecondition, "legs of coface %s are too coarse for an o-grid", x.Name())
	}
	if ni <= 0 {
		ni = int(math.Round(ratioOgrid / math.Sqrt2 * float64(n0)))
	}
	ni = min(max(ni, 1), n0-1)
	invalidateMeshes(tx, x)
	v := slices.Clone(x.V)
	old := slices.Clone(x.Edges)

	m := cutChain(tx, g.Side(x, 1), k)
	n4 := cutChain(tx, g.Side(x, 0), ni)
	n2 := cutChain(tx, g.Side(x, 2).Reversed(), ni)
	s0, s1, s2 := g.Side(x, 0), g.Side(x, 1), g.Side(x, 2).Reversed()
	i4, im, i2 := slices.Index(s0.Vertices, n4), slices.Index(s1.Vertices, m), slices.Index(s2.Vertices, n2)
	last0, last1, last2 := len(s0.Vertices)-1, len(s1.Vertices)-1, len(s2.Vertices)-1

	apex, mid := g.MustVertex(v[0]).Coord, g.MustVertex(m).Coord
	c := tx.NewVertex(apex.Lerp(mid, ratioOgrid))
	c4 := tx.NewCoEdge(n4, c.ID(), cutMeshing(g, s2.Sub(0, i2)))
	c2 := tx.NewCoEdge(n2, c.ID(), cutMeshing(g, s0.Sub(0, i4)))
	cm := tx.NewCoEdge(m, c.ID(), cutMeshing(g, s0.Sub(i4, last0).Reversed()))
	one := func(from domain.ID, c *topo.CoEdge) domain.ID {
		return tx.NewEdge(from, []domain.ID{c.ID()}, nil).ID()
	}

	q1 := tx.NewCoFace([]domain.ID{v[1], m, c.ID(), n4}, []domain.ID{
		newEdge(tx, s1.Sub(0, im)).ID(), one(m, cm), one(c.ID(), c4), newEdge(tx, s0.Sub(i4, last0)).ID(),
	}, x.Structured)
	q2 := tx.NewCoFace([]domain.ID{m, v[2], n2, c.ID()}, []domain.ID{
		newEdge(tx, s1.Sub(im, last1)).ID(), newEdge(tx, s2.Sub(i2, last2)).ID(), one(n2, c2), one(c.ID(), cm),
	}, x.Structured)
	q3 := tx.NewCoFace([]domain.ID{v[0], n4, c.ID(), n2}, []domain.ID{
		newEdge(tx, s0.Sub(0, i4)).ID(), one(n4, c4), one(c.ID(), c2), newEdge(tx, s2.Sub(0, i2)).ID(),
	}, x.Structured)
	parts := []*topo.CoFace{q1, q2, q3}
	inherit(x, c, c4, c2, cm, q1, q2, q3)
	for _, q := range parts {
		q.Structured = q.Structured && g.CoFaceStructured(q)
	}

	retire(tx, x, parts, old)
	return faceSplit{Parts: parts, Cut: []domain.ID{cm.ID(), c4.ID(), c2.ID()}, Ogrid: ni}, nil
}
