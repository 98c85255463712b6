package edit

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// faceLayout places the CoFaces of one block face along a direction: for each
// CoFace the side facing the low end and the unit interval it covers.
type faceLayout struct {
	low  map[domain.ID]int
	ulo  map[domain.ID]int
	span map[domain.ID]int
}

func (l faceLayout) uhi(id domain.ID) int { return l.ulo[id] + l.span[id] }

// fromLow returns the parallel side s of cf oriented away from its low side L.
func fromLow(g *topo.Graph, cf *topo.CoFace, low, s int) topo.Chain {
	ch := g.Side(cf, s)
	switch s {
	case (low + 1) % 4:
		return ch
	case (low + 3) % 4:
		return ch.Reversed()
	}
	domain.Invariantf("side %d of coface %s is not parallel to its low side %d", s, cf.Name(), low)
	return topo.Chain{}
}

func span(g *topo.Graph, cf *topo.CoFace, low int) int {
	return fromLow(g, cf, low, (low+1)%4).Total()
}

// sideHolding returns the side of cf whose Edge uses coedge, or -1.
func sideHolding(g *topo.Graph, cf *topo.CoFace, coedge domain.ID) int {
	for s, eid := range cf.Edges {
		if slices.Contains(g.MustEdge(eid).CoEdges, coedge) {
			return s
		}
	}
	return -1
}

// layoutFace orients the CoFaces of f starting from those touching lowEdge,
// the block edge at the low end, and propagating through shared CoEdges.
func layoutFace(g *topo.Graph, f *topo.Face, lowEdge topo.Chain) (faceLayout, error) {
	lay := faceLayout{
		low:  make(map[domain.ID]int),
		ulo:  make(map[domain.ID]int),
		span: make(map[domain.ID]int),
	}
	boundary := topo.NewIDSet(lowEdge.CoEdges...)
	owners := make(map[domain.ID][]domain.ID)
	var queue []domain.ID
	for _, id := range f.CoFaces {
		cf := g.MustCoFace(id)
		if cf.Degenerate() {
			return lay, domain.Newf(domain.CodePrecondition, "face %s holds degenerate coface %s", f.Name(), cf.Name())
		}
		for _, e := range g.CoFaceCoEdges(cf) {
			owners[e] = append(owners[e], id)
		}
		for s := range 4 {
			if slices.ContainsFunc(g.Side(cf, s).CoEdges, boundary.Has) {
				lay.low[id], lay.ulo[id], lay.span[id] = s, 0, span(g, cf, s)
				queue = append(queue, id)
				break
			}
		}
	}

	for len(queue) > 0 {
		x := queue[0]
		queue = queue[1:]
		cx := g.MustCoFace(x)
		lx := lay.low[x]
		for s := range 4 {
			perp := s%2 == lx%2
			var rising topo.Chain
			if !perp {
				rising = fromLow(g, cx, lx, s)
			}
			for _, e := range g.Side(cx, s).CoEdges {
				for _, y := range owners[e] {
					if y == x {
						continue
					}
					cy := g.MustCoFace(y)
					t := sideHolding(g, cy, e)
					var ly, uy int
					if perp {
						if s == lx {
							ly = (t + 2) % 4
							uy = lay.ulo[x] - span(g, cy, ly)
						} else {
							ly = t
							uy = lay.uhi(x)
						}
					} else {
						lo := rising.Vertices[slices.Index(rising.CoEdges, e)]
						off, _ := rising.Offset(lo)
						chY := g.Side(cy, t)
						if chY.Vertices[slices.Index(chY.CoEdges, e)] == lo {
							ly = (t + 3) % 4
						} else {
							ly = (t + 1) % 4
						}
						offY, _ := fromLow(g, cy, ly, t).Offset(lo)
						uy = lay.ulo[x] + off - offY
					}
					if prev, seen := lay.low[y]; seen {
						if prev != ly || lay.ulo[y] != uy {
							return lay, domain.Newf(domain.CodePrecondition, "cofaces of face %s do not form a structured layout", f.Name()).
								WithMetadata("coface", cy.Name())
						}
						continue
					}
					lay.low[y], lay.ulo[y], lay.span[y] = ly, uy, span(g, cy, ly)
					queue = append(queue, y)
				}
			}
		}
	}
	if len(lay.low) != len(f.CoFaces) {
		return lay, domain.Newf(domain.CodePrecondition, "cofaces of face %s are not connected to its low edge", f.Name())
	}
	return lay, nil
}
