// Package edit implements the structural algorithms of the topology: creation,
// splitting, O-grid insertion, fusion, duplication, deletion, property edits
// and meshing. Every function mutates the graph through a topo.Tx and returns
// an error instead of leaving a partial edit behind; compensation is the
// caller's job.
package edit

import (
	"math"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/ports"
	"github.com/aretw0/topoedit/pkg/topo"
)

// DefaultTolerance is the proximity tolerance used when Env leaves it unset.
const DefaultTolerance = 1e-6

// Env carries the collaborators and tolerances used by the algorithms.
type Env struct {
	// Tolerance bounds the distance between vertices fused by Fuse2Vertices
	// and the distance under which AlignVertices leaves a vertex alone.
	Tolerance float64
	// SnapTolerance bounds the distance between vertices snapped by SnapVertices.
	SnapTolerance float64
	// MeshWorkers limits concurrent calls to the mesh generator.
	MeshWorkers int

	Oracle   ports.GeometryOracle
	Mesher   ports.MeshGenerator
	Smoother ports.Smoother
}

func (env Env) tolerance() float64 {
	if env.Tolerance > 0 {
		return env.Tolerance
	}
	return DefaultTolerance
}

func (env Env) snapTolerance() float64 {
	if env.SnapTolerance > 0 {
		return env.SnapTolerance
	}
	return env.tolerance()
}

func (env Env) workers() int {
	return max(env.MeshWorkers, 1)
}

func checkRatio(ratio float64) error {
	if math.IsNaN(ratio) || ratio <= 0 || ratio >= 1 {
		return domain.Newf(domain.CodePrecondition, "ratio %g must lie strictly between 0 and 1", ratio)
	}
	return nil
}

// splitCoEdge cuts c at node j (0 < j < Segments) and returns the new vertex.
// Every Edge using c gets the two parts with the ratio c had.
func splitCoEdge(tx *topo.Tx, c *topo.CoEdge, j int) *topo.Vertex {
	g := tx.Graph()
	if j <= 0 || j >= c.Meshing.Segments {
		domain.Invariantf("cannot split coedge %s at node %d of %d", c.Name(), j, c.Meshing.Segments)
	}
	a := g.MustVertex(c.V[0]).Coord
	b := g.MustVertex(c.V[1]).Coord
	v := tx.NewVertex(a.Lerp(b, c.Meshing.Params()[j]))
	v.Geom = c.Geom
	v.Groups = append(v.Groups, c.Groups...)

	lo, hi := c.Meshing.Split(j)
	p0 := tx.NewCoEdge(c.V[0], v.ID(), lo)
	p1 := tx.NewCoEdge(v.ID(), c.V[1], hi)
	for _, p := range []*topo.CoEdge{p0, p1} {
		p.Geom = c.Geom
		p.Groups = append(p.Groups, c.Groups...)
	}
	tx.ReplaceCoEdge(c, []domain.ID{p0.ID(), p1.ID()})
	tx.Delete(c)
	return v
}

// cutChain returns the vertex found k units along ch, splitting the CoEdge
// that straddles it when needed.
func cutChain(tx *topo.Tx, ch topo.Chain, k int) domain.ID {
	acc := 0
	for i, u := range ch.Units {
		if acc == k {
			return ch.Vertices[i]
		}
		if k < acc+u {
			c := tx.Graph().MustCoEdge(ch.CoEdges[i])
			j := (k - acc) * ch.Ratios[i]
			if c.V[0] != ch.Vertices[i] {
				j = c.Meshing.Segments - j
			}
			return splitCoEdge(tx, c, j).ID()
		}
		acc += u
	}
	if acc == k {
		return ch.End()
	}
	domain.Invariantf("cut at %d beyond a chain of %d units", k, acc)
	return 0
}

// newEdge builds an Edge over a sub-chain.
func newEdge(tx *topo.Tx, ch topo.Chain) *topo.Edge {
	return tx.NewEdge(ch.Start(), ch.CoEdges, ch.RatioMap())
}

// inherit copies the geometric association and groups of src onto the
// freshly created entities.
func inherit(src topo.Entity, dst ...topo.Entity) {
	from := src.Props()
	for _, d := range dst {
		p := d.Props()
		p.Geom = from.Geom
		p.Groups = append([]string(nil), from.Groups...)
	}
}

func idsOf[T topo.Entity](items []T) []domain.ID {
	out := make([]domain.ID, len(items))
	for i, it := range items {
		out[i] = it.ID()
	}
	return out
}

// ratiosOf keeps the face ratios of f that apply to cofaces.
func ratiosOf(f *topo.Face, cofaces []domain.ID) map[domain.ID][2]int {
	var out map[domain.ID][2]int
	for _, id := range cofaces {
		if r, ok := f.Ratios[id]; ok {
			if out == nil {
				out = make(map[domain.ID][2]int)
			}
			out[id] = r
		}
	}
	return out
}
