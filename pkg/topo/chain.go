package topo

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
)

// Chain is an oriented sequence of CoEdges with the vertices between them.
type Chain struct {
	CoEdges  []domain.ID
	Vertices []domain.ID // len(CoEdges)+1 vertices from start to end
	Units    []int       // segments contributed by each CoEdge after ratio correction
	Ratios   []int       // ratio applied to each CoEdge
}

// Total is the number of segments along the chain.
func (c Chain) Total() int {
	n := 0
	for _, u := range c.Units {
		n += u
	}
	return n
}

// Start and End return the chain extremities.
func (c Chain) Start() domain.ID { return c.Vertices[0] }
func (c Chain) End() domain.ID   { return c.Vertices[len(c.Vertices)-1] }

// Offset returns the number of segments between the chain start and vertex v.
func (c Chain) Offset(v domain.ID) (int, bool) {
	n := 0
	for i, id := range c.Vertices {
		if id == v {
			return n, true
		}
		if i < len(c.Units) {
			n += c.Units[i]
		}
	}
	return 0, false
}

// Reversed returns the same chain walked from its end.
func (c Chain) Reversed() Chain {
	out := Chain{
		CoEdges:  slices.Clone(c.CoEdges),
		Vertices: slices.Clone(c.Vertices),
		Units:    slices.Clone(c.Units),
		Ratios:   slices.Clone(c.Ratios),
	}
	slices.Reverse(out.CoEdges)
	slices.Reverse(out.Vertices)
	slices.Reverse(out.Units)
	slices.Reverse(out.Ratios)
	return out
}

// Sub returns the part of the chain between vertex positions i and j (i < j).
func (c Chain) Sub(i, j int) Chain {
	return Chain{
		CoEdges:  slices.Clone(c.CoEdges[i:j]),
		Vertices: slices.Clone(c.Vertices[i : j+1]),
		Units:    slices.Clone(c.Units[i:j]),
		Ratios:   slices.Clone(c.Ratios[i:j]),
	}
}

// RatioMap returns the ratios that differ from 1, keyed by CoEdge.
func (c Chain) RatioMap() map[domain.ID]int {
	out := make(map[domain.ID]int)
	for i, id := range c.CoEdges {
		if c.Ratios[i] > 1 {
			out[id] = c.Ratios[i]
		}
	}
	return out
}

func units(c *CoEdge, ratio int) int {
	if ratio < 1 {
		ratio = 1
	}
	return max(c.Meshing.Segments/ratio, 1)
}

// EdgeChain returns the chain of e walked from vertex from, which must be one
// of its ends.
func (g *Graph) EdgeChain(e *Edge, from domain.ID) Chain {
	ch := Chain{Vertices: []domain.ID{e.V[0]}}
	cur := e.V[0]
	for _, id := range e.CoEdges {
		c := g.MustCoEdge(id)
		r := e.Ratio(id)
		cur = c.Other(cur)
		ch.CoEdges = append(ch.CoEdges, id)
		ch.Vertices = append(ch.Vertices, cur)
		ch.Units = append(ch.Units, units(c, r))
		ch.Ratios = append(ch.Ratios, r)
	}
	if from == e.V[0] {
		return ch
	}
	if from != e.V[1] {
		domain.Invariantf("vertex %s is not an end of edge %s", from, e.Name())
	}
	return ch.Reversed()
}

// Side returns the chain of side s of cf oriented from V[s] to V[s+1].
func (g *Graph) Side(cf *CoFace, s int) Chain {
	return g.EdgeChain(g.MustEdge(cf.Edges[s]), cf.V[s])
}

// CoFaceCoEdges returns every CoEdge bounding cf.
func (g *Graph) CoFaceCoEdges(cf *CoFace) IDSet {
	var out IDSet
	for _, eid := range cf.Edges {
		for _, id := range g.MustEdge(eid).CoEdges {
			out = out.Add(id)
		}
	}
	return out
}

// FaceCoEdges returns every CoEdge used by the CoFaces of f.
func (g *Graph) FaceCoEdges(f *Face) IDSet {
	var out IDSet
	for _, cid := range f.CoFaces {
		for _, id := range g.CoFaceCoEdges(g.MustCoFace(cid)) {
			out = out.Add(id)
		}
	}
	return out
}

// FaceRatio finds the ratio applied to coedge by an Edge of the CoFaces of f.
func (g *Graph) FaceRatio(f *Face, coedge domain.ID) int {
	c := g.MustCoEdge(coedge)
	for _, eid := range c.Edges {
		e := g.MustEdge(eid)
		for _, cfid := range e.CoFaces {
			if slices.Contains(f.CoFaces, cfid) {
				return e.Ratio(coedge)
			}
		}
	}
	return 1
}

// OrderPath orders a set of CoEdges forming a simple path from one vertex to
// another, applying ratio to compute units.
func (g *Graph) OrderPath(set IDSet, from, to domain.ID, ratio func(domain.ID) int) (Chain, error) {
	left := set.Clone()
	ch := Chain{Vertices: []domain.ID{from}}
	cur := from
	for cur != to {
		found := false
		for _, id := range left {
			c := g.MustCoEdge(id)
			if next := c.Other(cur); next != 0 {
				r := ratio(id)
				ch.CoEdges = append(ch.CoEdges, id)
				ch.Units = append(ch.Units, units(c, r))
				ch.Ratios = append(ch.Ratios, r)
				ch.Vertices = append(ch.Vertices, next)
				left = left.Remove(id)
				cur = next
				found = true
				break
			}
		}
		if !found {
			return Chain{}, domain.Newf(domain.CodePrecondition, "no chain of coedges joins %s to %s", from, to)
		}
	}
	if len(left) > 0 {
		return Chain{}, domain.Newf(domain.CodePrecondition, "coedges between %s and %s do not form a simple chain", from, to)
	}
	return ch, nil
}
