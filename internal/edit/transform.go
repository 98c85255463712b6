package edit

import (
	"context"
	"math"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// vertexClosure returns every vertex used by the entities, descending from
// blocks through faces, cofaces, edges and coedges.
func vertexClosure(g *topo.Graph, es []topo.Entity) topo.IDSet {
	var (
		vertices topo.IDSet
		coedges  topo.IDSet
		edges    topo.IDSet
		cofaces  topo.IDSet
	)
	addFace := func(f *topo.Face) {
		for _, id := range f.CoFaces {
			cofaces = cofaces.Add(id)
		}
	}
	for _, e := range es {
		switch x := e.(type) {
		case *topo.Block:
			for _, fid := range x.Faces {
				if fid != 0 {
					addFace(g.MustFace(fid))
				}
			}
			for _, v := range x.V {
				vertices = vertices.Add(v)
			}
		case *topo.Face:
			addFace(x)
		case *topo.CoFace:
			cofaces = cofaces.Add(x.ID())
		case *topo.Edge:
			edges = edges.Add(x.ID())
		case *topo.CoEdge:
			coedges = coedges.Add(x.ID())
		case *topo.Vertex:
			vertices = vertices.Add(x.ID())
		}
	}
	for _, id := range cofaces {
		for _, eid := range g.MustCoFace(id).Edges {
			edges = edges.Add(eid)
		}
	}
	for _, id := range edges {
		for _, cid := range g.MustEdge(id).CoEdges {
			coedges = coedges.Add(cid)
		}
	}
	for _, id := range coedges {
		for _, v := range g.MustCoEdge(id).V {
			vertices = vertices.Add(v)
		}
	}
	return vertices
}

// moveVertices applies fn to the vertices and drops every discretization
// that depended on their old positions.
func moveVertices(tx *topo.Tx, vertices topo.IDSet, fn func(domain.Point) domain.Point) {
	g := tx.Graph()
	var stale topo.IDSet
	for _, id := range vertices {
		v := g.MustVertex(id)
		tx.Modify(v)
		v.Coord = fn(v.Coord)
		for _, cid := range v.CoEdges {
			if c := g.MustCoEdge(cid); c.Points != nil {
				tx.MeshModify(c)
				c.Points = nil
			}
		}
		_, cofaces, _ := around(g, v)
		for _, cfid := range cofaces {
			stale = stale.Add(cfid)
		}
	}
	for _, id := range stale {
		dropMesh(tx, g.MustCoFace(id))
	}
}

// TranslateTopo moves the entities, and everything they use, by offset.
func TranslateTopo(tx *topo.Tx, ids []domain.ID, offset domain.Point) error {
	if offset == (domain.Point{}) {
		return domain.New(domain.CodeInvalidArgument, "translation vector is null")
	}
	es, err := lookup(tx.Graph(), ids)
	if err != nil {
		return err
	}
	moveVertices(tx, vertexClosure(tx.Graph(), es), func(p domain.Point) domain.Point { return p.Add(offset) })
	return nil
}

// ScaleTopo scales the entities, and everything they use, by factor around
// center.
func ScaleTopo(tx *topo.Tx, ids []domain.ID, factor float64, center domain.Point) error {
	if math.Abs(factor) < 1e-12 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return domain.Newf(domain.CodeInvalidArgument, "scale factor %g is not usable", factor)
	}
	es, err := lookup(tx.Graph(), ids)
	if err != nil {
		return err
	}
	moveVertices(tx, vertexClosure(tx.Graph(), es), func(p domain.Point) domain.Point {
		return center.Add(p.Sub(center).Scale(factor))
	})
	return nil
}

// alignIterations bounds the alternation between the line and the geometry
// a vertex is associated with.
const alignIterations = 10

// AlignVertices moves the vertices onto the segment [p1,p2]. A vertex whose
// projection lands on an end of the segment is spread instead, the i-th of n
// going to (i*p1 + (n+1-i)*p2)/(n+1). A vertex associated with a curve or a
// surface alternates between the segment and its geometry until it settles,
// which needs an oracle in env.
func AlignVertices(ctx context.Context, tx *topo.Tx, env Env, p1, p2 domain.Point, vertices []domain.ID) error {
	g := tx.Graph()
	eps := env.tolerance()
	if p1.Dist(p2) <= eps {
		return domain.New(domain.CodeInvalidArgument, "two distinct points are needed to define a line")
	}
	if len(vertices) == 0 {
		return domain.New(domain.CodeInvalidArgument, "no vertex given")
	}
	var order []*topo.Vertex
	var seen topo.IDSet
	for _, id := range vertices {
		if seen.Has(id) {
			continue
		}
		seen = seen.Add(id)
		v, err := g.Vertex(id)
		if err != nil {
			return err
		}
		if !v.Geom.IsZero() {
			if v.Geom.Dim == 0 {
				return domain.Newf(domain.CodePrecondition, "vertex %s lies on geometric vertex %s and cannot be aligned", v.Name(), v.Geom.Name)
			}
			if env.Oracle == nil {
				return domain.Newf(domain.CodePrecondition, "aligning vertex %s on %s needs a geometry oracle", v.Name(), v.Geom.Name)
			}
		}
		order = append(order, v)
	}

	n := float64(len(order))
	onLine := func(p domain.Point, i int) domain.Point {
		q := p1.Lerp(p2, domain.ProjectParam(p1, p2, p))
		if q.Dist(p1) <= eps || q.Dist(p2) <= eps {
			k := float64(i + 1)
			q = p1.Scale(k).Add(p2.Scale(n + 1 - k)).Scale(1 / (n + 1))
		}
		return q
	}
	targets := make([]domain.Point, len(order))
	for i, v := range order {
		q := onLine(v.Coord, i)
		if !v.Geom.IsZero() {
			for range alignIterations {
				prev := q
				p, err := env.Oracle.Project(ctx, v.Geom, onLine(q, i))
				if err != nil {
					return domain.Wrap(domain.CodeExternal, "geometry oracle failed", err).WithMetadata("vertex", v.Name())
				}
				q = p
				if q.Dist(prev) <= eps {
					break
				}
			}
		}
		targets[i] = q
	}
	for i, v := range order {
		if v.Coord.Dist(targets[i]) <= eps {
			continue
		}
		p := targets[i]
		moveVertices(tx, topo.IDSet{v.ID()}, func(domain.Point) domain.Point { return p })
	}
	return nil
}
