package topo

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
)

// Check verifies the structural invariants of the registered entities:
// no destroyed entity is registered, every forward reference resolves to a
// live entity and is mirrored by the matching back-reference, CoFace corners
// are distinct and match their Edges, Edge chains are continuous and geometry
// associations are dimension-compatible. It returns every violation joined.
func (g *Graph) Check() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	for _, k := range domain.Kinds {
		for _, e := range g.arenas[k] {
			p := e.Props()
			if p.Destroyed {
				fail("%s %s is destroyed but registered", k, e.Name())
			}
			if !p.Geom.IsZero() && !p.Geom.Compatible(k) {
				fail("%s %s is associated with %s of dimension %d", k, e.Name(), p.Geom.Name, p.Geom.Dim)
			}
		}
	}

	for _, v := range g.Vertices() {
		for _, id := range v.CoEdges {
			c, err := g.CoEdge(id)
			if err != nil || c.Other(v.ID()) == 0 {
				fail("vertex %s lists coedge %s which does not end at it", v.Name(), id)
			}
		}
	}

	for _, c := range g.CoEdges() {
		if err := c.Meshing.Validate(); err != nil {
			fail("coedge %s: %w", c.Name(), err)
		}
		for _, id := range c.V {
			v, err := g.Vertex(id)
			if err != nil || !v.CoEdges.Has(c.ID()) {
				fail("coedge %s end %s does not list it", c.Name(), id)
			}
		}
		for _, id := range c.Edges {
			e, err := g.Edge(id)
			if err != nil || !slices.Contains(e.CoEdges, c.ID()) {
				fail("coedge %s lists edge %s which does not use it", c.Name(), id)
			}
		}
	}

	for _, e := range g.Edges() {
		end, err := g.WalkChain(e.V[0], e.CoEdges)
		if err != nil || end != e.V[1] {
			fail("edge %s chain does not join %s to %s", e.Name(), e.V[0], e.V[1])
		}
		for _, id := range e.CoEdges {
			c, err := g.CoEdge(id)
			if err != nil || !c.Edges.Has(e.ID()) {
				fail("edge %s uses coedge %s which does not list it", e.Name(), id)
				continue
			}
			if r := e.Ratio(id); c.Meshing.Segments%r != 0 {
				fail("edge %s ratio %d does not divide the %d segments of %s", e.Name(), r, c.Meshing.Segments, c.Name())
			}
		}
		for _, id := range e.CoFaces {
			cf, err := g.CoFace(id)
			if err != nil || cf.Side(e.ID()) < 0 {
				fail("edge %s lists coface %s which does not use it", e.Name(), id)
			}
		}
	}

	for _, cf := range g.CoFaces() {
		n := len(cf.V)
		if (n != 3 && n != 4) || len(cf.Edges) != n {
			fail("coface %s has %d corners and %d edges", cf.Name(), n, len(cf.Edges))
			continue
		}
		if len(slices.Compact(slices.Sorted(slices.Values(cf.V)))) != n {
			fail("coface %s repeats a corner", cf.Name())
		}
		for s, id := range cf.Edges {
			e, err := g.Edge(id)
			if err != nil || !e.CoFaces.Has(cf.ID()) {
				fail("coface %s uses edge %s which does not list it", cf.Name(), id)
				continue
			}
			a, b := cf.V[s], cf.V[(s+1)%n]
			if !(e.V == [2]domain.ID{a, b}) && !(e.V == [2]domain.ID{b, a}) {
				fail("coface %s side %d edge %s does not join its corners", cf.Name(), s, e.Name())
			}
		}
		for _, id := range cf.Faces {
			f, err := g.Face(id)
			if err != nil || !slices.Contains(f.CoFaces, cf.ID()) {
				fail("coface %s lists face %s which does not use it", cf.Name(), id)
			}
		}
	}

	for _, f := range g.Faces() {
		if len(f.CoFaces) == 0 {
			fail("face %s has no coface", f.Name())
		}
		for _, id := range f.CoFaces {
			cf, err := g.CoFace(id)
			if err != nil || !cf.Faces.Has(f.ID()) {
				fail("face %s uses coface %s which does not list it", f.Name(), id)
			}
		}
		if f.Block != 0 {
			b, err := g.Block(f.Block)
			if err != nil || b.FaceSide(f.ID()) < 0 {
				fail("face %s points to block %s which does not use it", f.Name(), f.Block)
			}
		}
	}

	for _, b := range g.Blocks() {
		for _, id := range b.V {
			if _, err := g.Vertex(id); err != nil {
				fail("block %s corner %s is not live", b.Name(), id)
			}
		}
		for _, id := range b.Faces {
			if id == 0 {
				continue
			}
			f, err := g.Face(id)
			if err != nil || f.Block != b.ID() {
				fail("block %s face %s does not point back to it", b.Name(), id)
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return domain.Wrap(domain.CodeInvariant, "topology is inconsistent", errors.Join(errs...))
}
