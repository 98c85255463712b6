package edit

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// closure gathers every entity reachable from the given blocks, by kind.
type closure struct {
	vertices, coedges, edges, cofaces, faces, blocks topo.IDSet
}

func closureOf(g *topo.Graph, blocks []*topo.Block) closure {
	var c closure
	for _, b := range blocks {
		c.blocks = c.blocks.Add(b.ID())
		for _, fid := range b.Faces {
			if fid == 0 {
				continue
			}
			c.faces = c.faces.Add(fid)
			for _, cfid := range g.MustFace(fid).CoFaces {
				c.cofaces = c.cofaces.Add(cfid)
			}
		}
	}
	for _, cfid := range c.cofaces {
		for _, eid := range g.MustCoFace(cfid).Edges {
			c.edges = c.edges.Add(eid)
		}
	}
	for _, eid := range c.edges {
		for _, cid := range g.MustEdge(eid).CoEdges {
			c.coedges = c.coedges.Add(cid)
		}
	}
	for _, cid := range c.coedges {
		for _, v := range g.MustCoEdge(cid).V {
			c.vertices = c.vertices.Add(v)
		}
	}
	return c
}

func lookupBlocks(g *topo.Graph, ids []domain.ID) ([]*topo.Block, error) {
	if len(ids) == 0 {
		return nil, domain.New(domain.CodeInvalidArgument, "no block given")
	}
	out := make([]*topo.Block, 0, len(ids))
	for _, id := range topo.NewIDSet(ids...) {
		b, err := g.Block(id)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// DuplicateBlocks copies the blocks with everything they use, translated by
// offset. The copies carry fresh names, the groups of the originals and no
// geometric association.
func DuplicateBlocks(tx *topo.Tx, blocks []domain.ID, offset domain.Point) ([]*topo.Block, error) {
	g := tx.Graph()
	src, err := lookupBlocks(g, blocks)
	if err != nil {
		return nil, err
	}
	c := closureOf(g, src)
	m := make(map[domain.ID]domain.ID)
	mapped := func(ids []domain.ID) []domain.ID {
		out := make([]domain.ID, len(ids))
		for i, id := range ids {
			out[i] = m[id]
		}
		return out
	}
	groups := func(from, to topo.Entity) {
		to.Props().Groups = slices.Clone(from.Props().Groups)
	}

	for _, id := range c.vertices {
		v := g.MustVertex(id)
		n := tx.NewVertex(v.Coord.Add(offset))
		groups(v, n)
		m[id] = n.ID()
	}
	for _, id := range c.coedges {
		e := g.MustCoEdge(id)
		n := tx.NewCoEdge(m[e.V[0]], m[e.V[1]], e.Meshing)
		groups(e, n)
		m[id] = n.ID()
	}
	for _, id := range c.edges {
		e := g.MustEdge(id)
		ratios := make(map[domain.ID]int, len(e.Ratios))
		for k, r := range e.Ratios {
			ratios[m[k]] = r
		}
		n := tx.NewEdge(m[e.V[0]], mapped(e.CoEdges), ratios)
		groups(e, n)
		m[id] = n.ID()
	}
	for _, id := range c.cofaces {
		cf := g.MustCoFace(id)
		n := tx.NewCoFace(mapped(cf.V), mapped(cf.Edges), cf.Structured)
		groups(cf, n)
		m[id] = n.ID()
	}
	for _, id := range c.faces {
		f := g.MustFace(id)
		ratios := make(map[domain.ID][2]int, len(f.Ratios))
		for k, r := range f.Ratios {
			ratios[m[k]] = r
		}
		n := tx.NewFace(mapped(f.CoFaces), ratios)
		groups(f, n)
		m[id] = n.ID()
	}
	out := make([]*topo.Block, 0, len(src))
	for _, b := range src {
		var faces [6]domain.ID
		for s, fid := range b.Faces {
			if fid != 0 {
				faces[s] = m[fid]
			}
		}
		n := tx.NewBlock([8]domain.ID(mapped(b.V[:])), faces, b.Meshing)
		groups(b, n)
		out = append(out, n)
	}
	return out, nil
}
