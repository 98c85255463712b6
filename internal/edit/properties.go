package edit

import (
	"context"
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

func lookup(g *topo.Graph, ids []domain.ID) ([]topo.Entity, error) {
	if len(ids) == 0 {
		return nil, domain.New(domain.CodeInvalidArgument, "no entity given")
	}
	out := make([]topo.Entity, 0, len(ids))
	for _, id := range topo.NewIDSet(ids...) {
		e, ok := g.Lookup(id)
		if !ok {
			return nil, domain.Newf(domain.CodeNotFound, "entity %s not found", id)
		}
		out = append(out, e)
	}
	return out, nil
}

// dropMesh clears the cached discretization of cf and of the blocks using it.
func dropMesh(tx *topo.Tx, cf *topo.CoFace) {
	if cf.Mesh != nil {
		tx.MeshModify(cf)
		cf.Mesh = nil
	}
	invalidateMeshes(tx, cf)
}

// SetEdgeMeshing changes the law of the CoEdges. The segment count must stay
// divisible by every semi-conformal ratio applied to them.
func SetEdgeMeshing(tx *topo.Tx, coedges []domain.ID, m domain.EdgeMeshing) error {
	g := tx.Graph()
	if err := m.Validate(); err != nil {
		return err
	}
	if len(coedges) == 0 {
		return domain.New(domain.CodeInvalidArgument, "no coedge given")
	}
	var targets []*topo.CoEdge
	for _, id := range topo.NewIDSet(coedges...) {
		c, err := g.CoEdge(id)
		if err != nil {
			return err
		}
		for _, eid := range c.Edges {
			if r := g.MustEdge(eid).Ratio(id); m.Segments%r != 0 {
				return domain.Newf(domain.CodePrecondition, "%d segments on coedge %s do not divide by ratio %d of edge %s", m.Segments, c.Name(), r, g.MustEdge(eid).Name())
			}
		}
		targets = append(targets, c)
	}
	for _, c := range targets {
		tx.MeshModify(c)
		c.Meshing = m
		c.Points = nil
		for _, eid := range c.Edges {
			for _, cfid := range g.MustEdge(eid).CoFaces {
				dropMesh(tx, g.MustCoFace(cfid))
			}
		}
	}
	return nil
}

// SetBlockMeshing changes the meshing law of the blocks.
func SetBlockMeshing(tx *topo.Tx, blocks []domain.ID, m domain.BlockMeshing) error {
	if err := m.Validate(); err != nil {
		return err
	}
	bs, err := lookupBlocks(tx.Graph(), blocks)
	if err != nil {
		return err
	}
	for _, b := range bs {
		tx.MeshModify(b)
		b.Meshing = m
		b.Mesh = nil
	}
	return nil
}

// SetGroup adds the entities to group.
func SetGroup(tx *topo.Tx, ids []domain.ID, group string) error {
	if group == "" {
		return domain.New(domain.CodeInvalidArgument, "group name is empty")
	}
	es, err := lookup(tx.Graph(), ids)
	if err != nil {
		return err
	}
	for _, e := range es {
		p := e.Props()
		if slices.Contains(p.Groups, group) {
			continue
		}
		tx.Modify(e)
		p.Groups = append(p.Groups, group)
		slices.Sort(p.Groups)
	}
	return nil
}

// UnsetGroup removes the entities from group.
func UnsetGroup(tx *topo.Tx, ids []domain.ID, group string) error {
	es, err := lookup(tx.Graph(), ids)
	if err != nil {
		return err
	}
	for _, e := range es {
		p := e.Props()
		if i := slices.Index(p.Groups, group); i >= 0 {
			tx.Modify(e)
			p.Groups = slices.Delete(p.Groups, i, i+1)
		}
	}
	return nil
}

// SetVertexCoord moves a vertex.
func SetVertexCoord(tx *topo.Tx, vertex domain.ID, p domain.Point) error {
	v, err := tx.Graph().Vertex(vertex)
	if err != nil {
		return err
	}
	tx.Modify(v)
	v.Coord = p
	return nil
}

// AssociateGeometry ties the entities to ref. An empty ref removes the
// association. With an oracle in env, the dimension of ref is checked against
// the model.
func AssociateGeometry(ctx context.Context, tx *topo.Tx, env Env, ids []domain.ID, ref domain.GeomRef) error {
	es, err := lookup(tx.Graph(), ids)
	if err != nil {
		return err
	}
	if !ref.IsZero() {
		if env.Oracle != nil {
			dim, err := env.Oracle.Dimension(ctx, ref)
			if err != nil {
				return domain.Wrap(domain.CodeExternal, "geometry oracle failed", err).WithMetadata("geometry", ref.Name)
			}
			if dim != ref.Dim {
				return domain.Newf(domain.CodeInvalidArgument, "geometry %s has dimension %d, not %d", ref.Name, dim, ref.Dim)
			}
		}
		for _, e := range es {
			if !ref.Compatible(e.Kind()) {
				return domain.Newf(domain.CodePrecondition, "%s %s cannot lie on geometry %s of dimension %d", e.Kind(), e.Name(), ref.Name, ref.Dim)
			}
		}
	}
	for _, e := range es {
		tx.Modify(e)
		e.Props().Geom = ref
	}
	return nil
}

// ProjectVertices moves each vertex onto its associated geometry. Vertices
// without association stay where they are.
func ProjectVertices(ctx context.Context, tx *topo.Tx, env Env, vertices []domain.ID) error {
	g := tx.Graph()
	if env.Oracle == nil {
		return domain.New(domain.CodePrecondition, "projection needs a geometry oracle")
	}
	if len(vertices) == 0 {
		return domain.New(domain.CodeInvalidArgument, "no vertex given")
	}
	for _, id := range topo.NewIDSet(vertices...) {
		v, err := g.Vertex(id)
		if err != nil {
			return err
		}
		if v.Geom.IsZero() {
			continue
		}
		p, err := env.Oracle.Project(ctx, v.Geom, v.Coord)
		if err != nil {
			return domain.Wrap(domain.CodeExternal, "geometry oracle failed", err).WithMetadata("vertex", v.Name())
		}
		tx.Modify(v)
		v.Coord = p
	}
	return nil
}
