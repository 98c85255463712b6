package edit

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// SnapVertices merges b into a when they lie within the snap tolerance of env.
// a moves to the midpoint unless projectOnFirst is set. A CoEdge joining them
// collapses, and each quad bounded by it becomes a triangle collapsed at a.
func SnapVertices(tx *topo.Tx, env Env, a, b domain.ID, projectOnFirst bool) error {
	g := tx.Graph()
	va, err := g.Vertex(a)
	if err != nil {
		return err
	}
	vb, err := g.Vertex(b)
	if err != nil {
		return err
	}
	if a == b {
		return domain.Newf(domain.CodeInvalidArgument, "cannot snap vertex %s onto itself", va.Name())
	}
	if dist := va.Coord.Dist(vb.Coord); dist > env.snapTolerance() {
		return domain.Newf(domain.CodePrecondition, "vertices %s and %s are %g apart, beyond snap tolerance %g", va.Name(), vb.Name(), dist, env.snapTolerance())
	}

	var joining topo.IDSet
	for _, id := range va.CoEdges {
		if g.MustCoEdge(id).Other(a) == b {
			joining = joining.Add(id)
		}
	}
	// Edges made only of joining CoEdges vanish with them.
	var collapsed topo.IDSet
	for _, cid := range joining {
		for _, eid := range g.MustCoEdge(cid).Edges {
			if !slices.ContainsFunc(g.MustEdge(eid).CoEdges, func(id domain.ID) bool { return !joining.Has(id) }) {
				collapsed = collapsed.Add(eid)
			}
		}
	}
	shrunk := make(map[domain.ID]int)
	for _, eid := range collapsed {
		for _, cfid := range g.MustEdge(eid).CoFaces {
			cf := g.MustCoFace(cfid)
			if cf.Degenerate() {
				return domain.Newf(domain.CodePrecondition, "snapping %s onto %s would collapse triangle %s", vb.Name(), va.Name(), cf.Name())
			}
			if _, twice := shrunk[cfid]; twice {
				return domain.Newf(domain.CodePrecondition, "snapping %s onto %s would collapse two sides of %s", vb.Name(), va.Name(), cf.Name())
			}
			shrunk[cfid] = cf.Side(eid)
		}
	}

	_, touching, _ := around(g, vb)
	for _, cfid := range touching {
		if _, ok := shrunk[cfid]; ok {
			continue
		}
		if cf := g.MustCoFace(cfid); slices.Contains(cf.V, a) {
			return domain.Newf(domain.CodeMismatch, "vertices %s and %s are opposite corners of coface %s", va.Name(), vb.Name(), cf.Name())
		}
	}

	if !projectOnFirst {
		tx.Modify(va)
		va.Coord = va.Coord.Lerp(vb.Coord, 0.5)
	}
	for cfid := range shrunk {
		cf := g.MustCoFace(cfid)
		invalidateMeshes(tx, cf)
		if cf.Mesh != nil {
			tx.MeshModify(cf)
			cf.Mesh = nil
		}
	}
	fuseInto(tx, va, vb, joining, shrunk)
	for _, eid := range collapsed {
		tx.Delete(g.MustEdge(eid))
	}
	for _, cid := range joining {
		tx.Delete(g.MustCoEdge(cid))
	}
	return nil
}
