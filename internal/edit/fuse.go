package edit

import (
	"maps"
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// replaced returns ids with drop substituted by keep.
func replaced[S ~[]domain.ID](ids S, drop, keep domain.ID) S {
	out := slices.Clone(ids)
	for i, id := range out {
		if id == drop {
			out[i] = keep
		}
	}
	return out
}

// around collects the Edges, CoFaces and Blocks that reference vertex v
// through its CoEdges.
func around(g *topo.Graph, v *topo.Vertex) (edges, cofaces, blocks topo.IDSet) {
	for _, cid := range v.CoEdges {
		for _, eid := range g.MustCoEdge(cid).Edges {
			edges = edges.Add(eid)
			for _, fid := range g.MustEdge(eid).CoFaces {
				cofaces = cofaces.Add(fid)
			}
		}
	}
	for _, id := range cofaces {
		for _, b := range g.BlocksOfCoFace(g.MustCoFace(id)) {
			blocks = blocks.Add(b.ID())
		}
	}
	return edges, cofaces, blocks
}

// FuseVertices rewrites every reference to drop as a reference to keep and
// deletes drop. keep does not move.
func FuseVertices(tx *topo.Tx, keep, drop domain.ID) error {
	g := tx.Graph()
	k, err := g.Vertex(keep)
	if err != nil {
		return err
	}
	d, err := g.Vertex(drop)
	if err != nil {
		return err
	}
	if keep == drop {
		return domain.Newf(domain.CodeInvalidArgument, "cannot fuse vertex %s with itself", k.Name())
	}
	for _, cid := range d.CoEdges {
		if g.MustCoEdge(cid).Other(drop) == keep {
			return domain.Newf(domain.CodePrecondition, "vertices %s and %s are joined by coedge %s", k.Name(), d.Name(), g.MustCoEdge(cid).Name()).
				WithMetadata("keep", k.Name(), "drop", d.Name())
		}
	}
	_, cofaces, blocks := around(g, d)
	for _, id := range cofaces {
		if cf := g.MustCoFace(id); slices.Contains(cf.V, keep) {
			return domain.Newf(domain.CodeMismatch, "vertices %s and %s are both corners of coface %s", k.Name(), d.Name(), cf.Name()).
				WithMetadata("keep", k.Name(), "drop", d.Name())
		}
	}
	for _, id := range blocks {
		if b := g.MustBlock(id); b.Corner(keep) >= 0 {
			return domain.Newf(domain.CodeMismatch, "vertices %s and %s are both corners of block %s", k.Name(), d.Name(), b.Name()).
				WithMetadata("keep", k.Name(), "drop", d.Name())
		}
	}
	fuseInto(tx, k, d, nil, nil)
	return nil
}

// fuseInto rewires drop onto keep. CoEdges in skip are left untouched; the
// caller deletes them. Each CoFace in shrunk loses the side at the given index
// and becomes a triangle collapsed at keep.
func fuseInto(tx *topo.Tx, keep, drop *topo.Vertex, skip topo.IDSet, shrunk map[domain.ID]int) {
	g := tx.Graph()
	edges, cofaces, blocks := around(g, drop)
	for _, cid := range slices.Clone(drop.CoEdges) {
		if skip.Has(cid) {
			continue
		}
		c := g.MustCoEdge(cid)
		v := replaced(c.V[:], drop.ID(), keep.ID())
		tx.SetCoEdgeVertices(c, v[0], v[1])
	}
	for _, id := range edges {
		e := g.MustEdge(id)
		chain := slices.DeleteFunc(slices.Clone(e.CoEdges), skip.Has)
		if len(chain) == 0 {
			continue
		}
		from := e.V[0]
		if from == drop.ID() {
			from = keep.ID()
		}
		if skip.Has(e.CoEdges[0]) {
			from = keep.ID()
		}
		tx.SetEdgeChain(e, from, chain, e.Ratios)
	}
	for _, id := range cofaces {
		cf := g.MustCoFace(id)
		if s, ok := shrunk[id]; ok {
			at := func(i int) int { return (s + i) % 4 }
			tx.SetCoFaceEdges(cf,
				[]domain.ID{keep.ID(), cf.V[at(2)], cf.V[at(3)]},
				[]domain.ID{cf.Edges[at(1)], cf.Edges[at(2)], cf.Edges[at(3)]})
			continue
		}
		if slices.Contains(cf.V, drop.ID()) {
			tx.SetCoFaceEdges(cf, replaced(cf.V, drop.ID(), keep.ID()), cf.Edges)
		}
	}
	for _, id := range blocks {
		b := g.MustBlock(id)
		if b.Corner(drop.ID()) >= 0 {
			tx.SetBlockFaces(b, [8]domain.ID(replaced(b.V[:], drop.ID(), keep.ID())), b.Faces)
		}
	}
	tx.Delete(drop)
}

// Fuse2Vertices fuses drop into keep when they lie within the tolerance of env.
func Fuse2Vertices(tx *topo.Tx, env Env, keep, drop domain.ID) error {
	g := tx.Graph()
	k, err := g.Vertex(keep)
	if err != nil {
		return err
	}
	d, err := g.Vertex(drop)
	if err != nil {
		return err
	}
	if dist := k.Coord.Dist(d.Coord); dist > env.tolerance() {
		return domain.Newf(domain.CodePrecondition, "vertices %s and %s are %g apart, beyond tolerance %g", k.Name(), d.Name(), dist, env.tolerance())
	}
	return FuseVertices(tx, keep, drop)
}

// FuseCoEdges merges drop into keep. Both must carry the same number of
// segments; their ends are paired by proximity and fused first.
func FuseCoEdges(tx *topo.Tx, keep, drop domain.ID) error {
	g := tx.Graph()
	k, err := g.CoEdge(keep)
	if err != nil {
		return err
	}
	d, err := g.CoEdge(drop)
	if err != nil {
		return err
	}
	if keep == drop {
		return domain.Newf(domain.CodeInvalidArgument, "cannot fuse coedge %s with itself", k.Name())
	}
	if k.Meshing.Segments != d.Meshing.Segments {
		return domain.Newf(domain.CodeMismatch, "coedges %s and %s carry %d and %d segments", k.Name(), d.Name(), k.Meshing.Segments, d.Meshing.Segments)
	}
	pos := func(id domain.ID) domain.Point { return g.MustVertex(id).Coord }
	pairs := [2][2]domain.ID{{k.V[0], d.V[0]}, {k.V[1], d.V[1]}}
	straight := pos(k.V[0]).Dist(pos(d.V[0])) + pos(k.V[1]).Dist(pos(d.V[1]))
	crossed := pos(k.V[0]).Dist(pos(d.V[1])) + pos(k.V[1]).Dist(pos(d.V[0]))
	if crossed < straight {
		pairs = [2][2]domain.ID{{k.V[0], d.V[1]}, {k.V[1], d.V[0]}}
	}
	for _, p := range pairs {
		if p[0] != p[1] {
			if err := FuseVertices(tx, p[0], p[1]); err != nil {
				return err
			}
		}
	}
	tx.ReplaceCoEdge(d, []domain.ID{keep})
	tx.Delete(d)
	return nil
}

// FuseCoFaces merges drop into keep. Corners are paired by proximity and sides
// fused pairwise; faces using drop get keep instead.
func FuseCoFaces(tx *topo.Tx, keep, drop domain.ID) error {
	g := tx.Graph()
	k, err := g.CoFace(keep)
	if err != nil {
		return err
	}
	d, err := g.CoFace(drop)
	if err != nil {
		return err
	}
	if keep == drop {
		return domain.Newf(domain.CodeInvalidArgument, "cannot fuse coface %s with itself", k.Name())
	}
	n := len(k.V)
	if len(d.V) != n {
		return domain.Newf(domain.CodeMismatch, "cofaces %s and %s have %d and %d corners", k.Name(), d.Name(), n, len(d.V))
	}
	match := make([]int, n)
	used := make([]bool, n)
	for i, kv := range k.V {
		p := g.MustVertex(kv).Coord
		best := -1
		for j, dv := range d.V {
			if best < 0 || p.Dist(g.MustVertex(dv).Coord) < p.Dist(g.MustVertex(d.V[best]).Coord) {
				best = j
			}
		}
		if used[best] {
			return domain.Newf(domain.CodeMismatch, "corners of cofaces %s and %s do not pair up", k.Name(), d.Name())
		}
		used[best] = true
		match[i] = best
	}
	step := (match[1] - match[0] + n) % n
	if step != 1 && step != n-1 {
		return domain.Newf(domain.CodeMismatch, "corners of cofaces %s and %s are not in the same cyclic order", k.Name(), d.Name())
	}
	for i := range n {
		if (match[(i+1)%n]-match[i]+n)%n != step {
			return domain.Newf(domain.CodeMismatch, "corners of cofaces %s and %s are not in the same cyclic order", k.Name(), d.Name())
		}
	}

	// Sides are read before fusing: fusion rewires the chains in place.
	keepSides := make([]topo.Chain, n)
	dropSides := make([]topo.Chain, n)
	for s := range n {
		keepSides[s] = g.Side(k, s)
		a, b := d.V[match[s]], d.V[match[(s+1)%n]]
		ch := g.Side(d, edgeSide(d, a, b))
		if ch.Start() != a {
			ch = ch.Reversed()
		}
		dropSides[s] = ch
		if len(ch.CoEdges) != len(keepSides[s].CoEdges) {
			return domain.Newf(domain.CodeMismatch, "side %d of cofaces %s and %s holds %d and %d coedges", s, k.Name(), d.Name(), len(keepSides[s].CoEdges), len(ch.CoEdges))
		}
		for i, id := range ch.CoEdges {
			if g.MustCoEdge(id).Meshing.Segments != g.MustCoEdge(keepSides[s].CoEdges[i]).Meshing.Segments {
				return domain.Newf(domain.CodeMismatch, "side %d of cofaces %s and %s is discretized differently", s, k.Name(), d.Name())
			}
		}
	}

	invalidateMeshes(tx, d)
	for s := range n {
		for i, id := range dropSides[s].CoEdges {
			kc := keepSides[s].CoEdges[i]
			if id == kc {
				continue
			}
			if _, err := g.CoEdge(id); err != nil {
				continue
			}
			if err := FuseCoEdges(tx, kc, id); err != nil {
				return err
			}
		}
	}
	tx.ReplaceCoFace(d, []domain.ID{keep})
	tx.Collect(d)
	return nil
}

// edgeSide returns the side of cf joining corners a and b.
func edgeSide(cf *topo.CoFace, a, b domain.ID) int {
	n := len(cf.V)
	for s := range n {
		u, v := cf.V[s], cf.V[(s+1)%n]
		if (u == a && v == b) || (u == b && v == a) {
			return s
		}
	}
	domain.Invariantf("corners %s and %s are not adjacent in coface %s", a, b, cf.Name())
	return -1
}

// FuseBlocks merges drop into keep across a face they share. keep takes the
// far corners and far face of drop; the lateral faces are concatenated.
func FuseBlocks(tx *topo.Tx, keep, drop domain.ID) (*topo.Block, error) {
	g := tx.Graph()
	a, err := g.Block(keep)
	if err != nil {
		return nil, err
	}
	b, err := g.Block(drop)
	if err != nil {
		return nil, err
	}
	if keep == drop {
		return nil, domain.Newf(domain.CodeInvalidArgument, "cannot fuse block %s with itself", a.Name())
	}
	if !a.Hex() || !b.Hex() {
		return nil, domain.Newf(domain.CodePrecondition, "blocks %s and %s must both be hexahedra", a.Name(), b.Name())
	}
	sa, sb := -1, -1
	for s := range 6 {
		fa := topo.NewIDSet(g.MustFace(a.Faces[s]).CoFaces...)
		for t := range 6 {
			fb := topo.NewIDSet(g.MustFace(b.Faces[t]).CoFaces...)
			if slices.Equal(fa, fb) {
				sa, sb = s, t
			}
		}
	}
	if sa < 0 {
		return nil, domain.Newf(domain.CodeMismatch, "blocks %s and %s do not share a face", a.Name(), b.Name())
	}
	da, _ := topo.SideDir(sa)
	db, _ := topo.SideDir(sb)

	corners := a.V
	for _, slot := range topo.FaceCorners[sa] {
		cb := b.Corner(a.V[slot])
		if cb < 0 {
			return nil, domain.Newf(domain.CodeMismatch, "shared face of blocks %s and %s has unmatched corners", a.Name(), b.Name())
		}
		corners[slot] = b.V[cb^(1<<db)]
	}
	faces := a.Faces
	faces[sa] = b.Faces[sb^1]

	type merge struct{ into, from *topo.Face }
	var merges []merge
	for _, t := range topo.SidesAlong(da) {
		var pair []int
		for _, slot := range topo.FaceCorners[t] {
			if slices.Contains(topo.FaceCorners[sa][:], slot) {
				pair = append(pair, b.Corner(a.V[slot]))
			}
		}
		var tb int
		for _, s := range topo.SidesWith(pair[0], pair[1]) {
			if s != sb {
				tb = s
			}
		}
		merges = append(merges, merge{into: g.MustFace(a.Faces[t]), from: g.MustFace(b.Faces[tb])})
	}

	for _, id := range topo.NewIDSet(a.Faces[sa], b.Faces[sb]) {
		for _, cf := range g.MustFace(id).CoFaces {
			invalidateMeshes(tx, g.MustCoFace(cf))
		}
	}
	shared := []*topo.Face{g.MustFace(a.Faces[sa]), g.MustFace(b.Faces[sb])}
	tx.Delete(b)
	for _, m := range merges {
		ratios := maps.Clone(m.into.Ratios)
		if ratios == nil {
			ratios = make(map[domain.ID][2]int)
		}
		maps.Copy(ratios, m.from.Ratios)
		tx.SetFaceCoFaces(m.into, slices.Concat(m.into.CoFaces, m.from.CoFaces), ratios)
		tx.Delete(m.from)
	}
	tx.SetBlockFaces(a, corners, faces)
	for _, f := range shared {
		tx.Collect(f)
	}
	return a, nil
}
