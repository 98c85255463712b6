package edit

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// ogridBlock is the classification of one selected block.
type ogridBlock struct {
	b        *topo.Block
	boundary [6]bool
	// crossed holds the CoFace of each non-boundary side.
	crossed [6]*topo.CoFace
	// inner is the direction of the non-boundary sides, or -1.
	inner  int
	chains map[[2]int]topo.Chain
}

// chain returns the block edge from slot a to slot c.
func (ob ogridBlock) chain(a, c int) topo.Chain {
	if ch, ok := ob.chains[[2]int{a, c}]; ok {
		return ch
	}
	return ob.chains[[2]int{c, a}].Reversed()
}

type innerKey struct {
	corner domain.ID
	anchor [8]domain.ID
}

// ogrid holds the entities shared between the blocks of one O-grid insertion.
type ogrid struct {
	tx     *topo.Tx
	ratio  float64
	layers int

	inner    map[innerKey]domain.ID
	radial   map[[2]domain.ID]domain.ID
	ring     map[[2]domain.ID]domain.ID
	quads    map[[4]domain.ID]domain.ID
	laterals map[[4]domain.ID]domain.ID
}

func (o *ogrid) vertex(corner domain.ID, anchor []domain.ID) domain.ID {
	key := innerKey{corner: corner}
	copy(key.anchor[:], slices.Sorted(slices.Values(anchor)))
	if id, ok := o.inner[key]; ok {
		return id
	}
	g := o.tx.Graph()
	c := g.Centroid(anchor...)
	p := g.MustVertex(corner).Coord
	id := o.tx.NewVertex(c.Add(p.Sub(c).Scale(o.ratio))).ID()
	o.inner[key] = id
	return id
}

func (o *ogrid) radialCoEdge(corner, inner domain.ID) domain.ID {
	key := [2]domain.ID{corner, inner}
	if id, ok := o.radial[key]; ok {
		return id
	}
	id := o.tx.NewCoEdge(corner, inner, domain.Uniform(o.layers)).ID()
	o.radial[key] = id
	return id
}

// ringCoEdge joins the inner vertices ia and ib, discretized like outer, the
// chain between their corners.
func (o *ogrid) ringCoEdge(ia, ib domain.ID, outer topo.Chain) domain.ID {
	key := [2]domain.ID{min(ia, ib), max(ia, ib)}
	if id, ok := o.ring[key]; ok {
		return id
	}
	id := o.tx.NewCoEdge(ia, ib, cutMeshing(o.tx.Graph(), outer)).ID()
	o.ring[key] = id
	return id
}

func single(tx *topo.Tx, from, coedge domain.ID) domain.ID {
	return tx.NewEdge(from, []domain.ID{coedge}, nil).ID()
}

// quad returns the CoFace joining 4 inner vertices in loop order, together
// with the chains of the outer corners they shrink.
func (o *ogrid) quad(inner []domain.ID, outer []topo.Chain) domain.ID {
	key := [4]domain.ID(slices.Sorted(slices.Values(inner)))
	if id, ok := o.quads[key]; ok {
		return id
	}
	edges := make([]domain.ID, 4)
	for s := range 4 {
		a, b := inner[s], inner[(s+1)%4]
		edges[s] = single(o.tx, a, o.ringCoEdge(a, b, outer[s]))
	}
	id := o.tx.NewCoFace(inner, edges, true).ID()
	o.quads[key] = id
	return id
}

// lateral returns the CoFace [a, b, ib, ia] between the outer chain a→b and
// its shrunk copy. outerEdge bounds it on the a→b side.
func (o *ogrid) lateral(a, b, ia, ib domain.ID, outer topo.Chain, outerEdge func() domain.ID) domain.ID {
	key := [4]domain.ID(slices.Sorted(slices.Values([]domain.ID{a, b, ia, ib})))
	if id, ok := o.laterals[key]; ok {
		return id
	}
	tx := o.tx
	edges := []domain.ID{
		outerEdge(),
		single(tx, b, o.radialCoEdge(b, ib)),
		single(tx, ib, o.ringCoEdge(ia, ib, outer)),
		single(tx, ia, o.radialCoEdge(a, ia)),
	}
	id := tx.NewCoFace([]domain.ID{a, b, ib, ia}, edges, true).ID()
	o.laterals[key] = id
	return id
}

// SplitBlocksWithOgrid inserts an O-grid in each listed block. A side whose
// CoFaces are all in cofaces and that no other listed block shares becomes a
// ring block; the other sides, all along one direction, are cut into a centre
// quad surrounded by strips. The rest of each block becomes its centre block,
// shrunk by ratio towards the centroid. Radial CoEdges carry layers segments.
func SplitBlocksWithOgrid(tx *topo.Tx, blocks, cofaces []domain.ID, ratio float64, layers int) ([]*topo.Block, error) {
	g := tx.Graph()
	if err := checkRatio(ratio); err != nil {
		return nil, err
	}
	if layers < 1 {
		return nil, domain.Newf(domain.CodeInvalidArgument, "o-grid needs at least one layer, got %d", layers)
	}
	if len(blocks) == 0 {
		return nil, domain.New(domain.CodeInvalidArgument, "no block to o-grid")
	}
	selected := topo.NewIDSet(blocks...)
	chosen := topo.NewIDSet(cofaces...)
	for _, id := range chosen {
		if _, err := g.CoFace(id); err != nil {
			return nil, err
		}
	}

	var work []ogridBlock
	var nonBoundary topo.IDSet
	for _, id := range selected {
		ob, err := classifyOgrid(g, id, selected, chosen)
		if err != nil {
			return nil, err
		}
		for s := range 6 {
			if x := ob.crossed[s]; x != nil {
				nonBoundary = nonBoundary.Add(x.ID())
			}
		}
		work = append(work, ob)
	}

	o := &ogrid{
		tx:       tx,
		ratio:    ratio,
		layers:   layers,
		inner:    make(map[innerKey]domain.ID),
		radial:   make(map[[2]domain.ID]domain.ID),
		ring:     make(map[[2]domain.ID]domain.ID),
		quads:    make(map[[4]domain.ID]domain.ID),
		laterals: make(map[[4]domain.ID]domain.ID),
	}

	for _, id := range nonBoundary {
		o.splitCoFace(g.MustCoFace(id))
	}

	var out []*topo.Block
	for _, ob := range work {
		out = append(out, o.replace(ob)...)
	}
	return out, nil
}

func classifyOgrid(g *topo.Graph, id domain.ID, selected, chosen topo.IDSet) (ogridBlock, error) {
	b, err := g.Block(id)
	if err != nil {
		return ogridBlock{}, err
	}
	ok, err := g.Structured(b)
	if err != nil {
		return ogridBlock{}, err
	}
	if !ok {
		return ogridBlock{}, domain.Newf(domain.CodePrecondition, "block %s is not a structured hexahedron", b.Name())
	}
	ob := ogridBlock{b: b, inner: -1, chains: make(map[[2]int]topo.Chain, 12)}
	for d := range 3 {
		chains, err := g.DirectionChains(b, d)
		if err != nil {
			return ob, err
		}
		for i, pair := range topo.BlockEdges[d] {
			ob.chains[pair] = chains[i]
		}
	}

	count := 0
	for s := range 6 {
		f := g.MustFace(b.Faces[s])
		boundary := true
		for _, cid := range f.CoFaces {
			if !chosen.Has(cid) {
				boundary = false
			}
			for _, other := range g.BlocksOfCoFace(g.MustCoFace(cid)) {
				if other.ID() != b.ID() && selected.Has(other.ID()) {
					boundary = false
				}
			}
		}
		ob.boundary[s] = boundary
		if boundary {
			count++
			continue
		}
		d, _ := topo.SideDir(s)
		if ob.inner >= 0 && ob.inner != d {
			return ob, domain.Newf(domain.CodePrecondition, "block %s has adjacent sides outside the o-grid", b.Name())
		}
		ob.inner = d
		if len(f.CoFaces) != 1 {
			return ob, domain.Newf(domain.CodePrecondition, "face %s of block %s must be a single coface to be crossed by the o-grid", f.Name(), b.Name())
		}
		x := g.MustCoFace(f.CoFaces[0])
		if x.Degenerate() {
			return ob, domain.Newf(domain.CodePrecondition, "face %s of block %s is degenerate", f.Name(), b.Name())
		}
		ob.crossed[s] = x
	}
	if count == 0 {
		return ob, domain.Newf(domain.CodePrecondition, "block %s has no boundary side", b.Name())
	}
	return ob, nil
}

// innerOf returns the inner vertex of the corner in slot of ob. Corners on a
// side crossed by the O-grid shrink towards that side's centre.
func (o *ogrid) innerOf(ob ogridBlock, slot int) domain.ID {
	corner := ob.b.V[slot]
	if d := ob.inner; d >= 0 {
		s := topo.SideOf(d, slot>>d&1)
		if x := ob.crossed[s]; x != nil {
			return o.vertex(corner, x.V)
		}
	}
	return o.vertex(corner, ob.b.V[:])
}

// splitCoFace cuts x into a centre quad and one strip per side.
func (o *ogrid) splitCoFace(x *topo.CoFace) {
	tx := o.tx
	g := tx.Graph()
	invalidateMeshes(tx, x)
	inner := make([]domain.ID, 4)
	sides := make([]topo.Chain, 4)
	for j, v := range x.V {
		inner[j] = o.vertex(v, x.V)
		sides[j] = g.Side(x, j)
	}
	parts := []domain.ID{o.quad(inner, sides)}
	for j := range 4 {
		edge := x.Edges[j]
		parts = append(parts, o.lateral(x.V[j], x.V[(j+1)%4], inner[j], inner[(j+1)%4], sides[j],
			func() domain.ID { return edge }))
	}
	for _, id := range parts {
		inherit(x, g.MustCoFace(id))
	}
	tx.ReplaceCoFace(x, parts)
	tx.Delete(x)
}

// replace swaps ob's block for its ring blocks and centre block.
func (o *ogrid) replace(ob ogridBlock) []*topo.Block {
	tx := o.tx
	g := tx.Graph()
	b := ob.b

	var inner [8]domain.ID
	for slot := range 8 {
		inner[slot] = o.innerOf(ob, slot)
	}
	innerQuad := func(s int) domain.ID {
		loop := topo.FaceCorners[s]
		vs := make([]domain.ID, 4)
		chains := make([]topo.Chain, 4)
		for i, slot := range loop {
			vs[i] = inner[slot]
			chains[i] = ob.chain(slot, loop[(i+1)%4])
		}
		return o.quad(vs, chains)
	}
	lateral := func(a, c int) domain.ID {
		ch := ob.chain(a, c)
		return o.lateral(b.V[a], b.V[c], inner[a], inner[c], ch,
			func() domain.ID { return newEdge(tx, ch).ID() })
	}
	face := func(cf domain.ID) domain.ID {
		return tx.NewFace([]domain.ID{cf}, nil).ID()
	}

	old := b.Faces
	tx.Delete(b)
	var out []*topo.Block
	for s := range 6 {
		if !ob.boundary[s] {
			continue
		}
		d, h := topo.SideDir(s)
		var corners [8]domain.ID
		for slot := range 8 {
			if slot>>d&1 == h {
				corners[slot] = b.V[slot]
			} else {
				corners[slot] = inner[slot^(1<<d)]
			}
		}
		var faces [6]domain.ID
		faces[s] = old[s]
		faces[s^1] = face(innerQuad(s))
		for _, t := range topo.SidesAlong(d) {
			var pair []int
			for _, slot := range topo.FaceCorners[t] {
				if slices.Contains(topo.FaceCorners[s][:], slot) {
					pair = append(pair, slot)
				}
			}
			faces[t] = face(lateral(pair[0], pair[1]))
		}
		out = append(out, tx.NewBlock(corners, faces, b.Meshing))
	}

	var faces [6]domain.ID
	for s := range 6 {
		faces[s] = face(innerQuad(s))
	}
	out = append(out, tx.NewBlock(inner, faces, b.Meshing))

	for _, nb := range out {
		inherit(b, nb)
	}
	for s, fid := range old {
		if !ob.boundary[s] {
			tx.Delete(g.MustFace(fid))
		}
	}
	return out
}
