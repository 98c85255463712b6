package edit

import (
	"math"
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// splitResult describes one block split.
type splitResult struct {
	Low, High *topo.Block
	// Cut lists the CoEdges created across the faces of the block.
	Cut []domain.ID
}

// SplitBlock cuts a structured block in two through the CoEdge pivot. The cut
// lies ratio along pivot, measured from its first vertex, and runs across the
// block perpendicular to the block edge holding pivot.
func SplitBlock(tx *topo.Tx, block, pivot domain.ID, ratio float64) (low, high *topo.Block, err error) {
	g := tx.Graph()
	b, err := g.Block(block)
	if err != nil {
		return nil, nil, err
	}
	d, k, err := splitIndex(g, b, pivot, ratio)
	if err != nil {
		return nil, nil, err
	}
	res, err := splitAt(tx, b, d, k)
	if err != nil {
		return nil, nil, err
	}
	return res.Low, res.High, nil
}

// SplitBlockAtPoint is SplitBlock with the ratio taken from the projection
// of p onto pivot.
func SplitBlockAtPoint(tx *topo.Tx, block, pivot domain.ID, p domain.Point) (low, high *topo.Block, err error) {
	ratio, err := pointRatio(tx.Graph(), pivot, p)
	if err != nil {
		return nil, nil, err
	}
	return SplitBlock(tx, block, pivot, ratio)
}

func pointRatio(g *topo.Graph, pivot domain.ID, p domain.Point) (float64, error) {
	c, err := g.CoEdge(pivot)
	if err != nil {
		return 0, err
	}
	a, b := g.MustVertex(c.V[0]).Coord, g.MustVertex(c.V[1]).Coord
	return domain.ProjectParam(a, b, p), nil
}

// splitIndex converts a pivot and ratio into a direction of b and a cut
// position in units from the low end of that direction.
func splitIndex(g *topo.Graph, b *topo.Block, pivot domain.ID, ratio float64) (d, k int, err error) {
	if err := checkRatio(ratio); err != nil {
		return 0, 0, err
	}
	c, err := g.CoEdge(pivot)
	if err != nil {
		return 0, 0, err
	}
	ok, err := g.Structured(b)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, domain.Newf(domain.CodePrecondition, "block %s is not a structured hexahedron", b.Name())
	}
	d, _, ch, found, err := g.Locate(b, pivot)
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return 0, 0, domain.Newf(domain.CodePrecondition, "coedge %s is not on an edge of block %s", c.Name(), b.Name())
	}
	k, err = pivotUnits(g, ch, pivot, ratio)
	if err != nil {
		return 0, 0, err
	}
	return d, k, nil
}

// pivotUnits converts a ratio along pivot, measured from its first vertex,
// into units from the start of ch. The result must fall strictly inside ch.
func pivotUnits(g *topo.Graph, ch topo.Chain, pivot domain.ID, ratio float64) (int, error) {
	c := g.MustCoEdge(pivot)
	i := slices.Index(ch.CoEdges, pivot)
	off, _ := ch.Offset(ch.Vertices[i])
	j := int(math.Round(ratio * float64(c.Meshing.Segments)))
	if c.V[0] != ch.Vertices[i] {
		j = c.Meshing.Segments - j
	}
	k := off + int(math.Round(float64(j)/float64(ch.Ratios[i])))
	if k <= 0 || k >= ch.Total() {
		return 0, domain.Newf(domain.CodePrecondition, "ratio %g on coedge %s falls on a chain end", ratio, c.Name())
	}
	return k, nil
}

// splitAt cuts b across direction d, k units from its low end.
func splitAt(tx *topo.Tx, b *topo.Block, d, k int) (splitResult, error) {
	g := tx.Graph()
	chains, err := g.DirectionChains(b, d)
	if err != nil {
		return splitResult{}, err
	}
	if k <= 0 || k >= chains[0].Total() {
		return splitResult{}, domain.Newf(domain.CodePrecondition, "cut at %d is outside block %s", k, b.Name())
	}

	sides := topo.SidesAlong(d)
	lowEdges := make(map[int]topo.Chain, 4)
	for _, s := range sides {
		var slots []int
		for _, slot := range topo.FaceCorners[s] {
			if slot>>d&1 == 0 {
				slots = append(slots, slot)
			}
		}
		ch, err := g.BlockChain(b, slots[0], slots[1])
		if err != nil {
			return splitResult{}, err
		}
		lowEdges[s] = ch
	}
	layouts := make(map[int]faceLayout, 4)
	for _, s := range sides {
		lay, err := layoutFace(g, g.MustFace(b.Faces[s]), lowEdges[s])
		if err != nil {
			return splitResult{}, err
		}
		layouts[s] = lay
	}

	var cuts [4]domain.ID
	for i, ch := range chains {
		cuts[i] = cutChain(tx, ch, k)
	}

	var res splitResult
	loFaces := make(map[int]*topo.Face, 4)
	hiFaces := make(map[int]*topo.Face, 4)
	for _, s := range sides {
		f := g.MustFace(b.Faces[s])
		lay := layouts[s]
		var lo, hi []domain.ID
		for _, id := range slices.Clone(f.CoFaces) {
			switch {
			case lay.uhi(id) <= k:
				lo = append(lo, id)
			case lay.ulo[id] >= k:
				hi = append(hi, id)
			default:
				l, h, n, err := splitQuad(tx, g.MustCoFace(id), lay.low[id], k-lay.ulo[id])
				if err != nil {
					return res, err
				}
				lo = append(lo, l.ID())
				hi = append(hi, h.ID())
				res.Cut = append(res.Cut, n)
			}
		}
		loFaces[s] = tx.NewFace(lo, ratiosOf(f, lo))
		hiFaces[s] = tx.NewFace(hi, ratiosOf(f, hi))
		inherit(f, loFaces[s], hiFaces[s])
	}

	// The interior CoFace joins the 4 cuts; its sides follow the cut lines.
	order := [4]int{0, 1, 3, 2}
	loop := make([]domain.ID, 4)
	edges := make([]domain.ID, 4)
	for i := range 4 {
		from, to := order[i], order[(i+1)%4]
		loop[i] = cuts[from]
		a, c := topo.BlockEdges[d][from][0], topo.BlockEdges[d][to][0]
		var side int
		for _, s := range sides {
			if slices.Contains(topo.FaceCorners[s][:], a) && slices.Contains(topo.FaceCorners[s][:], c) {
				side = s
			}
		}
		lf, hf := loFaces[side], hiFaces[side]
		common := g.FaceCoEdges(lf).Intersect(g.FaceCoEdges(hf))
		line, err := g.OrderPath(common, cuts[from], cuts[to], func(id domain.ID) int { return g.FaceRatio(lf, id) })
		if err != nil {
			return res, err
		}
		edges[i] = newEdge(tx, line).ID()
	}
	inner := tx.NewCoFace(loop, edges, true)
	innerLo := tx.NewFace([]domain.ID{inner.ID()}, nil)
	innerHi := tx.NewFace([]domain.ID{inner.ID()}, nil)

	var loV, hiV [8]domain.ID
	for i, pair := range topo.BlockEdges[d] {
		loV[pair[0]], loV[pair[1]] = b.V[pair[0]], cuts[i]
		hiV[pair[0]], hiV[pair[1]] = cuts[i], b.V[pair[1]]
	}
	var loF, hiF [6]domain.ID
	loF[topo.SideOf(d, 0)], loF[topo.SideOf(d, 1)] = b.Faces[topo.SideOf(d, 0)], innerLo.ID()
	hiF[topo.SideOf(d, 0)], hiF[topo.SideOf(d, 1)] = innerHi.ID(), b.Faces[topo.SideOf(d, 1)]
	var old []domain.ID
	for _, s := range sides {
		loF[s], hiF[s] = loFaces[s].ID(), hiFaces[s].ID()
		old = append(old, b.Faces[s])
	}

	tx.Delete(b)
	res.Low = tx.NewBlock(loV, loF, b.Meshing)
	res.High = tx.NewBlock(hiV, hiF, b.Meshing)
	inherit(b, res.Low, res.High)
	for _, id := range old {
		tx.Delete(g.MustFace(id))
	}
	return res, nil
}

// SplitBlocks splits the block holding pivot, then extends the cut through
// every listed block that a cut CoEdge enters, until no listed block is
// crossed by a cut. An empty list means every block. It returns the blocks
// created by the splits that are still alive.
func SplitBlocks(tx *topo.Tx, blocks []domain.ID, pivot domain.ID, ratio float64) ([]*topo.Block, error) {
	g := tx.Graph()
	listed := topo.NewIDSet(blocks...)
	if len(blocks) == 0 {
		listed = topo.NewIDSet(idsOf(g.Blocks())...)
	}
	if _, err := g.CoEdge(pivot); err != nil {
		return nil, err
	}

	var first *topo.Block
	for _, id := range listed {
		b, err := g.Block(id)
		if err != nil {
			return nil, err
		}
		if _, _, _, ok, err := g.Locate(b, pivot); err != nil {
			return nil, err
		} else if ok {
			first = b
			break
		}
	}
	if first == nil {
		return nil, domain.Newf(domain.CodePrecondition, "no listed block holds coedge %s on an edge", g.MustCoEdge(pivot).Name())
	}
	d, k, err := splitIndex(g, first, pivot, ratio)
	if err != nil {
		return nil, err
	}
	res, err := splitAt(tx, first, d, k)
	if err != nil {
		return nil, err
	}

	var created topo.IDSet
	record := func(old *topo.Block, r splitResult) {
		listed = listed.Remove(old.ID()).Add(r.Low.ID()).Add(r.High.ID())
		created = created.Add(r.Low.ID()).Add(r.High.ID())
	}
	record(first, res)
	pending := topo.NewIDSet(res.Cut...)

	for {
		progress := false
		for _, id := range listed.Clone() {
			b, err := g.Block(id)
			if err != nil {
				continue
			}
			for _, n := range pending.Intersect(g.BlockCoEdges(b)) {
				d, k, ok, err := extendTarget(g, b, n)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				r, err := splitAt(tx, b, d, k)
				if err != nil {
					return nil, err
				}
				record(b, r)
				for _, c := range r.Cut {
					pending = pending.Add(c)
				}
				progress = true
				break
			}
			if progress {
				break
			}
		}
		if !progress {
			break
		}
	}

	var out []*topo.Block
	for _, id := range created {
		if b, err := g.Block(id); err == nil {
			out = append(out, b)
		}
	}
	return out, nil
}

// extendTarget finds how b must be split so that the cut CoEdge n continues
// through it: n must cross a direction of b, one of its ends lying strictly
// inside a chain of that direction.
func extendTarget(g *topo.Graph, b *topo.Block, n domain.ID) (d, k int, ok bool, err error) {
	c := g.MustCoEdge(n)
	for d := range 3 {
		chains, err := g.DirectionChains(b, d)
		if err != nil {
			return 0, 0, false, err
		}
		on := false
		for _, ch := range chains {
			if slices.Contains(ch.CoEdges, n) {
				on = true
			}
		}
		if on {
			continue
		}
		for _, v := range c.V {
			for _, ch := range chains {
				if off, found := ch.Offset(v); found && off > 0 && off < ch.Total() {
					return d, off, true, nil
				}
			}
		}
	}
	return 0, 0, false, nil
}
