package topo

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
)

// Block sides.
const (
	IMin = iota
	IMax
	JMin
	JMax
	KMin
	KMax
)

// FaceCorners lists the corner slots of each block side as a closed loop.
var FaceCorners = [6][4]int{
	{0, 2, 6, 4},
	{1, 3, 7, 5},
	{0, 1, 5, 4},
	{2, 3, 7, 6},
	{0, 1, 3, 2},
	{4, 5, 7, 6},
}

// BlockEdges lists, for each direction, the 4 corner pairs along it, low corner first.
var BlockEdges = [3][4][2]int{
	{{0, 1}, {2, 3}, {4, 5}, {6, 7}},
	{{0, 2}, {1, 3}, {4, 6}, {5, 7}},
	{{0, 4}, {1, 5}, {2, 6}, {3, 7}},
}

// SideOf returns the side index of direction d at the low (hi=0) or high (hi=1) end.
func SideOf(d, hi int) int { return 2*d + hi }

// SideDir splits a side index into direction and end.
func SideDir(side int) (d, hi int) { return side / 2, side % 2 }

// SidesAlong returns the 4 sides parallel to direction d.
func SidesAlong(d int) []int {
	var out []int
	for s := range 6 {
		if s/2 != d {
			out = append(out, s)
		}
	}
	return out
}

// SidesWith returns the sides containing both corner slots a and b.
func SidesWith(a, b int) []int {
	var out []int
	for s, loop := range FaceCorners {
		if slices.Contains(loop[:], a) && slices.Contains(loop[:], b) {
			out = append(out, s)
		}
	}
	return out
}

// SideCorners returns the corner ids of side s of b in loop order.
func (b *Block) SideCorners(s int) []domain.ID {
	out := make([]domain.ID, 4)
	for i, slot := range FaceCorners[s] {
		out[i] = b.V[slot]
	}
	return out
}

// BlockChain returns the CoEdges along the block edge from corner slot a to
// corner slot c. It is the common boundary of the two faces meeting there.
func (g *Graph) BlockChain(b *Block, a, c int) (Chain, error) {
	sides := SidesWith(a, c)
	if len(sides) != 2 {
		domain.Invariantf("corner slots %d and %d do not form a block edge", a, c)
	}
	f0, err := g.Face(b.Faces[sides[0]])
	if err != nil {
		return Chain{}, err
	}
	f1, err := g.Face(b.Faces[sides[1]])
	if err != nil {
		return Chain{}, err
	}
	common := g.FaceCoEdges(f0).Intersect(g.FaceCoEdges(f1))
	return g.OrderPath(common, b.V[a], b.V[c], func(id domain.ID) int { return g.FaceRatio(f0, id) })
}

// DirectionChains returns the 4 chains of b along direction d, low end first.
func (g *Graph) DirectionChains(b *Block, d int) ([4]Chain, error) {
	var out [4]Chain
	for i, pair := range BlockEdges[d] {
		ch, err := g.BlockChain(b, pair[0], pair[1])
		if err != nil {
			return out, err
		}
		out[i] = ch
	}
	return out, nil
}

// Locate finds the direction and chain of b holding coedge. It returns
// ok=false when the CoEdge is not on a block edge.
func (g *Graph) Locate(b *Block, coedge domain.ID) (d, idx int, ch Chain, ok bool, err error) {
	for d := range 3 {
		chains, err := g.DirectionChains(b, d)
		if err != nil {
			return 0, 0, Chain{}, false, err
		}
		for i, ch := range chains {
			if slices.Contains(ch.CoEdges, coedge) {
				return d, i, ch, true, nil
			}
		}
	}
	return 0, 0, Chain{}, false, nil
}

// BlockCoEdges returns every CoEdge used by the faces of b.
func (g *Graph) BlockCoEdges(b *Block) IDSet {
	var out IDSet
	for _, fid := range b.Faces {
		if fid == 0 {
			continue
		}
		for _, id := range g.FaceCoEdges(g.MustFace(fid)) {
			out = out.Add(id)
		}
	}
	return out
}

// BlockCoFaces returns every CoFace of the faces of b.
func (g *Graph) BlockCoFaces(b *Block) IDSet {
	var out IDSet
	for _, fid := range b.Faces {
		if fid == 0 {
			continue
		}
		for _, id := range g.MustFace(fid).CoFaces {
			out = out.Add(id)
		}
	}
	return out
}

// BlocksOfCoFace returns the live blocks whose faces include cf.
func (g *Graph) BlocksOfCoFace(cf *CoFace) []*Block {
	var out []*Block
	for _, fid := range cf.Faces {
		f := g.MustFace(fid)
		if f.Block == 0 {
			continue
		}
		if b, err := g.Block(f.Block); err == nil {
			out = append(out, b)
		}
	}
	return out
}

// BlocksOfCoEdge returns the live blocks using coedge, sorted by id.
func (g *Graph) BlocksOfCoEdge(c *CoEdge) []*Block {
	var ids IDSet
	for _, eid := range c.Edges {
		for _, cfid := range g.MustEdge(eid).CoFaces {
			for _, b := range g.BlocksOfCoFace(g.MustCoFace(cfid)) {
				ids = ids.Add(b.ID())
			}
		}
	}
	out := make([]*Block, len(ids))
	for i, id := range ids {
		out[i] = g.MustBlock(id)
	}
	return out
}

// Centroid returns the average of the given vertices.
func (g *Graph) Centroid(ids ...domain.ID) domain.Point {
	pts := make([]domain.Point, len(ids))
	for i, id := range ids {
		pts[i] = g.MustVertex(id).Coord
	}
	return domain.Centroid(pts...)
}

// Structured reports whether b can be meshed as a regular grid: transfinite law,
// hexahedral shape and equal segment counts on the 4 chains of each direction.
func (g *Graph) Structured(b *Block) (bool, error) {
	if !b.Meshing.Structured() || !b.Hex() {
		return false, nil
	}
	for d := range 3 {
		chains, err := g.DirectionChains(b, d)
		if err != nil {
			return false, err
		}
		for _, ch := range chains[1:] {
			if ch.Total() != chains[0].Total() {
				return false, nil
			}
		}
	}
	return true, nil
}

// CoFaceStructured reports whether opposite sides of cf carry equal counts.
func (g *Graph) CoFaceStructured(cf *CoFace) bool {
	if !cf.Structured {
		return false
	}
	if cf.Degenerate() {
		return g.Side(cf, 0).Total() == g.Side(cf, 2).Total()
	}
	return g.Side(cf, 0).Total() == g.Side(cf, 2).Total() &&
		g.Side(cf, 1).Total() == g.Side(cf, 3).Total()
}
