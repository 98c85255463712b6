package edit

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// builder creates conformal hexahedral blocks sharing vertices, coedges and
// cofaces by their corner ids.
type builder struct {
	tx      *topo.Tx
	m       domain.EdgeMeshing
	coedges map[[2]domain.ID]domain.ID
	cofaces map[[4]domain.ID]domain.ID
}

func newBuilder(tx *topo.Tx, m domain.EdgeMeshing) *builder {
	return &builder{
		tx:      tx,
		m:       m,
		coedges: make(map[[2]domain.ID]domain.ID),
		cofaces: make(map[[4]domain.ID]domain.ID),
	}
}

func (b *builder) coedge(a, c domain.ID) domain.ID {
	key := [2]domain.ID{min(a, c), max(a, c)}
	if id, ok := b.coedges[key]; ok {
		return id
	}
	id := b.tx.NewCoEdge(a, c, b.m).ID()
	b.coedges[key] = id
	return id
}

func (b *builder) quad(corners []domain.ID) domain.ID {
	key := [4]domain.ID(slices.Sorted(slices.Values(corners)))
	if id, ok := b.cofaces[key]; ok {
		return id
	}
	edges := make([]domain.ID, 4)
	for s := range 4 {
		a, c := corners[s], corners[(s+1)%4]
		edges[s] = b.tx.NewEdge(a, []domain.ID{b.coedge(a, c)}, nil).ID()
	}
	id := b.tx.NewCoFace(corners, edges, true).ID()
	b.cofaces[key] = id
	return id
}

func (b *builder) block(corners [8]domain.ID, m domain.BlockMeshing) *topo.Block {
	var faces [6]domain.ID
	for s, loop := range topo.FaceCorners {
		cs := make([]domain.ID, 4)
		for i, slot := range loop {
			cs[i] = corners[slot]
		}
		faces[s] = b.tx.NewFace([]domain.ID{b.quad(cs)}, nil).ID()
	}
	return b.tx.NewBlock(corners, faces, m)
}

func checkBox(lo, hi domain.Point, nb int) error {
	if nb < 1 {
		return domain.Newf(domain.CodeInvalidArgument, "segment count must be positive, got %d", nb)
	}
	if lo.X >= hi.X || lo.Y >= hi.Y || lo.Z >= hi.Z {
		return domain.Newf(domain.CodeInvalidArgument, "box min %v must be below max %v on every axis", lo, hi)
	}
	return nil
}

// NewBlock creates an axis-aligned hexahedral block between lo and hi whose
// 12 CoEdges carry nb uniform segments.
func NewBlock(tx *topo.Tx, lo, hi domain.Point, nb int) (*topo.Block, error) {
	blocks, err := NewBlockGrid(tx, lo, hi, 1, 1, 1, nb)
	if err != nil {
		return nil, err
	}
	return blocks[0], nil
}

// NewBlockGrid creates nx×ny×nz conformal blocks filling the box between lo
// and hi. Adjacent blocks share their vertices, coedges and cofaces; each
// block owns its faces. Blocks are returned in i, j, k order.
func NewBlockGrid(tx *topo.Tx, lo, hi domain.Point, nx, ny, nz, nb int) ([]*topo.Block, error) {
	if err := checkBox(lo, hi, nb); err != nil {
		return nil, err
	}
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, domain.Newf(domain.CodeInvalidArgument, "grid dimensions must be positive, got %dx%dx%d", nx, ny, nz)
	}
	step := hi.Sub(lo)
	step = domain.Point{X: step.X / float64(nx), Y: step.Y / float64(ny), Z: step.Z / float64(nz)}
	index := func(i, j, k int) int { return i + (nx+1)*(j+(ny+1)*k) }

	verts := make([]domain.ID, (nx+1)*(ny+1)*(nz+1))
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				p := lo.Add(domain.Point{X: float64(i) * step.X, Y: float64(j) * step.Y, Z: float64(k) * step.Z})
				verts[index(i, j, k)] = tx.NewVertex(p).ID()
			}
		}
	}

	bld := newBuilder(tx, domain.Uniform(nb))
	var out []*topo.Block
	for k := range nz {
		for j := range ny {
			for i := range nx {
				var corners [8]domain.ID
				for c := range 8 {
					corners[c] = verts[index(i+c&1, j+c>>1&1, k+c>>2&1)]
				}
				out = append(out, bld.block(corners, domain.BlockMeshing{Law: domain.LawTransfinite}))
			}
		}
	}
	return out, nil
}

// NewCoFace creates a standalone CoFace from 4 corners, or a degenerate one
// from 3 corners collapsed at the first. Every side carries nb segments.
func NewCoFace(tx *topo.Tx, corners []domain.Point, nb int) (*topo.CoFace, error) {
	n := len(corners)
	if n != 3 && n != 4 {
		return nil, domain.Newf(domain.CodeInvalidArgument, "a coface needs 3 or 4 corners, got %d", n)
	}
	if nb < 1 {
		return nil, domain.Newf(domain.CodeInvalidArgument, "segment count must be positive, got %d", nb)
	}
	for i := range corners {
		for j := i + 1; j < n; j++ {
			if corners[i].Dist(corners[j]) == 0 {
				return nil, domain.Newf(domain.CodeInvalidArgument, "corners %d and %d coincide", i, j)
			}
		}
	}
	ids := make([]domain.ID, n)
	for i, p := range corners {
		ids[i] = tx.NewVertex(p).ID()
	}
	edges := make([]domain.ID, n)
	for s := range n {
		a, c := ids[s], ids[(s+1)%n]
		coedge := tx.NewCoEdge(a, c, domain.Uniform(nb))
		edges[s] = tx.NewEdge(a, []domain.ID{coedge.ID()}, nil).ID()
	}
	return tx.NewCoFace(ids, edges, true), nil
}
