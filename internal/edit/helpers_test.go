package edit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
	"github.com/aretw0/topoedit/pkg/ports"
	"github.com/aretw0/topoedit/pkg/topo"
)

type fixture struct {
	g     *topo.Graph
	names *naming.Manager
}

func newFixture() *fixture {
	return &fixture{g: topo.NewGraph(), names: naming.NewManager()}
}

// apply runs fn in a transaction and commits it, failing the test on error
// or on a broken invariant.
func (f *fixture) apply(t *testing.T, fn func(tx *topo.Tx) error) {
	t.Helper()
	tx := topo.NewTx(f.g, f.names)
	require.NoError(t, fn(tx))
	tx.Commit()
	require.NoError(t, f.g.Check())
}

// try runs fn in a transaction, cancels it and returns the error.
func (f *fixture) try(fn func(tx *topo.Tx) error) error {
	tx := topo.NewTx(f.g, f.names)
	stats := f.names.Stats()
	err := fn(tx)
	tx.Cancel()
	f.names.SetStats(stats)
	return err
}

func (f *fixture) box(t *testing.T, nb int) *topo.Block {
	t.Helper()
	var b *topo.Block
	f.apply(t, func(tx *topo.Tx) (err error) {
		b, err = NewBlock(tx, domain.Point{}, domain.Point{X: 1, Y: 1, Z: 1}, nb)
		return err
	})
	return b
}

func (f *fixture) grid(t *testing.T, nx, ny, nz, nb int) []*topo.Block {
	t.Helper()
	var bs []*topo.Block
	f.apply(t, func(tx *topo.Tx) (err error) {
		bs, err = NewBlockGrid(tx, domain.Point{}, domain.Point{X: float64(nx), Y: float64(ny), Z: float64(nz)}, nx, ny, nz, nb)
		return err
	})
	return bs
}

// coedgeAlong returns a coedge of b lying on the block edge from slot a to slot c.
func (f *fixture) coedgeAlong(t *testing.T, b *topo.Block, a, c int) *topo.CoEdge {
	t.Helper()
	ch, err := f.g.BlockChain(b, a, c)
	require.NoError(t, err)
	return f.g.MustCoEdge(ch.CoEdges[0])
}

func (f *fixture) sizes() map[domain.Kind]int {
	out := make(map[domain.Kind]int)
	for _, k := range domain.Kinds {
		out[k] = len(f.g.Entities(k))
	}
	return out
}

type fakeMesher struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (m *fakeMesher) MeshSurface(_ context.Context, b ports.SurfaceBoundary) (domain.SurfaceMesh, error) {
	m.calls.Add(1)
	if m.fail[b.Name] {
		return domain.SurfaceMesh{}, errors.New("surface rejected")
	}
	var nodes []domain.Point
	for _, side := range b.Sides {
		nodes = append(nodes, side[:len(side)-1]...)
	}
	return domain.SurfaceMesh{Nodes: nodes, Cells: [][]int{{0, 1, 2}}}, nil
}

func (m *fakeMesher) MeshVolume(_ context.Context, b ports.VolumeBoundary) (domain.VolumeMesh, error) {
	m.calls.Add(1)
	if m.fail[b.Name] {
		return domain.VolumeMesh{}, errors.New("volume rejected")
	}
	return domain.VolumeMesh{Nodes: b.Corners[:], Cells: [][]int{{0, 1, 2, 3, 4, 5, 6, 7}}}, nil
}

type fakeOracle struct {
	err error
	to  domain.Point
}

func (o fakeOracle) Project(context.Context, domain.GeomRef, domain.Point) (domain.Point, error) {
	return o.to, o.err
}

func (o fakeOracle) BoundaryVertices(context.Context, domain.GeomRef) ([]domain.Point, error) {
	return nil, o.err
}

func (o fakeOracle) BoundaryCurves(context.Context, domain.GeomRef) ([]domain.GeomRef, error) {
	return nil, o.err
}

func (o fakeOracle) Dimension(_ context.Context, ref domain.GeomRef) (int, error) {
	return ref.Dim, o.err
}
