package edit

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

func TestFuse2Vertices_BeyondToleranceLeavesGraphUntouched(t *testing.T) {
	f := newFixture()
	b := f.box(t, 2)
	before := topo.Serialize(f.g, f.names)

	tx := topo.NewTx(f.g, f.names)
	err := Fuse2Vertices(tx, Env{Tolerance: 0.1}, b.V[0], b.V[7])
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.False(t, tx.Touched())
	tx.Cancel()

	if diff := cmp.Diff(before, topo.Serialize(f.g, f.names)); diff != "" {
		t.Errorf("graph changed (-want +got):\n%s", diff)
	}
}

func TestFuseVertices_RejectsJoinedVertices(t *testing.T) {
	f := newFixture()
	b := f.box(t, 2)

	err := f.try(func(tx *topo.Tx) error { return FuseVertices(tx, b.V[0], b.V[1]) })
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestFuseVertices_RejectsCornersOfOneEntity(t *testing.T) {
	f := newFixture()
	b := f.box(t, 2)
	before := topo.Serialize(f.g, f.names)

	tests := []struct {
		name       string
		keep, drop int
	}{
		{name: "face diagonal", keep: 0, drop: 3},
		{name: "block diagonal", keep: 0, drop: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.try(func(tx *topo.Tx) error { return FuseVertices(tx, b.V[tt.keep], b.V[tt.drop]) })
			assert.ErrorIs(t, err, domain.ErrMismatch)
		})
	}
	if diff := cmp.Diff(before, topo.Serialize(f.g, f.names)); diff != "" {
		t.Errorf("graph changed (-want +got):\n%s", diff)
	}
	require.NoError(t, f.g.Check())
}

func TestFuseCoFaces_MergesCoincidentQuads(t *testing.T) {
	f := newFixture()
	a := f.coface(t, 3, square...)
	b := f.coface(t, 3, square[1], square[0], square[3], square[2])

	f.apply(t, func(tx *topo.Tx) error { return FuseCoFaces(tx, a.ID(), b.ID()) })

	sizes := f.sizes()
	assert.Equal(t, 1, sizes[domain.KindCoFace])
	assert.Equal(t, 4, sizes[domain.KindVertex])
	assert.Equal(t, 4, sizes[domain.KindCoEdge])
	assert.Equal(t, 4, sizes[domain.KindEdge])
}

func TestFuseCoFaces_Mismatch(t *testing.T) {
	f := newFixture()
	a := f.coface(t, 3, square...)
	coarse := f.coface(t, 2, square...)
	tri := f.coface(t, 3, triangle...)

	err := f.try(func(tx *topo.Tx) error { return FuseCoFaces(tx, a.ID(), coarse.ID()) })
	assert.ErrorIs(t, err, domain.ErrMismatch)
	err = f.try(func(tx *topo.Tx) error { return FuseCoFaces(tx, a.ID(), tri.ID()) })
	assert.ErrorIs(t, err, domain.ErrMismatch)
}

func TestFuseCoEdges_PairsEndsByProximity(t *testing.T) {
	f := newFixture()
	var keep, drop *topo.CoEdge
	f.apply(t, func(tx *topo.Tx) error {
		a, b := tx.NewVertex(domain.Point{}), tx.NewVertex(domain.Point{X: 1})
		c, d := tx.NewVertex(domain.Point{X: 1, Y: 1e-3}), tx.NewVertex(domain.Point{Y: 1e-3})
		keep = tx.NewCoEdge(a.ID(), b.ID(), domain.Uniform(2))
		drop = tx.NewCoEdge(c.ID(), d.ID(), domain.Uniform(2))
		tx.NewEdge(c.ID(), []domain.ID{drop.ID()}, nil)
		return nil
	})

	f.apply(t, func(tx *topo.Tx) error { return FuseCoEdges(tx, keep.ID(), drop.ID()) })

	assert.Len(t, f.g.Vertices(), 2)
	assert.Len(t, f.g.CoEdges(), 1)
	e := f.g.Edges()[0]
	assert.Equal(t, []domain.ID{keep.ID()}, e.CoEdges)
	assert.Equal(t, keep.V[1], e.V[0], "the edge still starts at the end nearest its old start")
}

func TestFuseBlocks_RequiresSharedFace(t *testing.T) {
	f := newFixture()
	a := f.box(t, 2)
	var b *topo.Block
	f.apply(t, func(tx *topo.Tx) (err error) {
		b, err = NewBlock(tx, domain.Point{X: 3}, domain.Point{X: 4, Y: 1, Z: 1}, 2)
		return err
	})

	err := f.try(func(tx *topo.Tx) error {
		_, err := FuseBlocks(tx, a.ID(), b.ID())
		return err
	})
	assert.ErrorIs(t, err, domain.ErrMismatch)
}

func TestFuseBlocks_GridNeighbours(t *testing.T) {
	f := newFixture()
	bs := f.grid(t, 2, 1, 1, 2)

	var merged *topo.Block
	f.apply(t, func(tx *topo.Tx) (err error) {
		merged, err = FuseBlocks(tx, bs[1].ID(), bs[0].ID())
		return err
	})

	require.Len(t, f.g.Blocks(), 1)
	xs := map[float64]int{}
	for _, v := range merged.V {
		xs[f.g.MustVertex(v).Coord.X]++
	}
	assert.Equal(t, map[float64]int{0: 4, 2: 4}, xs)
	chains, err := f.g.DirectionChains(merged, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, chains[0].Total())
}

func TestSnapVertices_CollapsesJoiningCoEdge(t *testing.T) {
	f := newFixture()
	cf := f.coface(t, 2, square...)
	a, b := cf.V[0], cf.V[1]

	f.apply(t, func(tx *topo.Tx) error { return SnapVertices(tx, Env{SnapTolerance: 2}, a, b, false) })

	sizes := f.sizes()
	assert.Equal(t, 3, sizes[domain.KindVertex])
	assert.Equal(t, 3, sizes[domain.KindCoEdge])
	assert.Equal(t, 3, sizes[domain.KindEdge])
	got := f.g.MustCoFace(cf.ID())
	assert.True(t, got.Degenerate())
	assert.Equal(t, a, got.V[0])
	assert.Equal(t, domain.Point{X: 0.5}, f.g.MustVertex(a).Coord)
}

func TestSnapVertices_Rejections(t *testing.T) {
	f := newFixture()
	tri := f.coface(t, 2, triangle...)
	quad := f.coface(t, 2, domain.Point{X: 5}, domain.Point{X: 6}, domain.Point{X: 6, Y: 1}, domain.Point{X: 5, Y: 1})

	err := f.try(func(tx *topo.Tx) error { return SnapVertices(tx, Env{SnapTolerance: 2}, tri.V[0], tri.V[1], true) })
	assert.ErrorIs(t, err, domain.ErrPrecondition, "a triangle cannot lose a side")

	err = f.try(func(tx *topo.Tx) error { return SnapVertices(tx, Env{SnapTolerance: 0.5}, quad.V[0], quad.V[1], true) })
	assert.ErrorIs(t, err, domain.ErrPrecondition, "beyond the snap tolerance")

	err = f.try(func(tx *topo.Tx) error { return SnapVertices(tx, Env{SnapTolerance: 2}, quad.V[0], quad.V[2], true) })
	assert.ErrorIs(t, err, domain.ErrMismatch, "opposite corners")
}
