package edit

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

func TestTranslateTopo(t *testing.T) {
	f := newFixture()
	bs := f.grid(t, 2, 1, 1, 1)
	before := f.sizes()

	offset := domain.Point{Z: 3}
	f.apply(t, func(tx *topo.Tx) error { return TranslateTopo(tx, []domain.ID{bs[0].ID()}, offset) })

	assert.Equal(t, before, f.sizes())
	for _, id := range bs[0].V {
		assert.InDelta(t, 3, f.g.MustVertex(id).Coord.Z, 1+1e-9, "vertex %s", f.g.MustVertex(id).Name())
		assert.GreaterOrEqual(t, f.g.MustVertex(id).Coord.Z, 3.0)
	}
	shared := 0
	for _, id := range bs[1].V {
		if slices.Contains(bs[0].V[:], id) {
			shared++
			continue
		}
		assert.LessOrEqual(t, f.g.MustVertex(id).Coord.Z, 1.0, "the neighbour keeps its own corners")
	}
	assert.Equal(t, 4, shared)

	err := f.try(func(tx *topo.Tx) error { return TranslateTopo(tx, []domain.ID{bs[0].ID()}, domain.Point{}) })
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	err = f.try(func(tx *topo.Tx) error { return TranslateTopo(tx, []domain.ID{999}, offset) })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTranslateTopo_CoFaceMovesItsSideVertices(t *testing.T) {
	f := newFixture()
	cf := f.coface(t, 2, square...)
	var mid domain.ID
	f.apply(t, func(tx *topo.Tx) error {
		c := f.g.MustCoEdge(f.g.MustEdge(cf.Edges[0]).CoEdges[0])
		mid = splitCoEdge(tx, c, 1).ID()
		return nil
	})
	p := f.g.MustVertex(mid).Coord

	f.apply(t, func(tx *topo.Tx) error { return TranslateTopo(tx, []domain.ID{cf.ID()}, domain.Point{X: 5}) })
	assert.Equal(t, p.Add(domain.Point{X: 5}), f.g.MustVertex(mid).Coord)
}

func TestScaleTopo(t *testing.T) {
	f := newFixture()
	b := f.box(t, 1)
	center := domain.Point{X: 0.5, Y: 0.5, Z: 0.5}

	f.apply(t, func(tx *topo.Tx) error { return ScaleTopo(tx, []domain.ID{b.ID()}, 2, center) })
	assert.Equal(t, domain.Point{X: -0.5, Y: -0.5, Z: -0.5}, f.g.MustVertex(b.V[0]).Coord)
	assert.Equal(t, domain.Point{X: 1.5, Y: 1.5, Z: 1.5}, f.g.MustVertex(b.V[7]).Coord)

	err := f.try(func(tx *topo.Tx) error { return ScaleTopo(tx, []domain.ID{b.ID()}, 0, center) })
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestScaleTopo_DropsMeshes(t *testing.T) {
	f := newFixture()
	b := f.box(t, 2)
	env := Env{Mesher: &fakeMesher{}}
	f.apply(t, func(tx *topo.Tx) error {
		_, err := MeshBlocks(t.Context(), tx, env, []domain.ID{b.ID()})
		return err
	})
	require.NotNil(t, f.g.MustBlock(b.ID()).Mesh)

	f.apply(t, func(tx *topo.Tx) error { return ScaleTopo(tx, []domain.ID{b.V[7]}, 0.5, domain.Point{}) })
	assert.Nil(t, f.g.MustBlock(b.ID()).Mesh)
	for _, cid := range f.g.MustVertex(b.V[7]).CoEdges {
		assert.Nil(t, f.g.MustCoEdge(cid).Points)
	}
}

func TestAlignVertices(t *testing.T) {
	f := newFixture()
	var vs []domain.ID
	f.apply(t, func(tx *topo.Tx) error {
		for _, p := range []domain.Point{{X: 0.3, Y: 1}, {X: 3, Y: -1}, {X: -2, Y: 0.5}} {
			vs = append(vs, tx.NewVertex(p).ID())
		}
		return nil
	})
	p1, p2 := domain.Point{}, domain.Point{X: 1}

	f.apply(t, func(tx *topo.Tx) error { return AlignVertices(t.Context(), tx, Env{}, p1, p2, vs) })
	assert.Equal(t, domain.Point{X: 0.3}, f.g.MustVertex(vs[0]).Coord)
	// Past either end, the second and third of three are spread along the line.
	assert.InDelta(t, 0.5, f.g.MustVertex(vs[1]).Coord.X, 1e-12)
	assert.InDelta(t, 0.25, f.g.MustVertex(vs[2]).Coord.X, 1e-12)
	assert.Zero(t, f.g.MustVertex(vs[2]).Coord.Y)

	err := f.try(func(tx *topo.Tx) error { return AlignVertices(t.Context(), tx, Env{}, p1, p1, vs) })
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	err = f.try(func(tx *topo.Tx) error { return AlignVertices(t.Context(), tx, Env{}, p1, p2, nil) })
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAlignVertices_AssociatedVertices(t *testing.T) {
	f := newFixture()
	var v domain.ID
	f.apply(t, func(tx *topo.Tx) error {
		v = tx.NewVertex(domain.Point{X: 0.5, Y: 1}).ID()
		return nil
	})
	p1, p2 := domain.Point{}, domain.Point{X: 1}
	associate := func(ref domain.GeomRef) {
		f.apply(t, func(tx *topo.Tx) error {
			return AssociateGeometry(t.Context(), tx, Env{}, []domain.ID{v}, ref)
		})
	}

	associate(domain.GeomRef{Name: "corner", Dim: 0})
	err := f.try(func(tx *topo.Tx) error { return AlignVertices(t.Context(), tx, Env{}, p1, p2, []domain.ID{v}) })
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	associate(domain.GeomRef{Name: "rail", Dim: 1})
	err = f.try(func(tx *topo.Tx) error { return AlignVertices(t.Context(), tx, Env{}, p1, p2, []domain.ID{v}) })
	assert.ErrorIs(t, err, domain.ErrPrecondition, "no oracle")

	err = f.try(func(tx *topo.Tx) error {
		return AlignVertices(t.Context(), tx, Env{Oracle: fakeOracle{err: errors.New("kernel down")}}, p1, p2, []domain.ID{v})
	})
	assert.ErrorIs(t, err, domain.ErrExternal)

	to := domain.Point{X: 0.5, Z: 0.1}
	f.apply(t, func(tx *topo.Tx) error {
		return AlignVertices(t.Context(), tx, Env{Oracle: fakeOracle{to: to}}, p1, p2, []domain.ID{v})
	})
	assert.Equal(t, to, f.g.MustVertex(v).Coord, "the geometry has the last word")
}
