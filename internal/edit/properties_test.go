package edit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

func TestSetEdgeMeshing(t *testing.T) {
	f := newFixture()
	b := f.box(t, 2)
	c := f.coedgeAlong(t, b, 0, 1)

	err := f.try(func(tx *topo.Tx) error {
		return SetEdgeMeshing(tx, []domain.ID{c.ID()}, domain.EdgeMeshing{Law: domain.LawGeometric, Segments: 4})
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	m := domain.EdgeMeshing{Law: domain.LawGeometric, Segments: 6, Ratio: 1.1}
	f.apply(t, func(tx *topo.Tx) error { return SetEdgeMeshing(tx, []domain.ID{c.ID()}, m) })
	assert.Equal(t, m, f.g.MustCoEdge(c.ID()).Meshing)
	ok, err := f.g.Structured(b)
	require.NoError(t, err)
	assert.False(t, ok, "parallel coedges no longer match")
}

func TestSetEdgeMeshing_KeepsRatiosDivisible(t *testing.T) {
	f := newFixture()
	var c *topo.CoEdge
	f.apply(t, func(tx *topo.Tx) error {
		a, b := tx.NewVertex(domain.Point{}), tx.NewVertex(domain.Point{X: 1})
		c = tx.NewCoEdge(a.ID(), b.ID(), domain.Uniform(4))
		tx.NewEdge(a.ID(), []domain.ID{c.ID()}, map[domain.ID]int{c.ID(): 2})
		return nil
	})

	err := f.try(func(tx *topo.Tx) error { return SetEdgeMeshing(tx, []domain.ID{c.ID()}, domain.Uniform(3)) })
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	f.apply(t, func(tx *topo.Tx) error { return SetEdgeMeshing(tx, []domain.ID{c.ID()}, domain.Uniform(8)) })
}

func TestSetBlockMeshing(t *testing.T) {
	f := newFixture()
	b := f.box(t, 1)

	err := f.try(func(tx *topo.Tx) error {
		return SetBlockMeshing(tx, []domain.ID{b.ID()}, domain.BlockMeshing{Law: "voronoi"})
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	f.apply(t, func(tx *topo.Tx) error {
		return SetBlockMeshing(tx, []domain.ID{b.ID()}, domain.BlockMeshing{Law: domain.LawDelaunay})
	})
	assert.Equal(t, domain.LawDelaunay, f.g.MustBlock(b.ID()).Meshing.Law)
}

func TestSetGroup(t *testing.T) {
	f := newFixture()
	b := f.box(t, 1)
	ids := []domain.ID{b.ID(), b.V[0]}

	f.apply(t, func(tx *topo.Tx) error { return SetGroup(tx, ids, "wall") })
	f.apply(t, func(tx *topo.Tx) error { return SetGroup(tx, ids, "inlet") })
	f.apply(t, func(tx *topo.Tx) error { return SetGroup(tx, ids, "wall") })
	assert.Equal(t, []string{"inlet", "wall"}, f.g.MustVertex(b.V[0]).Groups)

	f.apply(t, func(tx *topo.Tx) error { return UnsetGroup(tx, ids, "wall") })
	assert.Equal(t, []string{"inlet"}, f.g.MustBlock(b.ID()).Groups)

	err := f.try(func(tx *topo.Tx) error { return SetGroup(tx, ids, "") })
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAssociateGeometry(t *testing.T) {
	f := newFixture()
	b := f.box(t, 1)
	surface := domain.GeomRef{Name: "hull", Dim: 2}

	err := f.try(func(tx *topo.Tx) error {
		return AssociateGeometry(t.Context(), tx, Env{}, []domain.ID{b.ID()}, surface)
	})
	assert.ErrorIs(t, err, domain.ErrPrecondition, "a block cannot lie on a surface")

	err = f.try(func(tx *topo.Tx) error {
		return AssociateGeometry(t.Context(), tx, Env{Oracle: fakeOracle{err: errors.New("kernel down")}}, []domain.ID{b.V[0]}, surface)
	})
	assert.ErrorIs(t, err, domain.ErrExternal)

	f.apply(t, func(tx *topo.Tx) error {
		return AssociateGeometry(t.Context(), tx, Env{Oracle: fakeOracle{}}, []domain.ID{b.V[0]}, surface)
	})
	assert.Equal(t, surface, f.g.MustVertex(b.V[0]).Geom)

	f.apply(t, func(tx *topo.Tx) error {
		return AssociateGeometry(t.Context(), tx, Env{}, []domain.ID{b.V[0]}, domain.GeomRef{})
	})
	assert.True(t, f.g.MustVertex(b.V[0]).Geom.IsZero())
}

func TestProjectVertices(t *testing.T) {
	f := newFixture()
	b := f.box(t, 1)
	surface := domain.GeomRef{Name: "hull", Dim: 2}
	f.apply(t, func(tx *topo.Tx) error {
		return AssociateGeometry(t.Context(), tx, Env{}, []domain.ID{b.V[0]}, surface)
	})
	ids := []domain.ID{b.V[0], b.V[1]}

	err := f.try(func(tx *topo.Tx) error { return ProjectVertices(t.Context(), tx, Env{}, ids) })
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	err = f.try(func(tx *topo.Tx) error {
		return ProjectVertices(t.Context(), tx, Env{Oracle: fakeOracle{err: errors.New("no projection")}}, ids)
	})
	assert.ErrorIs(t, err, domain.ErrExternal)

	to := domain.Point{X: -1, Y: -1, Z: -1}
	f.apply(t, func(tx *topo.Tx) error { return ProjectVertices(t.Context(), tx, Env{Oracle: fakeOracle{to: to}}, ids) })
	assert.Equal(t, to, f.g.MustVertex(b.V[0]).Coord)
	assert.Equal(t, domain.Point{X: 1}, f.g.MustVertex(b.V[1]).Coord, "unassociated vertices stay put")
}
