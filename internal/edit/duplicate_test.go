package edit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

func TestDuplicateBlocks(t *testing.T) {
	f := newFixture()
	b := f.box(t, 2)
	f.apply(t, func(tx *topo.Tx) error {
		if err := SetGroup(tx, []domain.ID{b.ID()}, "fluid"); err != nil {
			return err
		}
		return AssociateGeometry(t.Context(), tx, Env{}, []domain.ID{b.V[0]}, domain.GeomRef{Name: "origin", Dim: 0})
	})

	var copies []*topo.Block
	f.apply(t, func(tx *topo.Tx) (err error) {
		copies, err = DuplicateBlocks(tx, []domain.ID{b.ID()}, domain.Point{X: 2})
		return err
	})

	require.Len(t, copies, 1)
	c := copies[0]
	assert.NotEqual(t, b.ID(), c.ID())
	assert.Equal(t, []string{"fluid"}, c.Groups)
	assert.Equal(t, 2, f.sizes()[domain.KindBlock])
	assert.Equal(t, 16, f.sizes()[domain.KindVertex])
	assert.Equal(t, 24, f.sizes()[domain.KindCoEdge])

	v := f.g.MustVertex(c.V[0])
	assert.Equal(t, domain.Point{X: 2}, v.Coord)
	assert.True(t, v.Geom.IsZero(), "copies carry no geometry")
	assert.Empty(t, topo.NewIDSet(b.V[:]...).Intersect(topo.NewIDSet(c.V[:]...)))
}

func TestDuplicateBlocks_KeepsSharedEntitiesShared(t *testing.T) {
	f := newFixture()
	bs := f.grid(t, 2, 1, 1, 1)

	var copies []*topo.Block
	f.apply(t, func(tx *topo.Tx) (err error) {
		copies, err = DuplicateBlocks(tx, []domain.ID{bs[0].ID(), bs[1].ID()}, domain.Point{Y: 5})
		return err
	})

	require.Len(t, copies, 2)
	shared := f.g.BlockCoFaces(copies[0]).Intersect(f.g.BlockCoFaces(copies[1]))
	assert.Len(t, shared, 1)
	assert.Equal(t, 24, f.sizes()[domain.KindVertex])
}

func TestDeleteBlocks(t *testing.T) {
	f := newFixture()
	bs := f.grid(t, 2, 1, 1, 2)

	f.apply(t, func(tx *topo.Tx) error { return DeleteBlocks(tx, []domain.ID{bs[1].ID()}) })

	assert.Equal(t, map[domain.Kind]int{
		domain.KindVertex: 8,
		domain.KindCoEdge: 12,
		domain.KindEdge:   24,
		domain.KindCoFace: 6,
		domain.KindFace:   6,
		domain.KindBlock:  1,
	}, f.sizes())

	err := f.try(func(tx *topo.Tx) error { return DeleteBlocks(tx, nil) })
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	err = f.try(func(tx *topo.Tx) error { return DeleteBlocks(tx, []domain.ID{bs[1].ID()}) })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteCoFaces(t *testing.T) {
	f := newFixture()
	b := f.box(t, 1)
	cf := f.coface(t, 1, domain.Point{X: 5}, domain.Point{X: 6}, domain.Point{X: 6, Y: 1})

	err := f.try(func(tx *topo.Tx) error {
		return DeleteCoFaces(tx, []domain.ID{f.g.MustFace(b.Faces[0]).CoFaces[0]})
	})
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	f.apply(t, func(tx *topo.Tx) error { return DeleteCoFaces(tx, []domain.ID{cf.ID()}) })
	assert.Equal(t, 8, f.sizes()[domain.KindVertex])
	assert.Equal(t, 6, f.sizes()[domain.KindCoFace])
}
