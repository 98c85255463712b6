package analytic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit/pkg/adapters/analytic"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/ports"
)

var _ ports.GeometryOracle = (*analytic.Model)(nil)

func newModel(t *testing.T) *analytic.Model {
	t.Helper()
	m, err := analytic.NewModel(
		analytic.Shape{Name: "tip", Kind: analytic.KindPoint, Points: []domain.Point{{X: 1, Y: 1, Z: 1}}},
		analytic.Shape{Name: "axis", Kind: analytic.KindSegment, Points: []domain.Point{{}, {X: 2}}},
		analytic.Shape{Name: "floor", Kind: analytic.KindPatch, Points: []domain.Point{{}, {X: 1}, {Y: 1}}},
		analytic.Shape{Name: "ball", Kind: analytic.KindSphere, Points: []domain.Point{{}}, Radius: 2},
	)
	require.NoError(t, err)
	return m
}

func TestModel_Project(t *testing.T) {
	m := newModel(t)
	ctx := context.Background()
	p := domain.Point{X: 0.5, Y: 0.25, Z: 3}

	tests := []struct {
		ref  string
		in   domain.Point
		want domain.Point
	}{
		{"tip", p, domain.Point{X: 1, Y: 1, Z: 1}},
		{"axis", p, domain.Point{X: 0.5}},
		{"axis", domain.Point{X: 5, Y: 1}, domain.Point{X: 2}},
		{"floor", p, domain.Point{X: 0.5, Y: 0.25}},
		{"floor", domain.Point{X: -1, Y: 2, Z: 1}, domain.Point{Y: 1}},
		{"ball", domain.Point{Z: 4}, domain.Point{Z: 2}},
		{"floor.e1", domain.Point{X: 3, Y: 0.5}, domain.Point{X: 1, Y: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			dim, err := m.Dimension(ctx, domain.GeomRef{Name: tt.ref})
			require.NoError(t, err)
			got, err := m.Project(ctx, domain.GeomRef{Name: tt.ref, Dim: dim}, tt.in)
			require.NoError(t, err)
			assert.InDelta(t, 0, got.Dist(tt.want), 1e-12, "got %v", got)
		})
	}
}

func TestModel_Boundaries(t *testing.T) {
	m := newModel(t)
	ctx := context.Background()

	curves, err := m.BoundaryCurves(ctx, domain.GeomRef{Name: "floor", Dim: 2})
	require.NoError(t, err)
	require.Len(t, curves, 4)
	assert.Equal(t, domain.GeomRef{Name: "floor.e0", Dim: 1}, curves[0])

	corners, err := m.BoundaryVertices(ctx, domain.GeomRef{Name: "floor", Dim: 2})
	require.NoError(t, err)
	assert.Equal(t, []domain.Point{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}, corners)

	ends, err := m.BoundaryVertices(ctx, curves[2])
	require.NoError(t, err)
	assert.Equal(t, []domain.Point{{X: 1, Y: 1}, {Y: 1}}, ends)
}

func TestModel_Errors(t *testing.T) {
	m := newModel(t)
	_, err := m.Dimension(context.Background(), domain.GeomRef{Name: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = analytic.NewModel(analytic.Shape{Name: "bad", Kind: analytic.KindSegment, Points: []domain.Point{{}}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = analytic.NewModel(analytic.Shape{Name: "flat", Kind: analytic.KindSphere, Points: []domain.Point{{}}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
