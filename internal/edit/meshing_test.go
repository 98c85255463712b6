package edit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/ports"
	"github.com/aretw0/topoedit/pkg/topo"
)

func (f *fixture) mesh(t *testing.T, ctx context.Context, env Env, blocks ...domain.ID) *MeshReport {
	t.Helper()
	var report *MeshReport
	f.apply(t, func(tx *topo.Tx) (err error) {
		report, err = MeshBlocks(ctx, tx, env, blocks)
		return err
	})
	return report
}

func TestMeshBlocks(t *testing.T) {
	f := newFixture()
	b := f.box(t, 2)
	m := &fakeMesher{}

	report := f.mesh(t, t.Context(), Env{Mesher: m, MeshWorkers: 3})

	require.NoError(t, report.Err())
	assert.Len(t, report.CoFaces, 6)
	assert.Equal(t, []string{b.Name()}, report.Blocks)
	assert.EqualValues(t, 7, m.calls.Load())
	for _, c := range f.g.CoEdges() {
		assert.Len(t, c.Points, 3)
	}
	assert.NotNil(t, f.g.MustBlock(b.ID()).Mesh)

	// Nothing left to mesh.
	report = f.mesh(t, t.Context(), Env{Mesher: m})
	assert.Empty(t, report.CoFaces)
	assert.EqualValues(t, 7, m.calls.Load())
}

func TestMeshBlocks_ReportsFailedSubUnits(t *testing.T) {
	f := newFixture()
	bs := f.grid(t, 2, 1, 1, 1)
	shared := f.g.BlockCoFaces(bs[0]).Intersect(f.g.BlockCoFaces(bs[1]))
	require.Len(t, shared, 1)
	broken := f.g.MustCoFace(shared[0]).Name()
	m := &fakeMesher{fail: map[string]bool{broken: true, bs[1].Name(): true}}

	report := f.mesh(t, t.Context(), Env{Mesher: m})

	assert.Len(t, report.CoFaces, 10)
	assert.Empty(t, report.Blocks)
	require.Len(t, report.Failures, 3)
	assert.Equal(t, broken, report.Failures[0].Name)
	assert.ErrorIs(t, report.Err(), domain.ErrExternal)
	assert.Nil(t, f.g.MustCoFace(shared[0]).Mesh)
}

func TestMeshBlocks_Cancelled(t *testing.T) {
	f := newFixture()
	f.box(t, 1)
	m := &fakeMesher{}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	report := f.mesh(t, ctx, Env{Mesher: m})

	assert.True(t, report.Cancelled)
	assert.Zero(t, m.calls.Load())
	assert.ErrorIs(t, report.Err(), context.Canceled)
	for _, c := range f.g.CoEdges() {
		assert.NotNil(t, c.Points, "discretization happens before the first call")
	}
}

func TestMeshBlocks_NeedsMesher(t *testing.T) {
	f := newFixture()
	f.box(t, 1)
	err := f.try(func(tx *topo.Tx) error {
		_, err := MeshBlocks(t.Context(), tx, Env{}, nil)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

type fakeSmoother struct {
	classes []domain.NodeClass
	err     error
}

func (s *fakeSmoother) Smooth(_ context.Context, req ports.SmoothRequest, snap ports.SnapFunc) ([]domain.Point, error) {
	s.classes = req.Classes
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Point, len(req.Nodes))
	for i, p := range req.Nodes {
		q, err := snap(i, p)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

func TestSmoothCoFace(t *testing.T) {
	f := newFixture()
	b := f.box(t, 2)
	f.mesh(t, t.Context(), Env{Mesher: &fakeMesher{}})
	cf := f.g.MustCoFace(f.g.MustFace(b.Faces[0]).CoFaces[0])
	corner := domain.GeomRef{Name: "corner", Dim: 0}
	f.apply(t, func(tx *topo.Tx) error {
		return AssociateGeometry(t.Context(), tx, Env{}, []domain.ID{cf.V[0]}, corner)
	})
	to := domain.Point{X: -0.1}
	s := &fakeSmoother{}

	f.apply(t, func(tx *topo.Tx) error {
		return SmoothCoFace(t.Context(), tx, Env{Smoother: s, Oracle: fakeOracle{to: to}}, cf.ID())
	})

	require.Len(t, s.classes, len(cf.Mesh.Nodes))
	for _, c := range s.classes {
		assert.Equal(t, domain.NodeOnVertex, c, "boundary nodes are constrained")
	}
	assert.Equal(t, to, f.g.MustCoFace(cf.ID()).Mesh.Nodes[0])
	assert.Nil(t, f.g.MustBlock(b.ID()).Mesh, "the block mesh is stale")
}

func TestSmoothCoFace_Rejections(t *testing.T) {
	f := newFixture()
	b := f.box(t, 1)
	cf := f.g.MustFace(b.Faces[0]).CoFaces[0]

	err := f.try(func(tx *topo.Tx) error { return SmoothCoFace(t.Context(), tx, Env{}, cf) })
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	err = f.try(func(tx *topo.Tx) error { return SmoothCoFace(t.Context(), tx, Env{Smoother: &fakeSmoother{}}, cf) })
	assert.ErrorIs(t, err, domain.ErrPrecondition, "not meshed")

	f.mesh(t, t.Context(), Env{Mesher: &fakeMesher{}})
	err = f.try(func(tx *topo.Tx) error {
		return SmoothCoFace(t.Context(), tx, Env{Smoother: &fakeSmoother{err: errors.New("diverged")}}, cf)
	})
	assert.ErrorIs(t, err, domain.ErrExternal)
}
