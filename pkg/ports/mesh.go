package ports

import (
	"context"

	"github.com/aretw0/topoedit/pkg/domain"
)

// SurfaceBoundary is the discretized boundary of a CoFace.
// Sides[s] lists the nodes of side s from corner s to corner s+1, both ends included.
// A degenerate CoFace has 3 sides and collapses at corner 0.
type SurfaceBoundary struct {
	Name       string
	Sides      [][]domain.Point
	Structured bool
}

// VolumeBoundary is the discretized boundary of a Block.
// Edges[d][i] lists the nodes along the i-th block edge of direction d, low
// corner first, in the corner order of topo.BlockEdges.
type VolumeBoundary struct {
	Name       string
	Corners    [8]domain.Point
	Edges      [3][4][]domain.Point
	Faces      []domain.SurfaceMesh
	Structured bool
}

// MeshGenerator produces surface and volume meshes from discretized boundaries.
// Calls may run concurrently.
type MeshGenerator interface {
	MeshSurface(ctx context.Context, b SurfaceBoundary) (domain.SurfaceMesh, error)
	MeshVolume(ctx context.Context, b VolumeBoundary) (domain.VolumeMesh, error)
}

// SmoothRequest carries a surface mesh and the geometric class of each node.
type SmoothRequest struct {
	Name    string
	Nodes   []domain.Point
	Classes []domain.NodeClass
	Cells   [][]int
}

// SnapFunc moves node i back onto its constraining geometry.
type SnapFunc func(i int, p domain.Point) (domain.Point, error)

// Smoother improves node placement of a surface mesh. Nodes classified on a
// curve, surface or vertex are passed through snap after each move.
type Smoother interface {
	Smooth(ctx context.Context, req SmoothRequest, snap SnapFunc) ([]domain.Point, error)
}
