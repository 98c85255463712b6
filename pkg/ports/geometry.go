package ports

import (
	"context"

	"github.com/aretw0/topoedit/pkg/domain"
)

// GeometryOracle answers the geometric questions the topology core cannot
// answer by itself. Implementations wrap a boundary-representation kernel.
type GeometryOracle interface {
	// Project returns the point of ref closest to p.
	Project(ctx context.Context, ref domain.GeomRef, p domain.Point) (domain.Point, error)

	// BoundaryVertices returns the end points of a curve or the corners of a surface.
	BoundaryVertices(ctx context.Context, ref domain.GeomRef) ([]domain.Point, error)

	// BoundaryCurves returns the curves bounding a surface.
	BoundaryCurves(ctx context.Context, ref domain.GeomRef) ([]domain.GeomRef, error)

	// Dimension returns the dimension of ref (0 to 3).
	Dimension(ctx context.Context, ref domain.GeomRef) (int, error)
}
