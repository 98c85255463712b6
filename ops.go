package topoedit

import (
	"context"

	"github.com/aretw0/topoedit/internal/edit"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// Op is one topology edit, run by Workspace.Apply or Workspace.PreviewBegin.
type Op struct {
	name string
	run  func(ctx context.Context, tx *topo.Tx, env edit.Env, res *Result) error
}

// Name returns the command name recorded in the history.
func (o Op) Name() string { return o.name }

func op(name string, fn func(ctx context.Context, tx *topo.Tx, env edit.Env) error) Op {
	return Op{name: name, run: func(ctx context.Context, tx *topo.Tx, env edit.Env, _ *Result) error {
		return fn(ctx, tx, env)
	}}
}

// txOp adapts algorithms that only need the transaction.
func txOp(name string, fn func(tx *topo.Tx) error) Op {
	return op(name, func(_ context.Context, tx *topo.Tx, _ edit.Env) error { return fn(tx) })
}

// NewBlock creates an axis-aligned block whose edges carry nb segments.
func NewBlock(lo, hi domain.Point, nb int) Op {
	return txOp("NewBlock", func(tx *topo.Tx) error {
		_, err := edit.NewBlock(tx, lo, hi, nb)
		return err
	})
}

// NewBlockGrid creates nx×ny×nz conformal blocks filling the box lo..hi.
func NewBlockGrid(lo, hi domain.Point, nx, ny, nz, nb int) Op {
	return txOp("NewBlockGrid", func(tx *topo.Tx) error {
		_, err := edit.NewBlockGrid(tx, lo, hi, nx, ny, nz, nb)
		return err
	})
}

// NewCoFace creates a standalone quad, or a triangle collapsed at corners[0].
func NewCoFace(corners []domain.Point, nb int) Op {
	return txOp("NewCoFace", func(tx *topo.Tx) error {
		_, err := edit.NewCoFace(tx, corners, nb)
		return err
	})
}

// SplitBlock cuts block in two across the direction of the pivot CoEdge, at
// ratio along it.
func SplitBlock(block, pivot domain.ID, ratio float64) Op {
	return txOp("SplitBlock", func(tx *topo.Tx) error {
		_, _, err := edit.SplitBlock(tx, block, pivot, ratio)
		return err
	})
}

// SplitBlockAtPoint is SplitBlock at the projection of p on the pivot.
func SplitBlockAtPoint(block, pivot domain.ID, p domain.Point) Op {
	return txOp("SplitBlockAtPoint", func(tx *topo.Tx) error {
		_, _, err := edit.SplitBlockAtPoint(tx, block, pivot, p)
		return err
	})
}

// SplitBlocks splits the block holding pivot and propagates the cut through
// the listed blocks; no blocks means all of them.
func SplitBlocks(blocks []domain.ID, pivot domain.ID, ratio float64) Op {
	return txOp("SplitBlocks", func(tx *topo.Tx) error {
		_, err := edit.SplitBlocks(tx, blocks, pivot, ratio)
		return err
	})
}

// SplitFace cuts a CoFace through the pivot CoEdge at ratio.
func SplitFace(coface, pivot domain.ID, ratio, ratioOgrid float64) Op {
	return txOp("SplitFace", func(tx *topo.Tx) error {
		_, err := edit.SplitFace(tx, coface, pivot, ratio, ratioOgrid)
		return err
	})
}

// SplitFaces cuts the CoFace holding pivot and propagates through the listed
// CoFaces; no cofaces means all of them.
func SplitFaces(cofaces []domain.ID, pivot domain.ID, ratio, ratioOgrid float64) Op {
	return txOp("SplitFaces", func(tx *topo.Tx) error {
		_, err := edit.SplitFaces(tx, cofaces, pivot, ratio, ratioOgrid)
		return err
	})
}

// ExtendSplitFace cuts a CoFace from a vertex already on its boundary.
func ExtendSplitFace(coface, vertex domain.ID) Op {
	return txOp("ExtendSplitFace", func(tx *topo.Tx) error {
		_, err := edit.ExtendSplitFace(tx, coface, vertex)
		return err
	})
}

// SplitBlocksWithOgrid inserts an O-grid in the blocks around the given
// boundary CoFaces.
func SplitBlocksWithOgrid(blocks, cofaces []domain.ID, ratio float64, layers int) Op {
	return txOp("SplitBlocksWithOgrid", func(tx *topo.Tx) error {
		_, err := edit.SplitBlocksWithOgrid(tx, blocks, cofaces, ratio, layers)
		return err
	})
}

// FuseVertices replaces drop by keep everywhere.
func FuseVertices(keep, drop domain.ID) Op {
	return txOp("FuseVertices", func(tx *topo.Tx) error { return edit.FuseVertices(tx, keep, drop) })
}

// Fuse2Vertices is FuseVertices for vertices within the workspace tolerance.
func Fuse2Vertices(keep, drop domain.ID) Op {
	return op("Fuse2Vertices", func(_ context.Context, tx *topo.Tx, env edit.Env) error {
		return edit.Fuse2Vertices(tx, env, keep, drop)
	})
}

// FuseCoEdges merges two CoEdges with the same discretization.
func FuseCoEdges(keep, drop domain.ID) Op {
	return txOp("FuseCoEdges", func(tx *topo.Tx) error { return edit.FuseCoEdges(tx, keep, drop) })
}

// FuseCoFaces merges two coincident CoFaces.
func FuseCoFaces(keep, drop domain.ID) Op {
	return txOp("FuseCoFaces", func(tx *topo.Tx) error { return edit.FuseCoFaces(tx, keep, drop) })
}

// FuseBlocks merges two blocks sharing a face.
func FuseBlocks(keep, drop domain.ID) Op {
	return txOp("FuseBlocks", func(tx *topo.Tx) error {
		_, err := edit.FuseBlocks(tx, keep, drop)
		return err
	})
}

// SnapVertices merges b into a within the snap tolerance, collapsing a CoEdge
// joining them.
func SnapVertices(a, b domain.ID, projectOnFirst bool) Op {
	return op("SnapVertices", func(_ context.Context, tx *topo.Tx, env edit.Env) error {
		return edit.SnapVertices(tx, env, a, b, projectOnFirst)
	})
}

// DuplicateBlocks copies the blocks translated by offset.
func DuplicateBlocks(blocks []domain.ID, offset domain.Point) Op {
	return txOp("DuplicateBlocks", func(tx *topo.Tx) error {
		_, err := edit.DuplicateBlocks(tx, blocks, offset)
		return err
	})
}

// DeleteBlocks deletes the blocks and whatever only they used.
func DeleteBlocks(blocks []domain.ID) Op {
	return txOp("DeleteBlocks", func(tx *topo.Tx) error { return edit.DeleteBlocks(tx, blocks) })
}

// DeleteCoFaces deletes CoFaces no block uses.
func DeleteCoFaces(cofaces []domain.ID) Op {
	return txOp("DeleteCoFaces", func(tx *topo.Tx) error { return edit.DeleteCoFaces(tx, cofaces) })
}

// SetEdgeMeshing changes the discretization law of CoEdges.
func SetEdgeMeshing(coedges []domain.ID, m domain.EdgeMeshing) Op {
	return txOp("SetEdgeMeshing", func(tx *topo.Tx) error { return edit.SetEdgeMeshing(tx, coedges, m) })
}

// SetBlockMeshing changes the meshing law of blocks.
func SetBlockMeshing(blocks []domain.ID, m domain.BlockMeshing) Op {
	return txOp("SetBlockMeshing", func(tx *topo.Tx) error { return edit.SetBlockMeshing(tx, blocks, m) })
}

// SetGroup adds entities to a group.
func SetGroup(ids []domain.ID, group string) Op {
	return txOp("SetGroup", func(tx *topo.Tx) error { return edit.SetGroup(tx, ids, group) })
}

// UnsetGroup removes entities from a group.
func UnsetGroup(ids []domain.ID, group string) Op {
	return txOp("UnsetGroup", func(tx *topo.Tx) error { return edit.UnsetGroup(tx, ids, group) })
}

// SetVertexCoord moves a vertex.
func SetVertexCoord(vertex domain.ID, p domain.Point) Op {
	return txOp("SetVertexCoord", func(tx *topo.Tx) error { return edit.SetVertexCoord(tx, vertex, p) })
}

// TranslateTopo moves entities, and every vertex they use, by offset.
func TranslateTopo(ids []domain.ID, offset domain.Point) Op {
	return txOp("TranslateTopo", func(tx *topo.Tx) error { return edit.TranslateTopo(tx, ids, offset) })
}

// ScaleTopo scales entities, and every vertex they use, around center.
func ScaleTopo(ids []domain.ID, factor float64, center domain.Point) Op {
	return txOp("ScaleTopo", func(tx *topo.Tx) error { return edit.ScaleTopo(tx, ids, factor, center) })
}

// AlignVertices moves vertices onto the segment [p1,p2].
func AlignVertices(p1, p2 domain.Point, vertices []domain.ID) Op {
	return op("AlignVertices", func(ctx context.Context, tx *topo.Tx, env edit.Env) error {
		return edit.AlignVertices(ctx, tx, env, p1, p2, vertices)
	})
}

// AssociateGeometry ties entities to a geometric entity; a zero ref clears it.
func AssociateGeometry(ids []domain.ID, ref domain.GeomRef) Op {
	return op("AssociateGeometry", func(ctx context.Context, tx *topo.Tx, env edit.Env) error {
		return edit.AssociateGeometry(ctx, tx, env, ids, ref)
	})
}

// ProjectVertices moves vertices onto their associated geometry.
func ProjectVertices(vertices []domain.ID) Op {
	return op("ProjectVertices", func(ctx context.Context, tx *topo.Tx, env edit.Env) error {
		return edit.ProjectVertices(ctx, tx, env, vertices)
	})
}

// MeshBlocks meshes the blocks, or all of them when none is given.
func MeshBlocks(blocks []domain.ID) Op {
	return Op{name: "MeshBlocks", run: func(ctx context.Context, tx *topo.Tx, env edit.Env, res *Result) error {
		report, err := edit.MeshBlocks(ctx, tx, env, blocks)
		res.Mesh = report
		return err
	}}
}

// SmoothCoFace relaxes the mesh of a CoFace.
func SmoothCoFace(coface domain.ID) Op {
	return op("SmoothCoFace", func(ctx context.Context, tx *topo.Tx, env edit.Env) error {
		return edit.SmoothCoFace(ctx, tx, env, coface)
	})
}

// Import adds the entities of s to the workspace, keeping their ids and names.
func Import(s *topo.Snapshot) Op {
	return txOp("Import", func(tx *topo.Tx) error { return tx.Import(s) })
}
