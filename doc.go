/*
Package topoedit is a transactional edit engine for block-structured CAD
topologies.

A Workspace holds a graph of Vertices, CoEdges, Edges, CoFaces, Faces and
Blocks. Every mutation is an Op applied as one atomic command: it either
commits and joins the undo history, or fails and leaves the graph exactly as
it was.

# Usage

	ws := topoedit.New(topoedit.WithLogger(logging.New(slog.LevelInfo)))

	res, err := ws.Apply(ctx, topoedit.NewBlock(domain.Point{}, domain.Point{X: 1, Y: 1, Z: 1}, 4))
	if err != nil {
		return err
	}
	fmt.Println(res.Created)

	b0, _ := ws.Resolve(domain.KindBlock, "Bl0000")
	ce, _ := ws.Resolve(domain.KindCoEdge, "Ar0000")
	if _, err := ws.Apply(ctx, topoedit.SplitBlock(b0, ce, 0.25)); err != nil {
		return err
	}
	_, _ = ws.Undo(ctx)

# Previews

PreviewBegin runs an Op without recording it, so that a caller can show the
outcome; PreviewEnd reverts it and releases the names it consumed.

# Persistence

Workspace.Snapshot and Open convert a topology to and from a topo.Snapshot,
which the adapters under pkg/adapters store in memory, Redis or SQLite. The
session package shares workspaces between concurrent callers over such a
store.
*/
package topoedit
