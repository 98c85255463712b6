package script

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/pkg/adapters/analytic"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
	"github.com/aretw0/topoedit/pkg/topo"
)

// action is a compiled step. Edit operations build an Op once earlier steps
// have run, so that the names they refer to exist; history operations act on
// the workspace directly.
type action struct {
	op  func(ctx context.Context, r *resolver) (topoedit.Op, error)
	run func(ctx context.Context, ws *topoedit.Workspace) (*topoedit.Result, error)
}

type compiler func(args map[string]any, model *analytic.Model) (action, error)

// resolver turns display names into ids, keeping the first failure.
type resolver struct {
	ws  *topoedit.Workspace
	err error
}

func (r *resolver) id(k domain.Kind, name string) domain.ID {
	if r.err != nil {
		return 0
	}
	id, err := r.ws.Resolve(k, name)
	if err != nil {
		r.err = err
	}
	return id
}

func (r *resolver) ids(k domain.Kind, names []string) []domain.ID {
	if len(names) == 0 {
		return nil
	}
	out := make([]domain.ID, len(names))
	for i, n := range names {
		out[i] = r.id(k, n)
	}
	return out
}

// anyKind resolves names whose kind is given by their prefix.
func (r *resolver) anyKind(names []string) []domain.ID {
	out := make([]domain.ID, len(names))
	for i, n := range names {
		k, ok := kindOf(n)
		if !ok {
			if r.err == nil {
				r.err = domain.Newf(domain.CodeInvalidArgument, "cannot tell the entity kind of %q", n)
			}
			continue
		}
		out[i] = r.id(k, n)
	}
	return out
}

func kindOf(name string) (domain.Kind, bool) {
	for _, k := range domain.Kinds {
		if _, ok := naming.ParseName(k, name); ok {
			return k, true
		}
	}
	return 0, false
}

func decode[T any](args map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &out,
		ErrorUnused: true,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(args); err != nil {
		return out, domain.Wrap(domain.CodeInvalidArgument, "invalid arguments", err)
	}
	return out, nil
}

// edit compiles an operation whose arguments decode into T.
func edit[T any](build func(ctx context.Context, a T, r *resolver, model *analytic.Model) topoedit.Op) compiler {
	return func(args map[string]any, model *analytic.Model) (action, error) {
		a, err := decode[T](args)
		if err != nil {
			return action{}, err
		}
		return action{op: func(ctx context.Context, r *resolver) (topoedit.Op, error) {
			op := build(ctx, a, r, model)
			return op, r.err
		}}, nil
	}
}

func history(run func(ctx context.Context, ws *topoedit.Workspace) (*topoedit.Result, error)) compiler {
	return func(args map[string]any, _ *analytic.Model) (action, error) {
		if len(args) > 0 {
			return action{}, domain.New(domain.CodeInvalidArgument, "takes no arguments")
		}
		return action{run: run}, nil
	}
}

type (
	boxArgs struct {
		Lo, Hi domain.Point
		Nb     int
	}
	gridArgs struct {
		Lo, Hi         domain.Point
		Nx, Ny, Nz, Nb int
	}
	cofaceArgs struct {
		Corners []domain.Point
		Nb      int
	}
	splitBlockArgs struct {
		Block  string
		CoEdge string
		Ratio  float64
		Point  *domain.Point
	}
	splitBlocksArgs struct {
		Blocks []string
		CoEdge string
		Ratio  float64
	}
	splitFaceArgs struct {
		CoFace     string
		CoFaces    []string
		CoEdge     string
		Ratio      float64
		RatioOgrid float64 `mapstructure:"ratio_ogrid"`
	}
	extendArgs struct {
		CoFace string
		Vertex string
	}
	ogridArgs struct {
		Blocks  []string
		CoFaces []string
		Ratio   float64
		Layers  int
	}
	pairArgs struct {
		Keep, Drop string
	}
	snapArgs struct {
		A, B           string
		ProjectOnFirst bool `mapstructure:"project_on_first"`
	}
	duplicateArgs struct {
		Blocks []string
		Offset domain.Point
	}
	blocksArgs struct {
		Blocks []string
	}
	cofacesArgs struct {
		CoFaces []string
	}
	edgeMeshingArgs struct {
		CoEdges []string
		Meshing domain.EdgeMeshing
	}
	blockMeshingArgs struct {
		Blocks  []string
		Meshing domain.BlockMeshing
	}
	groupArgs struct {
		Entities []string
		Group    string
	}
	coordArgs struct {
		Vertex string
		Coord  domain.Point
	}
	translateArgs struct {
		Entities []string
		Offset   domain.Point
	}
	scaleArgs struct {
		Entities []string
		Factor   float64
		Center   domain.Point
	}
	alignArgs struct {
		From, To domain.Point
		Vertices []string
	}
	geometryArgs struct {
		Entities []string
		Geometry string
	}
	verticesArgs struct {
		Vertices []string
	}
	smoothArgs struct {
		CoFace string
	}
	importArgs struct {
		Path string
	}
)

var compilers = map[string]compiler{
	"new_block": edit(func(_ context.Context, a boxArgs, _ *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.NewBlock(a.Lo, a.Hi, a.Nb)
	}),
	"new_block_grid": edit(func(_ context.Context, a gridArgs, _ *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.NewBlockGrid(a.Lo, a.Hi, a.Nx, a.Ny, a.Nz, a.Nb)
	}),
	"new_coface": edit(func(_ context.Context, a cofaceArgs, _ *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.NewCoFace(a.Corners, a.Nb)
	}),
	"split_block": edit(func(_ context.Context, a splitBlockArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		b, ce := r.id(domain.KindBlock, a.Block), r.id(domain.KindCoEdge, a.CoEdge)
		if a.Point != nil {
			return topoedit.SplitBlockAtPoint(b, ce, *a.Point)
		}
		return topoedit.SplitBlock(b, ce, a.Ratio)
	}),
	"split_blocks": edit(func(_ context.Context, a splitBlocksArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.SplitBlocks(r.ids(domain.KindBlock, a.Blocks), r.id(domain.KindCoEdge, a.CoEdge), a.Ratio)
	}),
	"split_face": edit(func(_ context.Context, a splitFaceArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.SplitFace(r.id(domain.KindCoFace, a.CoFace), r.id(domain.KindCoEdge, a.CoEdge), a.Ratio, a.RatioOgrid)
	}),
	"split_faces": edit(func(_ context.Context, a splitFaceArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.SplitFaces(r.ids(domain.KindCoFace, a.CoFaces), r.id(domain.KindCoEdge, a.CoEdge), a.Ratio, a.RatioOgrid)
	}),
	"extend_split_face": edit(func(_ context.Context, a extendArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.ExtendSplitFace(r.id(domain.KindCoFace, a.CoFace), r.id(domain.KindVertex, a.Vertex))
	}),
	"split_blocks_with_ogrid": edit(func(_ context.Context, a ogridArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.SplitBlocksWithOgrid(r.ids(domain.KindBlock, a.Blocks), r.ids(domain.KindCoFace, a.CoFaces), a.Ratio, a.Layers)
	}),
	"fuse_vertices":   fuse(domain.KindVertex, topoedit.FuseVertices),
	"fuse_2_vertices": fuse(domain.KindVertex, topoedit.Fuse2Vertices),
	"fuse_coedges":    fuse(domain.KindCoEdge, topoedit.FuseCoEdges),
	"fuse_cofaces":    fuse(domain.KindCoFace, topoedit.FuseCoFaces),
	"fuse_blocks":     fuse(domain.KindBlock, topoedit.FuseBlocks),
	"snap_vertices": edit(func(_ context.Context, a snapArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.SnapVertices(r.id(domain.KindVertex, a.A), r.id(domain.KindVertex, a.B), a.ProjectOnFirst)
	}),
	"duplicate_blocks": edit(func(_ context.Context, a duplicateArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.DuplicateBlocks(r.ids(domain.KindBlock, a.Blocks), a.Offset)
	}),
	"delete_blocks": edit(func(_ context.Context, a blocksArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.DeleteBlocks(r.ids(domain.KindBlock, a.Blocks))
	}),
	"delete_cofaces": edit(func(_ context.Context, a cofacesArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.DeleteCoFaces(r.ids(domain.KindCoFace, a.CoFaces))
	}),
	"set_edge_meshing": edit(func(_ context.Context, a edgeMeshingArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.SetEdgeMeshing(r.ids(domain.KindCoEdge, a.CoEdges), a.Meshing)
	}),
	"set_block_meshing": edit(func(_ context.Context, a blockMeshingArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.SetBlockMeshing(r.ids(domain.KindBlock, a.Blocks), a.Meshing)
	}),
	"set_group": edit(func(_ context.Context, a groupArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.SetGroup(r.anyKind(a.Entities), a.Group)
	}),
	"unset_group": edit(func(_ context.Context, a groupArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.UnsetGroup(r.anyKind(a.Entities), a.Group)
	}),
	"set_vertex_coord": edit(func(_ context.Context, a coordArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.SetVertexCoord(r.id(domain.KindVertex, a.Vertex), a.Coord)
	}),
	"translate_topo": edit(func(_ context.Context, a translateArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.TranslateTopo(r.anyKind(a.Entities), a.Offset)
	}),
	"scale_topo": edit(func(_ context.Context, a scaleArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.ScaleTopo(r.anyKind(a.Entities), a.Factor, a.Center)
	}),
	"align_vertices": edit(func(_ context.Context, a alignArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.AlignVertices(a.From, a.To, r.ids(domain.KindVertex, a.Vertices))
	}),
	"associate_geometry": edit(func(ctx context.Context, a geometryArgs, r *resolver, model *analytic.Model) topoedit.Op {
		ref := domain.GeomRef{Name: a.Geometry}
		if a.Geometry != "" {
			dim, err := model.Dimension(ctx, ref)
			if err != nil && r.err == nil {
				r.err = err
			}
			ref.Dim = dim
		}
		return topoedit.AssociateGeometry(r.anyKind(a.Entities), ref)
	}),
	"project_vertices": edit(func(_ context.Context, a verticesArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.ProjectVertices(r.ids(domain.KindVertex, a.Vertices))
	}),
	"mesh_blocks": edit(func(_ context.Context, a blocksArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.MeshBlocks(r.ids(domain.KindBlock, a.Blocks))
	}),
	"smooth_coface": edit(func(_ context.Context, a smoothArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return topoedit.SmoothCoFace(r.id(domain.KindCoFace, a.CoFace))
	}),
	"import": importSnapshot,
	"undo": history(func(ctx context.Context, ws *topoedit.Workspace) (*topoedit.Result, error) {
		return ws.Undo(ctx)
	}),
	"redo": history(func(ctx context.Context, ws *topoedit.Workspace) (*topoedit.Result, error) {
		return ws.Redo(ctx)
	}),
	"preview_end": history(func(ctx context.Context, ws *topoedit.Workspace) (*topoedit.Result, error) {
		return nil, ws.PreviewEnd(ctx)
	}),
}

func fuse(k domain.Kind, build func(keep, drop domain.ID) topoedit.Op) compiler {
	return edit(func(_ context.Context, a pairArgs, r *resolver, _ *analytic.Model) topoedit.Op {
		return build(r.id(k, a.Keep), r.id(k, a.Drop))
	})
}

// importSnapshot reads the snapshot file at compile time so that a missing
// file fails the parse.
func importSnapshot(args map[string]any, _ *analytic.Model) (action, error) {
	a, err := decode[importArgs](args)
	if err != nil {
		return action{}, err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return action{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	s, err := topo.UnmarshalSnapshot(data)
	if err != nil {
		return action{}, err
	}
	return action{op: func(context.Context, *resolver) (topoedit.Op, error) {
		return topoedit.Import(s), nil
	}}, nil
}

func compile(op string, args map[string]any, model *analytic.Model) (action, error) {
	c, ok := compilers[op]
	if !ok {
		return action{}, domain.Newf(domain.CodeInvalidArgument, "unknown operation (known: %s)", strings.Join(Operations(), ", "))
	}
	return c(args, model)
}

// Operations lists the step names a script may use.
func Operations() []string {
	out := make([]string, 0, len(compilers))
	for name := range compilers {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
