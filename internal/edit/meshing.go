package edit

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/ports"
	"github.com/aretw0/topoedit/pkg/topo"
)

// MeshFailure reports a sub-unit the mesh generator could not handle.
type MeshFailure struct {
	Name string
	Err  error
}

// MeshReport summarizes a batch meshing run. Meshed sub-units stay committed
// even when others failed or the run was cancelled.
type MeshReport struct {
	CoFaces   []string
	Blocks    []string
	Failures  []MeshFailure
	Cancelled bool
}

// Err joins the failures into one external error, or returns nil.
func (r *MeshReport) Err() error {
	var errs []error
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Name, f.Err))
	}
	if r.Cancelled {
		errs = append(errs, context.Canceled)
	}
	if len(errs) == 0 {
		return nil
	}
	return domain.Wrap(domain.CodeExternal, "batch meshing incomplete", errors.Join(errs...))
}

type meshResult[M any] struct {
	mesh M
	err  error
	done bool
}

// fanOut calls gen for every input with at most workers calls in flight.
// Inputs not started before ctx is done are left undone.
func fanOut[In, M any](ctx context.Context, workers int, in []In, gen func(context.Context, In) (M, error)) []meshResult[M] {
	out := make([]meshResult[M], len(in))
	var eg errgroup.Group
	eg.SetLimit(workers)
	for i := range in {
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			m, err := gen(ctx, in[i])
			out[i] = meshResult[M]{mesh: m, err: err, done: true}
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

// MeshBlocks discretizes the CoEdges of the blocks, then asks the mesh
// generator for their CoFace meshes and finally their volume meshes. An empty
// list means every block. A failing sub-unit is reported and skipped; blocks
// whose CoFaces are not all meshed are skipped too.
func MeshBlocks(ctx context.Context, tx *topo.Tx, env Env, blocks []domain.ID) (*MeshReport, error) {
	g := tx.Graph()
	if env.Mesher == nil {
		return nil, domain.New(domain.CodePrecondition, "meshing needs a mesh generator")
	}
	var bs []*topo.Block
	if len(blocks) == 0 {
		bs = g.Blocks()
	} else {
		var err error
		if bs, err = lookupBlocks(g, blocks); err != nil {
			return nil, err
		}
	}
	report := &MeshReport{}

	var coedges, cofaces topo.IDSet
	for _, b := range bs {
		for _, id := range g.BlockCoEdges(b) {
			coedges = coedges.Add(id)
		}
		for _, id := range g.BlockCoFaces(b) {
			cofaces = cofaces.Add(id)
		}
	}
	for _, id := range coedges {
		c := g.MustCoEdge(id)
		if c.Points == nil {
			tx.MeshModify(c)
			c.Points = discretize(g, c)
		}
	}

	var surfaces []ports.SurfaceBoundary
	var pending []*topo.CoFace
	for _, id := range cofaces {
		cf := g.MustCoFace(id)
		if cf.Mesh != nil {
			continue
		}
		pending = append(pending, cf)
		surfaces = append(surfaces, surfaceBoundary(g, cf))
	}
	for i, r := range fanOut(ctx, env.workers(), surfaces, env.Mesher.MeshSurface) {
		cf := pending[i]
		switch {
		case !r.done:
			report.Cancelled = true
		case r.err != nil:
			report.Failures = append(report.Failures, MeshFailure{Name: cf.Name(), Err: r.err})
		default:
			tx.MeshModify(cf)
			mesh := r.mesh
			cf.Mesh = &mesh
			report.CoFaces = append(report.CoFaces, cf.Name())
		}
	}
	if ctx.Err() != nil {
		report.Cancelled = true
		return report, nil
	}

	var volumes []ports.VolumeBoundary
	var ready []*topo.Block
	for _, b := range bs {
		if b.Mesh != nil {
			continue
		}
		vb, err := volumeBoundary(g, b)
		if err != nil {
			report.Failures = append(report.Failures, MeshFailure{Name: b.Name(), Err: err})
			continue
		}
		ready = append(ready, b)
		volumes = append(volumes, vb)
	}
	for i, r := range fanOut(ctx, env.workers(), volumes, env.Mesher.MeshVolume) {
		b := ready[i]
		switch {
		case !r.done:
			report.Cancelled = true
		case r.err != nil:
			report.Failures = append(report.Failures, MeshFailure{Name: b.Name(), Err: r.err})
		default:
			tx.MeshModify(b)
			mesh := r.mesh
			b.Mesh = &mesh
			report.Blocks = append(report.Blocks, b.Name())
		}
	}
	return report, nil
}

// discretize places the nodes of c along the segment between its ends.
func discretize(g *topo.Graph, c *topo.CoEdge) []domain.Point {
	a, b := g.MustVertex(c.V[0]).Coord, g.MustVertex(c.V[1]).Coord
	params := c.Meshing.Params()
	out := make([]domain.Point, len(params))
	for i, t := range params {
		out[i] = a.Lerp(b, t)
	}
	return out
}

// chainNodes lists the mesh nodes along ch from its start, keeping every
// ratio-th node of semi-conformal CoEdges.
func chainNodes(g *topo.Graph, ch topo.Chain) []domain.Point {
	out := []domain.Point{g.MustVertex(ch.Start()).Coord}
	for i, id := range ch.CoEdges {
		c := g.MustCoEdge(id)
		pts := c.Points
		if pts == nil {
			pts = discretize(g, c)
		}
		if c.V[0] != ch.Vertices[i] {
			rev := make([]domain.Point, len(pts))
			for j, p := range pts {
				rev[len(pts)-1-j] = p
			}
			pts = rev
		}
		r := max(ch.Ratios[i], 1)
		for j := r; j < len(pts); j += r {
			out = append(out, pts[j])
		}
		if (len(pts)-1)%r != 0 {
			out = append(out, pts[len(pts)-1])
		}
	}
	return out
}

func surfaceBoundary(g *topo.Graph, cf *topo.CoFace) ports.SurfaceBoundary {
	sb := ports.SurfaceBoundary{Name: cf.Name(), Structured: g.CoFaceStructured(cf)}
	for s := range cf.Edges {
		sb.Sides = append(sb.Sides, chainNodes(g, g.Side(cf, s)))
	}
	return sb
}

func volumeBoundary(g *topo.Graph, b *topo.Block) (ports.VolumeBoundary, error) {
	vb := ports.VolumeBoundary{Name: b.Name()}
	if !b.Hex() {
		return vb, domain.Newf(domain.CodePrecondition, "block %s is degenerate", b.Name())
	}
	ok, err := g.Structured(b)
	if err != nil {
		return vb, err
	}
	vb.Structured = ok
	for i, v := range b.V {
		vb.Corners[i] = g.MustVertex(v).Coord
	}
	for d := range 3 {
		chains, err := g.DirectionChains(b, d)
		if err != nil {
			return vb, err
		}
		for i, ch := range chains {
			vb.Edges[d][i] = chainNodes(g, ch)
		}
	}
	for _, id := range g.BlockCoFaces(b) {
		cf := g.MustCoFace(id)
		if cf.Mesh == nil {
			return vb, domain.Newf(domain.CodePrecondition, "coface %s of block %s is not meshed", cf.Name(), b.Name())
		}
		vb.Faces = append(vb.Faces, *cf.Mesh)
	}
	return vb, nil
}

// SmoothCoFace sends the mesh of a CoFace to the smoother. Each node is
// classified by the geometry of the entity it lies on; constrained nodes are
// projected back through the oracle of env, when there is one.
func SmoothCoFace(ctx context.Context, tx *topo.Tx, env Env, coface domain.ID) error {
	g := tx.Graph()
	cf, err := g.CoFace(coface)
	if err != nil {
		return err
	}
	if env.Smoother == nil {
		return domain.New(domain.CodePrecondition, "smoothing needs a smoother")
	}
	if cf.Mesh == nil {
		return domain.Newf(domain.CodePrecondition, "coface %s is not meshed", cf.Name())
	}

	binds := nodeBindings(g, cf)
	req := ports.SmoothRequest{
		Name:    cf.Name(),
		Nodes:   append([]domain.Point(nil), cf.Mesh.Nodes...),
		Cells:   cf.Mesh.Cells,
		Classes: make([]domain.NodeClass, len(cf.Mesh.Nodes)),
	}
	for i, b := range binds {
		req.Classes[i] = b.class
	}
	snap := func(i int, p domain.Point) (domain.Point, error) {
		if env.Oracle == nil || binds[i].ref.IsZero() {
			return p, nil
		}
		return env.Oracle.Project(ctx, binds[i].ref, p)
	}
	nodes, err := env.Smoother.Smooth(ctx, req, snap)
	if err != nil {
		return domain.Wrap(domain.CodeExternal, "smoother failed", err).WithMetadata("coface", cf.Name())
	}
	if len(nodes) != len(req.Nodes) {
		return domain.Newf(domain.CodeExternal, "smoother returned %d nodes for %d", len(nodes), len(req.Nodes))
	}
	tx.MeshModify(cf)
	cf.Mesh = &domain.SurfaceMesh{Nodes: nodes, Cells: cf.Mesh.Cells}
	invalidateMeshes(tx, cf)
	return nil
}

type binding struct {
	ref   domain.GeomRef
	class domain.NodeClass
}

// nodeBindings finds, for each mesh node of cf, the geometry it is bound to:
// the association of the vertex or CoEdge it sits on, otherwise that of cf.
// Boundary nodes without association are pinned.
func nodeBindings(g *topo.Graph, cf *topo.CoFace) []binding {
	const eps = 1e-9
	bound := func(ref domain.GeomRef) binding {
		if ref.IsZero() {
			return binding{class: domain.NodeOnVertex}
		}
		return binding{ref: ref, class: domain.ClassForDim(ref.Dim, true)}
	}
	out := make([]binding, len(cf.Mesh.Nodes))
	coedges := g.CoFaceCoEdges(cf)
next:
	for i, p := range cf.Mesh.Nodes {
		for _, v := range cf.V {
			if vx := g.MustVertex(v); vx.Coord.Dist(p) < eps {
				out[i] = bound(vx.Geom)
				continue next
			}
		}
		for _, id := range coedges {
			c := g.MustCoEdge(id)
			a, b := g.MustVertex(c.V[0]).Coord, g.MustVertex(c.V[1]).Coord
			if onSegment(a, b, p, eps) {
				out[i] = bound(c.Geom)
				continue next
			}
		}
		out[i] = binding{ref: cf.Geom, class: domain.ClassForDim(cf.Geom.Dim, !cf.Geom.IsZero())}
	}
	return out
}

func onSegment(a, b, p domain.Point, eps float64) bool {
	return a.Lerp(b, domain.ProjectParam(a, b, p)).Dist(p) < eps
}
