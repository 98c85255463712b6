package topo

import (
	"maps"
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
)

// Entity is implemented by the six topological variants.
// Identity (id, kind, name) is immutable. Everything else lives in a property
// block that a transaction can save and swap.
type Entity interface {
	ID() domain.ID
	Kind() domain.Kind
	Name() string
	Props() *Common

	saveProps() any
	swapProps(saved any) any
}

// Common holds the mutable state shared by every variant.
type Common struct {
	Destroyed bool
	Geom      domain.GeomRef
	Groups    []string
}

func (c Common) clone() Common {
	c.Groups = slices.Clone(c.Groups)
	return c
}

type base struct {
	id   domain.ID
	kind domain.Kind
	name string
}

func (b *base) ID() domain.ID     { return b.id }
func (b *base) Kind() domain.Kind { return b.kind }
func (b *base) Name() string      { return b.name }

// VertexProps is the mutable state of a Vertex.
type VertexProps struct {
	Common
	Coord domain.Point
	// CoEdges are the CoEdges ending at this vertex.
	CoEdges IDSet
}

// Vertex is a point of the topology.
type Vertex struct {
	base
	VertexProps
}

func (v *Vertex) Props() *Common { return &v.Common }

func (v *Vertex) saveProps() any {
	p := v.VertexProps
	p.Common = p.Common.clone()
	p.CoEdges = p.CoEdges.Clone()
	return p
}

func (v *Vertex) swapProps(saved any) any {
	old := v.VertexProps
	v.VertexProps = saved.(VertexProps)
	return old
}

// CoEdgeProps is the mutable state of a CoEdge.
type CoEdgeProps struct {
	Common
	V       [2]domain.ID
	Meshing domain.EdgeMeshing
	// Points caches the discretization computed by the last meshing pass.
	Points []domain.Point
	// Edges are the Edges whose chain includes this CoEdge.
	Edges IDSet
}

// CoEdge is the common edge carrying the discretization.
type CoEdge struct {
	base
	CoEdgeProps
}

func (c *CoEdge) Props() *Common { return &c.Common }

func (c *CoEdge) saveProps() any {
	p := c.CoEdgeProps
	p.Common = p.Common.clone()
	p.Points = slices.Clone(p.Points)
	p.Edges = p.Edges.Clone()
	return p
}

func (c *CoEdge) swapProps(saved any) any {
	old := c.CoEdgeProps
	c.CoEdgeProps = saved.(CoEdgeProps)
	return old
}

// Other returns the end of the CoEdge opposite to v, or 0 if v is not an end.
func (c *CoEdge) Other(v domain.ID) domain.ID {
	switch v {
	case c.V[0]:
		return c.V[1]
	case c.V[1]:
		return c.V[0]
	}
	return 0
}

// EdgeProps is the mutable state of an Edge.
type EdgeProps struct {
	Common
	V [2]domain.ID
	// CoEdges is ordered from V[0] to V[1].
	CoEdges []domain.ID
	// Ratios holds the semi-conformal ratio of a CoEdge when it differs from 1.
	Ratios map[domain.ID]int
	// CoFaces are the CoFaces bounded by this Edge.
	CoFaces IDSet
}

// Edge is an ordered chain of CoEdges forming one side of a CoFace.
type Edge struct {
	base
	EdgeProps
}

func (e *Edge) Props() *Common { return &e.Common }

func (e *Edge) saveProps() any {
	p := e.EdgeProps
	p.Common = p.Common.clone()
	p.CoEdges = slices.Clone(p.CoEdges)
	p.Ratios = maps.Clone(p.Ratios)
	p.CoFaces = p.CoFaces.Clone()
	return p
}

func (e *Edge) swapProps(saved any) any {
	old := e.EdgeProps
	e.EdgeProps = saved.(EdgeProps)
	return old
}

// Ratio returns the semi-conformal ratio of a CoEdge of the chain.
func (e *Edge) Ratio(coedge domain.ID) int {
	if r, ok := e.Ratios[coedge]; ok && r > 0 {
		return r
	}
	return 1
}

// CoFaceProps is the mutable state of a CoFace.
type CoFaceProps struct {
	Common
	// V holds the 3 or 4 corners; side s joins V[s] to V[s+1].
	V []domain.ID
	// Edges holds one Edge per side.
	Edges      []domain.ID
	Structured bool
	Mesh       *domain.SurfaceMesh
	// Faces are the Faces including this CoFace.
	Faces IDSet
}

// CoFace is the common face carrying the surface discretization.
type CoFace struct {
	base
	CoFaceProps
}

func (c *CoFace) Props() *Common { return &c.Common }

func (c *CoFace) saveProps() any {
	p := c.CoFaceProps
	p.Common = p.Common.clone()
	p.V = slices.Clone(p.V)
	p.Edges = slices.Clone(p.Edges)
	p.Faces = p.Faces.Clone()
	return p
}

func (c *CoFace) swapProps(saved any) any {
	old := c.CoFaceProps
	c.CoFaceProps = saved.(CoFaceProps)
	return old
}

// Degenerate reports whether the CoFace is a triangle collapsed at V[0].
func (c *CoFace) Degenerate() bool { return len(c.V) == 3 }

// Side returns the index of the side holding edge, or -1.
func (c *CoFace) Side(edge domain.ID) int {
	return slices.Index(c.Edges, edge)
}

// FaceProps is the mutable state of a Face.
type FaceProps struct {
	Common
	CoFaces []domain.ID
	// Ratios holds the directional semi-conformal ratios of a CoFace when not 1:1.
	Ratios map[domain.ID][2]int
	Block  domain.ID
}

// Face is one side of a Block, made of one or more CoFaces.
type Face struct {
	base
	FaceProps
}

func (f *Face) Props() *Common { return &f.Common }

func (f *Face) saveProps() any {
	p := f.FaceProps
	p.Common = p.Common.clone()
	p.CoFaces = slices.Clone(p.CoFaces)
	p.Ratios = maps.Clone(p.Ratios)
	return p
}

func (f *Face) swapProps(saved any) any {
	old := f.FaceProps
	f.FaceProps = saved.(FaceProps)
	return old
}

// BlockProps is the mutable state of a Block.
type BlockProps struct {
	Common
	// V holds the corners indexed i + 2j + 4k.
	V [8]domain.ID
	// Faces holds one Face per side in I_MIN, I_MAX, J_MIN, J_MAX, K_MIN, K_MAX order.
	// A degenerate block may leave slots at 0.
	Faces   [6]domain.ID
	Meshing domain.BlockMeshing
	Mesh    *domain.VolumeMesh
}

// Block is a hexahedral (possibly degenerate) region.
type Block struct {
	base
	BlockProps
}

func (b *Block) Props() *Common { return &b.Common }

func (b *Block) saveProps() any {
	p := b.BlockProps
	p.Common = p.Common.clone()
	return p
}

func (b *Block) swapProps(saved any) any {
	old := b.BlockProps
	b.BlockProps = saved.(BlockProps)
	return old
}

// Hex reports whether the block has 8 distinct corners and 6 faces.
func (b *Block) Hex() bool {
	seen := make(map[domain.ID]bool, 8)
	for _, v := range b.V {
		if v == 0 || seen[v] {
			return false
		}
		seen[v] = true
	}
	for _, f := range b.Faces {
		if f == 0 {
			return false
		}
	}
	return true
}

// Corner returns the corner slot holding v, or -1.
func (b *Block) Corner(v domain.ID) int {
	return slices.Index(b.V[:], v)
}

// FaceSide returns the side holding face, or -1.
func (b *Block) FaceSide(face domain.ID) int {
	return slices.Index(b.Faces[:], face)
}
