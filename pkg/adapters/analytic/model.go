// Package analytic implements ports.GeometryOracle over a small set of
// closed-form shapes: points, segments, rectangular patches and spheres.
// It stands in for a boundary-representation kernel in scripts and tests.
package analytic

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/aretw0/topoedit/pkg/domain"
)

// Kind names a shape family.
type Kind string

const (
	KindPoint   Kind = "point"
	KindSegment Kind = "segment"
	KindPatch   Kind = "patch"
	KindSphere  Kind = "sphere"
)

// Shape is one named entity of the model.
//
//   - point: Points[0]
//   - segment: Points[0] to Points[1]
//   - patch: the parallelogram Points[0] + s·(Points[1]-Points[0]) + t·(Points[2]-Points[0]), s,t in [0,1]
//   - sphere: centre Points[0], Radius
type Shape struct {
	Name   string         `yaml:"name" mapstructure:"name"`
	Kind   Kind           `yaml:"kind" mapstructure:"kind"`
	Points []domain.Point `yaml:"points" mapstructure:"points"`
	Radius float64        `yaml:"radius,omitempty" mapstructure:"radius"`
}

// Dim returns the topological dimension of the shape.
func (s Shape) Dim() int {
	switch s.Kind {
	case KindPoint:
		return 0
	case KindSegment:
		return 1
	}
	return 2
}

// Ref returns the reference used to associate topology with s.
func (s Shape) Ref() domain.GeomRef { return domain.GeomRef{Name: s.Name, Dim: s.Dim()} }

func (s Shape) validate() error {
	want := map[Kind]int{KindPoint: 1, KindSegment: 2, KindPatch: 3, KindSphere: 1}
	n, ok := want[s.Kind]
	switch {
	case s.Name == "":
		return domain.New(domain.CodeInvalidArgument, "shape name is empty")
	case !ok:
		return domain.Newf(domain.CodeInvalidArgument, "shape %s has unknown kind %q", s.Name, s.Kind)
	case len(s.Points) != n:
		return domain.Newf(domain.CodeInvalidArgument, "%s %s needs %d points, got %d", s.Kind, s.Name, n, len(s.Points))
	case s.Kind == KindSphere && s.Radius <= 0:
		return domain.Newf(domain.CodeInvalidArgument, "sphere %s needs a positive radius", s.Name)
	}
	return nil
}

// Model is a registry of shapes. Safe for concurrent use.
type Model struct {
	mu     sync.RWMutex
	shapes map[string]Shape
}

// NewModel creates a model holding shapes. Patch edges are registered as
// segments named "<patch>.e0" to "<patch>.e3".
func NewModel(shapes ...Shape) (*Model, error) {
	m := &Model{shapes: make(map[string]Shape)}
	for _, s := range shapes {
		if err := m.Add(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add registers s, replacing a shape of the same name.
func (m *Model) Add(s Shape) error {
	if err := s.validate(); err != nil {
		return err
	}
	s.Points = slices.Clone(s.Points)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shapes[s.Name] = s
	if s.Kind == KindPatch {
		c := patchCorners(s)
		for i := range 4 {
			name := edgeName(s.Name, i)
			m.shapes[name] = Shape{Name: name, Kind: KindSegment, Points: []domain.Point{c[i], c[(i+1)%4]}}
		}
	}
	return nil
}

// Names lists the registered shapes.
func (m *Model) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.shapes))
}

func edgeName(patch string, i int) string { return fmt.Sprintf("%s.e%d", patch, i) }

func patchCorners(s Shape) [4]domain.Point {
	o, a, b := s.Points[0], s.Points[1], s.Points[2]
	return [4]domain.Point{o, a, a.Add(b.Sub(o)), b}
}

func (m *Model) shape(ref domain.GeomRef) (Shape, error) {
	m.mu.RLock()
	s, ok := m.shapes[ref.Name]
	m.mu.RUnlock()
	if !ok {
		return Shape{}, domain.Newf(domain.CodeNotFound, "geometry %s not found", ref.Name)
	}
	return s, nil
}

// Dimension returns the dimension of the referenced shape.
func (m *Model) Dimension(_ context.Context, ref domain.GeomRef) (int, error) {
	s, err := m.shape(ref)
	if err != nil {
		return 0, err
	}
	return s.Dim(), nil
}

// Project returns the point of the shape closest to p.
func (m *Model) Project(ctx context.Context, ref domain.GeomRef, p domain.Point) (domain.Point, error) {
	if err := ctx.Err(); err != nil {
		return p, err
	}
	s, err := m.shape(ref)
	if err != nil {
		return p, err
	}
	switch s.Kind {
	case KindPoint:
		return s.Points[0], nil
	case KindSegment:
		a, b := s.Points[0], s.Points[1]
		return a.Lerp(b, domain.ProjectParam(a, b, p)), nil
	case KindPatch:
		return projectPatch(s, p), nil
	default:
		c := s.Points[0]
		d := p.Sub(c)
		n := d.Norm()
		if n == 0 {
			return c.Add(domain.Point{X: s.Radius}), nil
		}
		return c.Add(d.Scale(s.Radius / n)), nil
	}
}

// projectPatch solves the 2x2 normal equations of the patch plane and clamps
// the parameters to the patch.
func projectPatch(s Shape, p domain.Point) domain.Point {
	o := s.Points[0]
	u, v := s.Points[1].Sub(o), s.Points[2].Sub(o)
	d := p.Sub(o)
	uu, uv, vv := u.Dot(u), u.Dot(v), v.Dot(v)
	du, dv := d.Dot(u), d.Dot(v)
	det := uu*vv - uv*uv
	var a, b float64
	if math.Abs(det) > 1e-300 {
		a = (du*vv - dv*uv) / det
		b = (dv*uu - du*uv) / det
	}
	a = min(max(a, 0), 1)
	b = min(max(b, 0), 1)
	return o.Add(u.Scale(a)).Add(v.Scale(b))
}

// BoundaryVertices returns the ends of a segment, the corners of a patch and
// the point itself for a point. Spheres have none.
func (m *Model) BoundaryVertices(_ context.Context, ref domain.GeomRef) ([]domain.Point, error) {
	s, err := m.shape(ref)
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case KindPoint, KindSegment:
		return slices.Clone(s.Points), nil
	case KindPatch:
		c := patchCorners(s)
		return c[:], nil
	}
	return nil, nil
}

// BoundaryCurves returns the 4 edges of a patch. Other shapes have none.
func (m *Model) BoundaryCurves(_ context.Context, ref domain.GeomRef) ([]domain.GeomRef, error) {
	s, err := m.shape(ref)
	if err != nil {
		return nil, err
	}
	if s.Kind != KindPatch {
		return nil, nil
	}
	out := make([]domain.GeomRef, 4)
	for i := range out {
		out[i] = domain.GeomRef{Name: edgeName(s.Name, i), Dim: 1}
	}
	return out, nil
}
