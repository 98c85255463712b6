// Package transfinite is a reference structured mesher: it fills CoFaces and
// Blocks by transfinite interpolation of their discretized boundary, and
// relaxes surface meshes with a constrained Laplacian smoother.
package transfinite

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/ports"
)

// ErrUnstructured is returned for boundaries that cannot carry a regular grid.
var ErrUnstructured = errors.New("boundary is not structured")

// Mesher implements ports.MeshGenerator. It holds no state and is safe for
// concurrent use.
type Mesher struct{}

// New creates a mesher.
func New() *Mesher { return &Mesher{} }

// MeshSurface builds an n×m quad grid from the 4 sides of a CoFace with a
// Coons patch. A degenerate CoFace is treated as a quad whose last side is
// collapsed onto corner 0.
func (m *Mesher) MeshSurface(ctx context.Context, b ports.SurfaceBoundary) (domain.SurfaceMesh, error) {
	if err := ctx.Err(); err != nil {
		return domain.SurfaceMesh{}, err
	}
	sides, err := quadSides(b)
	if err != nil {
		return domain.SurfaceMesh{}, err
	}
	bottom, right, top, left := sides[0], sides[1], sides[2], sides[3]
	n, k := len(bottom)-1, len(right)-1
	c0, c1, c2, c3 := bottom[0], bottom[n], top[0], top[n]

	nodes := make([]domain.Point, 0, (n+1)*(k+1))
	for j := 0; j <= k; j++ {
		v := float64(j) / float64(k)
		for i := 0; i <= n; i++ {
			u := float64(i) / float64(n)
			p := bottom[i].Scale(1 - v).
				Add(top[n-i].Scale(v)).
				Add(left[k-j].Scale(1 - u)).
				Add(right[j].Scale(u))
			corner := c0.Scale((1 - u) * (1 - v)).
				Add(c1.Scale(u * (1 - v))).
				Add(c2.Scale(u * v)).
				Add(c3.Scale((1 - u) * v))
			nodes = append(nodes, p.Sub(corner))
		}
	}
	cells := make([][]int, 0, n*k)
	for j := range k {
		for i := range n {
			a := j*(n+1) + i
			cells = append(cells, []int{a, a + 1, a + n + 2, a + n + 1})
		}
	}
	return domain.SurfaceMesh{Nodes: nodes, Cells: cells}, nil
}

// quadSides returns the 4 sides with matching opposite counts.
func quadSides(b ports.SurfaceBoundary) ([4][]domain.Point, error) {
	var out [4][]domain.Point
	if !b.Structured {
		return out, fmt.Errorf("coface %s: %w", b.Name, ErrUnstructured)
	}
	switch len(b.Sides) {
	case 4:
		copy(out[:], b.Sides)
	case 3:
		copy(out[:], b.Sides)
		apex := b.Sides[0][0]
		out[3] = make([]domain.Point, len(b.Sides[1]))
		for i := range out[3] {
			out[3][i] = apex
		}
	default:
		return out, fmt.Errorf("coface %s has %d sides", b.Name, len(b.Sides))
	}
	for _, s := range out {
		if len(s) < 2 {
			return out, fmt.Errorf("coface %s has an undiscretized side", b.Name)
		}
	}
	if len(out[0]) != len(out[2]) || len(out[1]) != len(out[3]) {
		return out, fmt.Errorf("coface %s: opposite sides differ: %w", b.Name, ErrUnstructured)
	}
	return out, nil
}

// MeshVolume fills a structured block with hexahedra. Interior nodes blend
// the 12 block edges; cells list their corners in block corner order.
func (m *Mesher) MeshVolume(ctx context.Context, b ports.VolumeBoundary) (domain.VolumeMesh, error) {
	if err := ctx.Err(); err != nil {
		return domain.VolumeMesh{}, err
	}
	if !b.Structured {
		return domain.VolumeMesh{}, fmt.Errorf("block %s: %w", b.Name, ErrUnstructured)
	}
	var size [3]int
	for d := range 3 {
		size[d] = len(b.Edges[d][0]) - 1
		for _, e := range b.Edges[d] {
			if len(e)-1 != size[d] || size[d] < 1 {
				return domain.VolumeMesh{}, fmt.Errorf("block %s: edges along direction %d differ: %w", b.Name, d, ErrUnstructured)
			}
		}
	}
	nx, ny, nz := size[0], size[1], size[2]
	index := func(i, j, k int) int { return i + (nx+1)*(j+(ny+1)*k) }

	nodes := make([]domain.Point, (nx+1)*(ny+1)*(nz+1))
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				idx := [3]int{i, j, k}
				t := [3]float64{float64(i) / float64(nx), float64(j) / float64(ny), float64(k) / float64(nz)}
				nodes[index(i, j, k)] = blend(b, idx, t)
			}
		}
	}
	cells := make([][]int, 0, nx*ny*nz)
	for k := range nz {
		for j := range ny {
			for i := range nx {
				cell := make([]int, 8)
				for c := range 8 {
					cell[c] = index(i+c&1, j+c>>1&1, k+c>>2&1)
				}
				cells = append(cells, cell)
			}
		}
	}
	return domain.VolumeMesh{Nodes: nodes, Cells: cells}, nil
}

// edgeLow lists the low corner slot of each block edge, per direction.
var edgeLow = [3][4]int{
	{0, 2, 4, 6},
	{0, 1, 4, 5},
	{0, 1, 2, 3},
}

// blend is the edge-based transfinite interpolation: the sum of the 12 edges
// weighted by the linear blend of the other two parameters, minus twice the
// trilinear interpolation of the corners.
func blend(b ports.VolumeBoundary, idx [3]int, t [3]float64) domain.Point {
	weight := func(slot, skip int) float64 {
		w := 1.0
		for e := range 3 {
			if e == skip {
				continue
			}
			if slot>>e&1 == 1 {
				w *= t[e]
			} else {
				w *= 1 - t[e]
			}
		}
		return w
	}
	var p domain.Point
	for d := range 3 {
		for i, slot := range edgeLow[d] {
			p = p.Add(b.Edges[d][i][idx[d]].Scale(weight(slot, d)))
		}
	}
	for slot, c := range b.Corners {
		p = p.Sub(c.Scale(2 * weight(slot, -1)))
	}
	return p
}
