package transfinite

import (
	"context"
	"fmt"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/ports"
)

// Smoother implements ports.Smoother with Laplacian relaxation. Nodes on a
// vertex stay fixed; nodes on a curve or surface are snapped back after every
// move.
type Smoother struct {
	Iterations int
	// Relaxation scales each move towards the neighbour average, in (0,1].
	Relaxation float64
}

// NewSmoother creates a smoother with 10 iterations of full relaxation.
func NewSmoother() *Smoother { return &Smoother{Iterations: 10, Relaxation: 1} }

func (s *Smoother) Smooth(ctx context.Context, req ports.SmoothRequest, snap ports.SnapFunc) ([]domain.Point, error) {
	if len(req.Classes) != len(req.Nodes) {
		return nil, fmt.Errorf("%s: %d classes for %d nodes", req.Name, len(req.Classes), len(req.Nodes))
	}
	adj := make([]map[int]struct{}, len(req.Nodes))
	for i := range adj {
		adj[i] = make(map[int]struct{})
	}
	for _, cell := range req.Cells {
		for i, a := range cell {
			b := cell[(i+1)%len(cell)]
			if a < 0 || a >= len(req.Nodes) || b < 0 || b >= len(req.Nodes) {
				return nil, fmt.Errorf("%s: cell references node outside [0,%d)", req.Name, len(req.Nodes))
			}
			if a != b {
				adj[a][b] = struct{}{}
				adj[b][a] = struct{}{}
			}
		}
	}

	relax := s.Relaxation
	if relax <= 0 || relax > 1 {
		relax = 1
	}
	cur := append([]domain.Point(nil), req.Nodes...)
	next := make([]domain.Point, len(cur))
	for range s.Iterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, p := range cur {
			next[i] = p
			if req.Classes[i] == domain.NodeOnVertex || len(adj[i]) == 0 {
				continue
			}
			var sum domain.Point
			for j := range adj[i] {
				sum = sum.Add(cur[j])
			}
			avg := sum.Scale(1 / float64(len(adj[i])))
			q := p.Lerp(avg, relax)
			if req.Classes[i] != domain.NodeFree {
				var err error
				if q, err = snap(i, q); err != nil {
					return nil, fmt.Errorf("%s: snap node %d: %w", req.Name, i, err)
				}
			}
			next[i] = q
		}
		cur, next = next, cur
	}
	return cur, nil
}
