package domain

import "math"

// EdgeLaw is the distribution law of mesh nodes along a CoEdge.
type EdgeLaw string

const (
	LawUniform   EdgeLaw = "uniform"
	LawGeometric EdgeLaw = "geometric"
)

// EdgeMeshing is the discretization policy of a CoEdge.
type EdgeMeshing struct {
	Law      EdgeLaw `json:"law" yaml:"law" mapstructure:"law"`
	Segments int     `json:"segments" yaml:"segments" mapstructure:"segments"`
	// Ratio is the progression between consecutive segments for LawGeometric.
	Ratio float64 `json:"ratio,omitempty" yaml:"ratio,omitempty" mapstructure:"ratio"`
}

// Uniform returns a uniform law with n segments.
func Uniform(n int) EdgeMeshing {
	return EdgeMeshing{Law: LawUniform, Segments: n}
}

// Validate checks the law parameters.
func (m EdgeMeshing) Validate() error {
	if m.Segments < 1 {
		return Newf(CodeInvalidArgument, "edge meshing needs at least one segment, got %d", m.Segments)
	}
	switch m.Law {
	case LawUniform:
	case LawGeometric:
		if m.Ratio <= 0 {
			return Newf(CodeInvalidArgument, "geometric law needs a positive ratio, got %g", m.Ratio)
		}
	default:
		return Newf(CodeInvalidArgument, "unknown edge law %q", m.Law)
	}
	return nil
}

// Params returns the Segments+1 node parameters in [0,1] along the CoEdge.
func (m EdgeMeshing) Params() []float64 {
	n := max(m.Segments, 1)
	out := make([]float64, n+1)
	if m.Law == LawGeometric && m.Ratio > 0 && m.Ratio != 1 {
		total := (1 - math.Pow(m.Ratio, float64(n))) / (1 - m.Ratio)
		acc, step := 0.0, 1.0
		for i := 1; i <= n; i++ {
			acc += step
			step *= m.Ratio
			out[i] = acc / total
		}
		out[n] = 1
		return out
	}
	for i := 0; i <= n; i++ {
		out[i] = float64(i) / float64(n)
	}
	return out
}

// Split cuts the law at node j (0 < j < Segments) into the laws of the two
// resulting CoEdges. The geometric progression continues on the second part.
func (m EdgeMeshing) Split(j int) (EdgeMeshing, EdgeMeshing) {
	lo, hi := m, m
	lo.Segments = j
	hi.Segments = m.Segments - j
	return lo, hi
}

// Reversed returns the law as seen from the other end of the CoEdge.
func (m EdgeMeshing) Reversed() EdgeMeshing {
	if m.Law == LawGeometric && m.Ratio > 0 {
		m.Ratio = 1 / m.Ratio
	}
	return m
}

// BlockLaw is the meshing method of a Block or CoFace.
type BlockLaw string

const (
	LawTransfinite BlockLaw = "transfinite"
	LawDelaunay    BlockLaw = "delaunay"
)

// BlockMeshing is the meshing property of a Block.
type BlockMeshing struct {
	Law BlockLaw `json:"law" yaml:"law" mapstructure:"law"`
}

// Structured reports whether the law produces a regular i×j×k grid.
func (m BlockMeshing) Structured() bool {
	return m.Law == LawTransfinite || m.Law == ""
}

// Validate checks the law name.
func (m BlockMeshing) Validate() error {
	switch m.Law {
	case LawTransfinite, LawDelaunay:
		return nil
	}
	return Newf(CodeInvalidArgument, "unknown block law %q", m.Law)
}

// SurfaceMesh is the opaque result of meshing a CoFace.
type SurfaceMesh struct {
	Nodes []Point `json:"nodes"`
	Cells [][]int `json:"cells"`
}

// VolumeMesh is the opaque result of meshing a Block.
type VolumeMesh struct {
	Nodes []Point `json:"nodes"`
	Cells [][]int `json:"cells"`
}
