package domain

// GeomRef is a weak handle on an entity of the external geometric model.
// The core never inspects it beyond its name and dimension.
type GeomRef struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	Dim  int    `json:"dim" yaml:"dim" mapstructure:"dim"`
}

// IsZero reports whether the reference is unset.
func (g GeomRef) IsZero() bool { return g.Name == "" }

// Compatible reports whether an entity of kind k may be associated with g.
// A topological entity can only lie on geometry of equal or higher dimension.
func (g GeomRef) Compatible(k Kind) bool {
	return g.Dim >= k.Dim() && g.Dim <= 3
}

// NodeClass classifies a mesh node for smoothing by its geometric constraint.
type NodeClass int

const (
	NodeFree NodeClass = iota
	NodeOnSurface
	NodeOnCurve
	NodeOnVertex
)

// ClassForDim maps the dimension of the associated geometry to a node class.
func ClassForDim(dim int, associated bool) NodeClass {
	if !associated {
		return NodeFree
	}
	switch dim {
	case 0:
		return NodeOnVertex
	case 1:
		return NodeOnCurve
	case 2:
		return NodeOnSurface
	}
	return NodeFree
}
