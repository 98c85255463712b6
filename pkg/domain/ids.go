package domain

import "fmt"

// ID is the process-unique identifier of a topological entity.
// The zero value means "no entity".
type ID uint64

// String renders the id for logs.
func (id ID) String() string {
	return fmt.Sprintf("#%d", uint64(id))
}

// Kind is the closed set of topological entity variants.
type Kind int

const (
	KindVertex Kind = iota
	KindCoEdge
	KindEdge
	KindCoFace
	KindFace
	KindBlock
)

// Kinds lists every entity kind in leaf-to-root order.
var Kinds = []Kind{KindVertex, KindCoEdge, KindEdge, KindCoFace, KindFace, KindBlock}

// Dim returns the topological dimension of the kind.
func (k Kind) Dim() int {
	switch k {
	case KindVertex:
		return 0
	case KindCoEdge, KindEdge:
		return 1
	case KindCoFace, KindFace:
		return 2
	default:
		return 3
	}
}

// Prefix is the display-name prefix used by the name manager.
func (k Kind) Prefix() string {
	switch k {
	case KindVertex:
		return "Som"
	case KindCoEdge:
		return "Ar"
	case KindEdge:
		return "Edge"
	case KindCoFace:
		return "Fa"
	case KindFace:
		return "Face"
	default:
		return "Bl"
	}
}

func (k Kind) String() string {
	switch k {
	case KindVertex:
		return "vertex"
	case KindCoEdge:
		return "coedge"
	case KindEdge:
		return "edge"
	case KindCoFace:
		return "coface"
	case KindFace:
		return "face"
	case KindBlock:
		return "block"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind resolves a kind from its String form.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, Newf(CodeInvalidArgument, "unknown entity kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
