package domain

// Transition is the change an entity went through during one command.
// Values are ordered: merging keeps the greater one (see journal.Merge).
type Transition int

const (
	MeshModified Transition = iota + 1
	DisplayModified
	Created
	Deleted
	None
)

func (t Transition) String() string {
	switch t {
	case MeshModified:
		return "MESH_MODIFIED"
	case DisplayModified:
		return "DISPLAY_MODIFIED"
	case Created:
		return "CREATED"
	case Deleted:
		return "DELETED"
	case None:
		return "NONE"
	}
	return "UNKNOWN"
}
