package topo

import (
	"encoding/json"
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
)

// SnapshotVersion is the current snapshot format.
const SnapshotVersion = 1

// Snapshot is the persisted form of a graph. Back-references and mesh caches
// are not stored; they are rebuilt or recomputed.
type Snapshot struct {
	Version  int          `json:"version"`
	Stats    naming.Stats `json:"stats"`
	Entities []Record     `json:"entities"`
	// Sealed holds an encrypted snapshot; the other fields are then empty.
	Sealed []byte `json:"sealed,omitempty"`
}

// Record is the persisted form of one entity. Only the fields relevant to
// its kind are set.
type Record struct {
	ID     domain.ID      `json:"id"`
	Kind   domain.Kind    `json:"kind"`
	Name   string         `json:"name"`
	Geom   domain.GeomRef `json:"geom,omitzero"`
	Groups []string       `json:"groups,omitempty"`

	Coord        *domain.Point        `json:"coord,omitempty"`
	V            []domain.ID          `json:"v,omitempty"`
	EdgeMeshing  *domain.EdgeMeshing  `json:"edge_meshing,omitempty"`
	CoEdges      []domain.ID          `json:"coedges,omitempty"`
	Ratios       map[domain.ID]int    `json:"ratios,omitempty"`
	Edges        []domain.ID          `json:"edges,omitempty"`
	Structured   bool                 `json:"structured,omitempty"`
	CoFaces      []domain.ID          `json:"cofaces,omitempty"`
	FaceRatios   map[domain.ID][2]int `json:"face_ratios,omitempty"`
	Faces        []domain.ID          `json:"faces,omitempty"`
	BlockMeshing *domain.BlockMeshing `json:"block_meshing,omitempty"`
}

// Serialize captures the live entities of g and the counters of names.
func Serialize(g *Graph, names *naming.Manager) *Snapshot {
	s := &Snapshot{Version: SnapshotVersion, Stats: names.Stats()}
	for _, k := range domain.Kinds {
		for _, e := range g.Entities(k) {
			s.Entities = append(s.Entities, record(e))
		}
	}
	return s
}

func record(e Entity) Record {
	p := e.Props()
	r := Record{
		ID:     e.ID(),
		Kind:   e.Kind(),
		Name:   e.Name(),
		Geom:   p.Geom,
		Groups: slices.Clone(p.Groups),
	}
	switch x := e.(type) {
	case *Vertex:
		c := x.Coord
		r.Coord = &c
	case *CoEdge:
		m := x.Meshing
		r.V = slices.Clone(x.V[:])
		r.EdgeMeshing = &m
	case *Edge:
		r.V = slices.Clone(x.V[:])
		r.CoEdges = slices.Clone(x.CoEdges)
		r.Ratios = copyRatios(x.Ratios)
	case *CoFace:
		r.V = slices.Clone(x.V)
		r.Edges = slices.Clone(x.Edges)
		r.Structured = x.Structured
	case *Face:
		r.CoFaces = slices.Clone(x.CoFaces)
		if len(x.Ratios) > 0 {
			r.FaceRatios = make(map[domain.ID][2]int, len(x.Ratios))
			for k, v := range x.Ratios {
				r.FaceRatios[k] = v
			}
		}
	case *Block:
		m := x.Meshing
		r.V = slices.Clone(x.V[:])
		r.Faces = slices.Clone(x.Faces[:])
		r.BlockMeshing = &m
	}
	if len(r.Ratios) == 0 {
		r.Ratios = nil
	}
	return r
}

// Marshal encodes the snapshot as JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot decodes a JSON snapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, domain.Wrap(domain.CodeInvalidArgument, "decode snapshot", err)
	}
	if s.Version != SnapshotVersion {
		return nil, domain.Newf(domain.CodeInvalidArgument, "unsupported snapshot version %d", s.Version)
	}
	return &s, nil
}

// Deserialize rebuilds the graph and name manager captured by s.
func Deserialize(s *Snapshot) (*Graph, *naming.Manager, error) {
	g := NewGraph()
	names := naming.NewManager()
	tx := NewTx(g, names)
	if err := tx.Import(s); err != nil {
		tx.Cancel()
		return nil, nil, err
	}
	tx.Commit()
	names.SetStats(s.Stats)
	return g, names, nil
}

// Import registers the entities of s with their ids and names. The snapshot
// must be closed under references and must not clash with live entities.
// Counters of the transaction's name manager are moved past the imported names.
func (tx *Tx) Import(s *Snapshot) error {
	if len(s.Sealed) > 0 {
		return domain.New(domain.CodeInvalidArgument, "snapshot is sealed")
	}
	ids := make(map[domain.ID]domain.Kind, len(s.Entities))
	for _, r := range s.Entities {
		if _, dup := ids[r.ID]; dup {
			return domain.Newf(domain.CodeInvalidArgument, "snapshot holds id %s twice", r.ID)
		}
		if !slices.Contains(domain.Kinds, r.Kind) {
			return domain.Newf(domain.CodeInvalidArgument, "record %s has unknown kind %d", r.Name, r.Kind)
		}
		ids[r.ID] = r.Kind
		if tx.g.taken(r.ID) {
			return domain.Newf(domain.CodePrecondition, "id %s already exists", r.ID).WithMetadata("name", r.Name)
		}
		if _, err := tx.g.ByName(r.Kind, r.Name); err == nil {
			return domain.Newf(domain.CodePrecondition, "%s name %s already exists", r.Kind, r.Name)
		}
	}
	refs := func(r Record, k domain.Kind, list []domain.ID) error {
		for _, id := range list {
			if id == 0 && k == domain.KindFace {
				continue
			}
			if kk, ok := ids[id]; !ok || kk != k || id == 0 {
				return domain.Newf(domain.CodeInvalidArgument, "%s %s refers to unknown %s %s", r.Kind, r.Name, k, id)
			}
		}
		return nil
	}

	// Records are created leaf to root so that linking finds the children.
	ordered := slices.Clone(s.Entities)
	slices.SortStableFunc(ordered, func(a, b Record) int { return int(a.Kind) - int(b.Kind) })
	for _, r := range ordered {
		b := base{id: r.ID, kind: r.Kind, name: r.Name}
		common := Common{Geom: r.Geom, Groups: slices.Clone(r.Groups)}
		var err error
		switch r.Kind {
		case domain.KindVertex:
			v := &Vertex{base: b}
			v.Common = common
			if r.Coord != nil {
				v.Coord = *r.Coord
			}
			tx.create(v)
		case domain.KindCoEdge:
			if err = refs(r, domain.KindVertex, r.V); err != nil || len(r.V) != 2 || r.EdgeMeshing == nil {
				return orInvalid(err, r)
			}
			c := &CoEdge{base: b}
			c.Common = common
			c.Meshing = *r.EdgeMeshing
			tx.create(c)
			tx.linkCoEdge(c, r.V[0], r.V[1])
		case domain.KindEdge:
			if err = refs(r, domain.KindCoEdge, r.CoEdges); err != nil || len(r.V) != 2 || len(r.CoEdges) == 0 {
				return orInvalid(err, r)
			}
			if err = refs(r, domain.KindVertex, r.V); err != nil {
				return err
			}
			if end, werr := tx.g.WalkChain(r.V[0], r.CoEdges); werr != nil || end != r.V[1] {
				return domain.Newf(domain.CodeInvalidArgument, "edge %s chain is not continuous", r.Name)
			}
			e := &Edge{base: b}
			e.Common = common
			tx.create(e)
			tx.linkEdge(e, r.V[0], r.CoEdges, r.Ratios)
		case domain.KindCoFace:
			if err = refs(r, domain.KindEdge, r.Edges); err != nil || (len(r.V) != 3 && len(r.V) != 4) || len(r.Edges) != len(r.V) {
				return orInvalid(err, r)
			}
			if err = refs(r, domain.KindVertex, r.V); err != nil {
				return err
			}
			for s, id := range r.Edges {
				e := tx.g.MustEdge(id)
				a, c := r.V[s], r.V[(s+1)%len(r.V)]
				if e.V != [2]domain.ID{a, c} && e.V != [2]domain.ID{c, a} {
					return domain.Newf(domain.CodeInvalidArgument, "coface %s side %d does not match its corners", r.Name, s)
				}
			}
			cf := &CoFace{base: b}
			cf.Common = common
			cf.Structured = r.Structured
			tx.create(cf)
			tx.linkCoFace(cf, r.V, r.Edges)
		case domain.KindFace:
			if err = refs(r, domain.KindCoFace, r.CoFaces); err != nil || len(r.CoFaces) == 0 {
				return orInvalid(err, r)
			}
			f := &Face{base: b}
			f.Common = common
			tx.create(f)
			tx.linkFace(f, r.CoFaces, r.FaceRatios)
		case domain.KindBlock:
			if err = refs(r, domain.KindVertex, r.V); err != nil || len(r.V) != 8 || len(r.Faces) != 6 || r.BlockMeshing == nil {
				return orInvalid(err, r)
			}
			if err = refs(r, domain.KindFace, r.Faces); err != nil {
				return err
			}
			bl := &Block{base: b}
			bl.Common = common
			bl.Meshing = *r.BlockMeshing
			tx.create(bl)
			tx.linkBlock(bl, [8]domain.ID(r.V), [6]domain.ID(r.Faces))
		default:
			return domain.Newf(domain.CodeInvalidArgument, "record %s has unknown kind", r.Name)
		}
		tx.names.Reserve(r.Kind, r.ID, r.Name)
	}
	return nil
}

func orInvalid(err error, r Record) error {
	if err != nil {
		return err
	}
	return domain.Newf(domain.CodeInvalidArgument, "%s %s is malformed", r.Kind, r.Name)
}
