package topo

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/journal"
	"github.com/aretw0/topoedit/pkg/naming"
)

// Saved pairs an entity with the property block it had before the transaction.
// After a swap, Props holds the other state.
type Saved struct {
	Entity Entity
	Props  any
}

// Tx is the mutation scope of one command. Every creation, deletion and
// property change goes through it so that the journal and the snapshots stay
// complete.
type Tx struct {
	g       *Graph
	names   *naming.Manager
	journal *journal.Journal[Entity]
	saved   []Saved
	isSaved map[domain.ID]bool
}

// NewTx opens a transaction on g issuing names from names.
func NewTx(g *Graph, names *naming.Manager) *Tx {
	return &Tx{
		g:       g,
		names:   names,
		journal: journal.New[Entity](),
		isSaved: make(map[domain.ID]bool),
	}
}

func (tx *Tx) Graph() *Graph                     { return tx.g }
func (tx *Tx) Names() *naming.Manager            { return tx.names }
func (tx *Tx) Journal() *journal.Journal[Entity] { return tx.journal }

// Touched reports whether the transaction changed anything.
func (tx *Tx) Touched() bool {
	return tx.journal.Len() > 0 || len(tx.saved) > 0
}

// save snapshots e once. Entities created by this transaction need no snapshot.
func (tx *Tx) save(e Entity) {
	id := e.ID()
	if tx.isSaved[id] {
		return
	}
	if t, ok := tx.journal.Get(id); ok && (t == domain.Created || t == domain.None) {
		return
	}
	tx.saved = append(tx.saved, Saved{Entity: e, Props: e.saveProps()})
	tx.isSaved[id] = true
}

// Touch snapshots e if needed and records transition t. Callers mutate the
// entity only after touching it.
func (tx *Tx) Touch(e Entity, t domain.Transition) {
	tx.save(e)
	tx.journal.Mark(e.ID(), e, t)
}

// Modify touches e as DISPLAY_MODIFIED.
func (tx *Tx) Modify(e Entity) { tx.Touch(e, domain.DisplayModified) }

// MeshModify touches e as MESH_MODIFIED.
func (tx *Tx) MeshModify(e Entity) { tx.Touch(e, domain.MeshModified) }

func (tx *Tx) newBase(k domain.Kind) base {
	return base{id: tx.names.NextID(), kind: k, name: tx.names.NextName(k)}
}

func (tx *Tx) create(e Entity) {
	tx.g.Register(e)
	tx.journal.Mark(e.ID(), e, domain.Created)
}

// NewVertex creates a vertex at p.
func (tx *Tx) NewVertex(p domain.Point) *Vertex {
	v := &Vertex{base: tx.newBase(domain.KindVertex)}
	v.Coord = p
	tx.create(v)
	return v
}

// NewCoEdge creates a CoEdge from a to b.
func (tx *Tx) NewCoEdge(a, b domain.ID, m domain.EdgeMeshing) *CoEdge {
	if a == b {
		domain.Invariantf("coedge with identical ends %s", a)
	}
	c := &CoEdge{base: tx.newBase(domain.KindCoEdge)}
	c.Meshing = m
	tx.create(c)
	tx.linkCoEdge(c, a, b)
	return c
}

func (tx *Tx) linkCoEdge(c *CoEdge, a, b domain.ID) {
	c.V = [2]domain.ID{a, b}
	for _, id := range c.V {
		v := tx.g.MustVertex(id)
		tx.Modify(v)
		v.CoEdges = v.CoEdges.Add(c.ID())
	}
}

// SetCoEdgeVertices rewires the ends of c.
func (tx *Tx) SetCoEdgeVertices(c *CoEdge, a, b domain.ID) {
	if a == b {
		domain.Invariantf("coedge %s would have identical ends", c.Name())
	}
	tx.Modify(c)
	for _, id := range c.V {
		if v, ok := tx.g.raw(domain.KindVertex, id); ok {
			tx.Modify(v)
			vv := v.(*Vertex)
			vv.CoEdges = vv.CoEdges.Remove(c.ID())
		}
	}
	tx.linkCoEdge(c, a, b)
}

// NewEdge creates an Edge from a chain of CoEdges starting at vertex from.
func (tx *Tx) NewEdge(from domain.ID, chain []domain.ID, ratios map[domain.ID]int) *Edge {
	e := &Edge{base: tx.newBase(domain.KindEdge)}
	tx.create(e)
	tx.linkEdge(e, from, chain, ratios)
	return e
}

func (tx *Tx) linkEdge(e *Edge, from domain.ID, chain []domain.ID, ratios map[domain.ID]int) {
	if len(chain) == 0 {
		domain.Invariantf("edge %s with an empty chain", e.Name())
	}
	end, err := tx.g.WalkChain(from, chain)
	if err != nil {
		panic(err)
	}
	e.V = [2]domain.ID{from, end}
	e.CoEdges = slices.Clone(chain)
	e.Ratios = nil
	for _, id := range chain {
		if r := ratios[id]; r > 1 {
			if e.Ratios == nil {
				e.Ratios = make(map[domain.ID]int)
			}
			e.Ratios[id] = r
		}
		c := tx.g.MustCoEdge(id)
		tx.Modify(c)
		c.Edges = c.Edges.Add(e.ID())
	}
}

// SetEdgeChain replaces the chain of e.
func (tx *Tx) SetEdgeChain(e *Edge, from domain.ID, chain []domain.ID, ratios map[domain.ID]int) {
	tx.Modify(e)
	tx.unlinkEdge(e)
	tx.linkEdge(e, from, chain, ratios)
}

func (tx *Tx) unlinkEdge(e *Edge) {
	for _, id := range e.CoEdges {
		if c, ok := tx.g.raw(domain.KindCoEdge, id); ok {
			tx.Modify(c)
			cc := c.(*CoEdge)
			cc.Edges = cc.Edges.Remove(e.ID())
		}
	}
}

// NewCoFace creates a CoFace from its corners and one Edge per side.
func (tx *Tx) NewCoFace(corners, edges []domain.ID, structured bool) *CoFace {
	c := &CoFace{base: tx.newBase(domain.KindCoFace)}
	c.Structured = structured
	tx.create(c)
	tx.linkCoFace(c, corners, edges)
	return c
}

func (tx *Tx) linkCoFace(c *CoFace, corners, edges []domain.ID) {
	n := len(corners)
	if (n != 3 && n != 4) || len(edges) != n {
		domain.Invariantf("coface %s with %d corners and %d edges", c.Name(), n, len(edges))
	}
	for s, id := range edges {
		e := tx.g.MustEdge(id)
		a, b := corners[s], corners[(s+1)%n]
		if !(e.V[0] == a && e.V[1] == b) && !(e.V[0] == b && e.V[1] == a) {
			domain.Invariantf("edge %s does not join the corners of side %d of %s", e.Name(), s, c.Name())
		}
		tx.Modify(e)
		e.CoFaces = e.CoFaces.Add(c.ID())
	}
	c.V = slices.Clone(corners)
	c.Edges = slices.Clone(edges)
}

// SetCoFaceEdges replaces the boundary of c.
func (tx *Tx) SetCoFaceEdges(c *CoFace, corners, edges []domain.ID) {
	tx.Modify(c)
	tx.unlinkCoFace(c)
	tx.linkCoFace(c, corners, edges)
}

func (tx *Tx) unlinkCoFace(c *CoFace) {
	for _, id := range c.Edges {
		if e, ok := tx.g.raw(domain.KindEdge, id); ok {
			tx.Modify(e)
			ee := e.(*Edge)
			ee.CoFaces = ee.CoFaces.Remove(c.ID())
		}
	}
}

// NewFace creates a Face grouping cofaces. The owning block is set by NewBlock.
func (tx *Tx) NewFace(cofaces []domain.ID, ratios map[domain.ID][2]int) *Face {
	f := &Face{base: tx.newBase(domain.KindFace)}
	tx.create(f)
	tx.linkFace(f, cofaces, ratios)
	return f
}

func (tx *Tx) linkFace(f *Face, cofaces []domain.ID, ratios map[domain.ID][2]int) {
	f.CoFaces = slices.Clone(cofaces)
	f.Ratios = nil
	for _, id := range cofaces {
		if r, ok := ratios[id]; ok && r != [2]int{1, 1} {
			if f.Ratios == nil {
				f.Ratios = make(map[domain.ID][2]int)
			}
			f.Ratios[id] = r
		}
		c := tx.g.MustCoFace(id)
		tx.Modify(c)
		c.Faces = c.Faces.Add(f.ID())
	}
}

// SetFaceCoFaces replaces the CoFaces of f.
func (tx *Tx) SetFaceCoFaces(f *Face, cofaces []domain.ID, ratios map[domain.ID][2]int) {
	tx.Modify(f)
	tx.unlinkFace(f)
	tx.linkFace(f, cofaces, ratios)
}

func (tx *Tx) unlinkFace(f *Face) {
	for _, id := range f.CoFaces {
		if c, ok := tx.g.raw(domain.KindCoFace, id); ok {
			tx.Modify(c)
			cc := c.(*CoFace)
			cc.Faces = cc.Faces.Remove(f.ID())
		}
	}
}

// NewBlock creates a block and takes ownership of its faces.
func (tx *Tx) NewBlock(corners [8]domain.ID, faces [6]domain.ID, m domain.BlockMeshing) *Block {
	b := &Block{base: tx.newBase(domain.KindBlock)}
	b.Meshing = m
	tx.create(b)
	tx.linkBlock(b, corners, faces)
	return b
}

func (tx *Tx) linkBlock(b *Block, corners [8]domain.ID, faces [6]domain.ID) {
	b.V = corners
	b.Faces = faces
	for _, id := range faces {
		if id == 0 {
			continue
		}
		f := tx.g.MustFace(id)
		tx.Modify(f)
		f.Block = b.ID()
	}
}

// SetBlockFaces replaces the corners and faces of b.
func (tx *Tx) SetBlockFaces(b *Block, corners [8]domain.ID, faces [6]domain.ID) {
	tx.Modify(b)
	tx.unlinkBlock(b)
	tx.linkBlock(b, corners, faces)
}

func (tx *Tx) unlinkBlock(b *Block) {
	for _, id := range b.Faces {
		if id == 0 {
			continue
		}
		if f, ok := tx.g.raw(domain.KindFace, id); ok && f.(*Face).Block == b.ID() {
			tx.Modify(f)
			f.(*Face).Block = 0
		}
	}
}

// Delete marks e destroyed and drops it from the back-references of the
// entities it refers to. Entities referring to e must have been rewired first.
func (tx *Tx) Delete(e Entity) {
	if e.Props().Destroyed {
		return
	}
	tx.Touch(e, domain.Deleted)
	switch x := e.(type) {
	case *Vertex:
	case *CoEdge:
		for _, id := range x.V {
			if v, ok := tx.g.raw(domain.KindVertex, id); ok {
				tx.Modify(v)
				vv := v.(*Vertex)
				vv.CoEdges = vv.CoEdges.Remove(x.ID())
			}
		}
	case *Edge:
		tx.unlinkEdge(x)
	case *CoFace:
		tx.unlinkCoFace(x)
	case *Face:
		tx.unlinkFace(x)
	case *Block:
		tx.unlinkBlock(x)
	}
	e.Props().Destroyed = true
}

// Collect deletes e and, recursively, every entity it referred to that is no
// longer referenced by a live entity.
func (tx *Tx) Collect(e Entity) {
	if e.Props().Destroyed {
		return
	}
	var children []Entity
	switch x := e.(type) {
	case *CoEdge:
		for _, id := range x.V {
			children = append(children, tx.g.MustVertex(id))
		}
	case *Edge:
		for _, id := range x.CoEdges {
			children = append(children, tx.g.MustCoEdge(id))
		}
	case *CoFace:
		for _, id := range x.Edges {
			children = append(children, tx.g.MustEdge(id))
		}
	case *Face:
		for _, id := range x.CoFaces {
			children = append(children, tx.g.MustCoFace(id))
		}
	case *Block:
		for _, id := range x.Faces {
			if id != 0 {
				children = append(children, tx.g.MustFace(id))
			}
		}
	}
	tx.Delete(e)
	for _, c := range children {
		if !tx.g.Referenced(c) {
			tx.Collect(c)
		}
	}
}

// Referenced reports whether a live entity still refers to e.
func (g *Graph) Referenced(e Entity) bool {
	switch x := e.(type) {
	case *Vertex:
		return len(x.CoEdges) > 0
	case *CoEdge:
		return len(x.Edges) > 0
	case *Edge:
		return len(x.CoFaces) > 0
	case *CoFace:
		return len(x.Faces) > 0
	case *Face:
		if x.Block == 0 {
			return false
		}
		b, err := g.Block(x.Block)
		return err == nil && b.FaceSide(x.ID()) >= 0
	}
	return false
}

// ReplaceCoEdge substitutes parts for old in every Edge chain. parts must be
// ordered from old.V[0] to old.V[1]; each part inherits the ratio of old.
func (tx *Tx) ReplaceCoEdge(old *CoEdge, parts []domain.ID) {
	for _, eid := range slices.Clone(old.Edges) {
		e := tx.g.MustEdge(eid)
		at := slices.Index(e.CoEdges, old.ID())
		// Orientation of old inside the chain: the vertex reached before it.
		prev := e.V[0]
		for _, id := range e.CoEdges[:at] {
			prev = tx.g.MustCoEdge(id).Other(prev)
		}
		ordered := slices.Clone(parts)
		if prev != old.V[0] {
			slices.Reverse(ordered)
		}
		chain := slices.Concat(e.CoEdges[:at], ordered, e.CoEdges[at+1:])
		ratios := copyRatios(e.Ratios)
		if r := e.Ratio(old.ID()); r > 1 {
			for _, p := range parts {
				ratios[p] = r
			}
		}
		tx.SetEdgeChain(e, e.V[0], chain, ratios)
	}
}

// ReplaceCoFace substitutes parts for old in every Face.
func (tx *Tx) ReplaceCoFace(old *CoFace, parts []domain.ID) {
	for _, fid := range slices.Clone(old.Faces) {
		f := tx.g.MustFace(fid)
		at := slices.Index(f.CoFaces, old.ID())
		cofaces := slices.Concat(f.CoFaces[:at], parts, f.CoFaces[at+1:])
		ratios := make(map[domain.ID][2]int, len(f.Ratios))
		for k, v := range f.Ratios {
			ratios[k] = v
		}
		if r, ok := f.Ratios[old.ID()]; ok {
			for _, p := range parts {
				ratios[p] = r
			}
		}
		tx.SetFaceCoFaces(f, cofaces, ratios)
	}
}

func copyRatios(in map[domain.ID]int) map[domain.ID]int {
	out := make(map[domain.ID]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Commit deregisters deleted and transient entities and returns the changes
// needed to undo the transaction.
func (tx *Tx) Commit() *Changes {
	for _, e := range tx.journal.Entries() {
		if e.Transition == domain.Deleted || e.Transition == domain.None {
			tx.g.Deregister(e.Entity)
		}
	}
	tx.journal.Prune(domain.None)
	return &Changes{Journal: tx.journal, Saved: tx.saved}
}

// Cancel restores every snapshot and forgets the entities created by the
// transaction. Names are restored by the caller.
func (tx *Tx) Cancel() {
	for i := range tx.saved {
		tx.saved[i].Entity.swapProps(tx.saved[i].Props)
	}
	for _, e := range tx.journal.Entries() {
		if e.Transition == domain.Created || e.Transition == domain.None {
			if tx.g.Registered(e.Entity) {
				tx.g.Deregister(e.Entity)
			}
		}
	}
	tx.saved = nil
	tx.journal = journal.New[Entity]()
	clear(tx.isSaved)
}

// Changes is the undo payload of a committed transaction.
type Changes struct {
	Journal *journal.Journal[Entity]
	Saved   []Saved
}

func (c *Changes) perm() {
	for i := range c.Saved {
		c.Saved[i].Props = c.Saved[i].Entity.swapProps(c.Saved[i].Props)
	}
}

// Undo reverts committed changes.
func (g *Graph) Undo(c *Changes) {
	c.perm()
	c.Journal.InvertTransitions()
	g.sync(c)
}

// Redo reapplies changes previously reverted by Undo.
func (g *Graph) Redo(c *Changes) {
	c.Journal.InvertTransitions()
	c.perm()
	g.sync(c)
}

func (g *Graph) sync(c *Changes) {
	for _, e := range c.Journal.Entries() {
		switch e.Transition {
		case domain.Deleted:
			g.Deregister(e.Entity)
		case domain.Created:
			g.Register(e.Entity)
		}
	}
}

func (g *Graph) raw(k domain.Kind, id domain.ID) (Entity, bool) {
	e, ok := g.arenas[k][id]
	return e, ok
}

// WalkChain follows chain from vertex from and returns the last vertex.
func (g *Graph) WalkChain(from domain.ID, chain []domain.ID) (domain.ID, error) {
	cur := from
	for _, id := range chain {
		c, err := g.CoEdge(id)
		if err != nil {
			return 0, err
		}
		next := c.Other(cur)
		if next == 0 {
			return 0, domain.Newf(domain.CodeInvariant, "coedge %s does not continue the chain at %s", c.Name(), cur)
		}
		cur = next
	}
	return cur, nil
}
