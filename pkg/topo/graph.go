// Package topo holds the topological entity graph and the transaction that
// mutates it.
//
// Entities live in per-kind arenas keyed by id; every cross-reference is an id
// and every forward reference is mirrored by a back-reference set on the
// referenced entity. Mutations happen only through a Tx, which snapshots the
// property block of an entity before its first change so that the whole
// transaction can be cancelled, undone or redone.
package topo

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
)

// Graph owns the registered entities. It is not safe for concurrent mutation;
// the runtime serializes commands.
type Graph struct {
	arenas [6]map[domain.ID]Entity
	names  [6]map[string]domain.ID
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	g := &Graph{}
	for _, k := range domain.Kinds {
		g.arenas[k] = make(map[domain.ID]Entity)
		g.names[k] = make(map[string]domain.ID)
	}
	return g
}

// Register adds an entity to its arena. Registering an id twice is a defect.
func (g *Graph) Register(e Entity) {
	k := e.Kind()
	if _, ok := g.arenas[k][e.ID()]; ok {
		domain.Invariantf("%s %s registered twice", k, e.Name())
	}
	g.arenas[k][e.ID()] = e
	g.names[k][e.Name()] = e.ID()
}

// Deregister removes an entity from its arena without freeing it.
func (g *Graph) Deregister(e Entity) {
	k := e.Kind()
	if _, ok := g.arenas[k][e.ID()]; !ok {
		domain.Invariantf("%s %s is not registered", k, e.Name())
	}
	delete(g.arenas[k], e.ID())
	if g.names[k][e.Name()] == e.ID() {
		delete(g.names[k], e.Name())
	}
}

// Registered reports whether the entity is in its arena, destroyed or not.
func (g *Graph) Registered(e Entity) bool {
	_, ok := g.arenas[e.Kind()][e.ID()]
	return ok
}

// Lookup finds a live entity of any kind.
func (g *Graph) Lookup(id domain.ID) (Entity, bool) {
	for _, k := range domain.Kinds {
		if e, ok := g.arenas[k][id]; ok && !e.Props().Destroyed {
			return e, true
		}
	}
	return nil, false
}

// taken reports whether id is registered, destroyed or not.
func (g *Graph) taken(id domain.ID) bool {
	for _, k := range domain.Kinds {
		if _, ok := g.arenas[k][id]; ok {
			return true
		}
	}
	return false
}

// ByName finds a live entity by its display name.
func (g *Graph) ByName(k domain.Kind, name string) (Entity, error) {
	id, ok := g.names[k][name]
	if ok {
		if e, ok := g.arenas[k][id]; ok && !e.Props().Destroyed {
			return e, nil
		}
	}
	return nil, domain.Newf(domain.CodeNotFound, "%s %q not found", k, name)
}

func get[T Entity](g *Graph, k domain.Kind, id domain.ID) (T, error) {
	var zero T
	e, ok := g.arenas[k][id]
	if !ok || e.Props().Destroyed {
		return zero, domain.Newf(domain.CodeNotFound, "%s %s not found", k, id)
	}
	return e.(T), nil
}

func (g *Graph) Vertex(id domain.ID) (*Vertex, error) { return get[*Vertex](g, domain.KindVertex, id) }
func (g *Graph) CoEdge(id domain.ID) (*CoEdge, error) { return get[*CoEdge](g, domain.KindCoEdge, id) }
func (g *Graph) Edge(id domain.ID) (*Edge, error)     { return get[*Edge](g, domain.KindEdge, id) }
func (g *Graph) CoFace(id domain.ID) (*CoFace, error) { return get[*CoFace](g, domain.KindCoFace, id) }
func (g *Graph) Face(id domain.ID) (*Face, error)     { return get[*Face](g, domain.KindFace, id) }
func (g *Graph) Block(id domain.ID) (*Block, error)   { return get[*Block](g, domain.KindBlock, id) }

// must resolves a reference that the caller knows to be valid.
func must[T Entity](e T, err error) T {
	if err != nil {
		domain.Invariantf("dangling reference: %v", err)
	}
	return e
}

func (g *Graph) MustVertex(id domain.ID) *Vertex { return must(g.Vertex(id)) }
func (g *Graph) MustCoEdge(id domain.ID) *CoEdge { return must(g.CoEdge(id)) }
func (g *Graph) MustEdge(id domain.ID) *Edge     { return must(g.Edge(id)) }
func (g *Graph) MustCoFace(id domain.ID) *CoFace { return must(g.CoFace(id)) }
func (g *Graph) MustFace(id domain.ID) *Face     { return must(g.Face(id)) }
func (g *Graph) MustBlock(id domain.ID) *Block   { return must(g.Block(id)) }

// Entities returns the live entities of kind k sorted by id.
func (g *Graph) Entities(k domain.Kind) []Entity {
	out := make([]Entity, 0, len(g.arenas[k]))
	for _, e := range g.arenas[k] {
		if !e.Props().Destroyed {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entity) int { return cmpID(a.ID(), b.ID()) })
	return out
}

func typed[T Entity](g *Graph, k domain.Kind) []T {
	es := g.Entities(k)
	out := make([]T, len(es))
	for i, e := range es {
		out[i] = e.(T)
	}
	return out
}

func (g *Graph) Vertices() []*Vertex { return typed[*Vertex](g, domain.KindVertex) }
func (g *Graph) CoEdges() []*CoEdge  { return typed[*CoEdge](g, domain.KindCoEdge) }
func (g *Graph) Edges() []*Edge      { return typed[*Edge](g, domain.KindEdge) }
func (g *Graph) CoFaces() []*CoFace  { return typed[*CoFace](g, domain.KindCoFace) }
func (g *Graph) Faces() []*Face      { return typed[*Face](g, domain.KindFace) }
func (g *Graph) Blocks() []*Block    { return typed[*Block](g, domain.KindBlock) }

// Count returns the size of the arena of kind k, including entities deleted by
// a transaction that has not committed yet.
func (g *Graph) Count(k domain.Kind) int {
	return len(g.arenas[k])
}

// Sizes returns the arena sizes indexed by kind.
func (g *Graph) Sizes() [6]int {
	var out [6]int
	for _, k := range domain.Kinds {
		out[k] = len(g.arenas[k])
	}
	return out
}

func cmpID(a, b domain.ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
