package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// Overlay marks the entities touched by a command.
type Overlay struct {
	Created  []string
	Modified []string
}

// Options tunes the diagram.
type Options struct {
	// Depth counts the levels drawn below Blocks, from 1 (Faces) to 5
	// (Vertices). Zero means DefaultDepth.
	Depth   int
	Overlay *Overlay
}

// DefaultDepth stops the diagram at CoFaces.
const DefaultDepth = 2

type writer struct {
	sb    strings.Builder
	g     *topo.Graph
	depth domain.Kind
	seen  map[domain.ID]bool
}

// GenerateMermaid renders the containment hierarchy of g as a Mermaid
// flowchart, from Blocks down to opts.Depth. Shared entities appear once with
// one arrow per owner; semi-conformal links carry their ratio.
//
// Shapes: Block [[subroutine]], Face [rectangle], CoFace [/parallelogram/],
// Edge (rounded), CoEdge [rectangle], Vertex ((circle)).
func GenerateMermaid(g *topo.Graph, opts Options) string {
	depth := opts.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	w := &writer{g: g, depth: max(domain.KindBlock-domain.Kind(depth), domain.KindVertex), seen: make(map[domain.ID]bool)}
	w.sb.WriteString("graph TD\n")

	for _, b := range g.Blocks() {
		w.node(b)
		for _, fid := range b.Faces {
			if fid == 0 {
				continue
			}
			w.link(b, g.MustFace(fid), "")
		}
	}
	for _, cf := range g.CoFaces() {
		if len(cf.Faces) == 0 && w.depth <= domain.KindCoFace {
			w.node(cf)
		}
	}
	if opts.Overlay != nil {
		w.overlay(opts.Overlay)
	}
	return w.sb.String()
}

func (w *writer) node(e topo.Entity) {
	if w.seen[e.ID()] {
		return
	}
	w.seen[e.ID()] = true
	opener, closer := shape(e.Kind())
	label := e.Name()
	if groups := e.Props().Groups; len(groups) > 0 {
		label = fmt.Sprintf("%s <br/> %s", label, strings.Join(groups, ", "))
	}
	fmt.Fprintf(&w.sb, "    %s%s\"%s\"%s\n", e.Name(), opener, label, closer)
	w.children(e)
}

func (w *writer) link(from, to topo.Entity, ratio string) {
	if to.Kind() < w.depth {
		return
	}
	w.node(to)
	arrow := "-->"
	if ratio != "" {
		arrow = fmt.Sprintf("-. \"%s\" .->", ratio)
	}
	fmt.Fprintf(&w.sb, "    %s %s %s\n", from.Name(), arrow, to.Name())
}

func (w *writer) children(e topo.Entity) {
	g := w.g
	switch e := e.(type) {
	case *topo.Face:
		for _, id := range e.CoFaces {
			ratio := ""
			if r, ok := e.Ratios[id]; ok {
				ratio = fmt.Sprintf("%d:%d", r[0], r[1])
			}
			w.link(e, g.MustCoFace(id), ratio)
		}
	case *topo.CoFace:
		for _, id := range e.Edges {
			w.link(e, g.MustEdge(id), "")
		}
	case *topo.Edge:
		for _, id := range e.CoEdges {
			ratio := ""
			if r, ok := e.Ratios[id]; ok {
				ratio = fmt.Sprintf("%d:1", r)
			}
			w.link(e, g.MustCoEdge(id), ratio)
		}
	case *topo.CoEdge:
		for _, id := range e.V {
			w.link(e, g.MustVertex(id), "")
		}
	}
}

func shape(k domain.Kind) (string, string) {
	switch k {
	case domain.KindBlock:
		return "[[", "]]"
	case domain.KindCoFace:
		return "[/", "/]"
	case domain.KindEdge:
		return "(", ")"
	case domain.KindVertex:
		return "((", "))"
	}
	return "[", "]"
}

func (w *writer) overlay(o *Overlay) {
	w.sb.WriteString("\n    %% Overlay Styles\n")
	// Black text keeps contrast on light fills under both themes.
	w.sb.WriteString("    classDef created fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
	w.sb.WriteString("    classDef modified fill:#ffeb3b,stroke:#fbc02d,stroke-width:2px,color:#000;\n")
	w.class(o.Created, "created")
	w.class(o.Modified, "modified")
}

func (w *writer) class(names []string, class string) {
	done := make(map[string]bool)
	for _, name := range names {
		if done[name] || !w.drawn(name) {
			continue
		}
		done[name] = true
		fmt.Fprintf(&w.sb, "    class %s %s;\n", name, class)
	}
}

// drawn reports whether the diagram holds a node named name.
func (w *writer) drawn(name string) bool {
	for _, k := range domain.Kinds {
		if e, err := w.g.ByName(k, name); err == nil && w.seen[e.ID()] {
			return true
		}
	}
	return false
}
