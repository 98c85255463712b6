package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// Report builds a markdown summary of ws: entity counts, blocks, groups and
// command history.
func Report(ws *topoedit.Workspace, title string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)

	sizes := ws.Sizes()
	sb.WriteString("## Entities\n\n| Kind | Count |\n|---|---|\n")
	for _, k := range slices.Backward(domain.Kinds) {
		fmt.Fprintf(&sb, "| %s | %d |\n", k, sizes[k])
	}

	_ = ws.View(func(g *topo.Graph) error {
		writeBlocks(&sb, g)
		writeGroups(&sb, g)
		return nil
	})

	hist := ws.History()
	if len(hist) > 0 {
		sb.WriteString("\n## History\n\n| # | Command | Status | Created | Deleted | Modified |\n|---|---|---|---|---|---|\n")
		for i, h := range hist {
			modified := h.Changes[domain.DisplayModified] + h.Changes[domain.MeshModified]
			fmt.Fprintf(&sb, "| %d | %s | %s | %d | %d | %d |\n", i+1, h.Command, h.Status, h.Changes[domain.Created], h.Changes[domain.Deleted], modified)
		}
	}
	return sb.String()
}

func writeBlocks(sb *strings.Builder, g *topo.Graph) {
	blocks := g.Blocks()
	if len(blocks) == 0 {
		return
	}
	sb.WriteString("\n## Blocks\n\n| Block | Law | Structured | Meshed | Groups |\n|---|---|---|---|---|\n")
	for _, b := range blocks {
		law := b.Meshing.Law
		if law == "" {
			law = domain.LawTransfinite
		}
		structured := "no"
		if ok, err := g.Structured(b); err == nil && ok {
			structured = "yes"
		}
		meshed := "no"
		if b.Mesh != nil {
			meshed = fmt.Sprintf("%d cells", len(b.Mesh.Cells))
		}
		fmt.Fprintf(sb, "| %s | %s | %s | %s | %s |\n", b.Name(), law, structured, meshed, strings.Join(b.Groups, ", "))
	}
}

func writeGroups(sb *strings.Builder, g *topo.Graph) {
	members := make(map[string][]string)
	for _, k := range slices.Backward(domain.Kinds) {
		for _, e := range g.Entities(k) {
			for _, grp := range e.Props().Groups {
				members[grp] = append(members[grp], e.Name())
			}
		}
	}
	if len(members) == 0 {
		return
	}
	sb.WriteString("\n## Groups\n\n")
	for _, grp := range slices.Sorted(maps.Keys(members)) {
		fmt.Fprintf(sb, "- **%s**: %s\n", grp, strings.Join(members[grp], ", "))
	}
}
