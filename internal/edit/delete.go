package edit

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

// DeleteBlocks deletes the blocks and every entity only they were using.
func DeleteBlocks(tx *topo.Tx, blocks []domain.ID) error {
	bs, err := lookupBlocks(tx.Graph(), blocks)
	if err != nil {
		return err
	}
	for _, b := range bs {
		tx.Collect(b)
	}
	return nil
}

// DeleteCoFaces deletes CoFaces that no block uses, with the entities only
// they were using.
func DeleteCoFaces(tx *topo.Tx, cofaces []domain.ID) error {
	g := tx.Graph()
	if len(cofaces) == 0 {
		return domain.New(domain.CodeInvalidArgument, "no coface given")
	}
	var targets []*topo.CoFace
	for _, id := range topo.NewIDSet(cofaces...) {
		cf, err := g.CoFace(id)
		if err != nil {
			return err
		}
		if bs := g.BlocksOfCoFace(cf); len(bs) > 0 {
			return domain.Newf(domain.CodePrecondition, "coface %s is used by block %s", cf.Name(), bs[0].Name())
		}
		targets = append(targets, cf)
	}
	for _, cf := range targets {
		for _, fid := range slices.Clone(cf.Faces) {
			f := g.MustFace(fid)
			if rest := without(f.CoFaces, cf.ID()); len(rest) > 0 {
				tx.SetFaceCoFaces(f, rest, f.Ratios)
			} else {
				tx.Delete(f)
			}
		}
		tx.Collect(cf)
	}
	return nil
}

func without(ids []domain.ID, drop domain.ID) []domain.ID {
	out := make([]domain.ID, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
