package script

import (
	"context"
	"fmt"

	"github.com/aretw0/topoedit"
)

// Event reports the outcome of one step.
type Event struct {
	// Index is 1-based.
	Index  int
	Step   *Step
	Result *topoedit.Result
	Err    error
}

// Run replays the steps on ws in order and stops at the first failure.
// observe, if not nil, is called after every step.
func (s *Script) Run(ctx context.Context, ws *topoedit.Workspace, observe func(Event)) error {
	for i := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := &s.Steps[i]
		res, err := st.exec(ctx, ws)
		if observe != nil {
			observe(Event{Index: i + 1, Step: st, Result: res, Err: err})
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Op, err)
		}
	}
	return nil
}

func (st *Step) exec(ctx context.Context, ws *topoedit.Workspace) (*topoedit.Result, error) {
	if st.action.run != nil {
		return st.action.run(ctx, ws)
	}
	op, err := st.action.op(ctx, &resolver{ws: ws})
	if err != nil {
		return nil, err
	}
	if st.Preview {
		return ws.PreviewBegin(ctx, op)
	}
	return ws.Apply(ctx, op)
}
