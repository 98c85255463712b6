package runtime

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
)

// CanUndo reports whether a committed command can be undone.
func (e *Engine) CanUndo() bool { return e.cursor > 0 && e.preview == nil }

// CanRedo reports whether an undone command can be redone.
func (e *Engine) CanRedo() bool { return e.cursor < len(e.history) && e.preview == nil }

// Undo reverts the last committed command.
func (e *Engine) Undo(ctx context.Context) (*Record, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.cursor == 0 {
		return nil, domain.New(domain.CodeState, "nothing to undo")
	}
	rec := e.history[e.cursor-1]
	ctx, span := e.tracer.Start(ctx, "topoedit.undo", trace.WithAttributes(
		attribute.String("command", rec.Command),
		attribute.String("command.id", rec.ID),
	))
	defer span.End()

	start := time.Now()
	e.graph.Undo(rec.changes)
	e.cursor--
	rec.Status = StatusUndone

	e.logger.InfoContext(ctx, "command undone", "command", rec.Command, "id", rec.ID)
	e.emit(ctx, e.hooks.OnUndo, rec, domain.EventUndo, time.Since(start), nil)
	e.verify("undo", rec)
	return rec, nil
}

// Redo reapplies the last undone command.
func (e *Engine) Redo(ctx context.Context) (*Record, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.cursor == len(e.history) {
		return nil, domain.New(domain.CodeState, "nothing to redo")
	}
	rec := e.history[e.cursor]
	ctx, span := e.tracer.Start(ctx, "topoedit.redo", trace.WithAttributes(
		attribute.String("command", rec.Command),
		attribute.String("command.id", rec.ID),
	))
	defer span.End()

	start := time.Now()
	e.graph.Redo(rec.changes)
	e.cursor++
	rec.Status = StatusCommitted

	e.logger.InfoContext(ctx, "command redone", "command", rec.Command, "id", rec.ID)
	e.emit(ctx, e.hooks.OnRedo, rec, domain.EventRedo, time.Since(start), nil)
	e.verify("redo", rec)
	return rec, nil
}

// History returns the summaries of the recorded commands, oldest first.
// Undone commands still on the redo branch are included.
func (e *Engine) History() []Summary {
	out := make([]Summary, len(e.history))
	for i, rec := range e.history {
		out[i] = rec.Summary()
	}
	return out
}

// Stats returns the name counters a fresh history would resume from. With a
// redo branch pending, that is the vector captured before its oldest command,
// which the next Execute restores anyway.
func (e *Engine) Stats() naming.Stats {
	if e.preview == nil && e.cursor < len(e.history) {
		return e.history[e.cursor].before
	}
	return e.names.Stats()
}

// Last returns the last applied record, or nil.
func (e *Engine) Last() *Record {
	if e.cursor == 0 {
		return nil
	}
	return e.history[e.cursor-1]
}

// PreviewBegin executes cmd without recording it in the history. Names
// issued during the preview are handed out again once it ends.
func (e *Engine) PreviewBegin(ctx context.Context, cmd Command) (rec *Record, err error) {
	if err := e.ready(); err != nil {
		return nil, e.refuse(cmd, err)
	}
	e.names.ActivateShiftingID()
	ok := false
	defer func() {
		if !ok {
			_ = e.names.UnactivateShiftingID()
		}
	}()

	rec, err = e.execute(ctx, cmd, true)
	if err != nil {
		return nil, err
	}
	ok = true
	e.preview = rec
	e.logger.DebugContext(ctx, "preview started", "command", rec.Command, "id", rec.ID)
	return rec, nil
}

// PreviewEnd discards the active preview.
func (e *Engine) PreviewEnd(ctx context.Context) error {
	rec := e.preview
	if rec == nil {
		return domain.New(domain.CodeState, "no preview is active")
	}
	e.graph.Undo(rec.changes)
	rec.Status = StatusUndone
	e.preview = nil
	if err := e.names.UnactivateShiftingID(); err != nil {
		return err
	}
	e.logger.DebugContext(ctx, "preview ended", "command", rec.Command, "id", rec.ID)
	e.verify("preview", rec)
	return nil
}

// Previewing reports whether a preview is active.
func (e *Engine) Previewing() bool { return e.preview != nil }
