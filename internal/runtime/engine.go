// Package runtime runs commands against the topology graph with atomic
// compensation, undo/redo history and preview.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/topoedit/internal/logging"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
	"github.com/aretw0/topoedit/pkg/topo"
)

const tracerName = "github.com/aretw0/topoedit/internal/runtime"

// Engine executes commands one at a time. It is not safe for concurrent use;
// callers serialize access (see the Workspace façade).
type Engine struct {
	graph  *topo.Graph
	names  *naming.Manager
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	tracer trace.Tracer
	check  bool

	history []*Record
	cursor  int // number of applied records
	preview *Record
	running bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithInvariantChecks runs Graph.Check after every commit, undo and redo.
// A violation panics.
func WithInvariantChecks(enabled bool) EngineOption {
	return func(e *Engine) {
		e.check = enabled
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewEngine creates an engine over g issuing names from names.
func NewEngine(g *topo.Graph, names *naming.Manager, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:  g,
		names:  names,
		logger: logging.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Graph() *topo.Graph     { return e.graph }
func (e *Engine) Names() *naming.Manager { return e.names }

// Execute runs cmd as one transaction and pushes it on the history.
// On failure every change is compensated and a *CommandError is returned.
func (e *Engine) Execute(ctx context.Context, cmd Command) (*Record, error) {
	if err := e.ready(); err != nil {
		return nil, e.refuse(cmd, err)
	}
	return e.execute(ctx, cmd, false)
}

func (e *Engine) ready() error {
	if e.running {
		return domain.New(domain.CodeState, "a command is already executing")
	}
	if e.preview != nil {
		return domain.New(domain.CodeState, "a preview is active").WithMetadata("command", e.preview.Command)
	}
	return nil
}

func (e *Engine) refuse(cmd Command, err error) *CommandError {
	return &CommandError{Command: cmd.Name(), Message: err.Error(), Err: err}
}

func (e *Engine) execute(ctx context.Context, cmd Command, preview bool) (rec *Record, err error) {
	ctx, span := e.tracer.Start(ctx, "topoedit.execute", trace.WithAttributes(
		attribute.String("command", cmd.Name()),
		attribute.Bool("preview", preview),
	))
	defer span.End()

	rec = &Record{
		ID:      uuid.NewString(),
		Command: cmd.Name(),
		Status:  StatusExecuting,
		Preview: preview,
	}
	span.SetAttributes(attribute.String("command.id", rec.ID))

	if err := ctx.Err(); err != nil {
		return nil, &CommandError{Command: rec.Command, ID: rec.ID, Message: err.Error(), Err: err}
	}

	// A new command abandons the redo branch: its names are handed out again.
	orig := e.names.Stats()
	rec.before = orig
	if !preview && e.cursor < len(e.history) {
		rec.before = e.history[e.cursor].before
		e.names.SetStats(rec.before)
	}

	start := time.Now()
	e.emit(ctx, e.hooks.OnCommandStart, rec, domain.EventCommandStart, 0, nil)

	tx := topo.NewTx(e.graph, e.names)
	e.running = true
	committed := false
	// rec is reset by the error returns; the guard reports on cur.
	cur := rec
	defer func() {
		e.running = false
		if committed {
			return
		}
		r := recover()
		tx.Cancel()
		e.names.SetStats(orig)
		cur.Status = StatusCancelled
		span.SetStatus(codes.Error, "cancelled")
		e.logger.WarnContext(ctx, "command cancelled", "command", cur.Command, "id", cur.ID, "error", err, "panic", r != nil)
		e.emit(ctx, e.hooks.OnCommandFinish, cur, domain.EventCommandFinish, time.Since(start), err)
		if r != nil {
			panic(r)
		}
	}()

	if runErr := cmd.Run(ctx, tx); runErr != nil {
		span.RecordError(runErr)
		return nil, &CommandError{
			Command:    rec.Command,
			ID:         rec.ID,
			Message:    runErr.Error(),
			RolledBack: tx.Touched(),
			Err:        runErr,
		}
	}

	rec.changes = tx.Commit()
	rec.Status = StatusCommitted
	committed = true

	if !preview {
		clear(e.history[e.cursor:])
		e.history = append(e.history[:e.cursor], rec)
		e.cursor++
	}

	counts := rec.changes.Journal.Counts()
	e.logger.InfoContext(ctx, "command executed",
		"command", rec.Command,
		"id", rec.ID,
		"created", counts[domain.Created],
		"deleted", counts[domain.Deleted],
		"modified", counts[domain.DisplayModified]+counts[domain.MeshModified],
	)
	e.emit(ctx, e.hooks.OnCommandFinish, rec, domain.EventCommandFinish, time.Since(start), nil)
	e.verify("execute", rec)
	return rec, nil
}

func (e *Engine) verify(op string, rec *Record) {
	if !e.check {
		return
	}
	if err := e.graph.Check(); err != nil {
		e.logger.Error("invariant violated", "op", op, "command", rec.Command, "id", rec.ID, "error", err)
		panic(err)
	}
}

func (e *Engine) emit(ctx context.Context, hook func(context.Context, *domain.CommandEvent), rec *Record, typ domain.EventType, d time.Duration, err error) {
	if hook == nil {
		return
	}
	ev := &domain.CommandEvent{
		Timestamp: time.Now(),
		Type:      typ,
		CommandID: rec.ID,
		Command:   rec.Command,
		Preview:   rec.Preview,
		Duration:  d,
		Err:       err,
	}
	if rec.changes != nil {
		ev.Changes = rec.changes.Journal.Counts()
	}
	hook(ctx, ev)
}
