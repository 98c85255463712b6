package topoedit

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/topoedit/internal/edit"
	"github.com/aretw0/topoedit/internal/logging"
	"github.com/aretw0/topoedit/internal/runtime"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
	"github.com/aretw0/topoedit/pkg/ports"
	"github.com/aretw0/topoedit/pkg/topo"
)

// Workspace is the high-level entry point of the library: one topology graph,
// its name counters and its command history. It is safe for concurrent use;
// commands are serialized and queries share a read lock.
type Workspace struct {
	mu      sync.RWMutex
	runtime *runtime.Engine
	env     edit.Env

	logger *slog.Logger
	hooks  domain.LifecycleHooks
	tracer trace.Tracer
	check  bool
	Name   string
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workspace) {
		w.hooks = hooks
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(w *Workspace) {
		w.tracer = t
	}
}

// WithInvariantChecks verifies the graph after every commit, undo and redo.
func WithInvariantChecks(enabled bool) Option {
	return func(w *Workspace) {
		w.check = enabled
	}
}

// WithOracle sets the geometric kernel used for association and projection.
func WithOracle(o ports.GeometryOracle) Option {
	return func(w *Workspace) {
		w.env.Oracle = o
	}
}

// WithMesher sets the mesh generator used by MeshBlocks.
func WithMesher(m ports.MeshGenerator) Option {
	return func(w *Workspace) {
		w.env.Mesher = m
	}
}

// WithSmoother sets the smoother used by SmoothCoFace.
func WithSmoother(s ports.Smoother) Option {
	return func(w *Workspace) {
		w.env.Smoother = s
	}
}

// WithTolerance sets the distance under which Fuse2Vertices accepts a pair.
func WithTolerance(tol float64) Option {
	return func(w *Workspace) {
		w.env.Tolerance = tol
	}
}

// WithSnapTolerance sets the distance under which SnapVertices accepts a pair.
func WithSnapTolerance(tol float64) Option {
	return func(w *Workspace) {
		w.env.SnapTolerance = tol
	}
}

// WithMeshWorkers bounds the concurrent calls to the mesh generator.
func WithMeshWorkers(n int) Option {
	return func(w *Workspace) {
		w.env.MeshWorkers = n
	}
}

// WithName labels the workspace in logs.
func WithName(name string) Option {
	return func(w *Workspace) {
		w.Name = name
	}
}

// New creates an empty workspace.
func New(opts ...Option) *Workspace {
	return build(topo.NewGraph(), naming.NewManager(), opts)
}

// Open creates a workspace holding the topology of s. The history starts
// empty.
func Open(s *topo.Snapshot, opts ...Option) (*Workspace, error) {
	g, names, err := topo.Deserialize(s)
	if err != nil {
		return nil, err
	}
	return build(g, names, opts), nil
}

func build(g *topo.Graph, names *naming.Manager, opts []Option) *Workspace {
	w := &Workspace{}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	if w.Name != "" {
		w.logger = w.logger.With("workspace", w.Name)
	}
	w.runtime = runtime.NewEngine(g, names,
		runtime.WithLogger(w.logger),
		runtime.WithLifecycleHooks(w.hooks),
		runtime.WithTracer(w.tracer),
		runtime.WithInvariantChecks(w.check),
	)
	return w
}

// Result describes a committed command.
type Result struct {
	runtime.Summary
	// Created, Deleted and Modified list entity names in first-touch order.
	Created  []string `json:"created,omitempty"`
	Deleted  []string `json:"deleted,omitempty"`
	Modified []string `json:"modified,omitempty"`
	// Mesh is set by MeshBlocks.
	Mesh *MeshReport `json:"mesh,omitempty"`
}

// MeshReport summarizes a batch meshing run.
type MeshReport = edit.MeshReport

func names(es []topo.Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Name()
	}
	return out
}

func newResult(rec *runtime.Record) *Result {
	r := &Result{
		Summary: rec.Summary(),
		Created: names(rec.Touched(domain.Created)),
		Deleted: names(rec.Touched(domain.Deleted)),
	}
	r.Modified = append(names(rec.Touched(domain.DisplayModified)), names(rec.Touched(domain.MeshModified))...)
	return r
}

func (w *Workspace) command(op Op, res *Result) runtime.Command {
	return runtime.NewCommand(op.name, func(ctx context.Context, tx *topo.Tx) error {
		return op.run(ctx, tx, w.env, res)
	})
}

// Apply executes op as one atomic command and records it in the history.
// On failure the graph is left as it was and the error is a
// *runtime.CommandError wrapping the domain error.
//
// MeshBlocks is the exception: sub-units meshed before a failure or a
// cancellation stay committed, and the returned error summarizes the rest.
func (w *Workspace) Apply(ctx context.Context, op Op) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := &Result{}
	rec, err := w.runtime.Execute(ctx, w.command(op, res))
	if err != nil {
		return nil, err
	}
	out := newResult(rec)
	out.Mesh = res.Mesh
	if res.Mesh != nil {
		return out, res.Mesh.Err()
	}
	return out, nil
}

// PreviewBegin executes op without recording it. The result stays visible
// until PreviewEnd; no other command may run meanwhile.
func (w *Workspace) PreviewBegin(ctx context.Context, op Op) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := &Result{}
	rec, err := w.runtime.PreviewBegin(ctx, w.command(op, res))
	if err != nil {
		return nil, err
	}
	out := newResult(rec)
	out.Mesh = res.Mesh
	return out, nil
}

// PreviewEnd reverts the active preview and releases the names it used.
func (w *Workspace) PreviewEnd(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runtime.PreviewEnd(ctx)
}

// Undo reverts the last committed command.
func (w *Workspace) Undo(ctx context.Context) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, err := w.runtime.Undo(ctx)
	if err != nil {
		return nil, err
	}
	return newResult(rec), nil
}

// Redo reapplies the last undone command.
func (w *Workspace) Redo(ctx context.Context) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, err := w.runtime.Redo(ctx)
	if err != nil {
		return nil, err
	}
	return newResult(rec), nil
}

// CanUndo reports whether a command can be undone.
func (w *Workspace) CanUndo() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.runtime.CanUndo()
}

// CanRedo reports whether a command can be redone.
func (w *Workspace) CanRedo() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.runtime.CanRedo()
}

// History returns the command summaries, oldest first.
func (w *Workspace) History() []runtime.Summary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.runtime.History()
}

// Snapshot captures the current topology. Names held by undone commands are
// not reserved in it.
func (w *Workspace) Snapshot() *topo.Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := topo.Serialize(w.runtime.Graph(), w.runtime.Names())
	s.Stats = w.runtime.Stats()
	return s
}

// View runs fn with read access to the graph. fn must not retain g.
func (w *Workspace) View(fn func(g *topo.Graph) error) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return fn(w.runtime.Graph())
}

// Resolve finds the id of the live entity of kind k named name.
func (w *Workspace) Resolve(k domain.Kind, name string) (domain.ID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, err := w.runtime.Graph().ByName(k, name)
	if err != nil {
		return 0, err
	}
	return e.ID(), nil
}

// Sizes counts the live entities per kind.
func (w *Workspace) Sizes() map[domain.Kind]int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[domain.Kind]int, len(domain.Kinds))
	for _, k := range domain.Kinds {
		out[k] = len(w.runtime.Graph().Entities(k))
	}
	return out
}

// Check verifies every graph invariant.
func (w *Workspace) Check() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.runtime.Graph().Check()
}
