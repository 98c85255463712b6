package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit/internal/runtime"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
	"github.com/aretw0/topoedit/pkg/topo"
)

func newEngine(opts ...runtime.EngineOption) *runtime.Engine {
	return runtime.NewEngine(topo.NewGraph(), naming.NewManager(), opts...)
}

// segment creates two vertices joined by a coedge.
func segment(x float64) runtime.Command {
	return runtime.NewCommand("segment", func(ctx context.Context, tx *topo.Tx) error {
		a := tx.NewVertex(domain.Point{X: x})
		b := tx.NewVertex(domain.Point{X: x + 1})
		tx.NewCoEdge(a.ID(), b.ID(), domain.Uniform(2))
		return nil
	})
}

func failing(err error) runtime.Command {
	return runtime.NewCommand("failing", func(ctx context.Context, tx *topo.Tx) error {
		tx.NewVertex(domain.Point{})
		return err
	})
}

func TestEngine_ExecuteCommits(t *testing.T) {
	e := newEngine(runtime.WithInvariantChecks(true))

	rec, err := e.Execute(context.Background(), segment(0))
	require.NoError(t, err)

	assert.Equal(t, runtime.StatusCommitted, rec.Status)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 3, rec.Summary().Changes[domain.Created])
	assert.Len(t, rec.Touched(domain.Created), 3)
	assert.Equal(t, [6]int{2, 1, 0, 0, 0, 0}, e.Graph().Sizes())
	assert.True(t, e.CanUndo())
	assert.False(t, e.CanRedo())

	hist := e.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "segment", hist[0].Command)
}

func TestEngine_FailureIsCompensated(t *testing.T) {
	e := newEngine()
	_, err := e.Execute(context.Background(), segment(0))
	require.NoError(t, err)
	stats := e.Names().Stats()
	sizes := e.Graph().Sizes()

	cause := domain.New(domain.CodePrecondition, "ratio out of range")
	_, err = e.Execute(context.Background(), failing(cause))
	require.Error(t, err)

	var cmdErr *runtime.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.True(t, cmdErr.RolledBack)
	assert.Equal(t, "failing", cmdErr.Command)
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	assert.Equal(t, stats, e.Names().Stats())
	assert.Equal(t, sizes, e.Graph().Sizes())
	assert.Len(t, e.History(), 1)
}

func TestEngine_FailureReportsCancelledRecord(t *testing.T) {
	var finished *domain.CommandEvent
	e := newEngine(runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnCommandFinish: func(ctx context.Context, ev *domain.CommandEvent) { finished = ev },
	}))

	var err error
	require.NotPanics(t, func() {
		_, err = e.Execute(context.Background(), failing(domain.New(domain.CodeMismatch, "sides differ")))
	})
	var cmdErr *runtime.CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.NotNil(t, finished)
	assert.Equal(t, cmdErr.ID, finished.CommandID)
	assert.Equal(t, "failing", finished.Command)
	assert.ErrorIs(t, finished.Err, domain.ErrMismatch)
	assert.Equal(t, [6]int{}, e.Graph().Sizes())
}

func TestEngine_UntouchedFailureIsNotRolledBack(t *testing.T) {
	e := newEngine()
	cmd := runtime.NewCommand("noop", func(ctx context.Context, tx *topo.Tx) error {
		return domain.New(domain.CodeNotFound, "no such block")
	})

	_, err := e.Execute(context.Background(), cmd)
	var cmdErr *runtime.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.False(t, cmdErr.RolledBack)
	assert.Equal(t, domain.ClassStructural, domain.Class(err))
}

func TestEngine_InvariantPanicIsCompensatedAndRaised(t *testing.T) {
	e := newEngine()
	cmd := runtime.NewCommand("broken", func(ctx context.Context, tx *topo.Tx) error {
		tx.NewVertex(domain.Point{})
		domain.Invariantf("algorithm defect")
		return nil
	})

	var raised any
	func() {
		defer func() { raised = recover() }()
		_, _ = e.Execute(context.Background(), cmd)
	}()
	require.NotNil(t, raised)
	raisedErr, ok := raised.(error)
	require.True(t, ok, "panic value %v is not an error", raised)
	assert.ErrorIs(t, raisedErr, domain.ErrInvariant)
	assert.EqualError(t, raisedErr, "algorithm defect")
	assert.Equal(t, [6]int{}, e.Graph().Sizes())
	assert.Equal(t, naming.NewManager().Stats(), e.Names().Stats())

	// The engine is usable afterwards.
	_, err := e.Execute(context.Background(), segment(0))
	require.NoError(t, err)
}

func TestEngine_UndoRedo(t *testing.T) {
	ctx := context.Background()
	e := newEngine(runtime.WithInvariantChecks(true))

	_, err := e.Undo(ctx)
	assert.ErrorIs(t, err, domain.ErrState)

	_, err = e.Execute(ctx, segment(0))
	require.NoError(t, err)
	_, err = e.Execute(ctx, segment(5))
	require.NoError(t, err)
	after := topo.Serialize(e.Graph(), e.Names())

	_, err = e.Undo(ctx)
	require.NoError(t, err)
	_, err = e.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, [6]int{}, e.Graph().Sizes())
	assert.False(t, e.CanUndo())

	_, err = e.Redo(ctx)
	require.NoError(t, err)
	rec, err := e.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusCommitted, rec.Status)
	assert.Equal(t, after, topo.Serialize(e.Graph(), e.Names()))

	_, err = e.Redo(ctx)
	assert.ErrorIs(t, err, domain.ErrState)
}

func TestEngine_NewCommandDiscardsRedoBranch(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	_, err := e.Execute(ctx, segment(0))
	require.NoError(t, err)
	before := e.Names().Stats()
	_, err = e.Execute(ctx, segment(5))
	require.NoError(t, err)
	_, err = e.Undo(ctx)
	require.NoError(t, err)

	rec, err := e.Execute(ctx, segment(9))
	require.NoError(t, err)
	assert.False(t, e.CanRedo())
	assert.Len(t, e.History(), 2)

	// The abandoned command's names are issued again.
	created := rec.Touched(domain.Created)
	require.NotEmpty(t, created)
	assert.Equal(t, naming.FormatName(domain.KindVertex, before.Counters[domain.KindVertex]), created[0].Name())
}

func TestEngine_StatsSkipsRedoBranch(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	_, err := e.Execute(ctx, segment(0))
	require.NoError(t, err)
	before := e.Stats()
	_, err = e.Execute(ctx, segment(5))
	require.NoError(t, err)
	live := e.Stats()
	assert.Equal(t, e.Names().Stats(), live)

	_, err = e.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, e.Stats())
	assert.Equal(t, live, e.Names().Stats(), "live counters wait for the next command")

	_, err = e.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, live, e.Stats())
}

func TestEngine_FailureKeepsRedoBranch(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	_, err := e.Execute(ctx, segment(0))
	require.NoError(t, err)
	_, err = e.Undo(ctx)
	require.NoError(t, err)
	stats := e.Names().Stats()

	_, err = e.Execute(ctx, failing(domain.New(domain.CodeMismatch, "boom")))
	require.Error(t, err)
	assert.True(t, e.CanRedo())
	assert.Equal(t, stats, e.Names().Stats())
}

func TestEngine_PreviewHasNoSideEffect(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	_, err := e.Execute(ctx, segment(0))
	require.NoError(t, err)

	stats := e.Names().Stats()
	sizes := e.Graph().Sizes()

	rec, err := e.PreviewBegin(ctx, segment(3))
	require.NoError(t, err)
	assert.True(t, rec.Preview)
	assert.True(t, e.Previewing())
	assert.Equal(t, sizes[domain.KindVertex]+2, e.Graph().Sizes()[domain.KindVertex])

	_, err = e.Execute(ctx, segment(7))
	assert.ErrorIs(t, err, domain.ErrState)
	_, err = e.Undo(ctx)
	assert.ErrorIs(t, err, domain.ErrState)
	_, err = e.PreviewBegin(ctx, segment(7))
	assert.ErrorIs(t, err, domain.ErrState)

	require.NoError(t, e.PreviewEnd(ctx))
	assert.Equal(t, stats, e.Names().Stats())
	assert.Equal(t, sizes, e.Graph().Sizes())
	assert.Len(t, e.History(), 1)

	assert.ErrorIs(t, e.PreviewEnd(ctx), domain.ErrState)
}

func TestEngine_FailedPreviewReleasesShifting(t *testing.T) {
	e := newEngine()
	_, err := e.PreviewBegin(context.Background(), failing(domain.New(domain.CodePrecondition, "no")))
	require.Error(t, err)
	assert.False(t, e.Previewing())
	assert.False(t, e.Names().Shifting())
}

func TestEngine_CancelledContextRefuses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newEngine()

	_, err := e.Execute(ctx, segment(0))
	var cmdErr *runtime.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.False(t, cmdErr.RolledBack)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_InvariantCheckPanics(t *testing.T) {
	e := newEngine(runtime.WithInvariantChecks(true))
	cmd := runtime.NewCommand("corrupt", func(ctx context.Context, tx *topo.Tx) error {
		v := tx.NewVertex(domain.Point{})
		v.CoEdges = topo.NewIDSet(999)
		return nil
	})

	assert.Panics(t, func() {
		_, _ = e.Execute(context.Background(), cmd)
	})
}

func TestEngine_LifecycleHooks(t *testing.T) {
	ctx := context.Background()
	var events []domain.EventType
	var finished *domain.CommandEvent
	hooks := domain.LifecycleHooks{
		OnCommandStart: func(ctx context.Context, ev *domain.CommandEvent) { events = append(events, ev.Type) },
		OnCommandFinish: func(ctx context.Context, ev *domain.CommandEvent) {
			events = append(events, ev.Type)
			finished = ev
		},
		OnUndo: func(ctx context.Context, ev *domain.CommandEvent) { events = append(events, ev.Type) },
		OnRedo: func(ctx context.Context, ev *domain.CommandEvent) { events = append(events, ev.Type) },
	}
	e := newEngine(runtime.WithLifecycleHooks(hooks))

	rec, err := e.Execute(ctx, segment(0))
	require.NoError(t, err)
	require.NotNil(t, finished)
	assert.Equal(t, rec.ID, finished.CommandID)
	assert.Equal(t, 3, finished.Changes[domain.Created])

	_, err = e.Undo(ctx)
	require.NoError(t, err)
	_, err = e.Redo(ctx)
	require.NoError(t, err)
	_, err = e.Execute(ctx, failing(errors.New("external failure")))
	require.Error(t, err)
	assert.Error(t, finished.Err)

	assert.Equal(t, []domain.EventType{
		domain.EventCommandStart, domain.EventCommandFinish,
		domain.EventUndo, domain.EventRedo,
		domain.EventCommandStart, domain.EventCommandFinish,
	}, events)
}
